// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package planner

import (
	"cmp"
	"slices"

	"github.com/danielhkuo/route-optimiser/register"
)

// Sequence orders addresses into a walk.
//
// Streets are visited in streetOrder; streets missing from the order are left
// off the route. An empty order visits every street alphabetically. Each street
// is walked odd numbers ascending, then even ascending, then unnumbered houses.
func Sequence(addrs []Address, streetOrder []string) []Stop {
	byStreet := make(map[string][]Address)
	for _, a := range addrs {
		key := register.StreetKey(a.Street)
		byStreet[key] = append(byStreet[key], a)
	}

	var keys []string
	if len(streetOrder) == 0 {
		for k := range byStreet {
			keys = append(keys, k)
		}
		slices.Sort(keys)
	} else {
		seen := make(map[string]bool, len(streetOrder))
		for _, s := range streetOrder {
			k := register.StreetKey(s)
			if seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, k)
		}
	}

	stops := make([]Stop, 0, len(addrs))
	for _, k := range keys {
		for _, s := range walkStreet(byStreet[k]) {
			s.RouteOrder = len(stops) + 1
			stops = append(stops, s)
		}
	}
	return stops
}

func walkStreet(addrs []Address) []Stop {
	sorted := slices.Clone(addrs)
	slices.SortStableFunc(sorted, func(a, b Address) int {
		return cmp.Compare(a.Seq, b.Seq)
	})

	var odds, evens, rest []Stop
	for _, a := range sorted {
		switch {
		case !a.HasNumber:
			rest = append(rest, Stop{Address: a, Side: SideUnnumbered})
		case a.HouseNumber%2 == 1:
			odds = append(odds, Stop{Address: a, Side: SideOdd})
		default:
			evens = append(evens, Stop{Address: a, Side: SideEven})
		}
	}

	byNumber := func(a, b Stop) int {
		return cmp.Compare(a.HouseNumber, b.HouseNumber)
	}
	slices.SortStableFunc(odds, byNumber)
	slices.SortStableFunc(evens, byNumber)

	out := make([]Stop, 0, len(addrs))
	out = append(out, odds...)
	out = append(out, evens...)
	return append(out, rest...)
}

// Chunks splits a walk into runs of the same street side.
// Runs longer than maxSize are cut into nearly equal pieces; maxSize <= 0
// leaves runs whole.
func Chunks(stops []Stop, maxSize int) []Chunk {
	var chunks []Chunk
	start := 0
	for i := 1; i <= len(stops); i++ {
		if i < len(stops) && sameRun(stops[start], stops[i]) {
			continue
		}
		chunks = appendRun(chunks, stops[start], start, i, maxSize)
		start = i
	}
	return chunks
}

func sameRun(a, b Stop) bool {
	return a.Side == b.Side && register.StreetKey(a.Street) == register.StreetKey(b.Street)
}

func appendRun(chunks []Chunk, first Stop, start, end, maxSize int) []Chunk {
	n := end - start
	pieces := 1
	if maxSize > 0 && n > maxSize {
		pieces = (n + maxSize - 1) / maxSize
	}
	base, extra := n/pieces, n%pieces

	at := start
	for p := 0; p < pieces; p++ {
		size := base
		if p < extra {
			size++
		}
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Street: first.Street,
			Side:   first.Side,
			Start:  at,
			End:    at + size,
		})
		at += size
	}
	return chunks
}
