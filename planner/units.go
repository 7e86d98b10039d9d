// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package planner

import (
	"fmt"
	"slices"
	"strings"
)

// FormUnits groups the roster into walking units.
//
// With size 1 everyone walks alone. With size 2 canvassers are paired in
// roster order, each taking the next free canvasser they are not excluded
// from. Leftover solos are then merged by swapping partners with an existing
// pair where the exclusions allow it. Anyone still unpaired walks alone.
func FormUnits(roster []Canvasser, size int, exclusions []Exclusion) ([]Unit, error) {
	if len(roster) == 0 {
		return nil, ErrNoCanvassers
	}

	var groups [][]int
	switch size {
	case 1:
		for i := range roster {
			groups = append(groups, []int{i})
		}
	case 2:
		groups = pairUp(roster, exclusions)
	default:
		return nil, fmt.Errorf("%w: got %d", ErrUnitSize, size)
	}

	units := make([]Unit, len(groups))
	for i, g := range groups {
		members := make([]Canvasser, len(g))
		names := make([]string, len(g))
		for j, idx := range g {
			members[j] = roster[idx]
			names[j] = roster[idx].Name
		}
		units[i] = Unit{
			ID:       unitID(i),
			Label:    strings.Join(names, " & "),
			Position: i,
			Members:  members,
		}
	}
	return units, nil
}

// NumberedUnits returns n anonymous units labelled "Canvasser 1".."Canvasser n"
func NumberedUnits(n int) ([]Unit, error) {
	if n < 1 {
		return nil, ErrNoCanvassers
	}
	if n > MaxNumberedUnits {
		return nil, fmt.Errorf("at most %d numbered canvassers, got %d", MaxNumberedUnits, n)
	}

	units := make([]Unit, n)
	for i := range units {
		units[i] = Unit{
			ID:       unitID(i),
			Label:    fmt.Sprintf("Canvasser %d", i+1),
			Position: i,
		}
	}
	return units, nil
}

func unitID(position int) string {
	return fmt.Sprintf("unit-%d", position+1)
}

type pairKey struct{ a, b string }

func newPairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

func pairUp(roster []Canvasser, exclusions []Exclusion) [][]int {
	excluded := make(map[pairKey]bool, len(exclusions))
	for _, e := range exclusions {
		excluded[newPairKey(e.A, e.B)] = true
	}
	ok := func(i, j int) bool {
		return !excluded[newPairKey(roster[i].ID, roster[j].ID)]
	}

	var groups [][]int
	taken := make([]bool, len(roster))
	for i := range roster {
		if taken[i] {
			continue
		}
		taken[i] = true
		partner := -1
		for j := i + 1; j < len(roster); j++ {
			if !taken[j] && ok(i, j) {
				partner = j
				break
			}
		}
		if partner < 0 {
			groups = append(groups, []int{i})
			continue
		}
		taken[partner] = true
		groups = append(groups, []int{i, partner})
	}

	for mergeSolos(groups, ok) {
		groups = slices.DeleteFunc(groups, func(g []int) bool { return len(g) == 0 })
	}

	for _, g := range groups {
		slices.Sort(g)
	}
	slices.SortFunc(groups, func(a, b []int) int { return a[0] - b[0] })
	return groups
}

// mergeSolos turns two solos s, t and a pair (a, b) into (s, a) and (t, b)
// when that respects the exclusions. The emptied group is left for the caller
// to drop. Reports whether a merge happened.
func mergeSolos(groups [][]int, ok func(i, j int) bool) bool {
	var solos []int
	for gi, g := range groups {
		if len(g) == 1 {
			solos = append(solos, gi)
		}
	}

	for x := 0; x < len(solos); x++ {
		for y := x + 1; y < len(solos); y++ {
			s, t := groups[solos[x]][0], groups[solos[y]][0]
			for gi, g := range groups {
				if len(g) != 2 {
					continue
				}
				a, b := g[0], g[1]
				switch {
				case ok(s, a) && ok(t, b):
				case ok(s, b) && ok(t, a):
					a, b = b, a
				default:
					continue
				}
				groups[gi] = []int{a, s}
				groups[solos[x]] = []int{b, t}
				groups[solos[y]] = nil
				return true
			}
		}
	}
	return false
}
