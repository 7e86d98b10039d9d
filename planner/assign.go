// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package planner

import (
	"cmp"
	"slices"

	"github.com/danielhkuo/route-optimiser/register"
)

// AssignRoundRobin deals stops to units like cards: stop i goes to unit i mod M.
// Returns the unit ID for each stop.
func AssignRoundRobin(stops []Stop, units []Unit) []string {
	out := make([]string, len(stops))
	if len(units) == 0 {
		return out
	}
	for i := range stops {
		out[i] = units[i%len(units)].ID
	}
	return out
}

// AssignBalanced gives whole chunks to units so address counts stay level.
// Chunks go largest first to the unit with the fewest addresses, then the
// fewest chunks, then the lowest position. Returns the unit ID for each chunk.
func AssignBalanced(chunks []Chunk, units []Unit) []string {
	out := make([]string, len(chunks))
	if len(units) == 0 {
		return out
	}

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if c := cmp.Compare(chunks[b].Size(), chunks[a].Size()); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	addrs := make([]int, len(units))
	counts := make([]int, len(units))
	for _, ci := range order {
		best := 0
		for u := 1; u < len(units); u++ {
			if addrs[u] < addrs[best] || (addrs[u] == addrs[best] && counts[u] < counts[best]) {
				best = u
			}
		}
		out[ci] = units[best].ID
		addrs[best] += chunks[ci].Size()
		counts[best]++
	}
	return out
}

// Build sequences the addresses and, unless the mode is ModeNone, splits the
// walk among canvassing units.
func Build(in PlanInput) (*Plan, error) {
	mode, err := ParseMode(string(in.Mode))
	if err != nil {
		return nil, err
	}
	// An unnamed mode splits round-robin whenever canvassers are given
	if in.Mode == "" && (len(in.Roster) > 0 || in.CanvasserCount > 0) {
		mode = ModeRoundRobin
	}

	stops := Sequence(in.Addresses, in.StreetOrder)
	if len(stops) == 0 {
		return nil, ErrEmptyRoute
	}

	chunks := Chunks(stops, in.MaxChunkSize)
	for _, c := range chunks {
		for i := c.Start; i < c.End; i++ {
			stops[i].Chunk = c.Index
		}
	}

	plan := &Plan{Mode: mode, Stops: stops, Chunks: chunks}
	if mode == ModeNone {
		return plan, nil
	}

	units, err := buildUnits(in)
	if err != nil {
		return nil, err
	}
	plan.Units = units

	switch mode {
	case ModeRoundRobin:
		for i, id := range AssignRoundRobin(stops, units) {
			stops[i].UnitID = id
		}
	case ModeBalanced:
		for ci, id := range AssignBalanced(chunks, units) {
			for i := chunks[ci].Start; i < chunks[ci].End; i++ {
				stops[i].UnitID = id
			}
		}
	}

	plan.Loads, plan.Spread = computeLoads(stops, units)
	return plan, nil
}

func buildUnits(in PlanInput) ([]Unit, error) {
	if len(in.Roster) > 0 {
		size := in.UnitSize
		if size == 0 {
			size = 1
		}
		return FormUnits(in.Roster, size, in.Exclusions)
	}
	return NumberedUnits(in.CanvasserCount)
}

func computeLoads(stops []Stop, units []Unit) ([]Load, int) {
	index := make(map[string]int, len(units))
	loads := make([]Load, len(units))
	chunkSeen := make([]map[int]bool, len(units))
	streetSeen := make([]map[string]bool, len(units))
	for i, u := range units {
		index[u.ID] = i
		loads[i] = Load{UnitID: u.ID, Label: u.Label}
		chunkSeen[i] = make(map[int]bool)
		streetSeen[i] = make(map[string]bool)
	}

	for _, s := range stops {
		i, ok := index[s.UnitID]
		if !ok {
			continue
		}
		l := &loads[i]
		l.Addresses++
		if l.FirstRouteOrder == 0 {
			l.FirstRouteOrder = s.RouteOrder
		}
		l.LastRouteOrder = s.RouteOrder
		chunkSeen[i][s.Chunk] = true
		streetSeen[i][register.StreetKey(s.Street)] = true
	}

	lo, hi := 0, 0
	for i := range loads {
		loads[i].Chunks = len(chunkSeen[i])
		loads[i].Streets = len(streetSeen[i])
		if i == 0 || loads[i].Addresses < lo {
			lo = loads[i].Addresses
		}
		if loads[i].Addresses > hi {
			hi = loads[i].Addresses
		}
	}
	return loads, hi - lo
}

// UnitStops returns the stops assigned to one unit, in route order
func (p *Plan) UnitStops(unitID string) []Stop {
	var out []Stop
	for _, s := range p.Stops {
		if s.UnitID == unitID {
			out = append(out, s)
		}
	}
	return out
}

// Unit looks up a unit by ID
func (p *Plan) Unit(unitID string) (Unit, bool) {
	for _, u := range p.Units {
		if u.ID == unitID {
			return u, true
		}
	}
	return Unit{}, false
}
