// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package planner turns register addresses into an ordered canvassing walk and
splits it among canvassers.

# Ordering

Sequence visits streets in the operator's order and walks each one odd
numbers ascending, then even numbers ascending, then houses without a
number. Route orders run 1..N over the whole walk.

	stops := planner.Sequence(addrs, []string{"Mill Lane", "High Street"})

# Chunks

A chunk is one side of one street. Chunks can be capped with a maximum size,
in which case long sides are cut into nearly equal pieces.

# Units

Canvassers walk alone or in pairs. FormUnits pairs the roster while honouring
exclusions, which are hard constraints: an excluded pair never shares a unit,
even if that leaves someone walking alone.

# Assignment

Two modes split the walk:

  - ModeRoundRobin deals addresses one at a time, so loads differ by at most one
  - ModeBalanced hands out whole chunks, largest first, to the least loaded unit

Build runs the whole pipeline and reports per-unit loads:

	plan, err := planner.Build(planner.PlanInput{
		Addresses:    addrs,
		Mode:         planner.ModeBalanced,
		UnitSize:     2,
		Roster:       roster,
		Exclusions:   exclusions,
		MaxChunkSize: 40,
	})

The same input always produces the same plan.
*/
package planner
