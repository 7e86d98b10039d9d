// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package planner

import (
	"errors"
	"fmt"
)

// Side of the street a stop is on
type Side string

const (
	SideOdd        Side = "odd"
	SideEven       Side = "even"
	SideUnnumbered Side = "unnumbered"
)

// Mode selects how the route is split among canvassers
type Mode string

const (
	ModeNone       Mode = "none"
	ModeRoundRobin Mode = "round_robin"
	ModeBalanced   Mode = "balanced"
)

// MaxNumberedUnits caps anonymous "Canvasser N" units
const MaxNumberedUnits = 20

var (
	ErrNoCanvassers = errors.New("no canvassers to assign")
	ErrUnitSize     = errors.New("unit size must be 1 or 2")
	ErrUnknownMode  = errors.New("unknown assignment mode")
	ErrEmptyRoute   = errors.New("no addresses on the selected streets")
)

// ParseMode validates a mode name. Empty selects ModeNone.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeNone, nil
	case ModeNone, ModeRoundRobin, ModeBalanced:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Address is a register entry as the planner sees it
type Address struct {
	ID          string
	Seq         int // register order, breaks ties between equal house numbers
	Street      string
	Address     string
	HouseNumber int
	HasNumber   bool
}

// Stop is an address placed on the walk
type Stop struct {
	Address
	Side       Side
	RouteOrder int    // 1-based position in the full walk
	Chunk      int    // index into Plan.Chunks
	UnitID     string // empty when the route is not split
}

// Chunk is a contiguous run of stops on one side of one street
type Chunk struct {
	Index  int
	Street string
	Side   Side
	Start  int // first stop index, inclusive
	End    int // last stop index, exclusive
}

func (c Chunk) Size() int {
	return c.End - c.Start
}

// Canvasser is a roster member
type Canvasser struct {
	ID   string
	Name string
}

// Exclusion forbids two canvassers from walking together
type Exclusion struct {
	A string
	B string
}

// Unit is an individual or pair that walks part of the route
type Unit struct {
	ID       string
	Label    string
	Position int
	Members  []Canvasser
}

// Load summarises what a unit was given
type Load struct {
	UnitID          string
	Label           string
	Addresses       int
	Chunks          int
	Streets         int
	FirstRouteOrder int
	LastRouteOrder  int
}

// PlanInput collects everything Build needs
type PlanInput struct {
	Addresses      []Address
	StreetOrder    []string
	Mode           Mode // empty: round-robin when canvassers are given, else none
	UnitSize       int
	MaxChunkSize   int
	Roster         []Canvasser
	Exclusions     []Exclusion
	CanvasserCount int // used when Roster is empty
}

// Plan is the ordered, optionally split route
type Plan struct {
	Mode   Mode
	Stops  []Stop
	Chunks []Chunk
	Units  []Unit
	Loads  []Load
	Spread int // max minus min addresses across units
}
