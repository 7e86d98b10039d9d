// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package export

import (
	"time"

	"github.com/danielhkuo/route-optimiser/planner"
)

// Row is one planned stop with its register columns
type Row struct {
	AddressID   string
	RouteOrder  int
	Street      string
	Address     string
	HouseNumber int
	HasNumber   bool
	Side        string
	Chunk       int
	UnitID      string // empty when the route is not split
	Fields      map[string]string
}

// Unit is a walking unit as it appears in exports
type Unit struct {
	ID      string
	Label   string
	Members []string
	WalkURL string
}

// Dataset is everything an export needs, independent of storage
type Dataset struct {
	CanvassID   string
	Name        string
	Mode        string
	GeneratedAt time.Time
	Columns     []string // register header, in file order
	Units       []Unit
	Rows        []Row // in route order
}

// UnitLabel returns the label for a unit ID, or "" when unknown
func (d Dataset) UnitLabel(unitID string) string {
	for _, u := range d.Units {
		if u.ID == unitID {
			return u.Label
		}
	}
	return ""
}

// UnitRows returns the rows walked by one unit
func (d Dataset) UnitRows(unitID string) []Row {
	var out []Row
	for _, r := range d.Rows {
		if r.UnitID == unitID {
			out = append(out, r)
		}
	}
	return out
}

// FromPlan builds a Dataset from an in-memory plan. fields maps address IDs to
// their register columns.
func FromPlan(d Dataset, plan *planner.Plan, fields map[string]map[string]string) Dataset {
	d.Mode = string(plan.Mode)
	d.Units = make([]Unit, len(plan.Units))
	for i, u := range plan.Units {
		members := make([]string, len(u.Members))
		for j, m := range u.Members {
			members[j] = m.Name
		}
		d.Units[i] = Unit{ID: u.ID, Label: u.Label, Members: members}
	}

	d.Rows = make([]Row, len(plan.Stops))
	for i, s := range plan.Stops {
		d.Rows[i] = Row{
			AddressID:   s.ID,
			RouteOrder:  s.RouteOrder,
			Street:      s.Street,
			Address:     s.Address.Address,
			HouseNumber: s.HouseNumber,
			HasNumber:   s.HasNumber,
			Side:        string(s.Side),
			Chunk:       s.Chunk,
			UnitID:      s.UnitID,
			Fields:      fields[s.ID],
		}
	}
	return d
}
