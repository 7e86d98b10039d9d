// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/route-optimiser/register"
)

// Format of a report download
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat validates a format name. Empty selects CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	}
	return "text/csv"
}

// Report is the internal summary of a plan
type Report struct {
	CanvassID      string         `json:"canvass_id" yaml:"canvass_id"`
	Canvass        string         `json:"canvass" yaml:"canvass"`
	Mode           string         `json:"mode" yaml:"mode"`
	GeneratedAt    time.Time      `json:"generated_at" yaml:"generated_at"`
	TotalAddresses int            `json:"total_addresses" yaml:"total_addresses"`
	TotalStreets   int            `json:"total_streets" yaml:"total_streets"`
	Spread         int            `json:"spread" yaml:"spread"`
	Units          []UnitReport   `json:"units" yaml:"units"`
	Streets        []StreetReport `json:"streets" yaml:"streets"`
}

type UnitReport struct {
	ID              string   `json:"id" yaml:"id"`
	Label           string   `json:"label" yaml:"label"`
	Members         []string `json:"members,omitempty" yaml:"members,omitempty"`
	Addresses       int      `json:"addresses" yaml:"addresses"`
	Chunks          int      `json:"chunks" yaml:"chunks"`
	Streets         int      `json:"streets" yaml:"streets"`
	FirstRouteOrder int      `json:"first_route_order" yaml:"first_route_order"`
	LastRouteOrder  int      `json:"last_route_order" yaml:"last_route_order"`
	WalkURL         string   `json:"walk_url,omitempty" yaml:"walk_url,omitempty"`
}

type StreetReport struct {
	Street     string   `json:"street" yaml:"street"`
	Addresses  int      `json:"addresses" yaml:"addresses"`
	Odd        int      `json:"odd" yaml:"odd"`
	Even       int      `json:"even" yaml:"even"`
	Unnumbered int      `json:"unnumbered" yaml:"unnumbered"`
	Units      []string `json:"units,omitempty" yaml:"units,omitempty"`
}

// BuildReport summarises a dataset per unit and per street
func BuildReport(d Dataset) Report {
	rep := Report{
		CanvassID:      d.CanvassID,
		Canvass:        d.Name,
		Mode:           d.Mode,
		GeneratedAt:    d.GeneratedAt,
		TotalAddresses: len(d.Rows),
		Units:          []UnitReport{},
		Streets:        []StreetReport{},
	}

	unitIdx := make(map[string]int, len(d.Units))
	unitChunks := make([]map[int]bool, len(d.Units))
	unitStreets := make([]map[string]bool, len(d.Units))
	for i, u := range d.Units {
		unitIdx[u.ID] = i
		unitChunks[i] = make(map[int]bool)
		unitStreets[i] = make(map[string]bool)
		rep.Units = append(rep.Units, UnitReport{
			ID:      u.ID,
			Label:   u.Label,
			Members: u.Members,
			WalkURL: u.WalkURL,
		})
	}

	streetIdx := make(map[string]int)
	streetUnits := make(map[string]map[string]bool)
	for _, row := range d.Rows {
		key := register.StreetKey(row.Street)
		si, ok := streetIdx[key]
		if !ok {
			si = len(rep.Streets)
			streetIdx[key] = si
			streetUnits[key] = make(map[string]bool)
			rep.Streets = append(rep.Streets, StreetReport{Street: row.Street})
		}
		st := &rep.Streets[si]
		st.Addresses++
		switch row.Side {
		case "odd":
			st.Odd++
		case "even":
			st.Even++
		default:
			st.Unnumbered++
		}

		ui, ok := unitIdx[row.UnitID]
		if !ok {
			continue
		}
		if !streetUnits[key][row.UnitID] {
			streetUnits[key][row.UnitID] = true
			st.Units = append(st.Units, d.Units[ui].Label)
		}
		ur := &rep.Units[ui]
		ur.Addresses++
		if ur.FirstRouteOrder == 0 {
			ur.FirstRouteOrder = row.RouteOrder
		}
		ur.LastRouteOrder = row.RouteOrder
		unitChunks[ui][row.Chunk] = true
		unitStreets[ui][key] = true
	}
	rep.TotalStreets = len(rep.Streets)

	for i := range rep.Units {
		rep.Units[i].Chunks = len(unitChunks[i])
		rep.Units[i].Streets = len(unitStreets[i])
	}
	rep.Spread = spread(rep.Units)
	return rep
}

func spread(units []UnitReport) int {
	if len(units) == 0 {
		return 0
	}
	lo, hi := units[0].Addresses, units[0].Addresses
	for _, u := range units[1:] {
		lo = min(lo, u.Addresses)
		hi = max(hi, u.Addresses)
	}
	return hi - lo
}

// WriteReport renders a report in the given format
func WriteReport(w io.Writer, f Format, rep Report) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return writeReportCSV(w, rep)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

var reportHeader = []string{
	"Kind", "Name", "Members", "Addresses", "Odd", "Even", "Unnumbered",
	"Chunks", "Streets", "First Route Order", "Last Route Order",
}

// writeReportCSV writes unit rows, then street rows, then a total row
func writeReportCSV(w io.Writer, rep Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	itoa := strconv.Itoa
	for _, u := range rep.Units {
		cw.Write([]string{
			"unit", u.Label, strings.Join(u.Members, "; "), itoa(u.Addresses), "", "", "",
			itoa(u.Chunks), itoa(u.Streets), itoa(u.FirstRouteOrder), itoa(u.LastRouteOrder),
		})
	}
	for _, s := range rep.Streets {
		cw.Write([]string{
			"street", s.Street, strings.Join(s.Units, "; "), itoa(s.Addresses),
			itoa(s.Odd), itoa(s.Even), itoa(s.Unnumbered), "", "", "", "",
		})
	}
	cw.Write([]string{
		"total", rep.Canvass, "", itoa(rep.TotalAddresses), "", "", "",
		"", itoa(rep.TotalStreets), "", "",
	})

	cw.Flush()
	return cw.Error()
}
