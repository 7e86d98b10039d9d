// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Columns appended to the register columns in the app file
const (
	ColumnRouteOrder = "Route Order"
	ColumnCanvasser  = "Canvasser"
)

// AppFilename is the download name of the mobile app file
const AppFilename = "Optimised_Route_Plan.csv"

// WriteAppCSV writes the file imported by the canvassing app: the register's
// own columns, then Route Order and Canvasser, one row per stop in walk order.
// A register that already carries Route Order or Canvasser columns, such as a
// re-imported app file, has them overwritten in place.
func WriteAppCSV(w io.Writer, d Dataset) error {
	columns := d.Columns
	if len(columns) == 0 {
		columns = []string{"Street", "Address"}
	}

	header := append([]string{}, columns...)
	orderIdx := columnIndex(header, ColumnRouteOrder)
	if orderIdx < 0 {
		orderIdx = len(header)
		header = append(header, ColumnRouteOrder)
	}
	canvasserIdx := columnIndex(header, ColumnCanvasser)
	if canvasserIdx < 0 {
		canvasserIdx = len(header)
		header = append(header, ColumnCanvasser)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range d.Rows {
		for i, col := range columns {
			record[i] = cell(row, col)
		}
		record[orderIdx] = strconv.Itoa(row.RouteOrder)
		record[canvasserIdx] = d.UnitLabel(row.UnitID)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row.RouteOrder, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// columnIndex finds a column by name, ignoring case, or returns -1
func columnIndex(columns []string, name string) int {
	for i, col := range columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// cell reads a register column, falling back to the planned street and address
// for rows entered by hand
func cell(row Row, col string) string {
	if v, ok := row.Fields[col]; ok && v != "" {
		return v
	}
	switch {
	case strings.EqualFold(col, "Street"):
		return row.Street
	case strings.EqualFold(col, "Address"):
		return row.Address
	}
	return ""
}

// WriteWalkSheet writes one unit's stops
func WriteWalkSheet(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColumnRouteOrder, "Street", "Address", "Side"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		rec := []string{strconv.Itoa(row.RouteOrder), row.Street, row.Address, row.Side}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row.RouteOrder, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
