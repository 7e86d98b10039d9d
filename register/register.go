// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package register

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Required column names. Matching is case-insensitive.
const (
	ColumnStreet  = "Street"
	ColumnAddress = "Address"
)

var (
	ErrMissingColumns = errors.New("CSV must contain at least 'Street' and 'Address' columns.")
	ErrEmptyRegister  = errors.New("register has no rows")
	ErrTooManyRows    = errors.New("register has too many rows")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options bounds what Parse will accept
type Options struct {
	MaxRows int // 0 means unlimited
}

// Record is one elector row from the register
type Record struct {
	Line        int               // 1-based line in the source file, header is line 1
	Street      string            // cleaned display name
	Address     string            // address as written in the register
	HouseNumber int               // valid only when HasNumber is true
	HasNumber   bool
	Fields      map[string]string // every source column, keyed by header
}

// Register is a parsed electoral register
type Register struct {
	Columns []string // header in file order, made unique
	Records []Record
	Skipped int // rows with a blank street
}

// Parse reads an electoral register CSV.
func Parse(r io.Reader, opts Options) (*Register, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyRegister
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := uniqueColumns(header)
	streetIdx, addressIdx := -1, -1
	for i := range columns {
		switch {
		case streetIdx < 0 && strings.EqualFold(columns[i], ColumnStreet):
			streetIdx = i
		case addressIdx < 0 && strings.EqualFold(columns[i], ColumnAddress):
			addressIdx = i
		}
	}
	if streetIdx < 0 || addressIdx < 0 {
		return nil, ErrMissingColumns
	}

	reg := &Register{Columns: columns}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read register: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if blankRow(row) {
			continue
		}

		fields := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(row) {
				fields[col] = strings.TrimSpace(row[i])
			} else {
				fields[col] = ""
			}
		}

		street := CleanStreet(fields[columns[streetIdx]])
		if street == "" {
			reg.Skipped++
			continue
		}

		if opts.MaxRows > 0 && len(reg.Records) >= opts.MaxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, opts.MaxRows)
		}

		address := fields[columns[addressIdx]]
		num, ok := ParseHouseNumber(address)
		reg.Records = append(reg.Records, Record{
			Line:        line,
			Street:      street,
			Address:     address,
			HouseNumber: num,
			HasNumber:   ok,
			Fields:      fields,
		})
	}

	if len(reg.Records) == 0 && reg.Skipped == 0 {
		return nil, ErrEmptyRegister
	}

	return reg, nil
}

// uniqueColumns trims the header and names every column distinctly, so no
// cell is lost when rows are keyed by column. A blank cell becomes
// "Unnamed: <index>" and a repeated name gets ".1", ".2" and so on.
func uniqueColumns(header []string) []string {
	names := make([]string, len(header))
	original := make(map[string]bool, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
		if names[i] == "" {
			names[i] = fmt.Sprintf("Unnamed: %d", i)
		}
		original[names[i]] = true
	}

	columns := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	suffix := make(map[string]int)
	for i, name := range names {
		if !taken[name] {
			taken[name] = true
			columns[i] = name
			continue
		}
		for {
			suffix[name]++
			candidate := fmt.Sprintf("%s.%d", name, suffix[name])
			if !taken[candidate] && !original[candidate] {
				taken[candidate] = true
				columns[i] = candidate
				break
			}
		}
	}
	return columns
}

// StreetColumn returns the header cell used for the street
func (r *Register) StreetColumn() string {
	return findColumn(r.Columns, ColumnStreet)
}

// AddressColumn returns the header cell used for the address
func (r *Register) AddressColumn() string {
	return findColumn(r.Columns, ColumnAddress)
}

func findColumn(columns []string, name string) string {
	for _, c := range columns {
		if strings.EqualFold(c, name) {
			return c
		}
	}
	return name
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
