// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package register

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := "Elector,Street,Address,Ward\n" +
		"Ann Smith,High Street,1 High Street,North\n" +
		"Bob Jones,  high   street ,2 High Street,North\n" +
		"Cat Lee,Mill Lane,Rose Cottage,South\n"

	reg, err := Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Elector", "Street", "Address", "Ward"}, reg.Columns)
	require.Len(t, reg.Records, 3)
	assert.Equal(t, 0, reg.Skipped)

	first := reg.Records[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "High Street", first.Street)
	assert.Equal(t, "1 High Street", first.Address)
	assert.True(t, first.HasNumber)
	assert.Equal(t, 1, first.HouseNumber)
	assert.Equal(t, "Ann Smith", first.Fields["Elector"])
	assert.Equal(t, "North", first.Fields["Ward"])

	assert.Equal(t, "high street", reg.Records[1].Street)
	assert.False(t, reg.Records[2].HasNumber)
}

func TestParse_CaseInsensitiveHeaderAndBOM(t *testing.T) {
	input := "\xEF\xBB\xBFstreet,ADDRESS\nMill Lane,4 Mill Lane\n"

	reg, err := Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)
	require.Len(t, reg.Records, 1)
	assert.Equal(t, "street", reg.StreetColumn())
	assert.Equal(t, "ADDRESS", reg.AddressColumn())
	assert.Equal(t, "Mill Lane", reg.Records[0].Street)
}

func TestParse_MissingColumns(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no street", "Name,Address\nA,1 High St\n"},
		{"no address", "Street,Name\nHigh St,A\n"},
		{"neither", "Name\nA\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), Options{})
			assert.ErrorIs(t, err, ErrMissingColumns)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader(""), Options{})
	assert.ErrorIs(t, err, ErrEmptyRegister)

	_, err = Parse(strings.NewReader("Street,Address\n"), Options{})
	assert.ErrorIs(t, err, ErrEmptyRegister)
}

func TestParse_SkipsBlankStreetsAndRows(t *testing.T) {
	input := "Street,Address\n" +
		",9 Nowhere\n" +
		",,\n" +
		"Mill Lane,3 Mill Lane\n"

	reg, err := Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)
	assert.Len(t, reg.Records, 1)
	assert.Equal(t, 1, reg.Skipped)
}

func TestParse_RaggedRows(t *testing.T) {
	input := "Street,Address,Notes\nMill Lane,3 Mill Lane\n"

	reg, err := Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)
	require.Len(t, reg.Records, 1)
	notes, ok := reg.Records[0].Fields["Notes"]
	assert.True(t, ok)
	assert.Empty(t, notes)
}

func TestParse_MaxRows(t *testing.T) {
	input := "Street,Address\nA St,1 A St\nA St,2 A St\nA St,3 A St\n"

	_, err := Parse(strings.NewReader(input), Options{MaxRows: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyRows))

	reg, err := Parse(strings.NewReader(input), Options{MaxRows: 3})
	require.NoError(t, err)
	assert.Len(t, reg.Records, 3)
}

func TestParse_RepeatedAndBlankHeaders(t *testing.T) {
	input := "Street,Address,Phone,Phone,,Phone.1\n" +
		"High Street,1 High Street,111,222,x,y\n"

	reg, err := Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Street", "Address", "Phone", "Phone.2", "Unnamed: 4", "Phone.1"}, reg.Columns)
	require.Len(t, reg.Records, 1)
	fields := reg.Records[0].Fields
	assert.Equal(t, "111", fields["Phone"])
	assert.Equal(t, "222", fields["Phone.2"])
	assert.Equal(t, "x", fields["Unnamed: 4"])
	assert.Equal(t, "y", fields["Phone.1"])
}

func TestParse_FirstStreetColumnWins(t *testing.T) {
	input := "Street,Address,street\nHigh Street,1 High Street,Mill Lane\n"

	reg, err := Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Street", "Address", "street"}, reg.Columns)
	assert.Equal(t, "High Street", reg.Records[0].Street)
	assert.Equal(t, "Mill Lane", reg.Records[0].Fields["street"])
}
