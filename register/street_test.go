// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package register

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHouseNumber(t *testing.T) {
	tests := []struct {
		address string
		want    int
		ok      bool
	}{
		{"12 High Street", 12, true},
		{"12A High Street", 12, true},
		{"Flat 2, 14 High Street", 2, true},
		{"High Street 7", 7, true},
		{"Rose Cottage", 0, false},
		{"", 0, false},
		{"007 Bond Road", 7, true},
		{"99999999999999999999999 Long Road", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			got, ok := ParseHouseNumber(tt.address)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStreetKey(t *testing.T) {
	assert.Equal(t, StreetKey("High Street"), StreetKey("  HIGH   street "))
	assert.NotEqual(t, StreetKey("High Street"), StreetKey("High Road"))
	assert.Equal(t, StreetKey("RUE DE L'ÉCOLE"), StreetKey("rue de l'école"))
}

func TestCleanStreet(t *testing.T) {
	assert.Equal(t, "Mill Lane", CleanStreet("  Mill \t Lane "))
	assert.Equal(t, "", CleanStreet("   "))
}

func TestStreets(t *testing.T) {
	records := []Record{
		{Street: "Mill Lane"},
		{Street: "High Street"},
		{Street: "HIGH STREET"},
		{Street: "Abbey Road"},
	}

	assert.Equal(t, []string{"Abbey Road", "High Street", "Mill Lane"}, Streets(records))

	counts := StreetCounts(records)
	assert.Equal(t, 2, counts[StreetKey("High Street")])
	assert.Equal(t, 1, counts[StreetKey("Mill Lane")])
}
