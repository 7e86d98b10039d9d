// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package register

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// ParseHouseNumber extracts the first run of digits in an address.
// "Flat 2, 14 High St" yields 2, matching how the register is usually keyed.
func ParseHouseNumber(address string) (int, bool) {
	start := -1
	for i := 0; i < len(address); i++ {
		c := address[i]
		if c >= '0' && c <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return atoi(address[start:i])
		}
	}
	if start >= 0 {
		return atoi(address[start:])
	}
	return 0, false
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CleanStreet trims a street name and collapses internal whitespace
func CleanStreet(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// StreetKey returns the grouping key for a street name.
// Spelling variants that differ only in case or spacing share a key.
func StreetKey(name string) string {
	return cases.Fold().String(CleanStreet(name))
}

// Streets returns the unique street names in records, sorted by key.
// The first spelling seen for each key is the one returned.
func Streets(records []Record) []string {
	seen := make(map[string]string)
	for _, rec := range records {
		key := StreetKey(rec.Street)
		if _, ok := seen[key]; !ok {
			seen[key] = rec.Street
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	streets := make([]string, len(keys))
	for i, k := range keys {
		streets[i] = seen[k]
	}
	return streets
}

// StreetCounts returns the number of records per street key
func StreetCounts(records []Record) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[StreetKey(rec.Street)]++
	}
	return counts
}
