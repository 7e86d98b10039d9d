// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package register parses electoral register CSV files.

# Format

The first row is a header. Two columns are required, matched without regard
to case:

  - Street: the street the elector lives on
  - Address: the address line, usually starting with a house number

Any other columns are kept verbatim in Record.Fields so exports can
reproduce them.

	reg, err := register.Parse(file, register.Options{MaxRows: 20000})
	if errors.Is(err, register.ErrMissingColumns) {
		// tell the operator which columns are needed
	}

# Streets

Street names are grouped by StreetKey, which collapses whitespace and
case-folds, so "HIGH  STREET" and "High Street" are the same street.
Rows with a blank street are counted in Register.Skipped and dropped.

# House Numbers

ParseHouseNumber takes the first run of digits in the address. Addresses
without digits (named houses) have HasNumber false.
*/
package register
