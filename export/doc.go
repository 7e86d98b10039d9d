// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package export renders planned routes into downstream files.

# App File

WriteAppCSV produces the file imported by the canvassing app. It keeps the
register's columns in their original order and appends Route Order and
Canvasser.

# Report

BuildReport summarises a plan per unit and per street. WriteReport renders it
as CSV, JSON or YAML:

	rep := export.BuildReport(ds)
	err := export.WriteReport(w, export.FormatYAML, rep)

# Bundle

WriteBundle zips everything, including one walk sheet per unit.

Exports never read storage; callers assemble a Dataset first, either from the
database or with FromPlan.
*/
package export
