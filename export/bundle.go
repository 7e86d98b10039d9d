// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// BundleFilename is the download name of the zip bundle
const BundleFilename = "route_plan_bundle.zip"

type bundleFile struct {
	name   string
	render func(io.Writer) error
}

// WriteBundle writes a zip with the app file, the report in CSV and JSON, a
// plain-text summary and one walk sheet per unit. Files are rendered
// concurrently and written in a fixed order, so equal datasets give equal
// archives.
func WriteBundle(ctx context.Context, w io.Writer, d Dataset) error {
	rep := BuildReport(d)

	files := []bundleFile{
		{"route_plan.csv", func(w io.Writer) error { return WriteAppCSV(w, d) }},
		{"report.csv", func(w io.Writer) error { return WriteReport(w, FormatCSV, rep) }},
		{"report.json", func(w io.Writer) error { return WriteReport(w, FormatJSON, rep) }},
		{"summary.txt", func(w io.Writer) error { return WriteSummary(w, rep) }},
	}
	for _, u := range d.Units {
		rows := d.UnitRows(u.ID)
		files = append(files, bundleFile{
			name:   "walk_sheets/" + u.ID + ".csv",
			render: func(w io.Writer) error { return WriteWalkSheet(w, rows) },
		})
	}

	rendered := make([]bytes.Buffer, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f.render(&rendered[i]); err != nil {
				return fmt.Errorf("render %s: %w", f.name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	modified := d.GeneratedAt
	if modified.IsZero() {
		modified = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	zw := zip.NewWriter(w)
	for i, f := range files {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", f.name, err)
		}
		if _, err := fw.Write(rendered[i].Bytes()); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return zw.Close()
}

// WriteSummary writes a short human-readable overview of a report
func WriteSummary(w io.Writer, rep Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Canvass: %s\n", rep.Canvass)
	fmt.Fprintf(&b, "Generated: %s\n", rep.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Addresses: %s on %s streets\n",
		humanize.Comma(int64(rep.TotalAddresses)), humanize.Comma(int64(rep.TotalStreets)))

	if len(rep.Units) == 0 {
		b.WriteString("Route not split among canvassers\n")
	} else {
		fmt.Fprintf(&b, "Units: %d (%s), spread %s addresses\n",
			len(rep.Units), rep.Mode, humanize.Comma(int64(rep.Spread)))
		for _, u := range rep.Units {
			share := 0.0
			if rep.TotalAddresses > 0 {
				share = 100 * float64(u.Addresses) / float64(rep.TotalAddresses)
			}
			fmt.Fprintf(&b, "  %s: %s addresses (%s%%), %s streets, stops %d-%d\n",
				u.Label, humanize.Comma(int64(u.Addresses)), humanize.FormatFloat("#.#", share),
				humanize.Comma(int64(u.Streets)), u.FirstRouteOrder, u.LastRouteOrder)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
