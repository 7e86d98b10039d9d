// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/route-optimiser/export"
	"github.com/danielhkuo/route-optimiser/planner"
	"github.com/danielhkuo/route-optimiser/register"
)

type planOptions struct {
	streets      []string
	canvassers   int
	rosterPath   string
	mode         string
	unitSize     int
	maxChunk     int
	maxRows      int
	name         string
	out          string
	report       string
	reportFormat string
	bundle       string
}

func newPlanCmd() *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan <register.csv>",
		Short: "Order a register into a walk and write the app file",
		Long: `Order the addresses on the chosen streets into a walk and write it as a CSV
for the canvassing app. With --canvassers or --roster the walk is split among
canvassing units using --mode round_robin or balanced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&opts.streets, "streets", "s", nil, "streets to walk, in order (default: all, alphabetical)")
	f.IntVarP(&opts.canvassers, "canvassers", "n", 0, "number of anonymous canvassers (1-20)")
	f.StringVarP(&opts.rosterPath, "roster", "r", "", "YAML roster with names, unit_size and exclusions")
	f.StringVarP(&opts.mode, "mode", "m", "", "assignment mode: none, round_robin or balanced (default: round_robin with canvassers, else none)")
	f.IntVar(&opts.unitSize, "unit-size", 0, "1 for individuals, 2 for pairs (overrides the roster file)")
	f.IntVar(&opts.maxChunk, "max-chunk", 0, "largest run of doors handed out in balanced mode (0: whole sides)")
	f.IntVar(&opts.maxRows, "max-rows", 0, "reject registers with more rows than this (0: unlimited)")
	f.StringVar(&opts.name, "name", "", "canvass name for reports (default: file name)")
	f.StringVarP(&opts.out, "out", "o", export.AppFilename, "app CSV output path, - for stdout")
	f.StringVar(&opts.report, "report", "", "also write a report to this path")
	f.StringVar(&opts.reportFormat, "report-format", "", "report format: csv, json or yaml (default: from extension)")
	f.StringVar(&opts.bundle, "bundle", "", "also write a zip bundle to this path")
	cmd.MarkFlagsMutuallyExclusive("canvassers", "roster")

	return cmd
}

func runPlan(ctx context.Context, stdout io.Writer, path string, opts *planOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reg, err := readRegister(path, opts.maxRows)
	if err != nil {
		return err
	}

	in, fields, err := buildInput(reg, opts)
	if err != nil {
		return err
	}

	plan, err := planner.Build(in)
	if err != nil {
		return err
	}
	slog.Info("Plan built",
		"addresses", humanize.Comma(int64(len(plan.Stops))),
		"units", len(plan.Units),
		"spread", plan.Spread)

	name := opts.name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	d := export.FromPlan(export.Dataset{
		Name:        name,
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		Columns:     reg.Columns,
	}, plan, fields)

	if err := writeOutput(stdout, opts.out, func(w io.Writer) error { return export.WriteAppCSV(w, d) }); err != nil {
		return err
	}

	if opts.report != "" {
		format := opts.reportFormat
		if format == "" {
			format = strings.TrimPrefix(filepath.Ext(opts.report), ".")
		}
		f, err := export.ParseFormat(format)
		if err != nil {
			return err
		}
		rep := export.BuildReport(d)
		if err := writeOutput(stdout, opts.report, func(w io.Writer) error { return export.WriteReport(w, f, rep) }); err != nil {
			return err
		}
	}

	if opts.bundle != "" {
		if err := writeOutput(stdout, opts.bundle, func(w io.Writer) error { return export.WriteBundle(ctx, w, d) }); err != nil {
			return err
		}
	}
	return nil
}

// buildInput turns the register and flags into planner input. Address IDs are
// register line numbers so repeated runs give identical output.
func buildInput(reg *register.Register, opts *planOptions) (planner.PlanInput, map[string]map[string]string, error) {
	if _, err := planner.ParseMode(opts.mode); err != nil {
		return planner.PlanInput{}, nil, err
	}
	if opts.maxChunk < 0 {
		return planner.PlanInput{}, nil, fmt.Errorf("--max-chunk must not be negative")
	}

	in := planner.PlanInput{
		Mode:           planner.Mode(opts.mode),
		MaxChunkSize:   opts.maxChunk,
		CanvasserCount: opts.canvassers,
		UnitSize:       opts.unitSize,
	}

	if opts.rosterPath != "" {
		r, err := loadRoster(opts.rosterPath)
		if err != nil {
			return planner.PlanInput{}, nil, err
		}
		in.Roster = r.Canvassers
		in.Exclusions = r.Exclusions
		if in.UnitSize == 0 {
			in.UnitSize = r.UnitSize
		}
	}

	known := make(map[string]bool)
	for _, s := range register.Streets(reg.Records) {
		known[register.StreetKey(s)] = true
	}
	for _, s := range opts.streets {
		if !known[register.StreetKey(s)] {
			return planner.PlanInput{}, nil, fmt.Errorf("street %q is not in the register", s)
		}
		in.StreetOrder = append(in.StreetOrder, s)
	}

	fields := make(map[string]map[string]string, len(reg.Records))
	for i, rec := range reg.Records {
		id := fmt.Sprintf("L%d", rec.Line)
		in.Addresses = append(in.Addresses, planner.Address{
			ID:          id,
			Seq:         i,
			Street:      rec.Street,
			Address:     rec.Address,
			HouseNumber: rec.HouseNumber,
			HasNumber:   rec.HasNumber,
		})
		fields[id] = rec.Fields
	}
	return in, fields, nil
}

func readRegister(path string, maxRows int) (*register.Register, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reg, err := register.Parse(f, register.Options{MaxRows: maxRows})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("Register read",
		"path", path,
		"rows", humanize.Comma(int64(len(reg.Records))),
		"skipped", reg.Skipped)
	return reg, nil
}

func writeOutput(stdout io.Writer, path string, render func(io.Writer) error) error {
	if path == "-" {
		return render(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("Wrote file", "path", path)
	return nil
}
