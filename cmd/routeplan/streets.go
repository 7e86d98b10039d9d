// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/route-optimiser/register"
)

func newStreetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streets <register.csv>",
		Short: "List the streets in a register with their address counts",
		Args:  cobra.ExactArgs(1),
		RunE:  runStreets,
	}
}

func runStreets(cmd *cobra.Command, args []string) error {
	reg, err := readRegister(args[0], 0)
	if err != nil {
		return err
	}

	counts := register.StreetCounts(reg.Records)
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STREET\tADDRESSES")
	for _, s := range register.Streets(reg.Records) {
		fmt.Fprintf(tw, "%s\t%s\n", s, humanize.Comma(int64(counts[register.StreetKey(s)])))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if reg.Skipped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d rows with no street\n", reg.Skipped)
	}
	return nil
}
