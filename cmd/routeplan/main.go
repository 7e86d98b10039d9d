// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command routeplan plans a canvassing walk from an electoral register
// without running the server.
//
//	routeplan streets register.csv
//	routeplan plan register.csv --streets "Oak Road,Elm Close" --canvassers 3 --mode balanced
//	routeplan plan register.csv --roster team.yaml --mode round_robin --report report.json
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "routeplan",
		Short: "Plan door-to-door canvassing routes from an electoral register",
		Long: `routeplan reads an electoral register CSV with Street and Address columns,
orders the addresses into a walk (odd numbers up, even numbers back) and
optionally splits the walk among canvassers or pairs of canvassers.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelInfo
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
	cmd.AddCommand(newStreetsCmd())
	cmd.AddCommand(newPlanCmd())
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
