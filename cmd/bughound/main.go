// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// bughound is the incremental bug-scanning CLI.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tidewater-labs/bughound/pkg/logging"
)

var (
	cfg    Config
	logger *logging.Logger

	flagConfig   string
	flagRoot     string
	flagLogLevel string
	flagJSON     bool
	flagQuiet    bool

	rootCmd = &cobra.Command{
		Use:   "bughound",
		Short: "Incremental bug scanning for TypeScript and JavaScript projects",
		Long: `bughound analyzes what changed in a project, follows the import
graph to the code the change can affect, and assembles budgeted context
bundles for downstream bug analysis. Unchanged, unaffected code is
skipped via a persisted findings cache.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: <root>/.bughound.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flagRoot, "root", "r", ".", "project root to scan")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "force JSON output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress log output")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(flagRoot, flagConfig)
		if err != nil {
			return err
		}

		level := cfg.LogLevel
		if flagLogLevel != "" {
			level = flagLogLevel
		}
		logger = logging.New(logging.Config{
			Level:   logging.ParseLevel(level),
			LogDir:  cfg.LogDir,
			Service: "bughound",
			Quiet:   flagQuiet,
		})
		logger.Install()
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	}

	rootCmd.AddCommand(scanCmd, planCmd, cyclesCmd)
}

// jsonOutput reports whether results should be machine-readable:
// forced by --json, or implied by a non-terminal stdout.
func jsonOutput() bool {
	return flagJSON || !isatty.IsTerminal(os.Stdout.Fd())
}
