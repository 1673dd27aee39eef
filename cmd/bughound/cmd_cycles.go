// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tidewater-labs/bughound/services/scanner/graph"
)

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Detect import cycles in the project",
	Long: `Cycles builds the project's import graph and reports every distinct
import cycle. Exits non-zero when cycles exist, so it can gate CI.`,
	RunE: runCycles,
}

func runCycles(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	m, err := discoverFiles(ctx)
	if err != nil {
		return err
	}

	built, err := graph.NewBuilder(flagRoot).Build(ctx, m.Listing())
	if err != nil {
		return err
	}
	cycles := built.Graph.FindCycles()

	if jsonOutput() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cycles); err != nil {
			return err
		}
	} else if len(cycles) == 0 {
		fmt.Printf("No import cycles in %d files.\n", built.Graph.Size())
	} else {
		fmt.Printf("%d import cycle(s):\n", len(cycles))
		for _, cycle := range cycles {
			fmt.Printf("  %s\n", strings.Join(cycle, " -> "))
		}
	}

	if len(cycles) > 0 {
		return fmt.Errorf("%d import cycle(s) found", len(cycles))
	}
	return nil
}
