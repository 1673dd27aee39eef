// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tidewater-labs/bughound/services/scanner"
	"github.com/tidewater-labs/bughound/services/scanner/graph"
	"github.com/tidewater-labs/bughound/services/scanner/manifest"
	"github.com/tidewater-labs/bughound/services/scanner/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what a scan would target, without scanning",
	Long: `Plan resolves the target list for the given tier and diff text and
prints it. No files are parsed beyond import extraction and nothing is
persisted.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&flagTier, "tier", "t", "", "scan tier: instant, standard, deep")
	planCmd.Flags().StringVar(&flagDiff, "diff", "", "unified diff file for working-tree changes (\"-\" for stdin)")
	planCmd.Flags().StringVar(&flagStagedDiff, "staged-diff", "", "unified diff file for staged changes")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	worktree, err := readDiff(flagDiff)
	if err != nil {
		return err
	}
	staged, err := readDiff(flagStagedDiff)
	if err != nil {
		return err
	}

	tier, err := plan.Config(selectTier())
	if err != nil {
		return err
	}

	m, err := discoverFiles(ctx)
	if err != nil {
		return err
	}
	listing := m.Listing()

	var g *graph.Graph
	if tier.IncludeImpacted {
		built, err := graph.NewBuilder(flagRoot).Build(ctx, listing)
		if err != nil {
			return err
		}
		g = built.Graph
	}

	out, err := plan.NewPlanner(g).Plan(ctx, plan.Request{
		Tier:         tier.Name,
		WorktreeDiff: worktree,
		StagedDiff:   staged,
		Listing:      listing,
	})
	if err != nil {
		if errors.Is(err, plan.ErrNoTargets) {
			fmt.Println("Nothing to scan.")
			return nil
		}
		return err
	}

	if jsonOutput() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("%d targets (%s tier), est %s:\n",
		len(out.Targets), tier.Name, scanner.EstimateDuration(len(out.Targets), tier))
	for _, t := range out.Targets {
		switch t.Mode {
		case plan.ModeChanged:
			fmt.Printf("  changed   %s lines=%v\n", t.FilePath, t.ChangedLines)
		case plan.ModeImpacted:
			fmt.Printf("  impacted  %s\n", t.FilePath)
		default:
			fmt.Printf("  full      %s\n", t.FilePath)
		}
	}
	return nil
}

// discoverFiles runs the manifest scanner with the configured globs.
func discoverFiles(ctx context.Context) (*manifest.Manifest, error) {
	var opts []manifest.ScannerOption
	if len(cfg.Includes) > 0 || len(cfg.Excludes) > 0 {
		includes := cfg.Includes
		if len(includes) == 0 {
			includes = manifest.DefaultIncludes
		}
		excludes := cfg.Excludes
		if len(excludes) == 0 {
			excludes = manifest.DefaultExcludes
		}
		opts = append(opts, manifest.WithPatterns(includes, excludes))
	}
	return manifest.NewScanner(opts...).Scan(ctx, flagRoot)
}
