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
	"io"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidewater-labs/bughound/services/scanner"
	"github.com/tidewater-labs/bughound/services/scanner/plan"
)

var (
	flagTier       string
	flagDiff       string
	flagStagedDiff string

	scanCmd = &cobra.Command{
		Use:   "scan [files...]",
		Short: "Scan changed code and assemble analysis contexts",
		Long: `Scan plans targets from the supplied diff text (or from content-hash
change detection when no diff is given), runs the extraction pipeline
over them, and prints the assembled contexts. Naming files explicitly
scans exactly those files in full.`,
		RunE: runScan,
	}
)

func init() {
	scanCmd.Flags().StringVarP(&flagTier, "tier", "t", "", "scan tier: instant, standard, deep")
	scanCmd.Flags().StringVar(&flagDiff, "diff", "", "unified diff file for working-tree changes (\"-\" for stdin)")
	scanCmd.Flags().StringVar(&flagStagedDiff, "staged-diff", "", "unified diff file for staged changes")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	worktree, err := readDiff(flagDiff)
	if err != nil {
		return err
	}
	staged, err := readDiff(flagStagedDiff)
	if err != nil {
		return err
	}

	svc := scanner.NewService(scanner.ServiceConfig{
		CacheDir: cfg.CacheDir,
		Includes: cfg.Includes,
		Excludes: cfg.Excludes,
	})
	result, err := svc.Scan(ctx, scanner.Request{
		ProjectRoot:  flagRoot,
		Tier:         selectTier(),
		Files:        args,
		WorktreeDiff: worktree,
		StagedDiff:   staged,
	})
	if err != nil {
		return err
	}

	if jsonOutput() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printScanResult(result)
	if result.AllFailed() {
		return fmt.Errorf("all %d targets failed", result.Summary.Targets)
	}
	return nil
}

func printScanResult(result *scanner.Result) {
	sum := result.Summary
	if sum.Targets == 0 {
		fmt.Println("Nothing to scan.")
		return
	}

	fmt.Printf("Scan %s (%s tier): %d targets (%d changed, %d impacted), est %s\n",
		sum.ScanID, sum.Tier, sum.Targets, sum.Changed, sum.Impacted, sum.Estimate)

	paths := make([]string, 0, len(result.Contexts))
	for path := range result.Contexts {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		out := result.Contexts[path]
		fmt.Printf("  %-40s units=%d tokens=%d hits=%d\n",
			path, len(out.ChangedUnits), out.EstimatedTokens, out.CacheHits)
	}
	for _, te := range result.Errors {
		fmt.Printf("  %-40s FAILED: %s\n", te.FilePath, te.Message)
	}

	fmt.Printf("Units %d, cache %d/%d, took %s\n",
		sum.Units, sum.CacheHits, sum.CacheHits+sum.CacheMisses, sum.Duration.Round(time.Millisecond))
}

// selectTier resolves the tier from flag, config, then default.
func selectTier() plan.Tier {
	switch {
	case flagTier != "":
		return plan.Tier(flagTier)
	case cfg.Tier != "":
		return plan.Tier(cfg.Tier)
	default:
		return plan.TierStandard
	}
}

// readDiff loads diff text from a file, or stdin for "-".
func readDiff(path string) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read diff from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read diff %s: %w", path, err)
		}
		return string(data), nil
	}
}
