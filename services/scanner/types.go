// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scanner

import (
	"fmt"
	"time"

	scancontext "github.com/tidewater-labs/bughound/services/scanner/context"
	"github.com/tidewater-labs/bughound/services/scanner/diff"
	"github.com/tidewater-labs/bughound/services/scanner/plan"
)

// Request describes one scan invocation.
type Request struct {
	// ProjectRoot is the directory the scan runs under. Required.
	ProjectRoot string

	// Tier selects the scan depth preset.
	Tier plan.Tier

	// Files, when non-empty, bypasses change detection and scans the
	// named project-relative files in full.
	Files []string

	// WorktreeDiff and StagedDiff are unified diff texts supplied by
	// the caller; the engine never invokes version control itself. When
	// both are empty and Files is empty, whole-file change detection
	// against the stored file-hash document takes over.
	WorktreeDiff string
	StagedDiff   string
}

// Summary aggregates the counters a progress UI reports after a scan.
type Summary struct {
	// ScanID is the unique identifier stamped on this scan.
	ScanID string `json:"scan_id"`

	// Tier is the tier the scan ran under.
	Tier plan.Tier `json:"tier"`

	// Targets counts planned targets; Changed and Impacted split them
	// by selection reason.
	Targets  int `json:"targets"`
	Changed  int `json:"changed"`
	Impacted int `json:"impacted"`

	// Units counts the code units selected across all assembled
	// contexts.
	Units int `json:"units"`

	// CacheHits and CacheMisses total the findings-cache lookups.
	CacheHits   int `json:"cache_hits"`
	CacheMisses int `json:"cache_misses"`

	// UnresolvedImports counts import specifiers that matched no
	// project file during graph construction.
	UnresolvedImports int `json:"unresolved_imports,omitempty"`

	// Patch holds diff statistics when diff text was supplied.
	Patch diff.PatchStats `json:"patch,omitempty"`

	// Duration is the wall-clock scan time; Estimate is the
	// human-readable prediction shown before the scan ran.
	Duration time.Duration `json:"duration"`
	Estimate string        `json:"estimate"`
}

// Result is the outcome of one scan.
type Result struct {
	// Plan is the resolved target list. Empty targets with a nil error
	// means nothing changed.
	Plan *plan.Plan `json:"plan"`

	// Contexts maps target file path to its assembled context bundle.
	// Keyed by path, not completion order, so results are deterministic
	// regardless of worker scheduling.
	Contexts map[string]*scancontext.OptimizedContext `json:"contexts"`

	// Errors lists per-target failures; a failed target has no entry
	// in Contexts.
	Errors []TargetError `json:"errors,omitempty"`

	Summary Summary `json:"summary"`
}

// AllFailed reports whether targets were planned but every one failed,
// which callers present differently from "nothing to scan".
func (r *Result) AllFailed() bool {
	return r.Summary.Targets > 0 && len(r.Contexts) == 0
}

// EstimateDuration predicts scan wall time as a short human string,
// like "~45s" or "~3m". The model is crude: deeper tiers spend longer
// per file, parallelism divides.
func EstimateDuration(targets int, tier plan.TierConfig) string {
	if targets <= 0 {
		return "~0s"
	}
	perTarget := tier.TokenBudget / 2000 // seconds
	if perTarget < 1 {
		perTarget = 1
	}
	parallelism := tier.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	total := (targets*perTarget + parallelism - 1) / parallelism
	if total < 1 {
		total = 1
	}
	if total < 90 {
		return fmt.Sprintf("~%ds", total)
	}
	return fmt.Sprintf("~%dm", (total+30)/60)
}
