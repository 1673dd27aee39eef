// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package plan

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tidewater-labs/bughound/services/scanner/diff"
	"github.com/tidewater-labs/bughound/services/scanner/graph"
)

// TargetMode says why a file is in the plan and how much of it the
// context assembler should surface.
type TargetMode int

const (
	// ModeFull scans the whole file; used for explicitly requested files.
	ModeFull TargetMode = iota

	// ModeChanged scans the units intersecting the file's changed lines.
	ModeChanged

	// ModeImpacted scans a file pulled in through the dependency graph;
	// only its exported surface is of interest.
	ModeImpacted
)

func (m TargetMode) String() string {
	switch m {
	case ModeChanged:
		return "changed"
	case ModeImpacted:
		return "impacted"
	default:
		return "full"
	}
}

// ScanTarget is one file the scan will examine.
type ScanTarget struct {
	FilePath string `json:"file_path"`

	Mode TargetMode `json:"mode"`

	// ChangedLines are the post-change line numbers for ModeChanged
	// targets; empty otherwise.
	ChangedLines []int `json:"changed_lines,omitempty"`
}

// Request describes what the caller wants scanned.
type Request struct {
	// Tier selects the depth preset.
	Tier Tier

	// Files, when non-empty, overrides diff-driven selection with an
	// explicit whole-file list.
	Files []string

	// WorktreeDiff and StagedDiff are unified diff texts; their changed
	// lines are unioned per file.
	WorktreeDiff string
	StagedDiff   string

	// ChangedFiles are whole-file changes detected without diff text
	// (content-hash comparison against the last scan). They are scanned
	// in full and seed impact analysis like diff-changed files.
	ChangedFiles []string

	// Listing is the project file list targets are ordered by and
	// impact is computed over.
	Listing []string
}

// Plan is the resolved target list plus the tier it runs under.
type Plan struct {
	Tier    TierConfig   `json:"tier"`
	Targets []ScanTarget `json:"targets"`
}

// ChangedFiles returns the paths of the plan's non-impacted targets.
func (p *Plan) ChangedFiles() []string {
	var out []string
	for _, t := range p.Targets {
		if t.Mode != ModeImpacted {
			out = append(out, t.FilePath)
		}
	}
	return out
}

// Planner turns a Request into an ordered target list.
//
// Ordering: changed files in project-listing order first, then impacted
// files sorted by path. Deterministic for a given request.
type Planner struct {
	graph *graph.Graph
}

// NewPlanner creates a Planner using the given dependency graph for
// impact analysis. A nil graph disables impacted-file selection.
func NewPlanner(g *graph.Graph) *Planner {
	return &Planner{graph: g}
}

// Plan resolves the request into scan targets.
//
// Outputs:
//   - ErrUnknownTier for a bad tier name.
//   - ErrNoTargets when nothing is selected; callers treat this as a
//     clean no-op, not a failure.
func (p *Planner) Plan(ctx context.Context, req Request) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("planning canceled: %w", err)
	}

	tier, err := Config(req.Tier)
	if err != nil {
		return nil, err
	}

	out := &Plan{Tier: tier}

	// Explicit files bypass diff selection entirely.
	if len(req.Files) > 0 {
		for _, f := range req.Files {
			out.Targets = append(out.Targets, ScanTarget{FilePath: f, Mode: ModeFull})
		}
		return out, nil
	}

	// Deep reanalyzes every project file; diffs and hash detection are
	// not consulted.
	if tier.Name == TierDeep {
		for _, f := range req.Listing {
			out.Targets = append(out.Targets, ScanTarget{FilePath: f, Mode: ModeFull})
		}
		if len(out.Targets) == 0 {
			return nil, ErrNoTargets
		}
		return out, nil
	}

	changed := diff.ParseChangedLines(req.WorktreeDiff)
	for path, lines := range diff.ParseChangedLines(req.StagedDiff) {
		changed[path] = mergeLines(changed[path], lines)
	}

	// Hash-detected changes have no line information; the whole file is
	// treated as changed. Full-file status wins over diff lines.
	wholeFile := make(map[string]struct{}, len(req.ChangedFiles))
	for _, f := range req.ChangedFiles {
		wholeFile[f] = struct{}{}
		if _, ok := changed[f]; !ok {
			changed[f] = nil
		}
	}

	if len(changed) == 0 {
		return nil, ErrNoTargets
	}

	mkTarget := func(path string) ScanTarget {
		if _, full := wholeFile[path]; full {
			return ScanTarget{FilePath: path, Mode: ModeFull}
		}
		return ScanTarget{FilePath: path, Mode: ModeChanged, ChangedLines: changed[path]}
	}

	// Changed files in listing order; files absent from the listing
	// (freshly created, say) follow sorted.
	inListing := make(map[string]struct{}, len(req.Listing))
	for _, f := range req.Listing {
		inListing[f] = struct{}{}
		if _, ok := changed[f]; ok {
			out.Targets = append(out.Targets, mkTarget(f))
		}
	}
	var extra []string
	for path := range changed {
		if _, ok := inListing[path]; !ok {
			extra = append(extra, path)
		}
	}
	sort.Strings(extra)
	for _, f := range extra {
		out.Targets = append(out.Targets, mkTarget(f))
	}

	if tier.IncludeImpacted && p.graph != nil {
		seeds := make([]string, 0, len(changed))
		for path := range changed {
			seeds = append(seeds, path)
		}
		for _, f := range p.graph.TransitiveDependents(seeds) {
			if _, isChanged := changed[f]; isChanged {
				continue
			}
			out.Targets = append(out.Targets, ScanTarget{FilePath: f, Mode: ModeImpacted})
		}
	}

	slog.Debug("scan planned",
		slog.String("tier", string(tier.Name)),
		slog.Int("changed", len(changed)),
		slog.Int("targets", len(out.Targets)))

	return out, nil
}

// mergeLines unions two sorted line lists.
func mergeLines(a, b []int) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	var out []int
	for _, s := range [][]int{a, b} {
		for _, ln := range s {
			if _, dup := seen[ln]; dup {
				continue
			}
			seen[ln] = struct{}{}
			out = append(out, ln)
		}
	}
	sort.Ints(out)
	return out
}
