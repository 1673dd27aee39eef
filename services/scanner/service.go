// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scanner orchestrates incremental bug scans.
//
// A scan runs: file discovery → change detection (diff text, or
// content-hash comparison when no diff exists) → dependency-graph
// impact analysis → planning → a bounded worker pool running the
// per-target pipeline (unit extraction → context assembly) → a single
// aggregator that owns the result map and the findings cache. The
// cache and file-hash documents are written exactly once, after all
// workers finish, and never on cancellation.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tidewater-labs/bughound/services/scanner/ast"
	"github.com/tidewater-labs/bughound/services/scanner/cache"
	scancontext "github.com/tidewater-labs/bughound/services/scanner/context"
	"github.com/tidewater-labs/bughound/services/scanner/diff"
	"github.com/tidewater-labs/bughound/services/scanner/graph"
	"github.com/tidewater-labs/bughound/services/scanner/manifest"
	"github.com/tidewater-labs/bughound/services/scanner/plan"
)

const (
	// DefaultCacheDir is the project-relative directory holding the
	// findings cache and file-hash documents.
	DefaultCacheDir = ".bughound"

	findingsFile = "findings.json"
	hashesFile   = "filehashes.json"
)

// ServiceConfig configures the scan service.
type ServiceConfig struct {
	// CacheDir is where persisted documents live, relative to the
	// project root. Default: ".bughound".
	CacheDir string

	// Includes and Excludes override the default discovery globs.
	Includes []string
	Excludes []string

	// MaxGenerationAge overrides how many scan generations an unseen
	// cache entry survives. Zero keeps the store default.
	MaxGenerationAge int64
}

// DefaultServiceConfig returns the defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{CacheDir: DefaultCacheDir}
}

// Service runs scans.
//
// Thread Safety:
//
//	Safe for concurrent use; every Scan builds its own pipeline state.
//	Concurrent scans of the same project root race on the persisted
//	documents and should be avoided by the caller.
type Service struct {
	config ServiceConfig
}

// NewService creates a scan service.
func NewService(config ServiceConfig) *Service {
	if config.CacheDir == "" {
		config.CacheDir = DefaultCacheDir
	}
	return &Service{config: config}
}

// targetResult is one worker's output, sent to the aggregator.
type targetResult struct {
	target plan.ScanTarget
	out    *scancontext.OptimizedContext
	err    error
}

// Scan executes one scan.
//
// Description:
//
//	Discovers project files, resolves what changed, plans targets for
//	the requested tier, and assembles a context bundle per target with
//	a worker pool bounded by the tier's parallelism. Per-target
//	failures are isolated into Result.Errors.
//
// Outputs:
//   - A Result with zero targets and a nil error when nothing changed.
//   - ErrScanCanceled (with partial results) when ctx is canceled;
//     nothing is persisted in that case.
func (s *Service) Scan(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	tier, err := plan.Config(req.Tier)
	if err != nil {
		return nil, err
	}
	root, err := s.validateRoot(req.ProjectRoot)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScanCanceled, err)
	}

	scanID := uuid.NewString()
	ctx, span := startScanSpan(ctx, string(tier.Name))
	defer span.End()

	logger := slog.With("scan_id", scanID, "tier", string(tier.Name))
	logger.Info("scan started", "root", root)

	m, err := s.discover(ctx, root)
	if err != nil {
		return nil, err
	}
	listing := m.Listing()

	// The file-hash document fills in for change detection when the
	// caller supplied no diff text and no explicit files.
	hashPath := filepath.Join(root, s.config.CacheDir, hashesFile)
	hashDoc, err := cache.LoadHashDocument(hashPath)
	if err != nil {
		return nil, err
	}
	var hashChanged []string
	if len(req.Files) == 0 && req.WorktreeDiff == "" && req.StagedDiff == "" {
		for _, path := range hashDoc.Changed(m.HashMap()) {
			if _, exists := m.Files[path]; exists {
				hashChanged = append(hashChanged, path)
			}
		}
	}

	var g *graph.Graph
	unresolved := 0
	if tier.IncludeImpacted {
		built, err := graph.NewBuilder(root).Build(ctx, listing)
		if err != nil {
			return nil, fmt.Errorf("build dependency graph: %w", err)
		}
		g = built.Graph
		unresolved = built.UnresolvedImports
	}

	pl, err := plan.NewPlanner(g).Plan(ctx, plan.Request{
		Tier:         req.Tier,
		Files:        req.Files,
		WorktreeDiff: req.WorktreeDiff,
		StagedDiff:   req.StagedDiff,
		ChangedFiles: hashChanged,
		Listing:      listing,
	})
	if err != nil {
		if errors.Is(err, plan.ErrNoTargets) {
			logger.Info("nothing to scan")
			return s.emptyResult(scanID, req, tier, start), nil
		}
		return nil, err
	}

	var store *cache.Store
	if tier.UseCache {
		var opts []cache.StoreOption
		if s.config.MaxGenerationAge > 0 {
			opts = append(opts, cache.WithMaxGenerationAge(s.config.MaxGenerationAge))
		}
		store = cache.NewStore(filepath.Join(root, s.config.CacheDir, findingsFile), opts...)
		if err := store.Load(); err != nil {
			return nil, err
		}
		store.BeginGeneration(scanID)
	}

	result := s.runPipeline(ctx, root, tier, pl, store)
	result.Summary = s.summarize(scanID, req, tier, pl, result, unresolved, start)
	recordScanMetrics(ctx, string(tier.Name), result.Summary.Duration,
		result.Summary.Targets, len(result.Errors))

	if ctx.Err() != nil {
		logger.Warn("scan canceled", "completed", len(result.Contexts))
		return result, fmt.Errorf("%w: %v", ErrScanCanceled, context.Cause(ctx))
	}

	// Single post-scan persistence point.
	if store != nil {
		if err := store.Save(); err != nil {
			logger.Warn("findings cache not saved", "error", err.Error())
		}
	}
	hashDoc.Update(m.HashMap())
	if err := hashDoc.Save(hashPath); err != nil {
		logger.Warn("file-hash document not saved", "error", err.Error())
	}

	logger.Info("scan complete",
		"targets", result.Summary.Targets,
		"units", result.Summary.Units,
		"cache_hits", result.Summary.CacheHits,
		"failures", len(result.Errors),
		"duration", result.Summary.Duration)
	return result, nil
}

// runPipeline fans targets out to a bounded worker pool and funnels
// results through a channel into a single aggregator goroutine, which
// alone touches the result map.
func (s *Service) runPipeline(ctx context.Context, root string, tier plan.TierConfig, pl *plan.Plan, store *cache.Store) *Result {
	analyzer := ast.NewAnalyzer(root)
	var assembler *scancontext.Assembler
	if store != nil {
		assembler = scancontext.NewAssembler(scancontext.WithStore(store))
	} else {
		assembler = scancontext.NewAssembler()
	}

	result := &Result{
		Plan:     pl,
		Contexts: make(map[string]*scancontext.OptimizedContext, len(pl.Targets)),
	}

	results := make(chan targetResult)
	var agg sync.WaitGroup
	agg.Add(1)
	go func() {
		defer agg.Done()
		for r := range results {
			if r.err != nil {
				result.Errors = append(result.Errors, newTargetError(r.target.FilePath, r.err))
				continue
			}
			if r.out != nil {
				result.Contexts[r.target.FilePath] = r.out
			}
		}
	}()

	eg := &errgroup.Group{}
	eg.SetLimit(tier.Parallelism)
	for _, target := range pl.Targets {
		eg.Go(func() error {
			// A canceled scan stops dispatching; in-flight targets run
			// to completion.
			if ctx.Err() != nil {
				return nil
			}
			out, err := s.processTarget(ctx, analyzer, assembler, target, tier)
			results <- targetResult{target: target, out: out, err: err}
			return nil
		})
	}
	_ = eg.Wait()
	close(results)
	agg.Wait()

	return result
}

// processTarget runs the per-target pipeline: extraction, then context
// assembly under the tier's token budget.
func (s *Service) processTarget(ctx context.Context, analyzer *ast.Analyzer, assembler *scancontext.Assembler, target plan.ScanTarget, tier plan.TierConfig) (*scancontext.OptimizedContext, error) {
	analysis, err := analyzer.Analyze(ctx, target.FilePath)
	if err != nil {
		// A file that vanished between listing and parsing is skipped,
		// not failed.
		if errors.Is(err, ast.ErrNotFound) {
			slog.Debug("target vanished before parsing", "file", target.FilePath)
			return nil, nil
		}
		return nil, err
	}
	return assembler.Build(target, analysis, tier.TokenBudget), nil
}

func (s *Service) discover(ctx context.Context, root string) (*manifest.Manifest, error) {
	var opts []manifest.ScannerOption
	if len(s.config.Includes) > 0 || len(s.config.Excludes) > 0 {
		includes := s.config.Includes
		if len(includes) == 0 {
			includes = manifest.DefaultIncludes
		}
		excludes := s.config.Excludes
		if len(excludes) == 0 {
			excludes = manifest.DefaultExcludes
		}
		opts = append(opts, manifest.WithPatterns(includes, excludes))
	}
	m, err := manifest.NewScanner(opts...).Scan(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("discover project files: %w", err)
	}
	return m, nil
}

func (s *Service) validateRoot(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("%w: project root required", ErrInvalidRequest)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidRequest, root)
	}
	return abs, nil
}

func (s *Service) summarize(scanID string, req Request, tier plan.TierConfig, pl *plan.Plan, result *Result, unresolved int, start time.Time) Summary {
	sum := Summary{
		ScanID:            scanID,
		Tier:              tier.Name,
		Targets:           len(pl.Targets),
		UnresolvedImports: unresolved,
		Duration:          time.Since(start),
		Estimate:          EstimateDuration(len(pl.Targets), tier),
	}
	for _, t := range pl.Targets {
		if t.Mode == plan.ModeImpacted {
			sum.Impacted++
		} else {
			sum.Changed++
		}
	}
	for _, out := range result.Contexts {
		sum.Units += len(out.ChangedUnits)
		sum.CacheHits += out.CacheHits
		sum.CacheMisses += out.CacheMisses
	}
	sum.Patch = patchStats(req)
	return sum
}

// patchStats totals diff statistics across both supplied diff texts.
// Unparsable diff text yields zero stats, never an error.
func patchStats(req Request) diff.PatchStats {
	var total diff.PatchStats
	for _, text := range []string{req.WorktreeDiff, req.StagedDiff} {
		if text == "" {
			continue
		}
		stats, err := diff.Stats(text)
		if err != nil {
			continue
		}
		total.FilesChanged += stats.FilesChanged
		total.LinesAdded += stats.LinesAdded
		total.LinesRemoved += stats.LinesRemoved
	}
	return total
}

func (s *Service) emptyResult(scanID string, req Request, tier plan.TierConfig, start time.Time) *Result {
	return &Result{
		Plan:     &plan.Plan{Tier: tier},
		Contexts: make(map[string]*scancontext.OptimizedContext),
		Summary: Summary{
			ScanID:   scanID,
			Tier:     tier.Name,
			Estimate: EstimateDuration(0, tier),
			Patch:    patchStats(req),
			Duration: time.Since(start),
		},
	}
}
