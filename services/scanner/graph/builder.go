// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tidewater-labs/bughound/services/scanner/ast"
	"github.com/tidewater-labs/bughound/services/scanner/resolve"
)

// FileError records a non-fatal per-file failure during graph
// construction.
type FileError struct {
	FilePath string `json:"file_path"`
	Message  string `json:"message"`
}

// BuildResult is the outcome of a graph build.
type BuildResult struct {
	// Graph is the constructed dependency graph; never nil.
	Graph *Graph

	// FileErrors lists files whose imports could not be extracted.
	// Those files are graph nodes with no outgoing edges.
	FileErrors []FileError

	// UnresolvedImports counts specifiers that matched no project file
	// (bare package imports included).
	UnresolvedImports int
}

// BuilderOption configures a Builder instance.
type BuilderOption func(*Builder)

// WithAnalyzer replaces the analyzer used for import extraction.
func WithAnalyzer(a *ast.Analyzer) BuilderOption {
	return func(b *Builder) {
		if a != nil {
			b.analyzer = a
		}
	}
}

// Builder constructs a dependency graph from a project file listing.
//
// Description:
//
//	For each supported file the builder extracts import statements,
//	resolves their specifiers against the listing, and records an edge
//	per resolved import. Parse failures and unresolved specifiers are
//	collected, never fatal: a broken file is still a node.
type Builder struct {
	analyzer *ast.Analyzer
}

// NewBuilder creates a Builder reading sources under root.
func NewBuilder(root string, opts ...BuilderOption) *Builder {
	b := &Builder{analyzer: ast.NewAnalyzer(root)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build constructs the graph for the given project-relative file paths.
//
// Outputs:
//   - *BuildResult with the graph and per-file errors, or an error only
//     when the context is canceled.
func (b *Builder) Build(ctx context.Context, files []string) (*BuildResult, error) {
	g := newGraph(files)
	result := &BuildResult{Graph: g}
	resolver := resolve.NewResolver(files, resolve.WithCache(resolve.NewCache()))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("graph build canceled: %w", err)
		}
		if !b.analyzer.Supported(file) {
			continue
		}

		analysis, err := b.analyzer.Analyze(ctx, file)
		if err != nil {
			result.FileErrors = append(result.FileErrors, FileError{
				FilePath: file,
				Message:  err.Error(),
			})
			continue
		}

		for _, imp := range analysis.Imports {
			target, ok := resolver.Resolve(file, imp.Source)
			if !ok {
				result.UnresolvedImports++
				continue
			}
			g.addEdge(file, target)
		}
	}

	slog.Debug("dependency graph built",
		slog.Int("files", g.Size()),
		slog.Int("edges", g.EdgeCount()),
		slog.Int("file_errors", len(result.FileErrors)),
		slog.Int("unresolved", result.UnresolvedImports))

	return result, nil
}

// BuildFromAnalyses constructs a graph from already-extracted analyses,
// avoiding a second parse when the caller has them in hand.
func BuildFromAnalyses(files []string, analyses map[string]*ast.FileAnalysis) *BuildResult {
	g := newGraph(files)
	result := &BuildResult{Graph: g}
	resolver := resolve.NewResolver(files, resolve.WithCache(resolve.NewCache()))

	for _, file := range files {
		analysis, ok := analyses[file]
		if !ok {
			continue
		}
		for _, imp := range analysis.Imports {
			target, resolved := resolver.Resolve(file, imp.Source)
			if !resolved {
				result.UnresolvedImports++
				continue
			}
			g.addEdge(file, target)
		}
	}

	return result
}
