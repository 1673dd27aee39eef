// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AnalyzerOption configures an Analyzer instance.
type AnalyzerOption func(*Analyzer)

// WithFrontends replaces the default front-end set.
func WithFrontends(frontends ...Frontend) AnalyzerOption {
	return func(a *Analyzer) {
		if len(frontends) > 0 {
			a.byExt = indexFrontends(frontends)
		}
	}
}

// Analyzer reads source files and dispatches them to the front-end
// registered for their extension.
//
// Thread Safety:
//
//	Analyzer instances are safe for concurrent use; the extension
//	registry is built once at construction and never mutated.
type Analyzer struct {
	root  string
	byExt map[string]Frontend
}

// NewAnalyzer creates an Analyzer rooted at the given project directory.
func NewAnalyzer(root string, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		root:  root,
		byExt: indexFrontends(Frontends()),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func indexFrontends(frontends []Frontend) map[string]Frontend {
	byExt := make(map[string]Frontend)
	for _, f := range frontends {
		for _, ext := range f.Extensions() {
			byExt[ext] = f
		}
	}
	return byExt
}

// Analyze reads and extracts the file at the given project-relative path.
//
// Outputs:
//   - A full FileAnalysis for supported extensions.
//   - A zero-unit FileAnalysis (no error) for unsupported extensions,
//     so callers can treat any file uniformly.
//   - ErrNotFound when the file does not exist.
func (a *Analyzer) Analyze(ctx context.Context, relPath string) (*FileAnalysis, error) {
	if strings.Contains(relPath, "..") {
		return nil, fmt.Errorf("%w: path traversal in %q", ErrInvalidAnalysis, relPath)
	}

	abs := filepath.Join(a.root, filepath.FromSlash(relPath))
	content, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
		}
		return nil, fmt.Errorf("read %s: %w", relPath, err)
	}

	return a.AnalyzeContent(ctx, content, relPath)
}

// AnalyzeContent extracts units from already-loaded content. Unsupported
// extensions yield a zero-unit FileAnalysis, not an error.
func (a *Analyzer) AnalyzeContent(ctx context.Context, content []byte, relPath string) (*FileAnalysis, error) {
	ext := strings.ToLower(filepath.Ext(relPath))
	frontend, ok := a.byExt[ext]
	if !ok {
		return &FileAnalysis{
			FilePath: relPath,
			Language: "unknown",
			Units:    []*CodeUnit{},
			Imports:  []ImportInfo{},
		}, nil
	}

	analysis, err := frontend.Extract(ctx, content, relPath)
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// Supported reports whether the analyzer has a front-end for the path's
// extension.
func (a *Analyzer) Supported(relPath string) bool {
	_, ok := a.byExt[strings.ToLower(filepath.Ext(relPath))]
	return ok
}

// Root returns the project root the analyzer reads from.
func (a *Analyzer) Root() string {
	return a.root
}
