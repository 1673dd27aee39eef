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
	"log/slog"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// JavaScriptFrontendOption configures a JavaScriptFrontend instance.
type JavaScriptFrontendOption func(*JavaScriptFrontend)

// WithJavaScriptMaxFileSize sets the maximum file size the front-end
// will accept.
func WithJavaScriptMaxFileSize(bytes int64) JavaScriptFrontendOption {
	return func(f *JavaScriptFrontend) {
		if bytes > 0 {
			f.maxFileSize = bytes
		}
	}
}

// JavaScriptFrontend implements the Frontend interface for JavaScript.
// The JS grammar handles JSX natively, so one grammar serves all
// extensions. Safe for concurrent use.
type JavaScriptFrontend struct {
	maxFileSize int64
}

// NewJavaScriptFrontend creates a JavaScriptFrontend with the given options.
func NewJavaScriptFrontend(opts ...JavaScriptFrontendOption) *JavaScriptFrontend {
	f := &JavaScriptFrontend{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Extract parses JavaScript source and returns the file's units,
// imports, exports, and type definitions. Same contract as the
// TypeScript front-end.
func (f *JavaScriptFrontend) Extract(ctx context.Context, content []byte, filePath string) (*FileAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract canceled before start: %w", err)
	}

	if int64(len(content)) > f.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), f.maxFileSize)
	}

	if len(content) > WarnFileSize {
		slog.Warn("extracting large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEncoding, filePath)
	}

	ctx, span := startExtractSpan(ctx, f.Language(), filePath, len(content))
	defer span.End()
	startedAt := time.Now()

	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordExtractMetrics(ctx, f.Language(), time.Since(startedAt), 0, false)
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract canceled after parse: %w", err)
	}

	ex := newExtractor(content, filePath, f.Language())
	root := tree.RootNode()
	if root == nil {
		ex.out.Errors = append(ex.out.Errors, "parser returned nil root node")
		return ex.out, nil
	}
	if root.HasError() {
		ex.out.Errors = append(ex.out.Errors, "source contains syntax errors")
	}

	analysis := ex.run(root)

	if err := analysis.Validate(); err != nil {
		recordExtractMetrics(ctx, f.Language(), time.Since(startedAt), 0, false)
		return nil, fmt.Errorf("analysis validation failed: %w", err)
	}

	setExtractSpanResult(span, len(analysis.Units), len(analysis.Errors))
	recordExtractMetrics(ctx, f.Language(), time.Since(startedAt), len(analysis.Units), true)
	return analysis, nil
}

// Language returns "javascript".
func (f *JavaScriptFrontend) Language() string {
	return "javascript"
}

// Extensions returns the JavaScript file extensions.
func (f *JavaScriptFrontend) Extensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs"}
}

// Compile-time interface compliance check.
var _ Frontend = (*JavaScriptFrontend)(nil)
