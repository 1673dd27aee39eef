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
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TypeScriptFrontendOption configures a TypeScriptFrontend instance.
type TypeScriptFrontendOption func(*TypeScriptFrontend)

// WithTypeScriptMaxFileSize sets the maximum file size the front-end
// will accept.
func WithTypeScriptMaxFileSize(bytes int64) TypeScriptFrontendOption {
	return func(f *TypeScriptFrontend) {
		if bytes > 0 {
			f.maxFileSize = bytes
		}
	}
}

// TypeScriptFrontend implements the Frontend interface for TypeScript.
//
// Description:
//
//	TypeScriptFrontend uses tree-sitter to parse TypeScript source and
//	extract code units. The TSX grammar is used for .tsx files, the
//	plain TypeScript grammar otherwise. It is error-tolerant: syntax
//	errors produce partial results, never a failure.
//
// Thread Safety:
//
//	TypeScriptFrontend instances are safe for concurrent use. Each
//	Extract call creates its own tree-sitter parser instance.
type TypeScriptFrontend struct {
	maxFileSize int64
}

// NewTypeScriptFrontend creates a TypeScriptFrontend with the given options.
func NewTypeScriptFrontend(opts ...TypeScriptFrontendOption) *TypeScriptFrontend {
	f := &TypeScriptFrontend{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Extract parses TypeScript source and returns the file's units,
// imports, exports, and type definitions.
//
// Inputs:
//   - ctx: Checked before and after parsing; tree-sitter itself cannot
//     be interrupted mid-parse.
//   - content: Raw source bytes. Must be valid UTF-8.
//   - filePath: Project-relative path with forward slashes, used for
//     grammar selection and reporting.
//
// Outputs:
//   - *FileAnalysis: Never nil on success; syntax errors are recorded
//     in FileAnalysis.Errors with partial results.
//   - error: ErrFileTooLarge, ErrInvalidEncoding, context errors, or
//     ErrParseFailed.
func (f *TypeScriptFrontend) Extract(ctx context.Context, content []byte, filePath string) (*FileAnalysis, error) {
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
	if strings.HasSuffix(filePath, ".tsx") {
		parser.SetLanguage(tsx.GetLanguage())
	} else {
		parser.SetLanguage(typescript.GetLanguage())
	}

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

// Language returns "typescript".
func (f *TypeScriptFrontend) Language() string {
	return "typescript"
}

// Extensions returns the TypeScript file extensions.
func (f *TypeScriptFrontend) Extensions() []string {
	return []string{".ts", ".tsx", ".mts", ".cts"}
}

// Compile-time interface compliance check.
var _ Frontend = (*TypeScriptFrontend)(nil)
