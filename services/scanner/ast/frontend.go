// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import "context"

const (
	// DefaultMaxFileSize is the largest source file a front-end accepts.
	DefaultMaxFileSize int64 = 10 * 1024 * 1024 // 10MB

	// WarnFileSize triggers a log warning for unusually large files.
	WarnFileSize = 1024 * 1024 // 1MB
)

// Frontend extracts code units from source files of one language family.
//
// Description:
//
//	A Frontend owns a tree-sitter grammar and turns raw source bytes into
//	a FileAnalysis. Implementations must be safe for concurrent use: each
//	Extract call creates its own parser instance internally.
//
// Outputs:
//
//	Extract returns a non-nil FileAnalysis on success, possibly with
//	partial results and non-fatal problems in FileAnalysis.Errors.
//	Hard failures (oversize content, invalid UTF-8, canceled context)
//	return a non-nil error instead.
type Frontend interface {
	// Extract parses content and returns the file's units, imports,
	// exports, and type definitions.
	Extract(ctx context.Context, content []byte, filePath string) (*FileAnalysis, error)

	// Language returns the canonical language name, e.g. "typescript".
	Language() string

	// Extensions returns the file extensions this front-end handles,
	// with leading dots.
	Extensions() []string
}

// Frontends returns the default front-end set, one per supported
// language family.
func Frontends() []Frontend {
	return []Frontend{
		NewTypeScriptFrontend(),
		NewJavaScriptFrontend(),
	}
}
