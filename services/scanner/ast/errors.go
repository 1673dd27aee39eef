// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import "errors"

var (
	// ErrNotFound indicates the requested source file does not exist.
	ErrNotFound = errors.New("source file not found")

	// ErrFileTooLarge indicates the file exceeds the front-end's size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrInvalidEncoding indicates the content is not valid UTF-8.
	ErrInvalidEncoding = errors.New("content is not valid UTF-8")

	// ErrInvalidUnit indicates a CodeUnit violates its field invariants.
	ErrInvalidUnit = errors.New("invalid code unit")

	// ErrInvalidAnalysis indicates a FileAnalysis violates its invariants.
	ErrInvalidAnalysis = errors.New("invalid file analysis")

	// ErrParseFailed indicates the parser could not produce a syntax tree.
	ErrParseFailed = errors.New("parse failed")
)
