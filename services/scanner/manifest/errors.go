// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package manifest discovers and fingerprints project source files.
//
// A Manifest maps relative file paths to SHA-256 content hashes. The
// scanner produces the sorted file listing the planner orders targets
// by, and manifest diffs drive whole-file change detection when no
// usable diff text exists.
//
// All paths are validated against the project root; hashing retries on
// concurrent modification.
package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrPathTraversal is returned when a path escapes the project root.
	ErrPathTraversal = errors.New("path escapes project root")

	// ErrFileTooLarge is returned when a file exceeds the hasher's size
	// limit.
	ErrFileTooLarge = errors.New("file too large to hash")

	// ErrFileUnstable is returned when a file keeps changing during
	// hashing after all retries.
	ErrFileUnstable = errors.New("file changed during hashing")

	// ErrInvalidHash is returned for a malformed stored hash. Valid
	// hashes are exactly 64 lowercase hexadecimal characters.
	ErrInvalidHash = errors.New("invalid hash format")

	// ErrInvalidRoot is returned when the project root path is invalid.
	ErrInvalidRoot = errors.New("invalid project root")
)

// ScanError records a non-fatal per-file failure during scanning;
// scanning continues past it.
type ScanError struct {
	Path string `json:"path"`
	Err  error  `json:"error"`
}

func (e ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e ScanError) Unwrap() error {
	return e.Err
}

// MarshalJSON serializes the error as its string representation.
func (e ScanError) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"path":%q,"error":%q}`, e.Path, e.Err.Error())), nil
}
