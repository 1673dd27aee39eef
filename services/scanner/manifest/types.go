// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package manifest

import (
	"fmt"
	"sort"
	"time"
)

// FileEntry is one fingerprinted file.
type FileEntry struct {
	// Path is the file path relative to the project root.
	Path string `json:"path"`

	// Hash is the hex SHA-256 digest of the file content.
	Hash string `json:"hash"`

	// Mtime is the modification time in Unix nanoseconds, used for
	// mtime-first change checks.
	Mtime int64 `json:"mtime"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`
}

// Validate checks the entry's hash format.
func (e *FileEntry) Validate() error {
	if len(e.Hash) != 64 {
		return fmt.Errorf("%w: length %d", ErrInvalidHash, len(e.Hash))
	}
	for _, c := range e.Hash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: character %q", ErrInvalidHash, c)
		}
	}
	return nil
}

// Manifest is the result of scanning a project tree.
//
// Manifests are not safe for concurrent modification after creation.
type Manifest struct {
	// ProjectRoot is the absolute root the scan ran under.
	ProjectRoot string `json:"project_root"`

	// Files maps relative path to its entry.
	Files map[string]FileEntry `json:"files"`

	// CreatedAtMilli and UpdatedAtMilli are Unix-millisecond stamps.
	CreatedAtMilli int64 `json:"created_at_milli"`
	UpdatedAtMilli int64 `json:"updated_at_milli,omitempty"`

	// Errors lists files that could not be processed.
	Errors []ScanError `json:"errors,omitempty"`

	// Incomplete is set when the scan was canceled mid-walk.
	Incomplete bool `json:"incomplete,omitempty"`
}

// NewManifest creates an empty manifest for the given root.
func NewManifest(root string) *Manifest {
	return &Manifest{
		ProjectRoot:    root,
		Files:          make(map[string]FileEntry),
		CreatedAtMilli: time.Now().UnixMilli(),
	}
}

// FileCount returns the number of fingerprinted files.
func (m *Manifest) FileCount() int {
	return len(m.Files)
}

// ErrorCount returns the number of recorded scan errors.
func (m *Manifest) ErrorCount() int {
	return len(m.Errors)
}

// HasErrors reports whether any file failed during scanning.
func (m *Manifest) HasErrors() bool {
	return len(m.Errors) > 0
}

// Listing returns the sorted, de-duplicated relative paths, forward
// slashes. This is the project file listing scans plan over.
func (m *Manifest) Listing() []string {
	out := make([]string, 0, len(m.Files))
	for path := range m.Files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// HashMap returns path-to-hash pairs for file-hash document diffing.
func (m *Manifest) HashMap() map[string]string {
	out := make(map[string]string, len(m.Files))
	for path, entry := range m.Files {
		out[path] = entry.Hash
	}
	return out
}

// Changes is the difference between two manifests.
type Changes struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Deleted  []string `json:"deleted"`
}

// IsEmpty reports whether nothing changed.
func (c Changes) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0
}

// All returns every changed path, sorted.
func (c Changes) All() []string {
	out := make([]string, 0, len(c.Added)+len(c.Modified)+len(c.Deleted))
	out = append(out, c.Added...)
	out = append(out, c.Modified...)
	out = append(out, c.Deleted...)
	sort.Strings(out)
	return out
}
