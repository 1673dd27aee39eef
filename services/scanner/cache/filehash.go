// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
)

// HashDocumentVersion versions the file-hash document layout.
const HashDocumentVersion = "1"

// HashDocument records the content hash of every project file at the
// end of a scan. The next scan diffs against it to detect whole-file
// changes when no usable diff text exists.
type HashDocument struct {
	Version string `json:"version"`

	// Files maps project-relative path to hex SHA-256 content hash.
	Files map[string]string `json:"files"`
}

// NewHashDocument creates an empty file-hash document.
func NewHashDocument() *HashDocument {
	return &HashDocument{
		Version: HashDocumentVersion,
		Files:   make(map[string]string),
	}
}

// LoadHashDocument reads a file-hash document. Missing, corrupt, or
// version-mismatched files yield an empty document.
func LoadHashDocument(path string) (*HashDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewHashDocument(), nil
		}
		return nil, fmt.Errorf("read hash document %s: %w", path, err)
	}

	var doc HashDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc.Version != HashDocumentVersion {
		slog.Warn("discarding unusable file-hash document", slog.String("path", path))
		return NewHashDocument(), nil
	}
	if doc.Files == nil {
		doc.Files = make(map[string]string)
	}
	return &doc, nil
}

// Save atomically writes the document to disk.
func (d *HashDocument) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hash document: %w", err)
	}
	return writeAtomic(path, data)
}

// Changed compares the recorded hashes against a current path-to-hash
// listing and returns the paths that were added, modified, or deleted,
// sorted.
func (d *HashDocument) Changed(current map[string]string) []string {
	set := make(map[string]struct{})
	for path, hash := range current {
		if prev, ok := d.Files[path]; !ok || prev != hash {
			set[path] = struct{}{}
		}
	}
	for path := range d.Files {
		if _, ok := current[path]; !ok {
			set[path] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for path := range set {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Update replaces the recorded hashes with the current listing.
func (d *HashDocument) Update(current map[string]string) {
	d.Files = make(map[string]string, len(current))
	for path, hash := range current {
		d.Files[path] = hash
	}
}
