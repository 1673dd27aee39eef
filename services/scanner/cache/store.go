// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache persists per-unit findings between scans.
//
// The store is a single versioned JSON document on disk, keyed by unit
// context hash. Loads are tolerant: a missing, corrupt, or
// version-mismatched file yields an empty document, never an error, so
// a broken cache costs a cold scan and nothing else. Saves are atomic
// (temp file + rename) and prune entries unseen for several scan
// generations.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DocumentVersion is bumped when the entry layout changes;
	// mismatched documents are discarded on load.
	DocumentVersion = "1"

	// DefaultMaxGenerationAge is how many scan generations an unseen
	// entry survives before Compact drops it.
	DefaultMaxGenerationAge = 10
)

// Entry is one cached scan result for a unit context hash.
type Entry struct {
	// File and Unit locate the unit the findings belong to, for
	// reporting; the hash key is what identity rests on.
	File string `json:"file"`
	Unit string `json:"unit"`

	// Kind is the unit kind string at caching time.
	Kind string `json:"kind,omitempty"`

	// Findings is the raw findings payload; the engine stores and
	// replays it without interpreting it.
	Findings json.RawMessage `json:"findings,omitempty"`

	// Generation is the scan generation that last produced or replayed
	// this entry.
	Generation int64 `json:"generation"`
}

// Document is the on-disk cache layout.
type Document struct {
	Version    string           `json:"version"`
	Generation int64            `json:"generation"`
	ScanID     string           `json:"scan_id,omitempty"`
	Entries    map[string]Entry `json:"entries"`
}

func newDocument() *Document {
	return &Document{
		Version: DocumentVersion,
		Entries: make(map[string]Entry),
	}
}

// StoreOption configures a Store instance.
type StoreOption func(*Store)

// WithMaxGenerationAge overrides how long unseen entries survive.
func WithMaxGenerationAge(generations int64) StoreOption {
	return func(s *Store) {
		if generations > 0 {
			s.maxAge = generations
		}
	}
}

// Store owns the findings cache document for one cache file path.
//
// Thread Safety:
//
//	All methods are safe for concurrent use; a single mutex guards the
//	document.
type Store struct {
	path   string
	maxAge int64

	mu  sync.Mutex
	doc *Document
}

// NewStore creates a Store backed by the given file path. Call Load
// before first use.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:   path,
		maxAge: DefaultMaxGenerationAge,
		doc:    newDocument(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the document from disk. Missing, corrupt, or
// version-mismatched files reset to an empty document; Load only fails
// on unexpected I/O errors.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.doc = newDocument()
			return nil
		}
		return fmt.Errorf("read cache %s: %w", s.path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("discarding corrupt findings cache",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		s.doc = newDocument()
		return nil
	}
	if doc.Version != DocumentVersion {
		slog.Warn("discarding findings cache with stale version",
			slog.String("path", s.path),
			slog.String("version", doc.Version))
		s.doc = newDocument()
		return nil
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]Entry)
	}

	s.doc = &doc
	return nil
}

// BeginGeneration advances the scan generation and stamps the scan ID.
// Returns the new generation number.
func (s *Store) BeginGeneration(scanID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Generation++
	s.doc.ScanID = scanID
	return s.doc.Generation
}

// Generation returns the current scan generation.
func (s *Store) Generation() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Generation
}

// Get returns the entry for a context hash. A hit refreshes the entry's
// generation so replayed findings survive compaction.
func (s *Store) Get(hash string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.doc.Entries[hash]
	if ok && e.Generation < s.doc.Generation {
		e.Generation = s.doc.Generation
		s.doc.Entries[hash] = e
	}
	return e, ok
}

// Put stores an entry under a context hash, stamped with the current
// generation.
func (s *Store) Put(hash string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Generation = s.doc.Generation
	s.doc.Entries[hash] = e
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc.Entries)
}

// Compact drops entries unseen for more than maxAge generations.
// Returns the number of entries removed.
func (s *Store) Compact() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compactLocked()
}

func (s *Store) compactLocked() int {
	removed := 0
	for hash, e := range s.doc.Entries {
		if s.doc.Generation-e.Generation > s.maxAge {
			delete(s.doc.Entries, hash)
			removed++
		}
	}
	return removed
}

// Save compacts and atomically writes the document to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if removed := s.compactLocked(); removed > 0 {
		slog.Debug("compacted findings cache",
			slog.Int("removed", removed),
			slog.Int("remaining", len(s.doc.Entries)))
	}

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	return writeAtomic(s.path, data)
}

// writeAtomic writes data to path via a temp file and rename, so
// readers never observe a partial document.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace cache file %s: %w", path, err)
	}
	return nil
}
