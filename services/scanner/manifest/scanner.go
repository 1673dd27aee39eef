// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package manifest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Scanner walks a project tree and produces a Manifest.
//
// Description:
//
//	Scanner discovers source files under a project root, filters them
//	through include/exclude globs, and fingerprints each survivor with
//	a content hash. Symlinks are skipped so a scan never escapes the
//	root or loops.
//
// Thread Safety: safe for concurrent use; each Scan builds its own
// manifest.
type Scanner struct {
	matcher    *GlobMatcher
	hasher     Hasher
	maxRetries int
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithPatterns replaces the default include/exclude globs.
func WithPatterns(includes, excludes []string) ScannerOption {
	return func(s *Scanner) {
		s.matcher = NewGlobMatcher(includes, excludes)
	}
}

// WithHasher replaces the default SHA-256 hasher.
func WithHasher(h Hasher) ScannerOption {
	return func(s *Scanner) {
		s.hasher = h
	}
}

// WithMaxRetries sets the re-hash attempt bound for unstable files.
func WithMaxRetries(n int) ScannerOption {
	return func(s *Scanner) {
		s.maxRetries = n
	}
}

// NewScanner creates a Scanner with default globs and hasher.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		matcher:    NewGlobMatcher(DefaultIncludes, DefaultExcludes),
		hasher:     NewSHA256Hasher(-1),
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks root and fingerprints every matching file.
//
// Per-file failures are recorded in Manifest.Errors and do not abort
// the walk. Cancellation stops the walk and marks the manifest
// Incomplete; entries gathered so far are kept.
func (s *Scanner) Scan(ctx context.Context, root string) (*Manifest, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, absRoot)
	}

	m := NewManifest(absRoot)
	start := time.Now()

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			m.Incomplete = true
			return filepath.SkipAll
		default:
		}
		if err != nil {
			m.Errors = append(m.Errors, ScanError{Path: path, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := relPath(absRoot, path)
		if err != nil {
			m.Errors = append(m.Errors, ScanError{Path: path, Err: err})
			return nil
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if s.matcher.excludesDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		// Symlinks are not followed; a link to a file or directory is
		// simply not part of the manifest.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !d.Type().IsRegular() || !s.matcher.Match(rel) {
			return nil
		}

		entry, err := s.hasher.HashFileAtomic(path, s.maxRetries)
		if err != nil {
			m.Errors = append(m.Errors, ScanError{Path: rel, Err: err})
			return nil
		}
		entry.Path = rel
		m.Files[rel] = entry
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, walkErr)
	}

	m.UpdatedAtMilli = time.Now().UnixMilli()
	slog.Debug("manifest scan complete",
		"root", absRoot,
		"files", m.FileCount(),
		"errors", m.ErrorCount(),
		"incomplete", m.Incomplete,
		"duration", time.Since(start))
	return m, nil
}

// relPath converts an absolute walk path to a slash-separated path
// relative to root, rejecting anything that escapes it.
func relPath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathTraversal, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}
	return filepath.ToSlash(rel), nil
}

// Diff compares two manifests and returns the changed paths, each
// slice sorted. A nil old manifest reports everything in new as added.
func Diff(old, new *Manifest) Changes {
	var c Changes
	if old == nil {
		for path := range new.Files {
			c.Added = append(c.Added, path)
		}
		sortPaths(&c)
		return c
	}

	for path, entry := range new.Files {
		prev, ok := old.Files[path]
		switch {
		case !ok:
			c.Added = append(c.Added, path)
		case prev.Hash != entry.Hash:
			c.Modified = append(c.Modified, path)
		}
	}
	for path := range old.Files {
		if _, ok := new.Files[path]; !ok {
			c.Deleted = append(c.Deleted, path)
		}
	}
	sortPaths(&c)
	return c
}

// QuickCheck reports whether a file likely changed since its manifest
// entry, comparing mtime and size before falling back to a hash. A
// missing file counts as changed.
func (s *Scanner) QuickCheck(root string, entry FileEntry) (bool, error) {
	full := filepath.Join(root, filepath.FromSlash(entry.Path))
	info, err := os.Lstat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat %s: %w", entry.Path, err)
	}
	if info.ModTime().UnixNano() == entry.Mtime && info.Size() == entry.Size {
		return false, nil
	}

	// Touched but possibly unmodified; the hash decides.
	hash, err := s.hasher.HashFile(full)
	if err != nil {
		return false, err
	}
	return hash != entry.Hash, nil
}

func sortPaths(c *Changes) {
	sort.Strings(c.Added)
	sort.Strings(c.Modified)
	sort.Strings(c.Deleted)
}
