// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package manifest

import (
	"path/filepath"
	"strings"
)

// Default glob patterns for the source files the scanner analyzes.
var (
	// DefaultIncludes covers the supported language extensions.
	DefaultIncludes = []string{
		"**/*.ts",
		"**/*.tsx",
		"**/*.mts",
		"**/*.cts",
		"**/*.js",
		"**/*.jsx",
		"**/*.mjs",
		"**/*.cjs",
	}

	// DefaultExcludes drops generated trees and type stubs.
	DefaultExcludes = []string{
		"node_modules/**",
		".git/**",
		"dist/**",
		"build/**",
		"coverage/**",
		"**/*.d.ts",
		"**/*.min.js",
	}
)

// GlobMatcher matches file paths against include/exclude patterns.
// Patterns use glob syntax with ** matching across separators.
//
// Thread Safety: safe for concurrent use after creation.
type GlobMatcher struct {
	includes []string
	excludes []string
}

// NewGlobMatcher creates a matcher. Empty includes admit every file;
// empty excludes reject none.
func NewGlobMatcher(includes, excludes []string) *GlobMatcher {
	return &GlobMatcher{includes: includes, excludes: excludes}
}

// Match reports whether the path should be included: not excluded, and
// matching at least one include pattern (or includes is empty). Paths
// use forward slashes.
func (m *GlobMatcher) Match(path string) bool {
	path = filepath.ToSlash(path)

	for _, pattern := range m.excludes {
		if matchGlob(pattern, path) {
			return false
		}
	}

	if len(m.includes) == 0 {
		return true
	}
	for _, pattern := range m.includes {
		if matchGlob(pattern, path) {
			return true
		}
	}
	return false
}

// excludesDir reports whether a directory subtree is excluded outright,
// so the walk can skip it without visiting its files.
func (m *GlobMatcher) excludesDir(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range m.excludes {
		if matchGlob(pattern, relPath) || matchGlob(pattern, relPath+"/") {
			return true
		}
	}
	return false
}

// matchGlob matches one pattern against a slash-separated path.
func matchGlob(pattern, path string) bool {
	if strings.Contains(pattern, "**") {
		return matchDoublestar(pattern, path)
	}
	if ok, _ := filepath.Match(pattern, path); ok {
		return true
	}
	// A bare file pattern like "*.ts" matches at any depth.
	ok, _ := filepath.Match(pattern, filepath.Base(path))
	return ok
}

// matchDoublestar handles "prefix/**/suffix" style patterns.
func matchDoublestar(pattern, path string) bool {
	parts := strings.SplitN(pattern, "**", 2)
	prefix := strings.TrimSuffix(parts[0], "/")
	suffix := strings.TrimPrefix(parts[1], "/")

	if prefix != "" {
		if path != prefix && !strings.HasPrefix(path, prefix+"/") {
			return false
		}
		path = strings.TrimPrefix(path, prefix+"/")
	}
	if suffix == "" {
		return true
	}
	if strings.Contains(suffix, "**") {
		// Nested **: match the remaining suffix against any path tail.
		segments := strings.Split(path, "/")
		for i := range segments {
			if matchDoublestar(suffix, strings.Join(segments[i:], "/")) {
				return true
			}
		}
		return false
	}

	// The suffix may match any tail of the remaining path.
	segments := strings.Split(path, "/")
	for i := range segments {
		tail := strings.Join(segments[i:], "/")
		if ok, _ := filepath.Match(suffix, tail); ok {
			return true
		}
	}
	return false
}
