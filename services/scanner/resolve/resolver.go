// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package resolve maps import specifiers to project files.
//
// Resolution runs against the scan's known file set, never the live
// filesystem, so results are deterministic for a given listing. Bare
// specifiers (package imports) are out of scope and always unresolved.
package resolve

import (
	"path"
	"strings"
	"sync"
)

// resolveExtensions is the candidate order for extension appending.
var resolveExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// indexFiles is the candidate order for directory imports.
var indexFiles = []string{"index.ts", "index.tsx", "index.js", "index.jsx"}

// compiledSwaps maps compiled-output extensions to the source
// extensions that may back them (NodeNext-style ".js" imports of ".ts"
// sources).
var compiledSwaps = map[string][]string{
	".js":  {".ts", ".tsx"},
	".mjs": {".mts", ".ts"},
	".cjs": {".cts", ".ts"},
}

// Cache memoizes resolution results for one scan.
//
// A Cache is created per scan and passed to the resolver; it must not
// outlive the file listing it was built against. Safe for concurrent
// use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	path string
	ok   bool
}

// NewCache creates an empty resolution cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

func (c *Cache) get(key string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *Cache) put(key string, e cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

// Len returns the number of memoized lookups.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ResolverOption configures a Resolver instance.
type ResolverOption func(*Resolver)

// WithCache attaches a scan-scoped memoization cache.
func WithCache(cache *Cache) ResolverOption {
	return func(r *Resolver) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// Resolver resolves relative import specifiers against a fixed set of
// project-relative file paths.
//
// Thread Safety:
//
//	Resolver instances are safe for concurrent use; the file set is
//	immutable after construction and the cache is internally locked.
type Resolver struct {
	files map[string]struct{}
	cache *Cache
}

// NewResolver creates a Resolver over the given project-relative paths
// (forward slashes).
func NewResolver(files []string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		files: make(map[string]struct{}, len(files)),
		cache: NewCache(),
	}
	for _, f := range files {
		r.files[path.Clean(f)] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps an import specifier in fromFile to a project file.
//
// Inputs:
//   - fromFile: project-relative path of the importing file.
//   - specifier: the import source text, e.g. "./util" or "lodash".
//
// Outputs:
//   - The resolved project-relative path and true, or "" and false for
//     bare specifiers and specifiers matching no known file.
//
// Candidate order: the literal path, extension appending, compiled
// extension swapping (".js" resolving to a ".ts" source), then index
// files for directory imports. First match wins. Leading-slash
// specifiers are root-relative and resolve against the project root
// through the same candidate chain.
func (r *Resolver) Resolve(fromFile, specifier string) (string, bool) {
	if specifier == "" {
		return "", false
	}

	var base string
	switch {
	case strings.HasPrefix(specifier, "/"):
		base = path.Clean(strings.TrimPrefix(specifier, "/"))
	case isRelative(specifier):
		base = path.Join(path.Dir(fromFile), specifier)
	default:
		return "", false
	}
	key := base
	if e, ok := r.cache.get(key); ok {
		return e.path, e.ok
	}

	resolved, ok := r.resolveBase(base)
	r.cache.put(key, cacheEntry{path: resolved, ok: ok})
	return resolved, ok
}

func (r *Resolver) resolveBase(base string) (string, bool) {
	// Literal path
	if r.has(base) {
		return base, true
	}

	// Extension appending: "./util" -> "./util.ts" ...
	for _, ext := range resolveExtensions {
		if r.has(base + ext) {
			return base + ext, true
		}
	}

	// Compiled-extension swap: "./util.js" -> "./util.ts"
	if ext := path.Ext(base); ext != "" {
		if swaps, ok := compiledSwaps[ext]; ok {
			stem := strings.TrimSuffix(base, ext)
			for _, src := range swaps {
				if r.has(stem + src) {
					return stem + src, true
				}
			}
		}
	}

	// Directory import: "./lib" -> "./lib/index.ts" ...
	for _, idx := range indexFiles {
		candidate := path.Join(base, idx)
		if r.has(candidate) {
			return candidate, true
		}
	}

	return "", false
}

func (r *Resolver) has(p string) bool {
	_, ok := r.files[p]
	return ok
}

// isRelative reports whether a specifier names a project file rather
// than a package.
func isRelative(specifier string) bool {
	return strings.HasPrefix(specifier, "./") ||
		strings.HasPrefix(specifier, "../") ||
		specifier == "." || specifier == ".."
}
