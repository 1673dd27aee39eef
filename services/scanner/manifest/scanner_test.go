// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/app.ts":                   "export function app() {}",
		"src/util.js":                  "module.exports = {}",
		"src/types.d.ts":               "declare const x: number;",
		"node_modules/pkg/index.js":    "module.exports = 1",
		"dist/bundle.js":               "!function(){}()",
		"README.md":                    "# readme",
	})

	s := NewScanner()
	m, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/app.ts", "src/util.js"}, m.Listing())
	assert.False(t, m.Incomplete)
	assert.False(t, m.HasErrors())

	entry := m.Files["src/app.ts"]
	assert.Equal(t, "src/app.ts", entry.Path)
	assert.NoError(t, entry.Validate())
	assert.Equal(t, int64(len("export function app() {}")), entry.Size)
	assert.NotZero(t, entry.Mtime)
}

func TestScanner_Scan_SymlinksSkipped(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/app.ts": "const a = 1;"})

	link := filepath.Join(root, "src", "link.ts")
	if err := os.Symlink(filepath.Join(root, "src", "app.ts"), link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	m, err := NewScanner().Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.ts"}, m.Listing())
}

func TestScanner_Scan_Canceled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/app.ts": "const a = 1;"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := NewScanner().Scan(ctx, root)
	require.NoError(t, err)
	assert.True(t, m.Incomplete)
}

func TestScanner_Scan_InvalidRoot(t *testing.T) {
	_, err := NewScanner().Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrInvalidRoot)

	root := t.TempDir()
	writeTree(t, root, map[string]string{"file.ts": "x"})
	_, err = NewScanner().Scan(context.Background(), filepath.Join(root, "file.ts"))
	assert.ErrorIs(t, err, ErrInvalidRoot)
}

func TestScanner_Scan_CustomPatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/app.ts":       "a",
		"src/app.spec.ts":  "b",
		"tests/helper.ts":  "c",
	})

	s := NewScanner(WithPatterns(
		[]string{"src/**/*.ts"},
		[]string{"**/*.spec.ts"},
	))
	m, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.ts"}, m.Listing())
}

func TestDiff(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.ts": "one",
		"b.ts": "two",
		"c.ts": "three",
	})
	s := NewScanner()

	old, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.ts"), []byte("changed"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(root, "c.ts")))
	writeTree(t, root, map[string]string{"d.ts": "four"})

	cur, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	changes := Diff(old, cur)
	assert.Equal(t, []string{"d.ts"}, changes.Added)
	assert.Equal(t, []string{"b.ts"}, changes.Modified)
	assert.Equal(t, []string{"c.ts"}, changes.Deleted)
	assert.False(t, changes.IsEmpty())
	assert.Equal(t, []string{"b.ts", "c.ts", "d.ts"}, changes.All())
}

func TestDiff_NilOldReportsAllAdded(t *testing.T) {
	m := NewManifest("/tmp/p")
	m.Files["z.ts"] = FileEntry{Path: "z.ts"}
	m.Files["a.ts"] = FileEntry{Path: "a.ts"}

	changes := Diff(nil, m)
	assert.Equal(t, []string{"a.ts", "z.ts"}, changes.Added)
	assert.Empty(t, changes.Modified)
	assert.Empty(t, changes.Deleted)
}

func TestDiff_Identical(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.ts": "one"})
	s := NewScanner()

	first, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.True(t, Diff(first, second).IsEmpty())
}

func TestQuickCheck(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.ts": "const a = 1;"})
	s := NewScanner()

	m, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	entry := m.Files["a.ts"]

	changed, err := s.QuickCheck(root, entry)
	require.NoError(t, err)
	assert.False(t, changed)

	// Same content, touched mtime: the hash settles it.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.ts"), future, future))
	changed, err = s.QuickCheck(root, entry)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("const a = 2;"), 0o644))
	changed, err = s.QuickCheck(root, entry)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.QuickCheck(root, FileEntry{Path: "missing.ts"})
	require.NoError(t, err)
	assert.True(t, changed)
}
