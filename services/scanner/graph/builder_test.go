// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuilder_Build(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/app.ts", `import { run } from "./service";
import express from "express";
export function main(): void { run(); }
`)
	writeSource(t, root, "src/service.ts", `import { find } from "./repo";
export function run(): void { find(); }
`)
	writeSource(t, root, "src/repo.ts", `export function find(): void {}
`)

	files := []string{"src/app.ts", "src/service.ts", "src/repo.ts"}
	b := NewBuilder(root)
	result, err := b.Build(context.Background(), files)
	require.NoError(t, err)

	g := result.Graph
	assert.Equal(t, 3, g.Size())
	assert.Equal(t, []string{"src/service.ts"}, g.Imports("src/app.ts"))
	assert.True(t, g.DependsOn("src/app.ts", "src/repo.ts"))

	// The bare express import is unresolved, not an error.
	assert.Equal(t, 1, result.UnresolvedImports)
	assert.Empty(t, result.FileErrors)
}

func TestBuilder_Build_CycleRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.ts", `import { b } from "./b";
export const a = 1;
`)
	writeSource(t, root, "b.ts", `import { a } from "./a";
export const b = 2;
`)

	b := NewBuilder(root)
	result, err := b.Build(context.Background(), []string{"a.ts", "b.ts"})
	require.NoError(t, err)

	cycles := result.Graph.FindCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a.ts", "b.ts"}, cycles[0])
}

func TestBuilder_Build_MissingFile(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "ok.ts", `export const x = 1;
`)

	b := NewBuilder(root)
	result, err := b.Build(context.Background(), []string{"ok.ts", "gone.ts"})
	require.NoError(t, err)

	require.Len(t, result.FileErrors, 1)
	assert.Equal(t, "gone.ts", result.FileErrors[0].FilePath)
	// The broken file is still a node.
	assert.True(t, result.Graph.Contains("gone.ts"))
}

func TestBuilder_Build_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBuilder(t.TempDir())
	_, err := b.Build(ctx, []string{"a.ts"})
	assert.Error(t, err)
}

func TestBuilder_Build_UnsupportedSkipped(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "README.md", "# docs\n")

	b := NewBuilder(root)
	result, err := b.Build(context.Background(), []string{"README.md"})
	require.NoError(t, err)
	assert.Empty(t, result.FileErrors)
	assert.Zero(t, result.Graph.EdgeCount())
}
