// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `tier: deep
includes:
  - "src/**/*.ts"
excludes:
  - "**/*.spec.ts"
cache_dir: .cache/bughound
log_level: debug
`

func TestLoadConfig_Default(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultConfigName), []byte(sampleConfig), 0o644))

	cfg, err := LoadConfig(root, "")
	require.NoError(t, err)

	assert.Equal(t, "deep", cfg.Tier)
	assert.Equal(t, []string{"src/**/*.ts"}, cfg.Includes)
	assert.Equal(t, []string{"**/*.spec.ts"}, cfg.Excludes)
	assert.Equal(t, ".cache/bughound", cfg.CacheDir)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_MissingDefaultIsFine(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir(), "")
	require.NoError(t, err)
	assert.Zero(t, cfg)
}

func TestLoadConfig_MissingExplicitErrors(t *testing.T) {
	_, err := LoadConfig(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_Malformed(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultConfigName), []byte("tier: [broken"), 0o644))

	_, err := LoadConfig(root, "")
	assert.Error(t, err)
}
