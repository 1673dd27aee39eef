// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobMatcher_Defaults(t *testing.T) {
	m := NewGlobMatcher(DefaultIncludes, DefaultExcludes)

	tests := []struct {
		path string
		want bool
	}{
		{"src/app.ts", true},
		{"src/components/Button.tsx", true},
		{"index.js", true},
		{"lib/util.mjs", true},
		{"src/types.d.ts", false},
		{"node_modules/express/index.js", false},
		{"dist/bundle.js", false},
		{"coverage/lcov.info", false},
		{"vendor/lib.min.js", false},
		{"README.md", false},
		{"src/data.json", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Match(tt.path), tt.path)
	}
}

func TestGlobMatcher_EmptyIncludesAdmitAll(t *testing.T) {
	m := NewGlobMatcher(nil, []string{".git/**"})

	assert.True(t, m.Match("anything.txt"))
	assert.True(t, m.Match("deep/nested/file.go"))
	assert.False(t, m.Match(".git/config"))
}

func TestGlobMatcher_DoublestarForms(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"**/*.ts", "a.ts", true},
		{"**/*.ts", "a/b/c.ts", true},
		{"src/**", "src/a.ts", true},
		{"src/**", "src/deep/b.ts", true},
		{"src/**", "other/a.ts", false},
		{"src/**/*.spec.ts", "src/x/y.spec.ts", true},
		{"src/**/*.spec.ts", "src/y.spec.ts", true},
		{"src/**/*.spec.ts", "src/y.ts", false},
		{"node_modules/**", "node_modules", true},
		{"node_modules/**", "node_modules/a", true},
		{"node_modules/**", "node_modules_extra/a", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchGlob(tt.pattern, tt.path),
			"%s vs %s", tt.pattern, tt.path)
	}
}

func TestGlobMatcher_ExcludesDir(t *testing.T) {
	m := NewGlobMatcher(DefaultIncludes, DefaultExcludes)

	assert.True(t, m.excludesDir("node_modules"))
	assert.True(t, m.excludesDir("dist"))
	assert.False(t, m.excludesDir("src"))
	assert.False(t, m.excludesDir("src/components"))
}
