// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFiles = []string{
	"src/app.ts",
	"src/util.ts",
	"src/util.test.ts",
	"src/compiled.ts",
	"src/lib/index.ts",
	"src/widget.tsx",
	"src/legacy.js",
	"src/both.ts",
	"src/both.js",
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(testFiles)

	cases := []struct {
		name      string
		from      string
		specifier string
		want      string
		ok        bool
	}{
		{"extension append ts", "src/app.ts", "./util", "src/util.ts", true},
		{"literal path", "src/app.ts", "./util.ts", "src/util.ts", true},
		{"compiled swap", "src/app.ts", "./compiled.js", "src/compiled.ts", true},
		{"index file", "src/app.ts", "./lib", "src/lib/index.ts", true},
		{"tsx append", "src/app.ts", "./widget", "src/widget.tsx", true},
		{"js literal", "src/app.ts", "./legacy.js", "src/legacy.js", true},
		{"parent dir", "src/lib/index.ts", "../util", "src/util.ts", true},
		{"ts before js", "src/app.ts", "./both", "src/both.ts", true},
		{"root relative append", "src/app.ts", "/src/util", "src/util.ts", true},
		{"root relative literal", "src/lib/index.ts", "/src/util.ts", "src/util.ts", true},
		{"root relative index", "src/app.ts", "/src/lib", "src/lib/index.ts", true},
		{"root relative missing", "src/app.ts", "/nope", "", false},
		{"bare specifier", "src/app.ts", "lodash", "", false},
		{"scoped package", "src/app.ts", "@org/pkg", "", false},
		{"missing file", "src/app.ts", "./nope", "", false},
		{"empty", "src/app.ts", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := r.Resolve(tc.from, tc.specifier)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolver_Resolve_Deterministic(t *testing.T) {
	// Same listing, same answers, across fresh resolvers.
	for i := 0; i < 3; i++ {
		r := NewResolver(testFiles)
		got, ok := r.Resolve("src/app.ts", "./both")
		require.True(t, ok)
		assert.Equal(t, "src/both.ts", got)
	}
}

func TestResolver_Resolve_CacheHit(t *testing.T) {
	cache := NewCache()
	r := NewResolver(testFiles, WithCache(cache))

	got1, ok1 := r.Resolve("src/app.ts", "./util")
	got2, ok2 := r.Resolve("src/app.ts", "./util")
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, got1, got2)
	assert.Equal(t, 1, cache.Len())

	// Specifiers normalizing to the same base share one entry.
	r.Resolve("src/lib/index.ts", "../util")
	assert.Equal(t, 1, cache.Len())

	r.Resolve("src/app.ts", "./widget")
	assert.Equal(t, 2, cache.Len())
}

func TestResolver_Resolve_NegativeCached(t *testing.T) {
	cache := NewCache()
	r := NewResolver(testFiles, WithCache(cache))

	_, ok := r.Resolve("src/app.ts", "./nope")
	require.False(t, ok)
	assert.Equal(t, 1, cache.Len())

	_, ok = r.Resolve("src/app.ts", "./nope")
	assert.False(t, ok)
}
