// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChangedLines_SingleHunk(t *testing.T) {
	got := ParseChangedLines("+++ b/src/x.ts\n@@ -5,0 +10,3 @@\n")
	require.Len(t, got, 1)
	assert.Equal(t, []int{10, 11, 12}, got["src/x.ts"])
}

func TestParseChangedLines_OmittedCount(t *testing.T) {
	got := ParseChangedLines("+++ b/a.ts\n@@ -3 +7 @@\n")
	assert.Equal(t, []int{7}, got["a.ts"])
}

func TestParseChangedLines_ZeroCount(t *testing.T) {
	// A pure deletion touches no lines in the new file.
	got := ParseChangedLines("+++ b/a.ts\n@@ -3,2 +2,0 @@\n")
	assert.Empty(t, got)
}

func TestParseChangedLines_MultipleFiles(t *testing.T) {
	text := `--- a/src/a.ts
+++ b/src/a.ts
@@ -1,2 +1,3 @@
+added
 ctx
 ctx
--- a/src/b.ts
+++ b/src/b.ts
@@ -10,1 +12,2 @@
 ctx
+added
`
	got := ParseChangedLines(text)
	require.Len(t, got, 2)
	assert.Equal(t, []int{1, 2, 3}, got["src/a.ts"])
	assert.Equal(t, []int{12, 13}, got["src/b.ts"])
}

func TestParseChangedLines_HunkBeforeHeader(t *testing.T) {
	got := ParseChangedLines("@@ -1,1 +1,1 @@\n+++ b/a.ts\n@@ -2,1 +2,1 @@\n")
	require.Len(t, got, 1)
	assert.Equal(t, []int{2}, got["a.ts"])
}

func TestParseChangedLines_DeletedFile(t *testing.T) {
	text := `--- a/gone.ts
+++ /dev/null
@@ -1,5 +0,0 @@
`
	assert.Empty(t, ParseChangedLines(text))
}

func TestParseChangedLines_OverlappingHunks(t *testing.T) {
	text := `+++ b/a.ts
@@ -1,3 +1,3 @@
@@ -2,3 +2,3 @@
`
	got := ParseChangedLines(text)
	assert.Equal(t, []int{1, 2, 3, 4}, got["a.ts"])
}

func TestParseChangedLines_Garbage(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"plain text", "not a diff at all\njust words\n"},
		{"header only", "+++ b/a.ts\n"},
		{"malformed hunk", "+++ b/a.ts\n@@ nonsense @@\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, ParseChangedLines(tc.in))
		})
	}
}

func TestParseChangedLines_HeaderTimestamp(t *testing.T) {
	got := ParseChangedLines("+++ b/a.ts\t2026-01-01 00:00:00\n@@ -1 +1 @@\n")
	assert.Equal(t, []int{1}, got["a.ts"])
}

func TestStats(t *testing.T) {
	text := `--- a/src/a.ts
+++ b/src/a.ts
@@ -1,2 +1,3 @@
+added
 ctx
 ctx
`
	stats, err := Stats(text)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesChanged)
	assert.Equal(t, 1, stats.LinesAdded)
	assert.Equal(t, 0, stats.LinesRemoved)
}

func TestStats_HeaderlessFragment(t *testing.T) {
	// The strict reader yields nothing useful for fragments the
	// tolerant scanner accepts.
	stats, err := Stats("@@ -1 +1 @@\n")
	if err == nil {
		assert.Zero(t, stats.FilesChanged)
	}
}
