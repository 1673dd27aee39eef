// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package diff extracts changed-line information from unified diff text.
//
// The engine receives diff text from its caller and never produces it,
// so parsing must tolerate fragments a strict patch reader would reject:
// hunks without file headers, truncated bodies, arbitrary garbage.
// ParseChangedLines is the tolerant line scanner used for scan planning;
// Stats uses a strict structured parse for patch statistics.
package diff

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// hunkHeader matches "@@ -a,b +c,d @@" with the counts optional.
var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// ParseChangedLines maps each changed file to the new-file line numbers
// its hunks cover.
//
// Description:
//
//	For every "+++ b/<path>" header the scanner tracks the current file;
//	each following "@@ -a,b +c,d @@" hunk contributes lines c through
//	c+d-1. An omitted d defaults to 1; d = 0 (pure deletion) contributes
//	nothing. Hunks appearing before any file header are ignored, as are
//	"+++ /dev/null" entries for deleted files. Unparseable input yields
//	an empty map, never an error.
//
// Outputs:
//   - map from project-relative path to sorted, de-duplicated 1-indexed
//     line numbers in the post-change file.
func ParseChangedLines(diffText string) map[string][]int {
	changed := make(map[string][]int)
	seen := make(map[string]map[int]struct{})
	current := ""

	scanner := bufio.NewScanner(strings.NewReader(diffText))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "+++ ") {
			target := strings.TrimSpace(strings.TrimPrefix(line, "+++ "))
			// Strip a trailing tab-separated timestamp if present.
			if i := strings.IndexByte(target, '\t'); i >= 0 {
				target = target[:i]
			}
			if target == "/dev/null" {
				current = ""
				continue
			}
			current = strings.TrimPrefix(target, "b/")
			continue
		}

		if current == "" || !strings.HasPrefix(line, "@@") {
			continue
		}
		m := hunkHeader.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		start, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		count := 1
		if m[4] != "" {
			count, err = strconv.Atoi(m[4])
			if err != nil {
				continue
			}
		}

		if seen[current] == nil {
			seen[current] = make(map[int]struct{})
		}
		for ln := start; ln < start+count; ln++ {
			if _, dup := seen[current][ln]; dup {
				continue
			}
			seen[current][ln] = struct{}{}
			changed[current] = append(changed[current], ln)
		}
	}

	for path := range changed {
		sortInts(changed[path])
	}
	return changed
}

// sortInts is an insertion sort; hunk line lists are short and mostly
// already ordered.
func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}

// PatchStats summarizes a unified diff.
type PatchStats struct {
	// FilesChanged is the number of files the patch touches.
	FilesChanged int `json:"files_changed"`

	// LinesAdded and LinesRemoved count body lines across all hunks.
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`
}

// Stats computes patch statistics from complete unified diff text.
//
// Unlike ParseChangedLines this uses a strict structured parse, so
// header-less fragments return an error. Callers wanting tolerance
// should treat an error as "no stats available".
func Stats(diffText string) (PatchStats, error) {
	fileDiffs, err := godiff.NewMultiFileDiffReader(strings.NewReader(diffText)).ReadAllFiles()
	if err != nil {
		return PatchStats{}, err
	}

	stats := PatchStats{FilesChanged: len(fileDiffs)}
	for _, fd := range fileDiffs {
		st := fd.Stat()
		stats.LinesAdded += int(st.Added + st.Changed)
		stats.LinesRemoved += int(st.Deleted + st.Changed)
	}
	return stats, nil
}
