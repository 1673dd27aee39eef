// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package context

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewater-labs/bughound/services/scanner/ast"
	"github.com/tidewater-labs/bughound/services/scanner/cache"
	"github.com/tidewater-labs/bughound/services/scanner/plan"
)

func testUnit(name string, kind ast.UnitKind, start, end int, text string, exported bool) *ast.CodeUnit {
	return &ast.CodeUnit{
		Kind:      kind,
		Name:      name,
		StartLine: start,
		EndLine:   end,
		Text:      text,
		Hash:      ast.HashText(text),
		Signature: "function " + name + "()",
		Exported:  exported,
	}
}

// testAnalysis wires a file with two functions where process calls
// helper and references the Config type.
func testAnalysis() *ast.FileAnalysis {
	process := testUnit("process", ast.UnitFunction, 1, 5,
		"export function process(cfg: Config) { helper(); }", true)
	process.Callees = []string{"helper"}
	process.TypeRefs = []string{"Config"}
	helper := testUnit("helper", ast.UnitFunction, 7, 9,
		"function helper() { return 1; }", false)

	return &ast.FileAnalysis{
		FilePath:  "src/a.ts",
		Language:  "typescript",
		Units:     []*ast.CodeUnit{process, helper},
		LineCount: 9,
		Types: []ast.TypeDefinition{
			{Kind: "interface", Name: "Config", StartLine: 11, EndLine: 13,
				Text: "interface Config { flag: boolean; }", Exported: true},
		},
		Imports: []ast.ImportInfo{
			{Source: "./config", Names: []string{"Config"}, Line: 1},
			{Source: "express", Alias: "express", IsDefault: true, Line: 2},
			{Source: "./unrelated", Names: []string{"other"}, Line: 3},
		},
	}
}

func TestSelectChangedUnits_Modes(t *testing.T) {
	analysis := testAnalysis()

	changed := SelectChangedUnits(plan.ScanTarget{
		FilePath: "src/a.ts", Mode: plan.ModeChanged, ChangedLines: []int{8},
	}, analysis)
	require.Len(t, changed, 1)
	assert.Equal(t, "helper", changed[0].Name)

	impacted := SelectChangedUnits(plan.ScanTarget{
		FilePath: "src/a.ts", Mode: plan.ModeImpacted,
	}, analysis)
	require.Len(t, impacted, 1)
	assert.Equal(t, "process", impacted[0].Name)

	full := SelectChangedUnits(plan.ScanTarget{
		FilePath: "src/a.ts", Mode: plan.ModeFull,
	}, analysis)
	assert.Len(t, full, 2)
}

func TestAssembler_Build_PriorityOrder(t *testing.T) {
	a := NewAssembler()
	analysis := testAnalysis()

	out := a.Build(plan.ScanTarget{
		FilePath: "src/a.ts", Mode: plan.ModeChanged, ChangedLines: []int{2},
	}, analysis, 8000)

	require.Len(t, out.ChangedUnits, 1)
	assert.Equal(t, "process", out.ChangedUnits[0].Name)

	// helper is not changed, so only its signature rides along.
	require.Len(t, out.CalleeSignatures, 1)
	assert.Contains(t, out.CalleeSignatures[0], "helper")

	require.Len(t, out.Types, 1)
	assert.Equal(t, "Config", out.Types[0].Name)

	// The Config import and the default import are relevant; the
	// unrelated one is not.
	require.Len(t, out.Imports, 2)
	assert.Equal(t, "./config", out.Imports[0].Source)
	assert.Equal(t, "express", out.Imports[1].Source)
}

func TestAssembler_Build_BudgetNeverExceeded(t *testing.T) {
	a := NewAssembler()
	analysis := testAnalysis()
	target := plan.ScanTarget{FilePath: "src/a.ts", Mode: plan.ModeFull}

	for _, budget := range []int{0, 10, 25, 50, 100, 1000} {
		out := a.Build(target, analysis, budget)
		assert.LessOrEqual(t, out.EstimatedTokens, budget, "budget %d", budget)
	}
}

func TestAssembler_Build_RemovingCandidateNeverGrowsEstimate(t *testing.T) {
	a := NewAssembler()
	target := plan.ScanTarget{FilePath: "src/a.ts", Mode: plan.ModeFull}

	for _, budget := range []int{50, 100, 8000} {
		full := a.Build(target, testAnalysis(), budget)

		// Drop a later-priority candidate (the type declaration).
		trimmed := testAnalysis()
		trimmed.Types = nil
		without := a.Build(target, trimmed, budget)

		assert.LessOrEqual(t, without.EstimatedTokens, full.EstimatedTokens,
			"budget %d", budget)
	}
}

func TestAssembler_Build_TinyBudgetDropsLowPriority(t *testing.T) {
	a := NewAssembler()
	analysis := testAnalysis()

	// Room for the changed unit body and nothing else.
	unitCost := itemCost(analysis.Units[0].Text)
	out := a.Build(plan.ScanTarget{
		FilePath: "src/a.ts", Mode: plan.ModeChanged, ChangedLines: []int{2},
	}, analysis, unitCost)

	assert.Len(t, out.ChangedUnits, 1)
	assert.Empty(t, out.CalleeSignatures)
	assert.Empty(t, out.Types)
	assert.Empty(t, out.Imports)
}

func TestAssembler_Build_CacheHitsAndMisses(t *testing.T) {
	store := cache.NewStore(filepath.Join(t.TempDir(), "findings.json"))
	require.NoError(t, store.Load())
	store.BeginGeneration("scan-1")

	analysis := testAnalysis()
	process := analysis.Units[0]
	store.Put(cache.ContextKey(process, analysis), cache.Entry{
		File:     "src/a.ts",
		Unit:     "process",
		Findings: json.RawMessage(`[{"severity":"low"}]`),
	})

	a := NewAssembler(WithStore(store))
	out := a.Build(plan.ScanTarget{
		FilePath: "src/a.ts", Mode: plan.ModeFull,
	}, analysis, 8000)

	assert.Equal(t, 1, out.CacheHits)
	assert.Equal(t, 1, out.CacheMisses)
	require.Len(t, out.CachedFindings, 1)
}

func TestAssembler_Build_NoStoreCountsMisses(t *testing.T) {
	a := NewAssembler()
	out := a.Build(plan.ScanTarget{
		FilePath: "src/a.ts", Mode: plan.ModeFull,
	}, testAnalysis(), 8000)

	assert.Zero(t, out.CacheHits)
	assert.Equal(t, 2, out.CacheMisses)
}

func TestEstimateTokens(t *testing.T) {
	assert.Zero(t, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))

	// Monotonic in length.
	prev := 0
	s := ""
	for i := 0; i < 50; i++ {
		s += "x"
		cur := EstimateTokens(s)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}
