// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package context assembles the per-file analysis bundle handed to the
// downstream reasoning step.
//
// Assembly is budget-constrained and strictly prioritized: changed unit
// bodies first, then callee signatures, then referenced type
// declarations, then relevant imports. Each stage adds items first-fit
// while the running size estimate stays at or under the budget; a
// later, smaller item is never substituted for an earlier one that did
// not fit.
package context

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/tidewater-labs/bughound/services/scanner/ast"
	"github.com/tidewater-labs/bughound/services/scanner/cache"
	"github.com/tidewater-labs/bughound/services/scanner/plan"
)

// OptimizedContext is the assembled bundle for one target file. Built
// fresh per scan; never persisted.
type OptimizedContext struct {
	FilePath string `json:"file_path"`

	// ChangedUnits are the units selected for analysis, full text.
	ChangedUnits []*ast.CodeUnit `json:"changed_units"`

	// CalleeSignatures are reference-only signatures of same-file units
	// the changed units call.
	CalleeSignatures []string `json:"callee_signatures,omitempty"`

	// Types are the referenced type declarations, full text.
	Types []ast.TypeDefinition `json:"types,omitempty"`

	// Imports are the import statements judged relevant.
	Imports []ast.ImportInfo `json:"imports,omitempty"`

	// EstimatedTokens is the running size estimate; never exceeds the
	// budget the bundle was built under.
	EstimatedTokens int `json:"estimated_tokens"`

	// CacheHits and CacheMisses count findings-cache lookups for the
	// selected units.
	CacheHits   int `json:"cache_hits"`
	CacheMisses int `json:"cache_misses"`

	// CachedFindings are the replayed findings payloads for cache hits.
	CachedFindings []json.RawMessage `json:"cached_findings,omitempty"`
}

// AssemblerOption configures an Assembler instance.
type AssemblerOption func(*Assembler)

// WithStore attaches a findings cache consulted per selected unit.
// Without a store every unit counts as a miss.
func WithStore(store *cache.Store) AssemblerOption {
	return func(a *Assembler) {
		a.store = store
	}
}

// Assembler builds OptimizedContexts. Safe for concurrent use: it
// holds no per-build state and the store locks internally.
type Assembler struct {
	store *cache.Store
}

// NewAssembler creates an Assembler with the given options.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SelectChangedUnits picks the units a target's mode puts in scope:
// units intersecting the changed lines for ModeChanged, the exported
// surface for ModeImpacted, every unit for ModeFull.
func SelectChangedUnits(target plan.ScanTarget, analysis *ast.FileAnalysis) []*ast.CodeUnit {
	switch target.Mode {
	case plan.ModeChanged:
		return analysis.UnitsIntersecting(target.ChangedLines)
	case plan.ModeImpacted:
		return analysis.ExportedUnits()
	default:
		return analysis.Units
	}
}

// Build assembles the context bundle for one target.
//
// Inputs:
//   - target: the planned target; its mode drives unit selection.
//   - analysis: the target file's extraction result.
//   - budget: the tier's per-file token budget.
//
// Outputs:
//   - A non-nil OptimizedContext whose EstimatedTokens is at most
//     budget. Zero selected units is a valid outcome.
func (a *Assembler) Build(target plan.ScanTarget, analysis *ast.FileAnalysis, budget int) *OptimizedContext {
	out := &OptimizedContext{
		FilePath:     target.FilePath,
		ChangedUnits: make([]*ast.CodeUnit, 0),
	}

	selected := SelectChangedUnits(target, analysis)

	// Stage 1: changed unit bodies.
	included := make(map[string]struct{})
	for _, u := range selected {
		cost := itemCost(u.Text)
		if out.EstimatedTokens+cost > budget {
			continue
		}
		out.EstimatedTokens += cost
		out.ChangedUnits = append(out.ChangedUnits, u)
		included[u.Name] = struct{}{}
		a.consultCache(out, u, analysis)
	}

	calleeNames, typeNames := referenceSets(out.ChangedUnits)

	// Stage 2: same-file callee signatures, excluding units already
	// present in full.
	for _, name := range calleeNames {
		if _, present := included[name]; present {
			continue
		}
		callee := analysis.UnitByName(name)
		if callee == nil || callee.Signature == "" {
			continue
		}
		cost := itemCost(callee.Signature)
		if out.EstimatedTokens+cost > budget {
			continue
		}
		out.EstimatedTokens += cost
		out.CalleeSignatures = append(out.CalleeSignatures, callee.Signature)
	}

	// Stage 3: referenced type declarations, full text.
	for _, name := range typeNames {
		td := analysis.TypeByName(name)
		if td == nil {
			continue
		}
		cost := itemCost(td.Text)
		if out.EstimatedTokens+cost > budget {
			continue
		}
		out.EstimatedTokens += cost
		out.Types = append(out.Types, *td)
	}

	// Stage 4: imports whose names intersect the reference sets, plus
	// default imports.
	refSet := make(map[string]struct{}, len(calleeNames)+len(typeNames))
	for _, n := range calleeNames {
		refSet[n] = struct{}{}
	}
	for _, n := range typeNames {
		refSet[n] = struct{}{}
	}
	for _, imp := range analysis.Imports {
		if !importRelevant(imp, refSet) {
			continue
		}
		cost := itemCost(imp.Source) + ItemOverhead*len(imp.Names)
		if out.EstimatedTokens+cost > budget {
			continue
		}
		out.EstimatedTokens += cost
		out.Imports = append(out.Imports, imp)
	}

	return out
}

// consultCache looks the unit up in the findings cache and replays a
// hit into the bundle.
func (a *Assembler) consultCache(out *OptimizedContext, u *ast.CodeUnit, analysis *ast.FileAnalysis) {
	if a.store == nil {
		out.CacheMisses++
		return
	}
	entry, ok := a.store.Get(cache.ContextKey(u, analysis))
	if !ok {
		out.CacheMisses++
		return
	}
	out.CacheHits++
	if len(entry.Findings) > 0 {
		out.CachedFindings = append(out.CachedFindings, entry.Findings)
	}
}

// referenceSets unions the callee and type-reference names of the
// included units, sorted.
func referenceSets(units []*ast.CodeUnit) (callees, types []string) {
	calleeSet := make(map[string]struct{})
	typeSet := make(map[string]struct{})
	for _, u := range units {
		for _, c := range u.Callees {
			calleeSet[c] = struct{}{}
		}
		for _, t := range u.TypeRefs {
			typeSet[t] = struct{}{}
		}
	}
	return sortedKeys(calleeSet), sortedKeys(typeSet)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// importRelevant reports whether an import contributes names the
// changed units reference, or is a default import.
func importRelevant(imp ast.ImportInfo, refs map[string]struct{}) bool {
	if imp.IsDefault {
		return true
	}
	for _, name := range imp.Names {
		// Named imports may carry an "orig as alias" form; the local
		// binding is what unit bodies reference.
		local := name
		if i := strings.LastIndex(name, " as "); i >= 0 {
			local = name[i+4:]
		}
		if _, ok := refs[local]; ok {
			return true
		}
	}
	if imp.Alias != "" {
		if _, ok := refs[imp.Alias]; ok {
			return true
		}
	}
	return false
}
