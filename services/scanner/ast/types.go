// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ast extracts analyzable code units from source files.
//
// A source file is parsed into a FileAnalysis: an ordered list of CodeUnits
// (functions, methods, classes, closures), the file's imports, its exported
// names, and its type declarations. Every unit carries a content hash so
// downstream caching and change detection can work on units rather than
// whole files.
//
// Front-end implementations (TypeScript, JavaScript) produce output
// conforming to these types; nothing outside this package depends on a
// particular parser's node types.
package ast

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// UnitKind classifies a CodeUnit.
type UnitKind int

const (
	// UnitUnknown indicates an unclassified unit.
	UnitUnknown UnitKind = iota

	// UnitFunction is a standalone function declaration.
	UnitFunction

	// UnitMethod is a function attached to a class.
	UnitMethod

	// UnitClass is a class declaration. The unit's Signature is the
	// class's method-signature listing without bodies.
	UnitClass

	// UnitClosure is a variable whose initializer is a function or
	// arrow-function literal.
	UnitClosure

	// UnitVariable is a top-level variable declaration without a
	// function initializer.
	UnitVariable
)

var unitKindNames = map[UnitKind]string{
	UnitUnknown:  "unknown",
	UnitFunction: "function",
	UnitMethod:   "method",
	UnitClass:    "class",
	UnitClosure:  "closure",
	UnitVariable: "variable",
}

// String returns the string representation of the UnitKind.
func (k UnitKind) String() string {
	if name, ok := unitKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON serializes the kind as a JSON string for readability.
func (k UnitKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON accepts string values (e.g. "function").
func (k *UnitKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("UnitKind must be a string: %w", err)
	}
	*k = ParseUnitKind(s)
	return nil
}

// ParseUnitKind converts a string to a UnitKind.
// Returns UnitUnknown for unrecognized values.
func ParseUnitKind(s string) UnitKind {
	for kind, name := range unitKindNames {
		if name == s {
			return kind
		}
	}
	return UnitUnknown
}

// Param describes one declared parameter of a unit.
type Param struct {
	// Name is the parameter's identifier.
	Name string `json:"name"`

	// Type is the declared type annotation, if any.
	Type string `json:"type,omitempty"`

	// Optional indicates a "?" parameter.
	Optional bool `json:"optional,omitempty"`

	// Default is the default-value expression text, if any.
	Default string `json:"default,omitempty"`
}

// CodeUnit is a named, contiguous span of source: a function, method,
// class, or top-level variable binding.
//
// Units are created fresh each time a file is parsed and are never
// mutated afterwards. Only their hashes (and findings derived from them)
// outlive a scan, via the cache store.
type CodeUnit struct {
	// Kind classifies the unit.
	Kind UnitKind `json:"kind"`

	// Name is the unit's identifier as written in source.
	Name string `json:"name"`

	// StartLine and EndLine are 1-indexed, inclusive.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Text is the raw source text of the unit.
	Text string `json:"text"`

	// Hash is the hex SHA-256 digest of Text.
	Hash string `json:"hash"`

	// Signature is the declaration without its body. For classes it is
	// the listing of method signatures. Cheap to include as
	// reference-only context.
	Signature string `json:"signature,omitempty"`

	// OwnerClass is the owning class name for methods; empty otherwise.
	OwnerClass string `json:"owner_class,omitempty"`

	// Exported indicates the unit is part of the file's public surface.
	Exported bool `json:"exported"`

	// Async indicates an async function or method.
	Async bool `json:"async,omitempty"`

	// Params are the declared parameters, in order.
	Params []Param `json:"params,omitempty"`

	// ReturnType is the declared return type annotation, if any.
	ReturnType string `json:"return_type,omitempty"`

	// Callees are the distinct function names referenced in the unit's
	// own body, sorted.
	Callees []string `json:"callees,omitempty"`

	// TypeRefs are the distinct type names referenced in the unit's own
	// body and signature, sorted.
	TypeRefs []string `json:"type_refs,omitempty"`
}

// HashText returns the hex SHA-256 digest used as a unit content hash.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Validate checks the unit's field invariants.
func (u *CodeUnit) Validate() error {
	if u.Name == "" {
		return fmt.Errorf("%w: unit name is empty", ErrInvalidUnit)
	}
	if u.StartLine < 1 {
		return fmt.Errorf("%w: %s start line %d", ErrInvalidUnit, u.Name, u.StartLine)
	}
	if u.EndLine < u.StartLine {
		return fmt.Errorf("%w: %s end line %d before start %d", ErrInvalidUnit, u.Name, u.EndLine, u.StartLine)
	}
	if u.Kind == UnitMethod && u.OwnerClass == "" {
		return fmt.Errorf("%w: method %s has no owner class", ErrInvalidUnit, u.Name)
	}
	return nil
}

// ImportInfo describes one import statement.
type ImportInfo struct {
	// Source is the specifier string the import names.
	Source string `json:"source"`

	// Names lists the identifiers imported, in order.
	Names []string `json:"names,omitempty"`

	// IsDefault indicates a default import (import foo from "bar").
	IsDefault bool `json:"is_default,omitempty"`

	// IsNamespace indicates a namespace import (import * as foo).
	IsNamespace bool `json:"is_namespace,omitempty"`

	// IsTypeOnly indicates a type-only import (import type {...}).
	IsTypeOnly bool `json:"is_type_only,omitempty"`

	// Alias is the local binding for default or namespace imports.
	Alias string `json:"alias,omitempty"`

	// Line is the 1-indexed line of the import statement.
	Line int `json:"line"`
}

// TypeDefinition is an interface, type-alias, enum, or class-shape
// declaration tracked for reference-only context. Unlike CodeUnits,
// type definitions carry no content hash.
type TypeDefinition struct {
	// Kind is one of "interface", "type", "enum", "class".
	Kind string `json:"kind"`

	// Name is the declared type name.
	Name string `json:"name"`

	// StartLine and EndLine are 1-indexed, inclusive.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Text is the full declaration text.
	Text string `json:"text"`

	// Exported indicates an export-prefixed declaration.
	Exported bool `json:"exported"`
}

// FileAnalysis is the per-file parse result.
//
// Invariant: top-level unit line ranges do not overlap and lie within
// [1, LineCount]. Method units lie within their owning class's range.
type FileAnalysis struct {
	// FilePath is the analyzed file, relative to the project root.
	FilePath string `json:"file_path"`

	// Language is the detected language ("typescript", "javascript").
	Language string `json:"language"`

	// Units are the extracted code units in source order.
	Units []*CodeUnit `json:"units"`

	// Imports are the file's import statements in source order.
	Imports []ImportInfo `json:"imports"`

	// Exports lists the file's exported names.
	Exports []string `json:"exports,omitempty"`

	// Types are the file's type declarations in source order.
	Types []TypeDefinition `json:"types,omitempty"`

	// LineCount is the number of lines in the file.
	LineCount int `json:"line_count"`

	// Errors holds non-fatal parse problems; extraction may still have
	// produced partial results.
	Errors []string `json:"errors,omitempty"`
}

// UnitsIntersecting returns the units whose line range contains at
// least one of the given lines.
func (a *FileAnalysis) UnitsIntersecting(lines []int) []*CodeUnit {
	if len(lines) == 0 {
		return nil
	}
	var out []*CodeUnit
	for _, u := range a.Units {
		for _, ln := range lines {
			if ln >= u.StartLine && ln <= u.EndLine {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

// ExportedUnits returns the units forming the file's public surface.
func (a *FileAnalysis) ExportedUnits() []*CodeUnit {
	var out []*CodeUnit
	for _, u := range a.Units {
		if u.Exported {
			out = append(out, u)
		}
	}
	return out
}

// UnitByName returns the first unit with the given name, or nil.
func (a *FileAnalysis) UnitByName(name string) *CodeUnit {
	for _, u := range a.Units {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// TypeByName returns the type definition with the given name, or nil.
func (a *FileAnalysis) TypeByName(name string) *TypeDefinition {
	for i := range a.Types {
		if a.Types[i].Name == name {
			return &a.Types[i]
		}
	}
	return nil
}

// Validate checks the analysis invariants: valid units, ordered
// non-overlapping top-level ranges, ranges within the file.
func (a *FileAnalysis) Validate() error {
	if a.FilePath == "" {
		return fmt.Errorf("%w: empty file path", ErrInvalidAnalysis)
	}
	if strings.Contains(a.FilePath, "..") {
		return fmt.Errorf("%w: path traversal in %q", ErrInvalidAnalysis, a.FilePath)
	}
	prevEnd := 0
	for _, u := range a.Units {
		if err := u.Validate(); err != nil {
			return err
		}
		if a.LineCount > 0 && u.EndLine > a.LineCount {
			return fmt.Errorf("%w: %s ends at %d past line count %d", ErrInvalidAnalysis, u.Name, u.EndLine, a.LineCount)
		}
		if u.Kind == UnitMethod || u.Kind == UnitVariable {
			// Methods nest inside their class span; variable bindings
			// can share a declaration line.
			continue
		}
		if u.StartLine <= prevEnd {
			return fmt.Errorf("%w: %s overlaps previous unit", ErrInvalidAnalysis, u.Name)
		}
		prevEnd = u.EndLine
	}
	return nil
}

// sortedSet returns the sorted, de-duplicated contents of a string set.
func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
