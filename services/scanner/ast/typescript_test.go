// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"strings"
	"sync"
	"testing"
)

// Test source code samples (embedded, no file I/O).
const (
	testTSEmpty = ``

	testTSFunction = `export function add(a: number, b: number): number {
	return a + b;
}
`

	testTSAsyncFunction = `async function fetchData(url: string): Promise<string> {
	const res = await fetch(url);
	return res.text();
}
`

	testTSClass = `export class UserService {
	private repo: UserRepo;

	constructor(repo: UserRepo) {
		this.repo = repo;
	}

	async getUser(id: string): Promise<User> {
		return this.repo.findById(id);
	}

	private validate(id: string): boolean {
		return id.length > 0;
	}
}
`

	testTSImports = `import { Request, Response } from "express";
import type { Config } from "./config";
import * as path from "path";
import express from "express";
const fs = require("fs");
`

	testTSClosure = `export const handler = async (req: Request): Promise<void> => {
	await process(req);
};

const limit = 100;
`

	testTSTypes = `export interface User {
	id: string;
	name: string;
}

type UserID = string;

export enum Role {
	Admin,
	Member,
}
`

	testTSSyntaxError = `function broken( {
	return;
}

function valid(): string {
	return "ok";
}
`

	testTSCallees = `import { save } from "./db";

export function process(user: User): void {
	validate(user);
	save(user);
	logger.info("done");
}
`
)

func TestTypeScriptFrontend_Extract_EmptyFile(t *testing.T) {
	f := NewTypeScriptFrontend()
	analysis, err := f.Extract(context.Background(), []byte(testTSEmpty), "empty.ts")
	if err != nil {
		t.Fatalf("expected no error for empty file, got: %v", err)
	}
	if analysis.FilePath != "empty.ts" {
		t.Errorf("expected FilePath 'empty.ts', got %q", analysis.FilePath)
	}
	if analysis.Language != "typescript" {
		t.Errorf("expected Language 'typescript', got %q", analysis.Language)
	}
	if len(analysis.Units) != 0 {
		t.Errorf("expected 0 units, got %d", len(analysis.Units))
	}
}

func TestTypeScriptFrontend_Extract_Function(t *testing.T) {
	f := NewTypeScriptFrontend()
	analysis, err := f.Extract(context.Background(), []byte(testTSFunction), "add.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(analysis.Units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(analysis.Units))
	}
	u := analysis.Units[0]
	if u.Kind != UnitFunction {
		t.Errorf("expected function kind, got %s", u.Kind)
	}
	if u.Name != "add" {
		t.Errorf("expected name 'add', got %q", u.Name)
	}
	if !u.Exported {
		t.Error("expected exported function")
	}
	if u.StartLine != 1 {
		t.Errorf("expected StartLine 1, got %d", u.StartLine)
	}
	if u.EndLine != 3 {
		t.Errorf("expected EndLine 3, got %d", u.EndLine)
	}
	if len(u.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(u.Params))
	}
	if u.Params[0].Name != "a" || u.Params[0].Type != "number" {
		t.Errorf("unexpected first param: %+v", u.Params[0])
	}
	if u.ReturnType != "number" {
		t.Errorf("expected return type 'number', got %q", u.ReturnType)
	}
	if len(u.Hash) != 64 {
		t.Errorf("expected 64-char hash, got %d chars", len(u.Hash))
	}
	if len(analysis.Exports) != 1 || analysis.Exports[0] != "add" {
		t.Errorf("expected exports ['add'], got %v", analysis.Exports)
	}
}

func TestTypeScriptFrontend_Extract_AsyncFunction(t *testing.T) {
	f := NewTypeScriptFrontend()
	analysis, err := f.Extract(context.Background(), []byte(testTSAsyncFunction), "fetch.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u := analysis.UnitByName("fetchData")
	if u == nil {
		t.Fatal("expected unit 'fetchData'")
	}
	if !u.Async {
		t.Error("expected async flag")
	}
	if u.Exported {
		t.Error("expected non-exported function")
	}
}

func TestTypeScriptFrontend_Extract_Class(t *testing.T) {
	f := NewTypeScriptFrontend()
	analysis, err := f.Extract(context.Background(), []byte(testTSClass), "service.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cls := analysis.UnitByName("UserService")
	if cls == nil {
		t.Fatal("expected class unit 'UserService'")
	}
	if cls.Kind != UnitClass {
		t.Errorf("expected class kind, got %s", cls.Kind)
	}
	if !strings.Contains(cls.Signature, "getUser") {
		t.Errorf("expected class signature to list methods, got %q", cls.Signature)
	}

	var methods []*CodeUnit
	for _, u := range analysis.Units {
		if u.Kind == UnitMethod {
			methods = append(methods, u)
		}
	}
	if len(methods) != 3 {
		t.Fatalf("expected 3 methods (ctor, getUser, validate), got %d", len(methods))
	}
	for _, m := range methods {
		if m.OwnerClass != "UserService" {
			t.Errorf("expected owner 'UserService', got %q", m.OwnerClass)
		}
		if m.StartLine < cls.StartLine || m.EndLine > cls.EndLine {
			t.Errorf("method %s escapes class span", m.Name)
		}
	}

	getUser := analysis.UnitByName("getUser")
	if getUser == nil || !getUser.Async {
		t.Error("expected async method getUser")
	}
	validate := analysis.UnitByName("validate")
	if validate == nil || validate.Exported {
		t.Error("expected private method validate to be non-exported")
	}

	// Class shape also lands in the type definitions.
	if td := analysis.TypeByName("UserService"); td == nil || td.Kind != "class" {
		t.Error("expected class-shaped type definition")
	}
}

func TestTypeScriptFrontend_Extract_Imports(t *testing.T) {
	f := NewTypeScriptFrontend()
	analysis, err := f.Extract(context.Background(), []byte(testTSImports), "imports.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(analysis.Imports) != 5 {
		t.Fatalf("expected 5 imports, got %d: %+v", len(analysis.Imports), analysis.Imports)
	}

	named := analysis.Imports[0]
	if named.Source != "express" || len(named.Names) != 2 {
		t.Errorf("unexpected named import: %+v", named)
	}

	typeOnly := analysis.Imports[1]
	if !typeOnly.IsTypeOnly || typeOnly.Source != "./config" {
		t.Errorf("unexpected type-only import: %+v", typeOnly)
	}

	ns := analysis.Imports[2]
	if !ns.IsNamespace || ns.Alias != "path" {
		t.Errorf("unexpected namespace import: %+v", ns)
	}

	def := analysis.Imports[3]
	if !def.IsDefault || def.Alias != "express" {
		t.Errorf("unexpected default import: %+v", def)
	}

	cjs := analysis.Imports[4]
	if cjs.Source != "fs" || cjs.Alias != "fs" {
		t.Errorf("unexpected CommonJS import: %+v", cjs)
	}
}

func TestTypeScriptFrontend_Extract_Closure(t *testing.T) {
	f := NewTypeScriptFrontend()
	analysis, err := f.Extract(context.Background(), []byte(testTSClosure), "handler.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h := analysis.UnitByName("handler")
	if h == nil {
		t.Fatal("expected unit 'handler'")
	}
	if h.Kind != UnitClosure {
		t.Errorf("expected closure kind, got %s", h.Kind)
	}
	if !h.Async {
		t.Error("expected async closure")
	}
	if !h.Exported {
		t.Error("expected exported closure")
	}

	limit := analysis.UnitByName("limit")
	if limit == nil {
		t.Fatal("expected unit 'limit'")
	}
	if limit.Kind != UnitVariable {
		t.Errorf("expected variable kind, got %s", limit.Kind)
	}
}

func TestTypeScriptFrontend_Extract_TypeDefinitions(t *testing.T) {
	f := NewTypeScriptFrontend()
	analysis, err := f.Extract(context.Background(), []byte(testTSTypes), "types.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(analysis.Types) != 3 {
		t.Fatalf("expected 3 type definitions, got %d", len(analysis.Types))
	}

	user := analysis.TypeByName("User")
	if user == nil || user.Kind != "interface" || !user.Exported {
		t.Errorf("unexpected interface: %+v", user)
	}
	alias := analysis.TypeByName("UserID")
	if alias == nil || alias.Kind != "type" || alias.Exported {
		t.Errorf("unexpected type alias: %+v", alias)
	}
	role := analysis.TypeByName("Role")
	if role == nil || role.Kind != "enum" {
		t.Errorf("unexpected enum: %+v", role)
	}

	// Type declarations are reference material, not units.
	if len(analysis.Units) != 0 {
		t.Errorf("expected 0 units, got %d", len(analysis.Units))
	}
}

func TestTypeScriptFrontend_Extract_SyntaxError(t *testing.T) {
	f := NewTypeScriptFrontend()
	analysis, err := f.Extract(context.Background(), []byte(testTSSyntaxError), "broken.ts")
	if err != nil {
		t.Fatalf("syntax errors must not fail extraction: %v", err)
	}

	if len(analysis.Errors) == 0 {
		t.Error("expected recorded syntax error")
	}
	if analysis.UnitByName("valid") == nil {
		t.Error("expected partial results to include 'valid'")
	}
}

func TestTypeScriptFrontend_Extract_Callees(t *testing.T) {
	f := NewTypeScriptFrontend()
	analysis, err := f.Extract(context.Background(), []byte(testTSCallees), "process.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u := analysis.UnitByName("process")
	if u == nil {
		t.Fatal("expected unit 'process'")
	}
	want := []string{"info", "save", "validate"}
	if len(u.Callees) != len(want) {
		t.Fatalf("expected callees %v, got %v", want, u.Callees)
	}
	for i, name := range want {
		if u.Callees[i] != name {
			t.Errorf("expected callee %q at %d, got %q", name, i, u.Callees[i])
		}
	}
	if len(u.TypeRefs) != 1 || u.TypeRefs[0] != "User" {
		t.Errorf("expected type refs [User], got %v", u.TypeRefs)
	}
}

func TestTypeScriptFrontend_Extract_HashDeterministic(t *testing.T) {
	f := NewTypeScriptFrontend()
	first, err := f.Extract(context.Background(), []byte(testTSFunction), "add.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.Extract(context.Background(), []byte(testTSFunction), "add.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Units[0].Hash != second.Units[0].Hash {
		t.Error("expected identical hashes for identical input")
	}
}

func TestTypeScriptFrontend_Extract_ContextCancellation(t *testing.T) {
	f := NewTypeScriptFrontend()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Extract(ctx, []byte(testTSFunction), "add.ts")
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestTypeScriptFrontend_Extract_FileTooLarge(t *testing.T) {
	f := NewTypeScriptFrontend(WithTypeScriptMaxFileSize(10))
	_, err := f.Extract(context.Background(), []byte(testTSFunction), "add.ts")
	if err == nil {
		t.Fatal("expected error for oversize file")
	}
	if !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTypeScriptFrontend_Extract_InvalidUTF8(t *testing.T) {
	f := NewTypeScriptFrontend()
	_, err := f.Extract(context.Background(), []byte{0xff, 0xfe, 0xfd}, "bad.ts")
	if err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
}

func TestTypeScriptFrontend_Extract_Concurrent(t *testing.T) {
	f := NewTypeScriptFrontend()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			analysis, err := f.Extract(context.Background(), []byte(testTSClass), "service.ts")
			if err != nil {
				t.Errorf("concurrent extract failed: %v", err)
				return
			}
			if analysis.UnitByName("UserService") == nil {
				t.Error("concurrent extract lost the class unit")
			}
		}()
	}
	wg.Wait()
}

func TestTypeScriptFrontend_Language(t *testing.T) {
	if got := NewTypeScriptFrontend().Language(); got != "typescript" {
		t.Errorf("expected 'typescript', got %q", got)
	}
}

func TestTypeScriptFrontend_Extensions(t *testing.T) {
	exts := NewTypeScriptFrontend().Extensions()
	if len(exts) != 4 || exts[0] != ".ts" || exts[1] != ".tsx" {
		t.Errorf("unexpected extensions: %v", exts)
	}
}
