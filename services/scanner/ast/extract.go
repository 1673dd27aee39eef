// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"bytes"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// extractor walks one parsed tree and fills a FileAnalysis. The
// TypeScript and JavaScript grammars share most node type names, so a
// single walk serves both front-ends.
type extractor struct {
	content  []byte
	filePath string
	language string
	out      *FileAnalysis
}

func newExtractor(content []byte, filePath, language string) *extractor {
	return &extractor{
		content:  content,
		filePath: filePath,
		language: language,
		out: &FileAnalysis{
			FilePath:  filePath,
			Language:  language,
			Units:     make([]*CodeUnit, 0),
			Imports:   make([]ImportInfo, 0),
			LineCount: bytes.Count(content, []byte("\n")) + 1,
		},
	}
}

// run walks the top-level declarations of the tree.
func (e *extractor) run(root *sitter.Node) *FileAnalysis {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "import_statement":
			e.processImportStatement(child)
		case "export_statement":
			e.processExportStatement(child)
		case "function_declaration":
			if u := e.processFunction(child, false); u != nil {
				e.out.Units = append(e.out.Units, u)
			}
		case "class_declaration", "abstract_class_declaration":
			e.processClass(child, false)
		case "interface_declaration":
			e.processTypeDecl(child, "interface", false)
		case "type_alias_declaration":
			e.processTypeDecl(child, "type", false)
		case "enum_declaration":
			e.processTypeDecl(child, "enum", false)
		case "lexical_declaration", "variable_declaration":
			e.processCommonJSRequire(child)
			e.processVariableStatement(child, false)
		case "ERROR":
			// Syntax errors localize under ERROR nodes; declarations
			// that parsed cleanly inside are still extracted.
			e.run(child)
		}
	}
	return e.out
}

// text returns the source text of a node.
func (e *extractor) text(n *sitter.Node) string {
	return string(e.content[n.StartByte():n.EndByte()])
}

// lines returns a node's 1-indexed start and end lines.
func lines(n *sitter.Node) (int, int) {
	return int(n.StartPoint().Row + 1), int(n.EndPoint().Row + 1)
}

// processImportStatement handles ES module import statements.
func (e *extractor) processImportStatement(node *sitter.Node) {
	var source string
	var names []string
	var alias string
	var isDefault, isNamespace, isTypeOnly bool

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "type":
			isTypeOnly = true
		case "import_clause":
			e.processImportClause(child, &names, &alias, &isDefault, &isNamespace)
		case "string":
			source = e.stringContent(child)
		}
	}

	if source == "" {
		return
	}

	line, _ := lines(node)
	e.out.Imports = append(e.out.Imports, ImportInfo{
		Source:      source,
		Names:       names,
		IsDefault:   isDefault,
		IsNamespace: isNamespace,
		IsTypeOnly:  isTypeOnly,
		Alias:       alias,
		Line:        line,
	})
}

// processImportClause extracts the bindings of an import statement.
func (e *extractor) processImportClause(node *sitter.Node, names *[]string, alias *string, isDefault, isNamespace *bool) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			// Default import: import foo from 'bar'
			*alias = e.text(child)
			*isDefault = true
		case "namespace_import":
			// import * as foo from 'bar'
			*isNamespace = true
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				if gc.Type() == "identifier" {
					*alias = e.text(gc)
				}
			}
		case "named_imports":
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				if gc.Type() == "import_specifier" {
					if name := e.importSpecifier(gc); name != "" {
						*names = append(*names, name)
					}
				}
			}
		}
	}
}

// importSpecifier extracts one named-import binding, honoring "as".
func (e *extractor) importSpecifier(node *sitter.Node) string {
	var name, alias string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "identifier" {
			if name == "" {
				name = e.text(child)
			} else {
				alias = e.text(child)
			}
		}
	}
	if alias != "" {
		return name + " as " + alias
	}
	return name
}

// processCommonJSRequire handles const foo = require('bar').
func (e *extractor) processCommonJSRequire(node *sitter.Node) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "variable_declarator" {
			continue
		}

		var name, source string
		for j := 0; j < int(child.ChildCount()); j++ {
			gc := child.Child(j)
			switch gc.Type() {
			case "identifier":
				name = e.text(gc)
			case "call_expression":
				source = e.requireCall(gc)
			}
		}

		if source != "" && name != "" {
			line, _ := lines(node)
			e.out.Imports = append(e.out.Imports, ImportInfo{
				Source: source,
				Alias:  name,
				Line:   line,
			})
		}
	}
}

// requireCall returns the module path if the call is require("...").
func (e *extractor) requireCall(node *sitter.Node) string {
	var funcName, source string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			funcName = e.text(child)
		case "arguments":
			for j := 0; j < int(child.ChildCount()); j++ {
				arg := child.Child(j)
				if arg.Type() == "string" {
					source = e.stringContent(arg)
				}
			}
		}
	}
	if funcName == "require" {
		return source
	}
	return ""
}

// processExportStatement handles export statements, marking the wrapped
// declaration exported and recording its name in Exports.
func (e *extractor) processExportStatement(node *sitter.Node) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "default":
			e.addExport("default")
		case "function_declaration":
			if u := e.processFunction(child, true); u != nil {
				e.out.Units = append(e.out.Units, u)
			}
		case "class_declaration", "abstract_class_declaration":
			e.processClass(child, true)
		case "interface_declaration":
			e.processTypeDecl(child, "interface", true)
		case "type_alias_declaration":
			e.processTypeDecl(child, "type", true)
		case "enum_declaration":
			e.processTypeDecl(child, "enum", true)
		case "lexical_declaration", "variable_declaration":
			e.processVariableStatement(child, true)
		case "export_clause":
			// export { a, b as c }
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				if gc.Type() == "export_specifier" {
					for k := 0; k < int(gc.ChildCount()); k++ {
						ggc := gc.Child(k)
						if ggc.Type() == "identifier" {
							e.addExport(e.text(ggc))
							break // first identifier is the local name
						}
					}
				}
			}
		}
	}
}

func (e *extractor) addExport(name string) {
	for _, existing := range e.out.Exports {
		if existing == name {
			return
		}
	}
	e.out.Exports = append(e.out.Exports, name)
}

// processFunction extracts a standalone function declaration.
func (e *extractor) processFunction(node *sitter.Node, exported bool) *CodeUnit {
	var name, returnType string
	var params []Param
	var isAsync bool

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "async":
			isAsync = true
		case "identifier":
			name = e.text(child)
		case "formal_parameters":
			params = e.processParams(child)
		case "type_annotation":
			returnType = e.typeAnnotation(child)
		}
	}

	if name == "" {
		return nil
	}

	if exported {
		e.addExport(name)
	}

	start, end := lines(node)
	text := e.text(node)
	callees, typeRefs := e.collectRefs(node, name)

	return &CodeUnit{
		Kind:       UnitFunction,
		Name:       name,
		StartLine:  start,
		EndLine:    end,
		Text:       text,
		Hash:       HashText(text),
		Signature:  e.functionSignature(name, node),
		Exported:   exported,
		Async:      isAsync,
		Params:     params,
		ReturnType: returnType,
		Callees:    callees,
		TypeRefs:   typeRefs,
	}
}

// functionSignature is the declaration text up to the body.
func (e *extractor) functionSignature(name string, node *sitter.Node) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "statement_block" {
			sig := string(e.content[node.StartByte():child.StartByte()])
			return strings.TrimSpace(sig)
		}
	}
	return name
}

// processClass extracts a class declaration: one class-level unit whose
// signature lists the method signatures, one unit per method, and a
// class-shaped type definition.
func (e *extractor) processClass(node *sitter.Node, exported bool) {
	var name string
	var body *sitter.Node

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		// The TS grammar names classes with type_identifier, JS with identifier.
		case "type_identifier", "identifier":
			name = e.text(child)
		case "class_body":
			body = child
		}
	}

	if name == "" {
		return
	}

	if exported {
		e.addExport(name)
	}

	start, end := lines(node)
	text := e.text(node)

	var methods []*CodeUnit
	var methodSigs []string
	if body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			child := body.Child(i)
			if child.Type() != "method_definition" {
				continue
			}
			if m := e.processMethod(child, name, exported); m != nil {
				methods = append(methods, m)
				methodSigs = append(methodSigs, m.Signature)
			}
		}
	}

	classUnit := &CodeUnit{
		Kind:      UnitClass,
		Name:      name,
		StartLine: start,
		EndLine:   end,
		Text:      text,
		Hash:      HashText(text),
		Signature: "class " + name + " { " + strings.Join(methodSigs, "; ") + " }",
		Exported:  exported,
	}
	e.out.Units = append(e.out.Units, classUnit)
	e.out.Units = append(e.out.Units, methods...)

	e.out.Types = append(e.out.Types, TypeDefinition{
		Kind:      "class",
		Name:      name,
		StartLine: start,
		EndLine:   end,
		Text:      text,
		Exported:  exported,
	})
}

// processMethod extracts one method definition inside a class.
func (e *extractor) processMethod(node *sitter.Node, owner string, classExported bool) *CodeUnit {
	var name, returnType, access string
	var params []Param
	var isAsync bool

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "accessibility_modifier":
			access = e.text(child)
		case "async":
			isAsync = true
		case "property_identifier":
			name = e.text(child)
		case "formal_parameters":
			params = e.processParams(child)
		case "type_annotation":
			returnType = e.typeAnnotation(child)
		}
	}

	if name == "" {
		return nil
	}

	start, end := lines(node)
	text := e.text(node)
	callees, typeRefs := e.collectRefs(node, name)

	sig := name + e.paramsText(node)
	if returnType != "" {
		sig += ": " + returnType
	}

	return &CodeUnit{
		Kind:       UnitMethod,
		Name:       name,
		StartLine:  start,
		EndLine:    end,
		Text:       text,
		Hash:       HashText(text),
		Signature:  sig,
		OwnerClass: owner,
		Exported:   classExported && access != "private",
		Async:      isAsync,
		Params:     params,
		ReturnType: returnType,
		Callees:    callees,
		TypeRefs:   typeRefs,
	}
}

// paramsText returns the raw formal_parameters text of a node.
func (e *extractor) paramsText(node *sitter.Node) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "formal_parameters" {
			return e.text(child)
		}
	}
	return "()"
}

// processTypeDecl records an interface, type alias, or enum declaration.
func (e *extractor) processTypeDecl(node *sitter.Node, kind string, exported bool) {
	var name string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		// Interfaces and aliases name with type_identifier, enums with identifier.
		if child.Type() == "type_identifier" || child.Type() == "identifier" {
			name = e.text(child)
			break
		}
	}

	if name == "" {
		return
	}

	if exported {
		e.addExport(name)
	}

	start, end := lines(node)
	e.out.Types = append(e.out.Types, TypeDefinition{
		Kind:      kind,
		Name:      name,
		StartLine: start,
		EndLine:   end,
		Text:      e.text(node),
		Exported:  exported,
	})
}

// processVariableStatement extracts top-level const/let/var bindings.
// Declarators with function-valued initializers become closure units.
func (e *extractor) processVariableStatement(node *sitter.Node, exported bool) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		if u := e.processDeclarator(child, node, exported); u != nil {
			e.out.Units = append(e.out.Units, u)
		}
	}
}

// processDeclarator extracts one variable declarator. The enclosing
// declaration node supplies the unit's text and span so the binding
// keyword is included.
func (e *extractor) processDeclarator(node, decl *sitter.Node, exported bool) *CodeUnit {
	var name, returnType string
	var fn *sitter.Node

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			name = e.text(child)
		case "arrow_function", "function_expression", "function":
			fn = child
		case "call_expression":
			// require() bindings are handled as imports, not units
			if e.requireCall(child) != "" {
				return nil
			}
		}
	}

	if name == "" {
		return nil
	}

	if exported {
		e.addExport(name)
	}

	kind := UnitVariable
	var params []Param
	var isAsync bool
	refRoot := node
	if fn != nil {
		kind = UnitClosure
		refRoot = fn
		for i := 0; i < int(fn.ChildCount()); i++ {
			fc := fn.Child(i)
			switch fc.Type() {
			case "async":
				isAsync = true
			case "formal_parameters":
				params = e.processParams(fc)
			case "type_annotation":
				returnType = e.typeAnnotation(fc)
			case "identifier":
				// Single-param arrow without parens: x => ...
				if fn.Type() == "arrow_function" && len(params) == 0 {
					params = []Param{{Name: e.text(fc)}}
				}
			}
		}
	}

	start, end := lines(decl)
	text := e.text(decl)
	// Multiple declarators share a statement; span the declarator only.
	if int(decl.NamedChildCount()) > 1 {
		start, end = lines(node)
		text = e.text(node)
	}
	callees, typeRefs := e.collectRefs(refRoot, name)

	return &CodeUnit{
		Kind:       kind,
		Name:       name,
		StartLine:  start,
		EndLine:    end,
		Text:       text,
		Hash:       HashText(text),
		Signature:  name + e.paramsText(refRoot),
		Exported:   exported,
		Async:      isAsync,
		Params:     params,
		ReturnType: returnType,
		Callees:    callees,
		TypeRefs:   typeRefs,
	}
}

// processParams extracts the declared parameters from a
// formal_parameters node. Handles both the TypeScript parameter node
// shapes (required_parameter, optional_parameter) and the plain
// JavaScript shapes (identifier, assignment_pattern, rest_pattern).
func (e *extractor) processParams(node *sitter.Node) []Param {
	var out []Param

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "required_parameter", "optional_parameter":
			out = append(out, e.processTypedParam(child))
		case "identifier":
			out = append(out, Param{Name: e.text(child)})
		case "rest_pattern":
			out = append(out, Param{Name: e.text(child)})
		case "assignment_pattern":
			out = append(out, e.processAssignmentParam(child))
		}
	}

	return out
}

// processTypedParam handles a TS required_parameter or optional_parameter.
func (e *extractor) processTypedParam(node *sitter.Node) Param {
	p := Param{Optional: node.Type() == "optional_parameter"}
	eqSeen := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier", "rest_pattern", "object_pattern", "array_pattern":
			if p.Name == "" {
				p.Name = e.text(child)
			}
		case "type_annotation":
			p.Type = e.typeAnnotation(child)
		case "=":
			eqSeen = true
		default:
			if eqSeen && p.Default == "" {
				p.Default = e.text(child)
			}
		}
	}

	return p
}

// processAssignmentParam handles a JS default-valued parameter.
func (e *extractor) processAssignmentParam(node *sitter.Node) Param {
	p := Param{}
	eqSeen := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			if !eqSeen && p.Name == "" {
				p.Name = e.text(child)
			} else if eqSeen && p.Default == "" {
				p.Default = e.text(child)
			}
		case "=":
			eqSeen = true
		default:
			if eqSeen && p.Default == "" {
				p.Default = e.text(child)
			}
		}
	}

	return p
}

// typeAnnotation extracts the type text from a type_annotation node.
func (e *extractor) typeAnnotation(node *sitter.Node) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != ":" {
			return e.text(child)
		}
	}
	return ""
}

// stringContent extracts the unquoted content of a string node.
func (e *extractor) stringContent(node *sitter.Node) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "string_fragment" {
			return e.text(child)
		}
	}
	return strings.Trim(e.text(node), `"'`)
}

// collectRefs walks a unit's subtree and gathers the distinct callee
// names and type names it references. The unit's own name is excluded.
func (e *extractor) collectRefs(node *sitter.Node, selfName string) (callees, typeRefs []string) {
	calleeSet := make(map[string]struct{})
	typeSet := make(map[string]struct{})

	stack := []*sitter.Node{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.Type() {
		case "call_expression":
			if name := e.calleeName(n); name != "" && name != selfName && name != "require" {
				calleeSet[name] = struct{}{}
			}
		case "new_expression":
			for i := 0; i < int(n.ChildCount()); i++ {
				c := n.Child(i)
				if c.Type() == "identifier" {
					typeSet[e.text(c)] = struct{}{}
					break
				}
			}
		case "type_identifier":
			if name := e.text(n); name != selfName {
				typeSet[name] = struct{}{}
			}
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			stack = append(stack, n.Child(i))
		}
	}

	return sortedSet(calleeSet), sortedSet(typeSet)
}

// calleeName returns the called function's name for a call_expression:
// the identifier for f(x), the property name for obj.f(x).
func (e *extractor) calleeName(node *sitter.Node) string {
	fn := node.Child(0)
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return e.text(fn)
	case "member_expression":
		for i := int(fn.ChildCount()) - 1; i >= 0; i-- {
			c := fn.Child(i)
			if c.Type() == "property_identifier" {
				return e.text(c)
			}
		}
	}
	return ""
}
