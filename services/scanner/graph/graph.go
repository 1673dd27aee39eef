// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package graph builds and queries the project's file dependency graph.
//
// Files are interned into dense integer indices; forward and reverse
// adjacency lists are built together so impact queries (who depends on
// this file) cost the same as import queries. All traversals are
// iterative with explicit visited sets, so import cycles never hang or
// overflow.
package graph

import "sort"

// Graph is the file dependency graph. An edge a -> b means file a
// imports file b.
//
// Thread Safety:
//
//	A Graph is immutable after Build returns and safe for concurrent
//	reads.
type Graph struct {
	ids     map[string]int
	paths   []string
	edges   [][]int
	reverse [][]int
}

// newGraph creates an empty graph over the given file paths.
func newGraph(files []string) *Graph {
	g := &Graph{
		ids:     make(map[string]int, len(files)),
		paths:   make([]string, 0, len(files)),
		edges:   make([][]int, 0, len(files)),
		reverse: make([][]int, 0, len(files)),
	}
	for _, f := range files {
		g.intern(f)
	}
	return g
}

// intern returns the index for a path, assigning one if new.
func (g *Graph) intern(path string) int {
	if id, ok := g.ids[path]; ok {
		return id
	}
	id := len(g.paths)
	g.ids[path] = id
	g.paths = append(g.paths, path)
	g.edges = append(g.edges, nil)
	g.reverse = append(g.reverse, nil)
	return id
}

// addEdge records that from imports to. Duplicate edges are dropped.
func (g *Graph) addEdge(from, to string) {
	f := g.intern(from)
	t := g.intern(to)
	for _, existing := range g.edges[f] {
		if existing == t {
			return
		}
	}
	g.edges[f] = append(g.edges[f], t)
	g.reverse[t] = append(g.reverse[t], f)
}

// Size returns the number of files in the graph.
func (g *Graph) Size() int {
	return len(g.paths)
}

// EdgeCount returns the number of import edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, adj := range g.edges {
		n += len(adj)
	}
	return n
}

// Contains reports whether the graph knows the given file.
func (g *Graph) Contains(path string) bool {
	_, ok := g.ids[path]
	return ok
}

// Imports returns the files the given file imports, sorted.
func (g *Graph) Imports(path string) []string {
	id, ok := g.ids[path]
	if !ok {
		return nil
	}
	return g.resolvePaths(g.edges[id])
}

// Importers returns the files that import the given file, sorted.
func (g *Graph) Importers(path string) []string {
	id, ok := g.ids[path]
	if !ok {
		return nil
	}
	return g.resolvePaths(g.reverse[id])
}

func (g *Graph) resolvePaths(ids []int) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.paths[id]
	}
	sort.Strings(out)
	return out
}

// TransitiveDependents returns every file that transitively imports any
// of the seeds, plus the seeds themselves, sorted. Unknown seeds pass
// through unchanged so impact analysis still covers files the graph
// never saw.
func (g *Graph) TransitiveDependents(seeds []string) []string {
	visited := make(map[int]struct{})
	resultSet := make(map[string]struct{})

	var stack []int
	for _, seed := range seeds {
		resultSet[seed] = struct{}{}
		if id, ok := g.ids[seed]; ok {
			if _, seen := visited[id]; !seen {
				visited[id] = struct{}{}
				stack = append(stack, id)
			}
		}
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range g.reverse[id] {
			if _, seen := visited[dep]; seen {
				continue
			}
			visited[dep] = struct{}{}
			resultSet[g.paths[dep]] = struct{}{}
			stack = append(stack, dep)
		}
	}

	out := make([]string, 0, len(resultSet))
	for p := range resultSet {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// DependsOn reports whether a transitively imports b.
func (g *Graph) DependsOn(a, b string) bool {
	from, ok := g.ids[a]
	if !ok {
		return false
	}
	to, ok := g.ids[b]
	if !ok {
		return false
	}

	// No from == to short-circuit: a file depends on itself only when
	// it sits on an import cycle, which the traversal discovers.
	visited := make(map[int]struct{})
	stack := []int{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range g.edges[id] {
			if dep == to {
				return true
			}
			if _, seen := visited[dep]; seen {
				continue
			}
			visited[dep] = struct{}{}
			stack = append(stack, dep)
		}
	}
	return false
}

// FindCycles returns the import cycles in the graph, each as a path
// list starting at its smallest index. Cycles visiting the same file
// set are reported once.
func (g *Graph) FindCycles() [][]string {
	var cycles [][]string
	seenSets := make(map[string]struct{})

	// color: 0 white, 1 gray (on stack), 2 black
	color := make([]int, len(g.paths))
	onPath := make([]int, 0, len(g.paths))

	type frame struct {
		node int
		next int
	}

	for start := range g.paths {
		if color[start] != 0 {
			continue
		}
		stack := []frame{{node: start}}
		color[start] = 1
		onPath = append(onPath, start)

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next < len(g.edges[f.node]) {
				dep := g.edges[f.node][f.next]
				f.next++
				switch color[dep] {
				case 0:
					color[dep] = 1
					onPath = append(onPath, dep)
					stack = append(stack, frame{node: dep})
				case 1:
					// Found a back edge; the cycle is the path suffix
					// from dep to the current node.
					idx := len(onPath) - 1
					for idx >= 0 && onPath[idx] != dep {
						idx--
					}
					if idx >= 0 {
						cycle := g.canonicalCycle(onPath[idx:])
						key := cycleKey(cycle)
						if _, dup := seenSets[key]; !dup {
							seenSets[key] = struct{}{}
							cycles = append(cycles, cycle)
						}
					}
				}
			} else {
				color[f.node] = 2
				onPath = onPath[:len(onPath)-1]
				stack = stack[:len(stack)-1]
			}
		}
	}

	return cycles
}

// canonicalCycle rotates a cycle to start at its lexicographically
// smallest path.
func (g *Graph) canonicalCycle(ids []int) []string {
	paths := make([]string, len(ids))
	minAt := 0
	for i, id := range ids {
		paths[i] = g.paths[id]
		if paths[i] < paths[minAt] {
			minAt = i
		}
	}
	out := make([]string, 0, len(paths))
	out = append(out, paths[minAt:]...)
	out = append(out, paths[:minAt]...)
	return out
}

// cycleKey builds a set-identity key for cycle deduplication.
func cycleKey(cycle []string) string {
	sorted := make([]string, len(cycle))
	copy(sorted, cycle)
	sort.Strings(sorted)
	key := ""
	for _, p := range sorted {
		key += p + "\x00"
	}
	return key
}
