// SPDX-License-Identifier: MPL-2.0

// Package dag orders modules so that every module is installed after the
// modules it depends on, and names the offending path when the dependency
// graph has a cycle.
package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is wrapped by every *CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// CycleError reports a dependency cycle. Path starts and ends with the same node.
	CycleError struct {
		Path []string
	}

	// Graph is a directed graph where an edge from A to B means A must be
	// processed before B.
	Graph struct {
		adjacency map[string][]string
		// nodes keeps insertion order so output is deterministic.
		nodes   []string
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge records that from must come before to. Both nodes are added implicitly.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	for _, n := range g.adjacency[from] {
		if n == to {
			return
		}
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// TopologicalSort returns the nodes in dependency order using Kahn's
// algorithm. Nodes on the same level keep insertion order.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, neighbors := range g.adjacency {
		for _, n := range neighbors {
			inDegree[n]++
		}
	}

	var queue []string
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)
		for _, n := range g.adjacency[node] {
			inDegree[n]--
			if inDegree[n] == 0 {
				queue = append(queue, n)
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, &CycleError{Path: g.findCycle()}
	}
	return result, nil
}

// findCycle returns one cycle as a closed path, found by depth-first search.
func (g *Graph) findCycle() []string {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(string) []string
	visit = func(node string) []string {
		state[node] = onStack
		stack = append(stack, node)
		for _, n := range g.adjacency[node] {
			switch state[n] {
			case onStack:
				for i, s := range stack {
					if s == n {
						cycle := append([]string{}, stack[i:]...)
						return append(cycle, n)
					}
				}
			case unvisited:
				if c := visit(n); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = done
		return nil
	}

	for _, node := range g.nodes {
		if state[node] == unvisited {
			if c := visit(node); c != nil {
				return c
			}
		}
	}
	return nil
}
