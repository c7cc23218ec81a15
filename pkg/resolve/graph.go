package resolve

import (
	"slices"
	"sync"

	"github.com/matzehuels/depfetch/pkg/coord"
)

// Node is one coordinate in the resolution graph.
type Node struct {
	ID    string           // coordinate string, e.g. "com.google.guava:guava:33.0.0-jre"
	Coord coord.Coordinate // the coordinate as first recorded
}

// Edge records that From's descriptor declares To.
type Edge struct {
	From  string
	To    string
	Scope coord.Scope // scope declared on the dependency
}

// Graph is the parent to child structure discovered during resolution.
// Nodes and edges keep insertion order. Unlike a package DAG it may contain
// cycles, since descriptors in the wild occasionally do. Graph is safe for
// concurrent use.
type Graph struct {
	mu       sync.RWMutex
	nodes    []*Node
	index    map[string]*Node
	edges    []Edge
	edgeSet  map[[2]string]bool
	outgoing map[string][]string
	incoming map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		index:    make(map[string]*Node),
		edgeSet:  make(map[[2]string]bool),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode records c if it is not present yet and returns its node ID.
func (g *Graph) AddNode(c coord.Coordinate) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNode(c)
}

func (g *Graph) addNode(c coord.Coordinate) string {
	id := c.String()
	if _, ok := g.index[id]; !ok {
		n := &Node{ID: id, Coord: c}
		g.nodes = append(g.nodes, n)
		g.index[id] = n
	}
	return id
}

// AddEdges records from -> child for every child, adding missing nodes.
// Duplicate edges are ignored.
func (g *Graph) AddEdges(from coord.Coordinate, children []coord.Coordinate) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fromID := g.addNode(from)
	for _, c := range children {
		toID := g.addNode(c)
		key := [2]string{fromID, toID}
		if g.edgeSet[key] {
			continue
		}
		g.edgeSet[key] = true
		g.edges = append(g.edges, Edge{From: fromID, To: toID, Scope: c.Scope})
		g.outgoing[fromID] = append(g.outgoing[fromID], toID)
		g.incoming[toID] = append(g.incoming[toID], fromID)
	}
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = *n
	}
	return out
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.edges)
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Children returns the IDs id depends on.
func (g *Graph) Children(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.outgoing[id])
}

// Parents returns the IDs that depend on id.
func (g *Graph) Parents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.incoming[id])
}

// Sources returns the IDs of nodes nothing depends on, in insertion order.
func (g *Graph) Sources() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var ids []string
	for _, n := range g.nodes {
		if len(g.incoming[n.ID]) == 0 {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// HasCycle reports whether the graph contains a directed cycle.
func (g *Graph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.nodes))
	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		for _, child := range g.outgoing[id] {
			switch color[child] {
			case white:
				if dfs(child) {
					return true
				}
			case gray:
				return true
			}
		}
		color[id] = black
		return false
	}
	for _, n := range g.nodes {
		if color[n.ID] == white && dfs(n.ID) {
			return true
		}
	}
	return false
}
