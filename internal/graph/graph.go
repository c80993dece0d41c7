// Package graph implements the dependency-graph algorithms the cognitive
// engine runs over extracted code units: shortest/all paths, strongly
// connected components, topological layering, betweenness centrality,
// bounded reachability, and hub detection.
package graph

import "github.com/cortexmind/cortexd/internal/domain"

// Graph is a directed graph over qualified code-unit names, held as
// adjacency and reverse-adjacency lists alongside the node set.
type Graph struct {
	adjacency        map[string][]string
	reverseAdjacency map[string][]string
	nodes            map[string]struct{}
}

// New constructs an empty graph.
func New() *Graph {
	return &Graph{
		adjacency:        make(map[string][]string),
		reverseAdjacency: make(map[string][]string),
		nodes:            make(map[string]struct{}),
	}
}

// FromEdges builds a graph from dependency edges, using each edge's
// FromUnit/ToUnit as graph nodes regardless of DependencyKind: the
// dependency graph's algorithms operate over the union of call, type-use,
// import, and inheritance relationships.
func FromEdges(edges []domain.DependencyEdge) *Graph {
	g := New()
	for _, e := range edges {
		g.AddEdge(e.FromUnit, e.ToUnit)
	}
	return g
}

// AddEdge records a directed edge from -> to, adding both endpoints to
// the node set.
func (g *Graph) AddEdge(from, to string) {
	g.nodes[from] = struct{}{}
	g.nodes[to] = struct{}{}
	g.adjacency[from] = append(g.adjacency[from], to)
	g.reverseAdjacency[to] = append(g.reverseAdjacency[to], from)
}

// Neighbors returns node's outgoing edges.
func (g *Graph) Neighbors(node string) []string { return g.adjacency[node] }

// ReverseNeighbors returns node's incoming edges (who depends on it).
func (g *Graph) ReverseNeighbors(node string) []string { return g.reverseAdjacency[node] }

// InDegree returns the number of incoming edges.
func (g *Graph) InDegree(node string) int { return len(g.reverseAdjacency[node]) }

// OutDegree returns the number of outgoing edges.
func (g *Graph) OutDegree(node string) int { return len(g.adjacency[node]) }

// TotalDegree returns in-degree plus out-degree.
func (g *Graph) TotalDegree(node string) int { return g.InDegree(node) + g.OutDegree(node) }

// Nodes returns every node in the graph, order unspecified.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// NodeCount returns the number of distinct nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// HasNode reports whether node exists in the graph.
func (g *Graph) HasNode(node string) bool {
	_, ok := g.nodes[node]
	return ok
}
