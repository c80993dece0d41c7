package graph

import "sort"

// Layer is one rank of a topological layering: every edge into a node
// here comes from a node in an earlier layer, so the first layer holds
// the nodes nothing depends on and a node's dependencies sit in later
// layers.
type Layer []string

// TopologicalLayers repeatedly peels off all zero-in-degree nodes,
// forming successive layers (Kahn's algorithm). A cyclic graph leaves
// its cycle nodes permanently at nonzero in-degree, so layering simply
// stops short of covering every node rather than erroring.
func TopologicalLayers(g *Graph) []Layer {
	inDegree := make(map[string]int, g.NodeCount())
	for _, n := range g.Nodes() {
		inDegree[n] = g.InDegree(n)
	}

	var layers []Layer
	for {
		var current []string
		for node, degree := range inDegree {
			if degree == 0 {
				current = append(current, node)
			}
		}
		if len(current) == 0 {
			break
		}
		sort.Strings(current)
		layers = append(layers, Layer(current))

		for _, node := range current {
			delete(inDegree, node)
			for _, neighbor := range g.Neighbors(node) {
				if d, ok := inDegree[neighbor]; ok && d > 0 {
					inDegree[neighbor] = d - 1
				}
			}
		}
	}
	return layers
}
