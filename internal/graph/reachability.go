package graph

import "sort"

// Reachable returns every node reachable from start by following edges
// in reverse (i.e. every node that, directly or transitively, depends on
// start), mapped to its distance from start. A non-negative maxDepth
// caps how many hops are explored; a negative maxDepth means unbounded.
func Reachable(g *Graph, start string, maxDepth int) map[string]int {
	reachable := map[string]int{start: 0}
	type item struct {
		node  string
		depth int
	}
	queue := []item{{start, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if maxDepth >= 0 && cur.depth >= maxDepth {
			continue
		}

		for _, neighbor := range g.ReverseNeighbors(cur.node) {
			if _, seen := reachable[neighbor]; !seen {
				reachable[neighbor] = cur.depth + 1
				queue = append(queue, item{neighbor, cur.depth + 1})
			}
		}
	}
	return reachable
}

// Roots returns every node with no incoming edges.
func Roots(g *Graph) []string {
	var roots []string
	for _, n := range g.Nodes() {
		if g.InDegree(n) == 0 {
			roots = append(roots, n)
		}
	}
	sort.Strings(roots)
	return roots
}

// Leaves returns every node with no outgoing edges.
func Leaves(g *Graph) []string {
	var leaves []string
	for _, n := range g.Nodes() {
		if g.OutDegree(n) == 0 {
			leaves = append(leaves, n)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// Hub is a node ranked by its total connection count.
type Hub struct {
	Node      string
	InDegree  int
	OutDegree int
	Total     int
}

// Hubs returns every node whose total degree meets minConnections,
// sorted by descending total degree (ties broken by node name).
func Hubs(g *Graph, minConnections int) []Hub {
	var hubs []Hub
	for _, n := range g.Nodes() {
		in, out := g.InDegree(n), g.OutDegree(n)
		total := in + out
		if total >= minConnections {
			hubs = append(hubs, Hub{Node: n, InDegree: in, OutDegree: out, Total: total})
		}
	}
	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].Total != hubs[j].Total {
			return hubs[i].Total > hubs[j].Total
		}
		return hubs[i].Node < hubs[j].Node
	})
	return hubs
}
