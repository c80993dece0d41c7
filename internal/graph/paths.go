package graph

// Path is one walk through the graph: the node sequence and its edge
// count (len(Nodes)-1).
type Path struct {
	Nodes  []string
	Length int
}

// ShortestPath finds the shortest directed path from -> to via BFS,
// reporting nil if no path exists.
func ShortestPath(g *Graph, from, to string) *Path {
	if from == to {
		return &Path{Nodes: []string{from}, Length: 0}
	}

	queue := []string{from}
	visited := map[string]bool{from: true}
	parent := map[string]string{}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == to {
			var nodes []string
			node := to
			for {
				nodes = append(nodes, node)
				p, ok := parent[node]
				if !ok {
					break
				}
				node = p
			}
			reverse(nodes)
			return &Path{Nodes: nodes, Length: len(nodes) - 1}
		}

		for _, n := range g.Neighbors(current) {
			if !visited[n] {
				visited[n] = true
				parent[n] = current
				queue = append(queue, n)
			}
		}
	}
	return nil
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// AllPaths finds every simple path from -> to whose length (edge count)
// does not exceed maxLength, via depth-first search. A visited set
// restricted to the current path (rather than global) allows revisiting
// a node on a different branch, matching simple-path semantics.
func AllPaths(g *Graph, from, to string, maxLength int) []Path {
	var paths []Path
	currentPath := []string{from}
	visited := map[string]bool{from: true}

	var dfs func(current string)
	dfs = func(current string) {
		if current == to {
			nodes := make([]string, len(currentPath))
			copy(nodes, currentPath)
			paths = append(paths, Path{Nodes: nodes, Length: len(nodes) - 1})
			return
		}
		if len(currentPath) > maxLength {
			return
		}
		for _, n := range g.Neighbors(current) {
			if visited[n] {
				continue
			}
			visited[n] = true
			currentPath = append(currentPath, n)

			dfs(n)

			currentPath = currentPath[:len(currentPath)-1]
			visited[n] = false
		}
	}
	dfs(from)
	return paths
}
