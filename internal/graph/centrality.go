package graph

// BetweennessCentrality computes (unnormalized, halved) betweenness
// centrality for every node via Brandes' algorithm: one BFS plus one
// dependency accumulation per source node.
func BetweennessCentrality(g *Graph) map[string]float64 {
	nodes := g.Nodes()
	centrality := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		centrality[n] = 0
	}

	for _, source := range nodes {
		var stack []string
		paths := make(map[string][]string, len(nodes))
		sigma := make(map[string]float64, len(nodes))
		distance := make(map[string]int, len(nodes))
		delta := make(map[string]float64, len(nodes))

		for _, n := range nodes {
			sigma[n] = 0
			distance[n] = -1
			delta[n] = 0
		}
		sigma[source] = 1
		distance[source] = 0

		queue := []string{source}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)

			for _, w := range g.Neighbors(v) {
				if distance[w] < 0 {
					queue = append(queue, w)
					distance[w] = distance[v] + 1
				}
				if distance[w] == distance[v]+1 {
					sigma[w] += sigma[v]
					paths[w] = append(paths[w], v)
				}
			}
		}

		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range paths[w] {
				contrib := (sigma[v] / sigma[w]) * (1 + delta[w])
				delta[v] += contrib
			}
			if w != source {
				centrality[w] += delta[w]
			}
		}
	}

	for n := range centrality {
		centrality[n] /= 2
	}
	return centrality
}
