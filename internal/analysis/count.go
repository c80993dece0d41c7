package analysis

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// CountFilter selects nodes for CountStats.Matched.
type CountFilter struct {
	Kind     string   // matches a single node kind, if set
	Kinds    []string // matches any of several kinds, if set
	AtDepth  int       // matches only at this depth, if UseDepth
	UseDepth bool
	LeafOnly bool
}

func (f CountFilter) matches(kind string, depth int, childCount int) bool {
	if f.Kind != "" && kind == f.Kind {
		return true
	}
	for _, k := range f.Kinds {
		if k == kind {
			return true
		}
	}
	if f.UseDepth && depth == f.AtDepth {
		return true
	}
	if f.LeafOnly && childCount == 0 {
		return true
	}
	return false
}

// CountStats summarizes one AstCounter.Count pass.
type CountStats struct {
	Total           int
	Matched         int
	PerKind         map[string]int
	PerDepth        map[int]int
	MaxDepthReached int
	AverageDepth    float64
}

// Merge folds other into s, combining histograms and recomputing
// MaxDepthReached and AverageDepth. Both stats must agree on whether
// PerKind/PerDepth tracking was enabled; merging a tracked map with a nil
// one simply drops the untracked side's contribution to that histogram.
func (s *CountStats) Merge(other CountStats) {
	if other.Total == 0 && other.Matched == 0 && other.PerKind == nil && other.PerDepth == nil {
		return
	}

	combinedDepth := s.AverageDepth*float64(s.Total) + other.AverageDepth*float64(other.Total)

	s.Total += other.Total
	s.Matched += other.Matched

	if s.PerKind != nil && other.PerKind != nil {
		for kind, count := range other.PerKind {
			s.PerKind[kind] += count
		}
	}

	if s.PerDepth != nil && other.PerDepth != nil {
		for depth, count := range other.PerDepth {
			s.PerDepth[depth] += count
		}
	}

	if other.MaxDepthReached > s.MaxDepthReached {
		s.MaxDepthReached = other.MaxDepthReached
	}

	if s.Total > 0 {
		s.AverageDepth = combinedDepth / float64(s.Total)
	}
}

// MatchPercentage reports the share of visited nodes that matched a filter.
func (s CountStats) MatchPercentage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Total) * 100
}

// ConcurrentCounter accumulates CountStats from multiple goroutines, each
// producing a partial result from an independent AstCounter.Count call.
type ConcurrentCounter struct {
	mu    sync.Mutex
	stats CountStats
}

// NewConcurrentCounter returns a counter with the given histogram tracking
// enabled on the accumulated result.
func NewConcurrentCounter(collectPerKind, collectPerDepth bool) *ConcurrentCounter {
	c := &ConcurrentCounter{}
	if collectPerKind {
		c.stats.PerKind = map[string]int{}
	}
	if collectPerDepth {
		c.stats.PerDepth = map[int]int{}
	}
	return c
}

// Merge folds a partial result into the accumulated total. Safe for
// concurrent use by multiple goroutines each holding their own CountStats.
func (c *ConcurrentCounter) Merge(partial CountStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Merge(partial)
}

// Finalize returns the accumulated statistics.
func (c *ConcurrentCounter) Finalize() CountStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// AstCounter performs a single iterative (explicit-stack) traversal of a
// parsed tree, counting nodes that satisfy a set of filters. Iterative
// traversal avoids unbounded Go call-stack growth on deeply nested or
// pathologically generated source files.
type AstCounter struct {
	root *sitter.Node
}

// NewAstCounter constructs a counter over root.
func NewAstCounter(root *sitter.Node) *AstCounter { return &AstCounter{root: root} }

// Count traverses the tree once, applying filters (a node matches if ANY
// filter matches) and optionally collecting per-kind and per-depth
// histograms.
func (a *AstCounter) Count(filters []CountFilter, collectPerKind bool) CountStats {
	return a.count(filters, collectPerKind, false)
}

// CountWithDepth is like Count but also collects a per-depth histogram and
// the average node depth across the traversal.
func (a *AstCounter) CountWithDepth(filters []CountFilter, collectPerKind bool) CountStats {
	return a.count(filters, collectPerKind, true)
}

func (a *AstCounter) count(filters []CountFilter, collectPerKind, collectPerDepth bool) CountStats {
	stats := CountStats{}
	if collectPerKind {
		stats.PerKind = map[string]int{}
	}
	if collectPerDepth {
		stats.PerDepth = map[int]int{}
	}
	if a.root == nil {
		return stats
	}

	type frame struct {
		node  *sitter.Node
		depth int
	}
	stack := []frame{{a.root, 0}}
	totalDepth := 0

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		stats.Total++
		totalDepth += top.depth
		if top.depth > stats.MaxDepthReached {
			stats.MaxDepthReached = top.depth
		}
		if stats.PerKind != nil {
			stats.PerKind[top.node.Type()]++
		}
		if stats.PerDepth != nil {
			stats.PerDepth[top.depth]++
		}

		childCount := int(top.node.ChildCount())
		for _, f := range filters {
			if f.matches(top.node.Type(), top.depth, childCount) {
				stats.Matched++
				break
			}
		}

		for i := childCount - 1; i >= 0; i-- {
			stack = append(stack, frame{top.node.Child(i), top.depth + 1})
		}
	}

	if stats.Total > 0 {
		stats.AverageDepth = float64(totalDepth) / float64(stats.Total)
	}

	return stats
}

// CountByKind is a convenience wrapper returning the number of nodes of a
// single kind.
func (a *AstCounter) CountByKind(kind string) int {
	stats := a.Count([]CountFilter{{Kind: kind}}, false)
	return stats.Matched
}
