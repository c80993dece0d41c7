package analysis

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cortexmind/cortexd/internal/domain"
)

// computeComplexity walks a unit's subtree computing cyclomatic
// complexity (1 plus one per decision point), a cognitive-complexity
// approximation (decision points weighted by nesting depth), and maximum
// block nesting depth, without descending into nested unit definitions
// (a nested function's complexity belongs to that function, not its
// enclosing one).
func computeComplexity(unit *sitter.Node, tree *ParseTree, paramCount int) domain.Complexity {
	c := domain.Complexity{Cyclomatic: 1, Parameters: paramCount}
	maxNesting := 0

	var walk func(node *sitter.Node, depth int, isRoot bool)
	walk = func(node *sitter.Node, depth int, isRoot bool) {
		if !isRoot {
			if _, isNestedUnit := tree.Config.NodeKinds[node.Type()]; isNestedUnit {
				return
			}
		}

		decision := isDecisionKind(node.Type(), tree.Config.DecisionKinds)
		if decision && node.Type() == "binary_expression" {
			// Only the short-circuit operators branch; arithmetic and
			// comparison operators are not decision points.
			op := node.ChildByFieldName("operator")
			decision = op != nil && (op.Type() == "&&" || op.Type() == "||")
		}
		if decision {
			c.Cyclomatic++
			c.Cognitive += 1 + depth
		}

		nextDepth := depth
		if isBlockKind(node.Type(), tree.Config.BlockKinds) {
			nextDepth = depth + 1
			if nextDepth > maxNesting {
				maxNesting = nextDepth
			}
		}

		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i), nextDepth, false)
		}
	}
	walk(unit, 0, true)

	c.Nesting = maxNesting
	return c
}

func isDecisionKind(kind string, kinds []string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func isBlockKind(kind string, kinds []string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
