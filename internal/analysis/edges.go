package analysis

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cortexmind/cortexd/internal/domain"
)

// extractEdges walks unit's subtree (but does not descend into nested
// unit nodes, since those contribute their own edges when the outer walk
// reaches them) collecting CALLS and USES_TYPE edges from the qualified
// name fromUnit.
func (e *Extractor) extractEdges(unit *sitter.Node, tree *ParseTree, fromUnit string) []domain.DependencyEdge {
	seen := map[[3]string]bool{}
	var edges []domain.DependencyEdge

	add := func(edge domain.DependencyEdge) {
		key := edge.Key()
		if seen[key] {
			return
		}
		seen[key] = true
		edges = append(edges, edge)
	}

	var walk func(node *sitter.Node, isRoot bool)
	walk = func(node *sitter.Node, isRoot bool) {
		if !isRoot {
			if _, isNestedUnit := tree.Config.NodeKinds[node.Type()]; isNestedUnit {
				return
			}
		}

		if isCallKind(node.Type(), tree.Config.CallNodeKinds) {
			if callee := calleeName(node, tree); callee != "" {
				add(domain.DependencyEdge{FromUnit: fromUnit, ToUnit: callee, Kind: domain.DepCalls})
			}
		}

		if node.Type() == "type_identifier" || node.Type() == "type_identifier_full" {
			add(domain.DependencyEdge{FromUnit: fromUnit, ToUnit: node.Content(tree.Source), Kind: domain.DepUsesType})
		}

		if isImportKind(node.Type(), tree.Config.ImportNodeKinds) {
			for _, target := range importTargets(node, tree) {
				add(domain.DependencyEdge{FromUnit: fromUnit, ToUnit: target, Kind: domain.DepImports})
			}
		}

		if superclass := node.ChildByFieldName("superclass"); superclass != nil && node == unit {
			add(domain.DependencyEdge{FromUnit: fromUnit, ToUnit: superclass.Content(tree.Source), Kind: domain.DepInherits})
		}
		if interfaces := node.ChildByFieldName("interfaces"); interfaces != nil && node == unit {
			for i := 0; i < int(interfaces.ChildCount()); i++ {
				child := interfaces.Child(i)
				if child.Type() == "type_identifier" {
					add(domain.DependencyEdge{FromUnit: fromUnit, ToUnit: child.Content(tree.Source), Kind: domain.DepImplements})
				}
			}
		}

		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i), false)
		}
	}
	walk(unit, true)

	return edges
}

func isCallKind(kind string, kinds []string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func isImportKind(kind string, kinds []string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func calleeName(node *sitter.Node, tree *ParseTree) string {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		if node.ChildCount() == 0 {
			return ""
		}
		fn = node.Child(0)
	}
	switch fn.Type() {
	case "identifier":
		return fn.Content(tree.Source)
	case "selector_expression", "member_expression", "attribute":
		if field := fn.ChildByFieldName("field"); field != nil {
			return field.Content(tree.Source)
		}
		if field := fn.ChildByFieldName("property"); field != nil {
			return field.Content(tree.Source)
		}
		if field := fn.ChildByFieldName("attribute"); field != nil {
			return field.Content(tree.Source)
		}
	}
	return fn.Content(tree.Source)
}

func importTargets(node *sitter.Node, tree *ParseTree) []string {
	var targets []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "interpreted_string_literal" || n.Type() == "string" {
			targets = append(targets, trimQuotes(n.Content(tree.Source)))
			return
		}
		if n.Type() == "dotted_name" || n.Type() == "identifier" {
			if n != node {
				targets = append(targets, n.Content(tree.Source))
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return targets
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}
