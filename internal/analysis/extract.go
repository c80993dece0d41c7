package analysis

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cortexmind/cortexd/internal/domain"
)

// Extractor walks a ParseTree and produces the code units and dependency
// edges it contains.
type Extractor struct{}

// NewExtractor constructs an Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// ExtractResult bundles the units and edges found in one file.
type ExtractResult struct {
	Units []domain.CodeUnit
	Edges []domain.DependencyEdge
}

// Extract walks tree and returns every code unit and dependency edge
// found in it. filePath and moduleQualifier (e.g. a Go package name or a
// Python module path) are used to build each unit's QualifiedName.
func (e *Extractor) Extract(tree *ParseTree, filePath, moduleQualifier string) ExtractResult {
	var result ExtractResult
	if tree == nil || tree.Root == nil {
		return result
	}

	fileUnit := moduleQualifier
	if fileUnit == "" {
		fileUnit = filePath
	}

	var walk func(node *sitter.Node, enclosing string, insideUnit bool)
	walk = func(node *sitter.Node, enclosing string, insideUnit bool) {
		kind, isUnit := tree.Config.NodeKinds[node.Type()]
		qualifiedOf := enclosing
		if isUnit {
			unit, ok := e.extractUnit(node, tree, kind, filePath, moduleQualifier, enclosing)
			if ok {
				result.Units = append(result.Units, unit)
				result.Edges = append(result.Edges, e.extractEdges(node, tree, unit.QualifiedName)...)
				qualifiedOf = unit.QualifiedName
				insideUnit = true
			}
		} else if !insideUnit && isImportKind(node.Type(), tree.Config.ImportNodeKinds) {
			// Imports at file scope (outside every unit) still belong to
			// the file's dependency graph; attribute them to the file
			// itself rather than dropping them.
			for _, target := range importTargets(node, tree) {
				result.Edges = append(result.Edges, domain.DependencyEdge{
					FromUnit: fileUnit, ToUnit: target, Kind: domain.DepImports,
				})
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i), qualifiedOf, insideUnit)
		}
	}
	walk(tree.Root, moduleQualifier, false)

	return result
}

func (e *Extractor) extractUnit(node *sitter.Node, tree *ParseTree, kind domain.CodeUnitKind, filePath, moduleQualifier, enclosing string) (domain.CodeUnit, bool) {
	name := extractName(node, tree)
	if name == "" {
		return domain.CodeUnit{}, false
	}

	qualified := name
	if enclosing != "" {
		qualified = enclosing + "." + name
	}

	signature := extractSignature(node, tree, kind)
	docstring := extractDocstring(node, tree)
	params := extractParameters(node, tree)
	visibility := inferVisibility(tree.Config.Language, name)

	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1

	complexity := computeComplexity(node, tree, len(params))
	complexity.Lines = endLine - startLine + 1

	return domain.CodeUnit{
		Kind:             kind,
		Name:             name,
		QualifiedName:    qualified,
		DisplayName:      name,
		FilePath:         filePath,
		StartLine:        startLine,
		EndLine:          endLine,
		StartColumn:      int(node.StartPoint().Column),
		EndColumn:        int(node.EndPoint().Column),
		StartByte:        int(node.StartByte()),
		EndByte:          int(node.EndByte()),
		Language:         tree.Config.Language,
		Signature:        signature,
		Body:             node.Content(tree.Source),
		Docstring:        docstring,
		Visibility:       visibility,
		Parameters:       params,
		ReturnType:       extractReturnType(node, tree),
		IsAsync:          nodeHasAsyncModifier(node, tree),
		Complexity:       complexity,
		HasDocumentation: docstring != "",
		Status:           domain.UnitActive,
		Version:          1,
	}, true
}

func extractName(node *sitter.Node, tree *ParseTree) string {
	if field := node.ChildByFieldName(tree.Config.NameField); field != nil {
		// C/C++ function_definition's "declarator" field is a
		// function_declarator wrapping the identifier, not the name
		// itself; unwrap it (and any pointer_declarator around it).
		for field.Type() == "function_declarator" || field.Type() == "pointer_declarator" {
			inner := field.ChildByFieldName("declarator")
			if inner == nil {
				break
			}
			field = inner
		}
		return field.Content(tree.Source)
	}

	// Go methods expose the receiver-method name as a field_identifier,
	// not under the "name" field smacker's Go grammar uses for functions.
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "field_identifier" || child.Type() == "identifier" {
			return child.Content(tree.Source)
		}
		if child.Type() == "type_spec" {
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				if grandchild.Type() == "type_identifier" {
					return grandchild.Content(tree.Source)
				}
			}
		}
		if child.Type() == "const_spec" || child.Type() == "var_spec" {
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				if grandchild.Type() == "identifier" {
					return grandchild.Content(tree.Source)
				}
			}
		}
	}
	return ""
}

func extractSignature(node *sitter.Node, tree *ParseTree, kind domain.CodeUnitKind) string {
	content := node.Content(tree.Source)
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)

	if idx := strings.IndexByte(firstLine, '{'); idx >= 0 {
		return strings.TrimSpace(firstLine[:idx])
	}
	return firstLine
}

// extractDocstring looks at the node's previous named sibling: a
// consecutive run of comment nodes immediately preceding a unit is its
// doc comment. Python attaches its docstring as the first statement
// inside the body instead, so it is handled separately.
func extractDocstring(node *sitter.Node, tree *ParseTree) string {
	if tree.Config.Language == domain.LanguagePython {
		return extractPythonDocstring(node, tree)
	}

	prev := node.PrevSibling()
	var lines []string
	for prev != nil && isCommentKind(prev.Type(), tree.Config.CommentKinds) {
		lines = append([]string{strings.TrimSpace(trimCommentMarkers(prev.Content(tree.Source)))}, lines...)
		prev = prev.PrevSibling()
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractPythonDocstring(node *sitter.Node, tree *ParseTree) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first.Type() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	str := first.Child(0)
	if str.Type() != "string" {
		return ""
	}
	return strings.Trim(str.Content(tree.Source), "\"'")
}

func isCommentKind(kind string, kinds []string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func trimCommentMarkers(s string) string {
	s = strings.TrimPrefix(s, "///")
	s = strings.TrimPrefix(s, "//")
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(s, "/*")
	s = strings.TrimSuffix(s, "*/")
	return s
}

func extractParameters(node *sitter.Node, tree *ParseTree) []domain.Parameter {
	paramList := node.ChildByFieldName("parameters")
	if paramList == nil {
		return nil
	}

	var params []domain.Parameter
	for i := 0; i < int(paramList.ChildCount()); i++ {
		child := paramList.Child(i)
		switch child.Type() {
		case "parameter_declaration", "required_parameter", "optional_parameter":
			var typeText string
			if typeNode := child.ChildByFieldName("type"); typeNode != nil {
				typeText = typeNode.Content(tree.Source)
			}

			// A single declaration can carry several comma-separated names
			// sharing one type (e.g. "a, b int"); tree-sitter labels every
			// one of them with the "name" field, so ChildByFieldName alone
			// would only surface the first. Walk every named child instead.
			var names []*sitter.Node
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				if grandchild.Type() == "identifier" && grandchild != child.ChildByFieldName("type") {
					names = append(names, grandchild)
				}
			}
			if len(names) == 0 {
				if nameNode := child.ChildByFieldName("pattern"); nameNode != nil {
					names = append(names, nameNode)
				}
			}
			for _, n := range names {
				params = append(params, domain.Parameter{Name: n.Content(tree.Source), Type: typeText})
			}
		case "identifier":
			params = append(params, domain.Parameter{Name: child.Content(tree.Source)})
		case "typed_parameter", "default_parameter":
			p := domain.Parameter{}
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				if grandchild.Type() == "identifier" && p.Name == "" {
					p.Name = grandchild.Content(tree.Source)
				}
			}
			if p.Name != "" {
				params = append(params, p)
			}
		}
	}
	return params
}

func extractReturnType(node *sitter.Node, tree *ParseTree) string {
	if result := node.ChildByFieldName("result"); result != nil {
		return result.Content(tree.Source)
	}
	if returnType := node.ChildByFieldName("return_type"); returnType != nil {
		return returnType.Content(tree.Source)
	}
	return ""
}

func nodeHasAsyncModifier(node *sitter.Node, tree *ParseTree) bool {
	content := node.Content(tree.Source)
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	return strings.Contains(firstLine, "async ")
}

func inferVisibility(lang domain.Language, name string) domain.Visibility {
	if lang == domain.LanguageGo && name != "" {
		r := []rune(name)[0]
		if r >= 'A' && r <= 'Z' {
			return domain.VisibilityPublic
		}
		return domain.VisibilityPackage
	}
	if name != "" && strings.HasPrefix(name, "_") {
		return domain.VisibilityPrivate
	}
	return domain.VisibilityPublic
}
