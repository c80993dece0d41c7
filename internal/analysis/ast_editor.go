package analysis

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/cortexmind/cortexd/internal/domain"
)

// Position is a (line, column) location in source text, both zero-based
// and column measured in bytes, matching tree-sitter's own Point.
type Position struct {
	Line   int
	Column int
}

func positionFromPoint(p sitter.Point) Position {
	return Position{Line: int(p.Row), Column: int(p.Column)}
}

// EditRange is a half-open span of source text.
type EditRange struct {
	Start Position
	End   Position
}

func rangeFromNode(node *sitter.Node) EditRange {
	return EditRange{Start: positionFromPoint(node.StartPoint()), End: positionFromPoint(node.EndPoint())}
}

// Edit replaces the text in Range with NewText. An empty Range with equal
// Start and End is a pure insertion; an empty NewText is a deletion.
type Edit struct {
	Range   EditRange
	NewText string
}

func insertEdit(pos Position, text string) Edit {
	return Edit{Range: EditRange{Start: pos, End: pos}, NewText: text}
}

func deleteEdit(r EditRange) Edit { return Edit{Range: r, NewText: ""} }

func replaceEdit(r EditRange, text string) Edit { return Edit{Range: r, NewText: text} }

// Editor batches textual edits against one parsed source and commits them
// atomically: edits accumulate in source coordinates, then ApplyEdits
// converts each to a byte offset, applies them back-to-front so earlier
// offsets stay valid, and reparses the resulting source from scratch.
type Editor struct {
	source []byte
	lang   domain.Language
	parser *Parser
	tree   *ParseTree

	// Edits is the pending batch; ApplyEdits drains and clears it.
	Edits []Edit
}

// NewEditor parses source as lang and returns an Editor ready to accept
// edits against it.
func NewEditor(ctx context.Context, source []byte, lang domain.Language) (*Editor, error) {
	parser := NewParser()
	tree, err := parser.Parse(ctx, source, lang)
	if err != nil {
		parser.Close()
		return nil, err
	}
	return &Editor{source: source, lang: lang, parser: parser, tree: tree}, nil
}

// Close releases the underlying tree-sitter parser.
func (e *Editor) Close() { e.parser.Close() }

// Source returns the current source text.
func (e *Editor) Source() []byte { return e.source }

// Root returns the current root node.
func (e *Editor) Root() *sitter.Node { return e.tree.Root }

// NodeText returns the source slice covered by node.
func (e *Editor) NodeText(node *sitter.Node) string {
	return node.Content(e.source)
}

// InsertAt queues an insertion of code at (line, col).
func (e *Editor) InsertAt(line, col int, code string) {
	e.Edits = append(e.Edits, insertEdit(Position{Line: line, Column: col}, code))
}

// ReplaceNode queues node's text to be replaced with newCode.
func (e *Editor) ReplaceNode(node *sitter.Node, newCode string) {
	e.Edits = append(e.Edits, replaceEdit(rangeFromNode(node), newCode))
}

// DeleteNode queues node for removal.
func (e *Editor) DeleteNode(node *sitter.Node) {
	e.Edits = append(e.Edits, deleteEdit(rangeFromNode(node)))
}

// RenameSymbol queues a replacement for every identifier or type_identifier
// node whose text equals oldName, and returns the edits it queued.
func (e *Editor) RenameSymbol(oldName, newName string) []Edit {
	var renamed []Edit
	for _, node := range e.walk(e.Root()) {
		kind := node.Type()
		if kind != "identifier" && kind != "type_identifier" {
			continue
		}
		if e.NodeText(node) == oldName {
			renamed = append(renamed, replaceEdit(rangeFromNode(node), newName))
		}
	}
	e.Edits = append(e.Edits, renamed...)
	return renamed
}

// walk returns every node in the subtree rooted at root, via an explicit
// stack so a deeply nested file cannot overflow the Go call stack.
func (e *Editor) walk(root *sitter.Node) []*sitter.Node {
	var nodes []*sitter.Node
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes = append(nodes, n)
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.Child(i))
		}
	}
	return nodes
}

// Query returns every node matching a single-kind S-expression pattern
// such as "(function_declaration)". It supports only this one shape: no
// field matching, predicates, nesting, or anchors. Patterns that don't
// start with '(' return no nodes.
func (e *Editor) Query(pattern string) []*sitter.Node {
	if len(pattern) == 0 || pattern[0] != '(' {
		return nil
	}
	end := len(pattern)
	if i := bytes.IndexByte([]byte(pattern), ')'); i >= 0 {
		end = i
	}
	kind := pattern[1:end]

	var matches []*sitter.Node
	for _, node := range e.walk(e.Root()) {
		if node.Type() == kind {
			matches = append(matches, node)
		}
	}
	return matches
}

// FindNodeByPath resolves a dotted path of "kind" or "kind:index" segments
// to a single descendant, e.g. "function_declaration:1.block:0".
func (e *Editor) FindNodeByPath(path string) (*sitter.Node, error) {
	current := e.Root()
	for _, part := range splitPath(path) {
		kind, index, err := splitKindIndex(part)
		if err != nil {
			return nil, err
		}

		var found *sitter.Node
		count := 0
		for i := 0; i < int(current.ChildCount()); i++ {
			child := current.Child(i)
			if child.Type() != kind {
				continue
			}
			if count == index {
				found = child
				break
			}
			count++
		}
		if found == nil {
			return nil, cerrors.NotFound("analysis: node not found in path: " + path)
		}
		current = found
	}
	return current, nil
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	parts = append(parts, path[start:])
	return parts
}

func splitKindIndex(part string) (string, int, error) {
	for i := 0; i < len(part); i++ {
		if part[i] == ':' {
			index := 0
			if _, err := fmt.Sscanf(part[i+1:], "%d", &index); err != nil {
				return "", 0, cerrors.InvalidInput("analysis: invalid node index in path: " + part)
			}
			return part[:i], index, nil
		}
	}
	return part, 0, nil
}

// ApplyEdits converts every pending edit to a byte offset against the
// current source, applies them in reverse position order so that an
// earlier edit's offsets are unaffected by a later one, and reparses the
// result from scratch (the prior tree is not reused). The pending batch is
// cleared whether or not edits were present.
func (e *Editor) ApplyEdits(ctx context.Context) error {
	if len(e.Edits) == 0 {
		return nil
	}

	type byteEdit struct {
		start, end int
		text       string
	}
	byteEdits := make([]byteEdit, 0, len(e.Edits))
	for _, edit := range e.Edits {
		byteEdits = append(byteEdits, byteEdit{
			start: e.positionToByte(edit.Range.Start),
			end:   e.positionToByte(edit.Range.End),
			text:  edit.NewText,
		})
	}

	sort.Slice(byteEdits, func(i, j int) bool { return byteEdits[i].start > byteEdits[j].start })

	newSource := append([]byte(nil), e.source...)
	for _, be := range byteEdits {
		start := min(be.start, len(newSource))
		end := min(be.end, len(newSource))
		if end < start {
			end = start
		}
		merged := make([]byte, 0, len(newSource)-(end-start)+len(be.text))
		merged = append(merged, newSource[:start]...)
		merged = append(merged, be.text...)
		merged = append(merged, newSource[end:]...)
		newSource = merged
	}

	tree, err := e.parser.Parse(ctx, newSource, e.lang)
	if err != nil {
		return err
	}

	e.source = newSource
	e.tree = tree
	e.Edits = nil
	return nil
}

// positionToByte converts a (line, column) position to a byte offset into
// the current source, treating column as a byte offset within the line
// and clamping a past-end-of-file line to the source's length.
func (e *Editor) positionToByte(pos Position) int {
	lines := splitSourceLines(e.source)

	offset := 0
	for i, line := range lines {
		if i >= pos.Line {
			break
		}
		offset += len(line) + 1
	}

	if pos.Line >= len(lines) {
		return len(e.source)
	}

	col := min(pos.Column, len(lines[pos.Line]))
	return offset + col
}

// splitSourceLines splits source on '\n', mirroring Rust's str::lines():
// a trailing newline does not produce a final empty line.
func splitSourceLines(source []byte) [][]byte {
	parts := bytes.Split(source, []byte("\n"))
	if len(parts) > 0 && len(parts[len(parts)-1]) == 0 && bytes.HasSuffix(source, []byte("\n")) {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// AddImportGo queues a Go import declaration for importPath, placed after
// the last existing import if any, otherwise directly after the package
// clause.
func (e *Editor) AddImportGo(importPath string) {
	importStmt := fmt.Sprintf("import %q\n", importPath)

	imports := e.Query("(import_declaration)")
	if len(imports) == 0 {
		line := 1
		if pkg := e.Query("(package_clause)"); len(pkg) > 0 {
			line = int(pkg[0].EndPoint().Row) + 1
		}
		e.InsertAt(line, 0, importStmt)
		return
	}

	last := imports[len(imports)-1]
	e.InsertAt(int(last.EndPoint().Row)+1, 0, importStmt)
}

// OptimizeImportsResult reports what OptimizeImportsGo changed.
type OptimizeImportsResult struct {
	Removed int
	Sorted  bool
}

// OptimizeImportsGo queues removal of every import_declaration in the
// file and reinserts them, deduplicated and lexically sorted, at the
// position of the first one.
func (e *Editor) OptimizeImportsGo() OptimizeImportsResult {
	imports := e.Query("(import_declaration)")
	if len(imports) == 0 {
		return OptimizeImportsResult{Sorted: true}
	}

	texts := make([]string, 0, len(imports))
	for _, node := range imports {
		texts = append(texts, e.NodeText(node))
	}
	originalCount := len(texts)

	seen := map[string]bool{}
	deduped := texts[:0:0]
	for _, t := range texts {
		if !seen[t] {
			seen[t] = true
			deduped = append(deduped, t)
		}
	}
	sort.Strings(deduped)

	for i := len(imports) - 1; i >= 0; i-- {
		e.DeleteNode(imports[i])
	}

	first := imports[0]
	e.InsertAt(int(first.StartPoint().Row), int(first.StartPoint().Column), joinLines(deduped)+"\n")

	return OptimizeImportsResult{Removed: originalCount - len(deduped), Sorted: true}
}

func joinLines(lines []string) string {
	buf := bytes.Buffer{}
	for i, l := range lines {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(l)
	}
	return buf.String()
}

// Param is a single parameter's (name, type) pair for ChangeSignatureGo.
type Param struct {
	Name string
	Type string
}

// ChangeSignatureGo replaces the first function_declaration named
// functionName with one taking newParams and returning newReturnType
// (empty for none), preserving the existing body. It does not preserve
// receivers, generics, or doc comments attached to the old declaration.
func (e *Editor) ChangeSignatureGo(functionName string, newParams []Param, newReturnType string) error {
	var target *sitter.Node
	for _, fn := range e.Query("(function_declaration)") {
		for i := 0; i < int(fn.ChildCount()); i++ {
			child := fn.Child(i)
			if child.Type() == "identifier" && e.NodeText(child) == functionName {
				target = fn
				break
			}
		}
		if target != nil {
			break
		}
	}
	if target == nil {
		return cerrors.NotFound("analysis: function not found: " + functionName)
	}

	funcText := e.NodeText(target)
	bodyStart := bytes.IndexByte([]byte(funcText), '{')
	if bodyStart < 0 {
		return cerrors.InvalidInput("analysis: function has no body: " + functionName)
	}
	body := funcText[bodyStart:]

	params := make([]string, 0, len(newParams))
	for _, p := range newParams {
		params = append(params, fmt.Sprintf("%s %s", p.Name, p.Type))
	}
	sig := fmt.Sprintf("func %s(%s)", functionName, joinCommaSeparated(params))
	if newReturnType != "" {
		sig += " " + newReturnType
	}

	e.ReplaceNode(target, sig+" "+body)
	return nil
}

func joinCommaSeparated(parts []string) string {
	buf := bytes.Buffer{}
	for i, p := range parts {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(p)
	}
	return buf.String()
}
