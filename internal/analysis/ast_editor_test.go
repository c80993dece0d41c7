package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmind/cortexd/internal/domain"
)

func newTestEditor(t *testing.T, src string) *Editor {
	t.Helper()
	editor, err := NewEditor(context.Background(), []byte(src), domain.LanguageGo)
	require.NoError(t, err)
	t.Cleanup(editor.Close)
	return editor
}

func TestNewEditor_ParsesSource(t *testing.T) {
	editor := newTestEditor(t, "package main\nfunc main() {}\n")
	assert.Equal(t, "source_file", editor.Root().Type())
}

func TestEditor_InsertAtThenApplyEditsPrependsText(t *testing.T) {
	editor := newTestEditor(t, "package main\n")
	editor.InsertAt(0, 0, "// generated\n")
	require.NoError(t, editor.ApplyEdits(context.Background()))
	assert.Equal(t, "// generated\npackage main\n", string(editor.Source()))
	assert.Empty(t, editor.Edits)
}

func TestEditor_RenameSymbolReplacesEveryOccurrence(t *testing.T) {
	editor := newTestEditor(t, "package main\nfunc calculate(x int) int {\n\treturn x\n}\n")
	edits := editor.RenameSymbol("calculate", "compute")
	require.Len(t, edits, 1)
	require.NoError(t, editor.ApplyEdits(context.Background()))
	assert.Contains(t, string(editor.Source()), "func compute(")
	assert.NotContains(t, string(editor.Source()), "calculate")
}

func TestEditor_DeleteNodeRemovesItsText(t *testing.T) {
	editor := newTestEditor(t, "package main\nfunc a() {}\nfunc b() {}\n")
	functions := editor.Query("(function_declaration)")
	require.Len(t, functions, 2)
	editor.DeleteNode(functions[0])
	require.NoError(t, editor.ApplyEdits(context.Background()))
	assert.NotContains(t, string(editor.Source()), "func a()")
	assert.Contains(t, string(editor.Source()), "func b()")
}

func TestEditor_ReplaceNodeSwapsItsText(t *testing.T) {
	editor := newTestEditor(t, "package main\nfunc a() { return }\n")
	functions := editor.Query("(function_declaration)")
	require.Len(t, functions, 1)
	editor.ReplaceNode(functions[0], "func a() { /* replaced */ }")
	require.NoError(t, editor.ApplyEdits(context.Background()))
	assert.Contains(t, string(editor.Source()), "/* replaced */")
}

func TestEditor_QueryOnlyMatchesExactKind(t *testing.T) {
	editor := newTestEditor(t, "package main\nfunc a() {}\ntype T struct{}\n")
	assert.Len(t, editor.Query("(function_declaration)"), 1)
	assert.Len(t, editor.Query("(type_declaration)"), 1)
	assert.Empty(t, editor.Query("not-a-pattern"))
}

func TestEditor_FindNodeByPathNavigatesIndexedChildren(t *testing.T) {
	editor := newTestEditor(t, "package main\nfunc a() {}\nfunc b() {}\n")
	node, err := editor.FindNodeByPath("function_declaration:1")
	require.NoError(t, err)
	assert.Equal(t, "b", editor.NodeText(node.ChildByFieldName("name")))
}

func TestEditor_FindNodeByPathReturnsNotFoundForMissingSegment(t *testing.T) {
	editor := newTestEditor(t, "package main\n")
	_, err := editor.FindNodeByPath("struct_type:0")
	assert.Error(t, err)
}

func TestEditor_AddImportGoInsertsAfterPackageClauseWhenNoImportsExist(t *testing.T) {
	editor := newTestEditor(t, "package main\n\nfunc main() {}\n")
	editor.AddImportGo("fmt")
	require.NoError(t, editor.ApplyEdits(context.Background()))
	assert.Contains(t, string(editor.Source()), "import \"fmt\"")
}

func TestEditor_AddImportGoInsertsAfterLastExistingImport(t *testing.T) {
	editor := newTestEditor(t, "package main\n\nimport \"os\"\n\nfunc main() {}\n")
	editor.AddImportGo("fmt")
	require.NoError(t, editor.ApplyEdits(context.Background()))
	src := string(editor.Source())
	assert.Contains(t, src, "import \"os\"")
	assert.Contains(t, src, "import \"fmt\"")
}

func TestEditor_OptimizeImportsGoDeduplicatesAndSorts(t *testing.T) {
	editor := newTestEditor(t, "package main\n\nimport \"os\"\nimport \"fmt\"\nimport \"os\"\n\nfunc main() {}\n")
	result := editor.OptimizeImportsGo()
	assert.Equal(t, 1, result.Removed)
	require.NoError(t, editor.ApplyEdits(context.Background()))

	src := string(editor.Source())
	fmtIdx := indexOf(src, "import \"fmt\"")
	osIdx := indexOf(src, "import \"os\"")
	require.GreaterOrEqual(t, fmtIdx, 0)
	require.GreaterOrEqual(t, osIdx, 0)
	assert.Less(t, fmtIdx, osIdx)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestEditor_ChangeSignatureGoReplacesParamsAndReturnPreservingBody(t *testing.T) {
	editor := newTestEditor(t, "package main\nfunc foo(x int) string {\n\treturn \"\"\n}\n")
	err := editor.ChangeSignatureGo("foo", []Param{{Name: "a", Type: "uint32"}, {Name: "b", Type: "bool"}}, "error")
	require.NoError(t, err)
	require.NoError(t, editor.ApplyEdits(context.Background()))

	src := string(editor.Source())
	assert.Contains(t, src, "func foo(a uint32, b bool) error {")
	assert.Contains(t, src, "return \"\"")
}

func TestEditor_ChangeSignatureGoErrorsWhenFunctionMissing(t *testing.T) {
	editor := newTestEditor(t, "package main\nfunc foo() {}\n")
	err := editor.ChangeSignatureGo("missing", nil, "")
	assert.Error(t, err)
}
