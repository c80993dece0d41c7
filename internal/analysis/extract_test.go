package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmind/cortexd/internal/domain"
)

func TestExtract_GoFunctionDeclarationProducesFunctionUnit(t *testing.T) {
	tree := parseGo(t, "package main\n\n// Add returns the sum of two integers.\nfunc Add(a, b int) int {\n\treturn a + b\n}\n")
	extractor := NewExtractor()
	result := extractor.Extract(tree, "math.go", "")
	require.Len(t, result.Units, 1)

	unit := result.Units[0]
	assert.Equal(t, domain.UnitFunction, unit.Kind)
	assert.Equal(t, "Add", unit.Name)
	assert.Equal(t, "math.go", unit.FilePath)
	assert.Equal(t, domain.VisibilityPublic, unit.Visibility)
	assert.True(t, unit.HasDocumentation)
	assert.Contains(t, unit.Docstring, "Add returns")
	require.Len(t, unit.Parameters, 2)
	assert.Equal(t, "a", unit.Parameters[0].Name)
	assert.Equal(t, "b", unit.Parameters[1].Name)
}

func TestExtract_UnexportedGoFunctionIsPackageVisibility(t *testing.T) {
	tree := parseGo(t, "package main\nfunc helper() {}\n")
	extractor := NewExtractor()
	result := extractor.Extract(tree, "helper.go", "")
	require.Len(t, result.Units, 1)
	assert.Equal(t, domain.VisibilityPackage, result.Units[0].Visibility)
}

func TestExtract_MethodDeclarationIsMethodKind(t *testing.T) {
	tree := parseGo(t, "package main\ntype T struct{}\nfunc (t T) Do() {}\n")
	extractor := NewExtractor()
	result := extractor.Extract(tree, "t.go", "")

	var found bool
	for _, u := range result.Units {
		if u.Kind == domain.UnitMethod {
			found = true
			assert.Equal(t, "Do", u.Name)
		}
	}
	assert.True(t, found, "expected a method unit to be extracted")
}

func TestExtract_CallExpressionProducesCallsEdge(t *testing.T) {
	tree := parseGo(t, "package main\nfunc helper() {}\nfunc caller() {\n\thelper()\n}\n")
	extractor := NewExtractor()
	result := extractor.Extract(tree, "a.go", "")

	var sawCall bool
	for _, e := range result.Edges {
		if e.Kind == domain.DepCalls && e.ToUnit == "helper" {
			sawCall = true
		}
	}
	assert.True(t, sawCall, "expected a CALLS edge to helper")
}

func TestExtract_ImportDeclarationProducesImportsEdge(t *testing.T) {
	tree := parseGo(t, "package main\n\nimport \"fmt\"\n\nfunc a() {\n\tfmt.Println(\"hi\")\n}\n")
	extractor := NewExtractor()
	result := extractor.Extract(tree, "a.go", "")

	var sawImport bool
	for _, e := range result.Edges {
		if e.Kind == domain.DepImports && e.ToUnit == "fmt" {
			sawImport = true
		}
	}
	assert.True(t, sawImport, "expected an IMPORTS edge to fmt")
}

func TestExtract_PythonFunctionDocstringIsFirstBodyStatement(t *testing.T) {
	p := NewParser()
	t.Cleanup(p.Close)
	src := "def add(a, b):\n    \"\"\"Return the sum.\"\"\"\n    return a + b\n"
	tree, err := p.Parse(t.Context(), []byte(src), domain.LanguagePython)
	require.NoError(t, err)

	extractor := NewExtractor()
	result := extractor.Extract(tree, "add.py", "")
	require.Len(t, result.Units, 1)
	assert.Contains(t, result.Units[0].Docstring, "Return the sum")
}

func TestExtract_DependencyEdgeKeyDedupesRepeatedCalls(t *testing.T) {
	tree := parseGo(t, "package main\nfunc helper() {}\nfunc caller() {\n\thelper()\n\thelper()\n\thelper()\n}\n")
	extractor := NewExtractor()
	result := extractor.Extract(tree, "a.go", "")

	count := 0
	for _, e := range result.Edges {
		if e.Kind == domain.DepCalls && e.ToUnit == "helper" {
			count++
		}
	}
	assert.Equal(t, 1, count, "repeated calls to the same callee should dedupe to one edge")
}
