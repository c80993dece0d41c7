package cognitive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmind/cortexd/internal/analysis"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/storage"
	"github.com/cortexmind/cortexd/internal/vectorindex"
)

func newTestSemanticMemory(t *testing.T) (*SemanticMemory, *analysis.Store, ids.Id) {
	t.Helper()
	st, err := storage.Open(storage.Config{
		Driver:    storage.DriverModernC,
		DataDir:   t.TempDir(),
		Namespace: "cognitive-semantic-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	units := analysis.NewStore(st)
	vectors := vectorindex.NewHNSWIndex(vectorindex.HNSWConfig{Dimension: 3})
	return NewSemanticMemory(units, vectors), units, ids.New()
}

func TestRememberUnit_IndexesEmbeddingWhenPresent(t *testing.T) {
	m, units, ws := newTestSemanticMemory(t)
	ctx := context.Background()

	saved, err := m.RememberUnit(ctx, ws, domain.CodeUnit{
		Kind: domain.UnitFunction, Name: "Add", QualifiedName: "math.Add", FilePath: "math.go",
		Language: domain.LanguageGo, Visibility: domain.VisibilityPublic,
		Embedding: []float32{0.1, 0.2, 0.3},
	})
	require.NoError(t, err)
	assert.False(t, saved.ID.IsNil())

	got, err := units.GetUnit(ctx, ws, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Add", got.Name)
}

func TestGetDependenciesAndDependents_ResolveAssociatedUnits(t *testing.T) {
	m, _, ws := newTestSemanticMemory(t)
	ctx := context.Background()

	caller, err := m.RememberUnit(ctx, ws, domain.CodeUnit{
		Kind: domain.UnitFunction, Name: "Handler", QualifiedName: "server.Handler", FilePath: "server.go",
		Language: domain.LanguageGo, Visibility: domain.VisibilityPublic,
	})
	require.NoError(t, err)
	callee, err := m.RememberUnit(ctx, ws, domain.CodeUnit{
		Kind: domain.UnitFunction, Name: "Validate", QualifiedName: "server.Validate", FilePath: "server.go",
		Language: domain.LanguageGo, Visibility: domain.VisibilityPublic,
	})
	require.NoError(t, err)

	require.NoError(t, m.Associate(ctx, ws, "server.Handler", "server.Validate", domain.DepCalls))

	deps, err := m.GetDependencies(ctx, ws, caller.ID)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "server.Validate", deps[0].QualifiedName)

	dependents, err := m.GetDependents(ctx, ws, callee.ID)
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, "server.Handler", dependents[0].QualifiedName)
}

func TestFindComplexUnits_ReturnsUnitsAtOrAboveThreshold(t *testing.T) {
	m, units, ws := newTestSemanticMemory(t)
	ctx := context.Background()

	require.NoError(t, units.SaveUnits(ctx, ws, "complex.go", []domain.CodeUnit{
		{Kind: domain.UnitFunction, Name: "Simple", QualifiedName: "Simple", FilePath: "complex.go",
			Language: domain.LanguageGo, Visibility: domain.VisibilityPublic, Complexity: domain.Complexity{Cyclomatic: 2}},
		{Kind: domain.UnitFunction, Name: "Tangled", QualifiedName: "Tangled", FilePath: "complex.go",
			Language: domain.LanguageGo, Visibility: domain.VisibilityPublic, Complexity: domain.Complexity{Cyclomatic: 25}},
	}, nil))

	got, err := m.FindComplexUnits(ctx, ws, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Tangled", got[0].QualifiedName)
}

func TestGetUnitsInFile_ReturnsProjectedUnits(t *testing.T) {
	m, units, ws := newTestSemanticMemory(t)
	ctx := context.Background()

	require.NoError(t, units.SaveUnits(ctx, ws, "file.go", []domain.CodeUnit{
		{Kind: domain.UnitFunction, Name: "A", QualifiedName: "A", FilePath: "file.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPublic},
		{Kind: domain.UnitFunction, Name: "B", QualifiedName: "B", FilePath: "file.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPublic},
	}, nil))

	got, err := m.GetUnitsInFile(ctx, ws, "file.go")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
