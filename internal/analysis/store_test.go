package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.Store, ids.Id) {
	t.Helper()
	st, err := storage.Open(storage.Config{
		Driver:    storage.DriverModernC,
		DataDir:   t.TempDir(),
		Namespace: "analysis-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewStore(st), st, ids.New()
}

func TestSaveUnits_RoundTripsThroughUnitsByFile(t *testing.T) {
	s, _, ws := newTestStore(t)
	ctx := context.Background()

	units := []domain.CodeUnit{{
		Kind:          domain.UnitFunction,
		Name:          "Add",
		QualifiedName: "Add",
		FilePath:      "math.go",
		Language:      domain.LanguageGo,
		StartLine:     1,
		EndLine:       3,
		Visibility:    domain.VisibilityPublic,
		Parameters:    []domain.Parameter{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}},
		ReturnType:    "int",
		Complexity:    domain.Complexity{Cyclomatic: 1, Parameters: 2},
	}}

	require.NoError(t, s.SaveUnits(ctx, ws, "math.go", units, nil))

	got, err := s.UnitsByFile(ctx, ws, "math.go")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Add", got[0].Name)
	assert.Equal(t, domain.UnitFunction, got[0].Kind)
	require.Len(t, got[0].Parameters, 2)
	assert.Equal(t, "b", got[0].Parameters[1].Name)
	assert.Equal(t, 1, got[0].Complexity.Cyclomatic)
	assert.Equal(t, domain.UnitActive, got[0].Status)
	assert.EqualValues(t, 1, got[0].Version)
}

func TestSaveUnits_ReparseReplacesStaleUnitsForTheSameFile(t *testing.T) {
	s, _, ws := newTestStore(t)
	ctx := context.Background()

	first := []domain.CodeUnit{
		{Kind: domain.UnitFunction, Name: "Old", QualifiedName: "Old", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPublic},
	}
	require.NoError(t, s.SaveUnits(ctx, ws, "a.go", first, nil))

	second := []domain.CodeUnit{
		{Kind: domain.UnitFunction, Name: "New", QualifiedName: "New", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPublic},
	}
	require.NoError(t, s.SaveUnits(ctx, ws, "a.go", second, nil))

	got, err := s.UnitsByFile(ctx, ws, "a.go")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "New", got[0].Name)
}

func TestSaveUnits_UpsertOnConflictBumpsVersion(t *testing.T) {
	s, _, ws := newTestStore(t)
	ctx := context.Background()

	unit := domain.CodeUnit{Kind: domain.UnitFunction, Name: "Add", QualifiedName: "Add", FilePath: "math.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPublic}
	require.NoError(t, s.SaveUnits(ctx, ws, "math.go", []domain.CodeUnit{unit}, nil))
	require.NoError(t, s.SaveUnits(ctx, ws, "math.go", []domain.CodeUnit{unit}, nil))

	got, err := s.UnitsByFile(ctx, ws, "math.go")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 2, got[0].Version)
}

func TestSaveUnits_PersistsDependencyEdgesQueryableFromFromUnit(t *testing.T) {
	s, _, ws := newTestStore(t)
	ctx := context.Background()

	units := []domain.CodeUnit{
		{Kind: domain.UnitFunction, Name: "caller", QualifiedName: "caller", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPackage},
	}
	edges := []domain.DependencyEdge{
		{FromUnit: "caller", ToUnit: "helper", Kind: domain.DepCalls},
	}
	require.NoError(t, s.SaveUnits(ctx, ws, "a.go", units, edges))

	got, err := s.EdgesFrom(ctx, ws, "caller")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "helper", got[0].ToUnit)
	assert.Equal(t, domain.DepCalls, got[0].Kind)
}

func TestUpsertUnit_InsertsWithoutDisturbingSiblingUnitsInSameFile(t *testing.T) {
	s, _, ws := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveUnits(ctx, ws, "a.go", []domain.CodeUnit{
		{Kind: domain.UnitFunction, Name: "existing", QualifiedName: "existing", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPublic},
	}, nil))

	_, err := s.UpsertUnit(ctx, ws, domain.CodeUnit{
		Kind: domain.UnitFunction, Name: "added", QualifiedName: "added", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPublic,
	})
	require.NoError(t, err)

	got, err := s.UnitsByFile(ctx, ws, "a.go")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGetUnit_ReturnsNotFoundForUnknownID(t *testing.T) {
	s, _, ws := newTestStore(t)
	_, err := s.GetUnit(context.Background(), ws, ids.New())
	require.Error(t, err)
	assert.True(t, cerrors.IsKind(err, cerrors.KindNotFound))
}

func TestEdgesTo_ReturnsReverseOfEdgesFrom(t *testing.T) {
	s, _, ws := newTestStore(t)
	ctx := context.Background()

	units := []domain.CodeUnit{
		{Kind: domain.UnitFunction, Name: "caller", QualifiedName: "caller", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPackage},
	}
	edges := []domain.DependencyEdge{{FromUnit: "caller", ToUnit: "helper", Kind: domain.DepCalls}}
	require.NoError(t, s.SaveUnits(ctx, ws, "a.go", units, edges))

	got, err := s.EdgesTo(ctx, ws, "helper")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "caller", got[0].FromUnit)
}

func TestFindComplexUnits_FiltersByCyclomaticThreshold(t *testing.T) {
	s, _, ws := newTestStore(t)
	ctx := context.Background()

	units := []domain.CodeUnit{
		{Kind: domain.UnitFunction, Name: "simple", QualifiedName: "simple", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPublic, Complexity: domain.Complexity{Cyclomatic: 2}},
		{Kind: domain.UnitFunction, Name: "complex", QualifiedName: "complex", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPublic, Complexity: domain.Complexity{Cyclomatic: 15}},
	}
	require.NoError(t, s.SaveUnits(ctx, ws, "a.go", units, nil))

	got, err := s.FindComplexUnits(ctx, ws, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "complex", got[0].Name)
}

func TestFindUntestedUnits_OnlyReturnsPublicUnitsMissingTests(t *testing.T) {
	s, _, ws := newTestStore(t)
	ctx := context.Background()

	units := []domain.CodeUnit{
		{Kind: domain.UnitFunction, Name: "tested", QualifiedName: "tested", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPublic, HasTests: true},
		{Kind: domain.UnitFunction, Name: "untested", QualifiedName: "untested", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPublic, HasTests: false},
		{Kind: domain.UnitFunction, Name: "privateUntested", QualifiedName: "privateUntested", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPrivate, HasTests: false},
	}
	require.NoError(t, s.SaveUnits(ctx, ws, "a.go", units, nil))

	got, err := s.FindUntestedUnits(ctx, ws)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "untested", got[0].Name)
}

func TestFindUndocumentedUnits_OnlyReturnsPublicUnitsMissingDocs(t *testing.T) {
	s, _, ws := newTestStore(t)
	ctx := context.Background()

	units := []domain.CodeUnit{
		{Kind: domain.UnitFunction, Name: "documented", QualifiedName: "documented", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPublic, HasDocumentation: true},
		{Kind: domain.UnitFunction, Name: "bare", QualifiedName: "bare", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPublic, HasDocumentation: false},
	}
	require.NoError(t, s.SaveUnits(ctx, ws, "a.go", units, nil))

	got, err := s.FindUndocumentedUnits(ctx, ws)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bare", got[0].Name)
}

func TestSaveUnits_DeduplicatesRepeatedEdgesByKey(t *testing.T) {
	s, _, ws := newTestStore(t)
	ctx := context.Background()

	units := []domain.CodeUnit{
		{Kind: domain.UnitFunction, Name: "caller", QualifiedName: "caller", FilePath: "a.go", Language: domain.LanguageGo, Visibility: domain.VisibilityPackage},
	}
	edges := []domain.DependencyEdge{
		{FromUnit: "caller", ToUnit: "helper", Kind: domain.DepCalls},
		{FromUnit: "caller", ToUnit: "helper", Kind: domain.DepCalls},
	}
	require.NoError(t, s.SaveUnits(ctx, ws, "a.go", units, edges))

	got, err := s.AllEdges(ctx, ws)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
