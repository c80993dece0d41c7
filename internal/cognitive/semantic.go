package cognitive

import (
	"context"

	"github.com/cortexmind/cortexd/internal/analysis"
	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/vectorindex"
)

// SemanticMemory answers spec.md §4.5.2's semantic-memory operations
// over code units already persisted by internal/analysis, optionally
// keeping their embeddings in a vector index for the Relevance
// retrieval strategy.
type SemanticMemory struct {
	units   *analysis.Store
	vectors vectorindex.VectorIndex // nil disables embedding persistence
}

// NewSemanticMemory constructs a SemanticMemory. vectors may be nil,
// disabling the embedding side of RememberUnit.
func NewSemanticMemory(units *analysis.Store, vectors vectorindex.VectorIndex) *SemanticMemory {
	return &SemanticMemory{units: units, vectors: vectors}
}

// RememberUnit persists a code unit and, when an embedding is present
// and a vector index is configured, indexes it under the unit's ID.
func (m *SemanticMemory) RememberUnit(ctx context.Context, workspaceID ids.Id, unit domain.CodeUnit) (domain.CodeUnit, error) {
	saved, err := m.units.UpsertUnit(ctx, workspaceID, unit)
	if err != nil {
		return domain.CodeUnit{}, err
	}
	if m.vectors != nil && len(unit.Embedding) > 0 {
		if err := m.vectors.Insert(ctx, saved.ID.String(), unit.Embedding, unitMetadata(saved)); err != nil {
			return domain.CodeUnit{}, err
		}
	}
	return saved, nil
}

// unitMetadata is the filterable attributes a vector search can match
// a code unit on via SearchWithFilter.
func unitMetadata(u domain.CodeUnit) map[string]string {
	return map[string]string{
		"kind":           string(u.Kind),
		"file_path":      u.FilePath,
		"qualified_name": u.QualifiedName,
		"language":       string(u.Language),
	}
}

// GetSemanticUnit returns the memory-layer projection of a persisted
// code unit.
func (m *SemanticMemory) GetSemanticUnit(ctx context.Context, workspaceID, id ids.Id) (domain.SemanticUnit, error) {
	u, err := m.units.GetUnit(ctx, workspaceID, id)
	if err != nil {
		return domain.SemanticUnit{}, err
	}
	return projectUnit(u), nil
}

// Associate records a dependency edge between two qualified names.
func (m *SemanticMemory) Associate(ctx context.Context, workspaceID ids.Id, from, to string, kind domain.DependencyKind) error {
	return m.units.UpsertEdge(ctx, workspaceID, domain.DependencyEdge{FromUnit: from, ToUnit: to, Kind: kind})
}

// GetDependencies returns the units a given unit depends on.
func (m *SemanticMemory) GetDependencies(ctx context.Context, workspaceID, id ids.Id) ([]domain.SemanticUnit, error) {
	u, err := m.units.GetUnit(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	edges, err := m.units.EdgesFrom(ctx, workspaceID, u.QualifiedName)
	if err != nil {
		return nil, err
	}
	return m.resolveEdgeTargets(ctx, workspaceID, edges, func(e domain.DependencyEdge) string { return e.ToUnit })
}

// GetDependents returns the units that depend on a given unit.
func (m *SemanticMemory) GetDependents(ctx context.Context, workspaceID, id ids.Id) ([]domain.SemanticUnit, error) {
	u, err := m.units.GetUnit(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	edges, err := m.units.EdgesTo(ctx, workspaceID, u.QualifiedName)
	if err != nil {
		return nil, err
	}
	return m.resolveEdgeTargets(ctx, workspaceID, edges, func(e domain.DependencyEdge) string { return e.FromUnit })
}

func (m *SemanticMemory) resolveEdgeTargets(ctx context.Context, workspaceID ids.Id, edges []domain.DependencyEdge, key func(domain.DependencyEdge) string) ([]domain.SemanticUnit, error) {
	var out []domain.SemanticUnit
	for _, e := range edges {
		u, err := m.units.GetUnitByQualifiedName(ctx, workspaceID, key(e))
		if err != nil {
			if cerrors.IsKind(err, cerrors.KindNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, projectUnit(u))
	}
	return out, nil
}

// GetUnitsInFile returns every unit extracted from filePath.
func (m *SemanticMemory) GetUnitsInFile(ctx context.Context, workspaceID ids.Id, filePath string) ([]domain.SemanticUnit, error) {
	units, err := m.units.UnitsByFile(ctx, workspaceID, filePath)
	if err != nil {
		return nil, err
	}
	return projectUnits(units), nil
}

// FindComplexUnits returns public units at or above a cyclomatic
// complexity threshold.
func (m *SemanticMemory) FindComplexUnits(ctx context.Context, workspaceID ids.Id, threshold int) ([]domain.SemanticUnit, error) {
	units, err := m.units.FindComplexUnits(ctx, workspaceID, threshold)
	if err != nil {
		return nil, err
	}
	return projectUnits(units), nil
}

// FindUntestedUnits returns public units lacking tests.
func (m *SemanticMemory) FindUntestedUnits(ctx context.Context, workspaceID ids.Id) ([]domain.SemanticUnit, error) {
	units, err := m.units.FindUntestedUnits(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return projectUnits(units), nil
}

// FindUndocumentedUnits returns public units lacking documentation.
func (m *SemanticMemory) FindUndocumentedUnits(ctx context.Context, workspaceID ids.Id) ([]domain.SemanticUnit, error) {
	units, err := m.units.FindUndocumentedUnits(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return projectUnits(units), nil
}

func projectUnit(u domain.CodeUnit) domain.SemanticUnit {
	return domain.SemanticUnit{
		ID:               u.ID,
		QualifiedName:    u.QualifiedName,
		FilePath:         u.FilePath,
		StartLine:        u.StartLine,
		EndLine:          u.EndLine,
		Kind:             u.Kind,
		Signature:        u.Signature,
		Complexity:       u.Complexity,
		HasTests:         u.HasTests,
		HasDocumentation: u.HasDocumentation,
		Embedding:        u.Embedding,
	}
}

func projectUnits(units []domain.CodeUnit) []domain.SemanticUnit {
	out := make([]domain.SemanticUnit, 0, len(units))
	for _, u := range units {
		out = append(out, projectUnit(u))
	}
	return out
}
