package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/storage"
)

// Store persists code units and dependency edges into internal/storage.
type Store struct {
	store *storage.Store
}

// NewStore constructs a Store over an open storage.Store.
func NewStore(store *storage.Store) *Store { return &Store{store: store} }

type unitExtras struct {
	Attributes       []string           `json:"attributes,omitempty"`
	Parameters       []domain.Parameter `json:"parameters,omitempty"`
	TypeParameters   []string           `json:"type_parameters,omitempty"`
	ReturnType       string             `json:"return_type,omitempty"`
	LanguageSpecific map[string]any     `json:"language_specific,omitempty"`
}

// SaveUnits upserts units and replaces the dependency edges whose
// FromUnit is one of those units' qualified names, all within a single
// transaction: a reparse of a file must atomically supersede the
// previous extraction for that file's units. Units recorded for filePath
// that are absent from units are deleted; a unit that reappears keeps its
// row and has its version bumped.
func (s *Store) SaveUnits(ctx context.Context, workspaceID ids.Id, filePath string, units []domain.CodeUnit, edges []domain.DependencyEdge) error {
	return s.store.WithTx(ctx, func(tx *sql.Tx) error {
		staleQuery := `DELETE FROM code_unit WHERE workspace_id = ? AND file_path = ?`
		staleArgs := []any{workspaceID.String(), filePath}
		for i := range units {
			if i == 0 {
				staleQuery += ` AND qualified_name NOT IN (?`
			} else {
				staleQuery += `,?`
			}
			staleArgs = append(staleArgs, units[i].QualifiedName)
		}
		if len(units) > 0 {
			staleQuery += `)`
		}
		if _, err := tx.ExecContext(ctx, staleQuery, staleArgs...); err != nil {
			return cerrors.Wrap(cerrors.KindStorage, "delete stale code units", err)
		}

		fromUnits := make([]string, 0, len(units))
		for i := range units {
			if units[i].ID.IsNil() {
				units[i].ID = ids.New()
			}
			units[i].WorkspaceID = workspaceID
			if units[i].Status == "" {
				units[i].Status = domain.UnitActive
			}
			if units[i].Version == 0 {
				units[i].Version = 1
			}
			fromUnits = append(fromUnits, units[i].QualifiedName)

			extras := unitExtras{
				Attributes:       units[i].Attributes,
				Parameters:       units[i].Parameters,
				TypeParameters:   units[i].TypeParameters,
				ReturnType:       units[i].ReturnType,
				LanguageSpecific: units[i].LanguageSpecific,
			}
			extrasJSON, err := json.Marshal(extras)
			if err != nil {
				return cerrors.Wrap(cerrors.KindInternal, "marshal code unit extras", err)
			}
			complexityJSON, err := json.Marshal(units[i].Complexity)
			if err != nil {
				return cerrors.Wrap(cerrors.KindInternal, "marshal complexity", err)
			}

			_, err = tx.ExecContext(ctx,
				`INSERT INTO code_unit (id, workspace_id, kind, name, qualified_name, display_name,
				                         file_path, start_line, end_line, start_column, end_column,
				                         start_byte, end_byte, language, signature, body, docstring,
				                         visibility, attributes, is_async, is_unsafe, is_const,
				                         complexity, has_tests, has_documentation, embedding_model,
				                         status, version)
				 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
				 ON CONFLICT(workspace_id, language, qualified_name) DO UPDATE SET
				   kind = excluded.kind, name = excluded.name, display_name = excluded.display_name,
				   file_path = excluded.file_path, start_line = excluded.start_line, end_line = excluded.end_line,
				   start_column = excluded.start_column, end_column = excluded.end_column,
				   start_byte = excluded.start_byte, end_byte = excluded.end_byte,
				   signature = excluded.signature, body = excluded.body, docstring = excluded.docstring,
				   visibility = excluded.visibility, attributes = excluded.attributes,
				   is_async = excluded.is_async, is_unsafe = excluded.is_unsafe, is_const = excluded.is_const,
				   complexity = excluded.complexity, has_tests = excluded.has_tests,
				   has_documentation = excluded.has_documentation, embedding_model = excluded.embedding_model,
				   status = excluded.status, version = code_unit.version + 1`,
				units[i].ID.String(), workspaceID.String(), string(units[i].Kind), units[i].Name,
				units[i].QualifiedName, units[i].DisplayName, units[i].FilePath,
				units[i].StartLine, units[i].EndLine, units[i].StartColumn, units[i].EndColumn,
				units[i].StartByte, units[i].EndByte, string(units[i].Language),
				units[i].Signature, units[i].Body, units[i].Docstring, string(units[i].Visibility),
				string(extrasJSON), boolToInt(units[i].IsAsync), boolToInt(units[i].IsUnsafe), boolToInt(units[i].IsConst),
				string(complexityJSON), boolToInt(units[i].HasTests), boolToInt(units[i].HasDocumentation),
				units[i].EmbeddingModel, string(units[i].Status), units[i].Version)
			if err != nil {
				return cerrors.Wrap(cerrors.KindStorage, "upsert code unit", err)
			}
		}

		for _, from := range fromUnits {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM dependency_edge WHERE workspace_id = ? AND from_unit = ?`,
				workspaceID.String(), from); err != nil {
				return cerrors.Wrap(cerrors.KindStorage, "delete stale dependency edges", err)
			}
		}

		seen := map[[3]string]bool{}
		for _, edge := range edges {
			key := edge.Key()
			if seen[key] {
				continue
			}
			seen[key] = true

			var attrsJSON string
			if len(edge.Attributes) > 0 {
				b, err := json.Marshal(edge.Attributes)
				if err != nil {
					return cerrors.Wrap(cerrors.KindInternal, "marshal edge attributes", err)
				}
				attrsJSON = string(b)
			}

			_, err := tx.ExecContext(ctx,
				`INSERT INTO dependency_edge (from_unit, to_unit, kind, workspace_id, attributes)
				 VALUES (?,?,?,?,?)
				 ON CONFLICT(workspace_id, from_unit, to_unit, kind) DO UPDATE SET attributes = excluded.attributes`,
				edge.FromUnit, edge.ToUnit, string(edge.Kind), workspaceID.String(), nullableString(attrsJSON))
			if err != nil {
				return cerrors.Wrap(cerrors.KindStorage, "upsert dependency edge", err)
			}
		}

		return nil
	})
}

// UpsertUnit inserts or updates a single code unit without deleting
// sibling units in the same file, for callers that remember one unit at
// a time (internal/cognitive's semantic memory) rather than replacing a
// whole file's extraction.
func (s *Store) UpsertUnit(ctx context.Context, workspaceID ids.Id, unit domain.CodeUnit) (domain.CodeUnit, error) {
	if unit.ID.IsNil() {
		unit.ID = ids.New()
	}
	unit.WorkspaceID = workspaceID
	if unit.Status == "" {
		unit.Status = domain.UnitActive
	}
	if unit.Version == 0 {
		unit.Version = 1
	}

	extras := unitExtras{
		Attributes:       unit.Attributes,
		Parameters:       unit.Parameters,
		TypeParameters:   unit.TypeParameters,
		ReturnType:       unit.ReturnType,
		LanguageSpecific: unit.LanguageSpecific,
	}
	extrasJSON, err := json.Marshal(extras)
	if err != nil {
		return domain.CodeUnit{}, cerrors.Wrap(cerrors.KindInternal, "marshal code unit extras", err)
	}
	complexityJSON, err := json.Marshal(unit.Complexity)
	if err != nil {
		return domain.CodeUnit{}, cerrors.Wrap(cerrors.KindInternal, "marshal complexity", err)
	}

	_, err = s.store.DB().ExecContext(ctx,
		`INSERT INTO code_unit (id, workspace_id, kind, name, qualified_name, display_name,
		                         file_path, start_line, end_line, start_column, end_column,
		                         start_byte, end_byte, language, signature, body, docstring,
		                         visibility, attributes, is_async, is_unsafe, is_const,
		                         complexity, has_tests, has_documentation, embedding_model,
		                         status, version)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(workspace_id, language, qualified_name) DO UPDATE SET
		   kind = excluded.kind, name = excluded.name, display_name = excluded.display_name,
		   file_path = excluded.file_path, start_line = excluded.start_line, end_line = excluded.end_line,
		   start_column = excluded.start_column, end_column = excluded.end_column,
		   start_byte = excluded.start_byte, end_byte = excluded.end_byte,
		   signature = excluded.signature, body = excluded.body, docstring = excluded.docstring,
		   visibility = excluded.visibility, attributes = excluded.attributes,
		   is_async = excluded.is_async, is_unsafe = excluded.is_unsafe, is_const = excluded.is_const,
		   complexity = excluded.complexity, has_tests = excluded.has_tests,
		   has_documentation = excluded.has_documentation, embedding_model = excluded.embedding_model,
		   status = excluded.status, version = code_unit.version + 1`,
		unit.ID.String(), workspaceID.String(), string(unit.Kind), unit.Name,
		unit.QualifiedName, unit.DisplayName, unit.FilePath,
		unit.StartLine, unit.EndLine, unit.StartColumn, unit.EndColumn,
		unit.StartByte, unit.EndByte, string(unit.Language),
		unit.Signature, unit.Body, unit.Docstring, string(unit.Visibility),
		string(extrasJSON), boolToInt(unit.IsAsync), boolToInt(unit.IsUnsafe), boolToInt(unit.IsConst),
		string(complexityJSON), boolToInt(unit.HasTests), boolToInt(unit.HasDocumentation),
		unit.EmbeddingModel, string(unit.Status), unit.Version)
	if err != nil {
		return domain.CodeUnit{}, cerrors.Wrap(cerrors.KindStorage, "upsert code unit", err)
	}
	return unit, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// UnitsByFile returns every code unit extracted from filePath.
func (s *Store) UnitsByFile(ctx context.Context, workspaceID ids.Id, filePath string) ([]domain.CodeUnit, error) {
	rows, err := s.store.DB().QueryContext(ctx,
		`SELECT id, kind, name, qualified_name, display_name, file_path, start_line, end_line,
		        start_column, end_column, start_byte, end_byte, language, signature, body, docstring,
		        visibility, attributes, is_async, is_unsafe, is_const, complexity, has_tests,
		        has_documentation, embedding_model, status, version
		 FROM code_unit WHERE workspace_id = ? AND file_path = ? ORDER BY start_line`,
		workspaceID.String(), filePath)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "query code units by file", err)
	}
	defer rows.Close()

	var out []domain.CodeUnit
	for rows.Next() {
		u, err := scanCodeUnit(rows, workspaceID)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// EdgesFrom returns every dependency edge originating at a qualified name.
func (s *Store) EdgesFrom(ctx context.Context, workspaceID ids.Id, fromUnit string) ([]domain.DependencyEdge, error) {
	rows, err := s.store.DB().QueryContext(ctx,
		`SELECT from_unit, to_unit, kind, attributes FROM dependency_edge WHERE workspace_id = ? AND from_unit = ?`,
		workspaceID.String(), fromUnit)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "query dependency edges", err)
	}
	defer rows.Close()

	var out []domain.DependencyEdge
	for rows.Next() {
		var e domain.DependencyEdge
		var attrsJSON sql.NullString
		if err := rows.Scan(&e.FromUnit, &e.ToUnit, &e.Kind, &attrsJSON); err != nil {
			return nil, cerrors.Wrap(cerrors.KindStorage, "scan dependency edge", err)
		}
		if attrsJSON.Valid && attrsJSON.String != "" {
			_ = json.Unmarshal([]byte(attrsJSON.String), &e.Attributes)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AllEdges returns every dependency edge recorded for a workspace, the
// input internal/graph builds its adjacency structures from.
func (s *Store) AllEdges(ctx context.Context, workspaceID ids.Id) ([]domain.DependencyEdge, error) {
	rows, err := s.store.DB().QueryContext(ctx,
		`SELECT from_unit, to_unit, kind, attributes FROM dependency_edge WHERE workspace_id = ?`,
		workspaceID.String())
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "query all dependency edges", err)
	}
	defer rows.Close()

	var out []domain.DependencyEdge
	for rows.Next() {
		var e domain.DependencyEdge
		var attrsJSON sql.NullString
		if err := rows.Scan(&e.FromUnit, &e.ToUnit, &e.Kind, &attrsJSON); err != nil {
			return nil, cerrors.Wrap(cerrors.KindStorage, "scan dependency edge", err)
		}
		if attrsJSON.Valid && attrsJSON.String != "" {
			_ = json.Unmarshal([]byte(attrsJSON.String), &e.Attributes)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertEdge inserts or updates a single dependency edge, for callers
// that record associations one at a time rather than replacing a whole
// file's edge set.
func (s *Store) UpsertEdge(ctx context.Context, workspaceID ids.Id, edge domain.DependencyEdge) error {
	var attrsJSON string
	if len(edge.Attributes) > 0 {
		b, err := json.Marshal(edge.Attributes)
		if err != nil {
			return cerrors.Wrap(cerrors.KindInternal, "marshal edge attributes", err)
		}
		attrsJSON = string(b)
	}
	_, err := s.store.DB().ExecContext(ctx,
		`INSERT INTO dependency_edge (from_unit, to_unit, kind, workspace_id, attributes)
		 VALUES (?,?,?,?,?)
		 ON CONFLICT(workspace_id, from_unit, to_unit, kind) DO UPDATE SET attributes = excluded.attributes`,
		edge.FromUnit, edge.ToUnit, string(edge.Kind), workspaceID.String(), nullableString(attrsJSON))
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "upsert dependency edge", err)
	}
	return nil
}

// GetUnitByQualifiedName returns the first unit matching qualifiedName
// in workspaceID, used to resolve a dependency edge endpoint back to a
// full unit record.
func (s *Store) GetUnitByQualifiedName(ctx context.Context, workspaceID ids.Id, qualifiedName string) (domain.CodeUnit, error) {
	row := s.store.DB().QueryRowContext(ctx,
		`SELECT id, kind, name, qualified_name, display_name, file_path, start_line, end_line,
		        start_column, end_column, start_byte, end_byte, language, signature, body, docstring,
		        visibility, attributes, is_async, is_unsafe, is_const, complexity, has_tests,
		        has_documentation, embedding_model, status, version
		 FROM code_unit WHERE workspace_id = ? AND qualified_name = ? LIMIT 1`,
		workspaceID.String(), qualifiedName)
	u, err := scanCodeUnit(row, workspaceID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CodeUnit{}, cerrors.NotFound("analysis: code unit not found")
	}
	return u, err
}

// GetUnit returns a single code unit by id, or a cerrors.KindNotFound
// error if no such unit exists in workspaceID.
func (s *Store) GetUnit(ctx context.Context, workspaceID ids.Id, id ids.Id) (domain.CodeUnit, error) {
	row := s.store.DB().QueryRowContext(ctx,
		`SELECT id, kind, name, qualified_name, display_name, file_path, start_line, end_line,
		        start_column, end_column, start_byte, end_byte, language, signature, body, docstring,
		        visibility, attributes, is_async, is_unsafe, is_const, complexity, has_tests,
		        has_documentation, embedding_model, status, version
		 FROM code_unit WHERE workspace_id = ? AND id = ?`,
		workspaceID.String(), id.String())
	u, err := scanCodeUnit(row, workspaceID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CodeUnit{}, cerrors.NotFound("analysis: code unit not found")
	}
	return u, err
}

// EdgesTo returns every dependency edge terminating at a qualified name,
// the reverse of EdgesFrom.
func (s *Store) EdgesTo(ctx context.Context, workspaceID ids.Id, toUnit string) ([]domain.DependencyEdge, error) {
	rows, err := s.store.DB().QueryContext(ctx,
		`SELECT from_unit, to_unit, kind, attributes FROM dependency_edge WHERE workspace_id = ? AND to_unit = ?`,
		workspaceID.String(), toUnit)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "query dependency edges to unit", err)
	}
	defer rows.Close()

	var out []domain.DependencyEdge
	for rows.Next() {
		var e domain.DependencyEdge
		var attrsJSON sql.NullString
		if err := rows.Scan(&e.FromUnit, &e.ToUnit, &e.Kind, &attrsJSON); err != nil {
			return nil, cerrors.Wrap(cerrors.KindStorage, "scan dependency edge", err)
		}
		if attrsJSON.Valid && attrsJSON.String != "" {
			_ = json.Unmarshal([]byte(attrsJSON.String), &e.Attributes)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindComplexUnits returns public units in workspaceID whose cyclomatic
// complexity is at least threshold, most complex first.
func (s *Store) FindComplexUnits(ctx context.Context, workspaceID ids.Id, threshold int) ([]domain.CodeUnit, error) {
	return s.queryUnits(ctx, workspaceID,
		`SELECT id, kind, name, qualified_name, display_name, file_path, start_line, end_line,
		        start_column, end_column, start_byte, end_byte, language, signature, body, docstring,
		        visibility, attributes, is_async, is_unsafe, is_const, complexity, has_tests,
		        has_documentation, embedding_model, status, version
		 FROM code_unit WHERE workspace_id = ? AND visibility = ?
		 ORDER BY json_extract(complexity, '$.Cyclomatic') DESC`,
		[]any{workspaceID.String(), string(domain.VisibilityPublic)}, threshold)
}

// FindUntestedUnits returns public units in workspaceID with has_tests = 0.
func (s *Store) FindUntestedUnits(ctx context.Context, workspaceID ids.Id) ([]domain.CodeUnit, error) {
	rows, err := s.store.DB().QueryContext(ctx,
		`SELECT id, kind, name, qualified_name, display_name, file_path, start_line, end_line,
		        start_column, end_column, start_byte, end_byte, language, signature, body, docstring,
		        visibility, attributes, is_async, is_unsafe, is_const, complexity, has_tests,
		        has_documentation, embedding_model, status, version
		 FROM code_unit WHERE workspace_id = ? AND visibility = ? AND has_tests = 0
		 ORDER BY qualified_name`,
		workspaceID.String(), string(domain.VisibilityPublic))
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "query untested units", err)
	}
	defer rows.Close()
	return collectUnits(rows, workspaceID)
}

// FindUndocumentedUnits returns public units in workspaceID with
// has_documentation = 0.
func (s *Store) FindUndocumentedUnits(ctx context.Context, workspaceID ids.Id) ([]domain.CodeUnit, error) {
	rows, err := s.store.DB().QueryContext(ctx,
		`SELECT id, kind, name, qualified_name, display_name, file_path, start_line, end_line,
		        start_column, end_column, start_byte, end_byte, language, signature, body, docstring,
		        visibility, attributes, is_async, is_unsafe, is_const, complexity, has_tests,
		        has_documentation, embedding_model, status, version
		 FROM code_unit WHERE workspace_id = ? AND visibility = ? AND has_documentation = 0
		 ORDER BY qualified_name`,
		workspaceID.String(), string(domain.VisibilityPublic))
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "query undocumented units", err)
	}
	defer rows.Close()
	return collectUnits(rows, workspaceID)
}

// queryUnits runs query, filters the result in Go by complexity threshold
// (SQLite's json_extract sorts but the driver-portable comparison is
// simpler done after scan), and returns matching units.
func (s *Store) queryUnits(ctx context.Context, workspaceID ids.Id, query string, args []any, threshold int) ([]domain.CodeUnit, error) {
	rows, err := s.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "query complex units", err)
	}
	defer rows.Close()

	all, err := collectUnits(rows, workspaceID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, u := range all {
		if u.Complexity.Cyclomatic >= threshold {
			out = append(out, u)
		}
	}
	return out, nil
}

func collectUnits(rows *sql.Rows, workspaceID ids.Id) ([]domain.CodeUnit, error) {
	var out []domain.CodeUnit
	for rows.Next() {
		u, err := scanCodeUnit(rows, workspaceID)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCodeUnit(rows rowScanner, workspaceID ids.Id) (domain.CodeUnit, error) {
	var u domain.CodeUnit
	var idStr string
	var displayName, signature, body, docstring, embeddingModel sql.NullString
	var attrsJSON, complexityJSON sql.NullString
	var isAsync, isUnsafe, isConst, hasTests, hasDocs int

	if err := rows.Scan(&idStr, &u.Kind, &u.Name, &u.QualifiedName, &displayName, &u.FilePath,
		&u.StartLine, &u.EndLine, &u.StartColumn, &u.EndColumn, &u.StartByte, &u.EndByte,
		&u.Language, &signature, &body, &docstring, &u.Visibility, &attrsJSON,
		&isAsync, &isUnsafe, &isConst, &complexityJSON, &hasTests, &hasDocs,
		&embeddingModel, &u.Status, &u.Version); err != nil {
		return domain.CodeUnit{}, cerrors.Wrap(cerrors.KindStorage, "scan code unit row", err)
	}

	id, err := ids.Parse(idStr)
	if err != nil {
		return domain.CodeUnit{}, cerrors.Wrap(cerrors.KindStorage, "parse code unit id", err)
	}
	u.ID = id
	u.WorkspaceID = workspaceID
	u.DisplayName = displayName.String
	u.Signature = signature.String
	u.Body = body.String
	u.Docstring = docstring.String
	u.EmbeddingModel = embeddingModel.String
	u.IsAsync = isAsync != 0
	u.IsUnsafe = isUnsafe != 0
	u.IsConst = isConst != 0
	u.HasTests = hasTests != 0
	u.HasDocumentation = hasDocs != 0

	if attrsJSON.Valid && attrsJSON.String != "" {
		var extras unitExtras
		if err := json.Unmarshal([]byte(attrsJSON.String), &extras); err == nil {
			u.Attributes = extras.Attributes
			u.Parameters = extras.Parameters
			u.TypeParameters = extras.TypeParameters
			u.ReturnType = extras.ReturnType
			u.LanguageSpecific = extras.LanguageSpecific
		}
	}
	if complexityJSON.Valid && complexityJSON.String != "" {
		_ = json.Unmarshal([]byte(complexityJSON.String), &u.Complexity)
	}

	return u, nil
}
