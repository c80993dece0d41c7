package cognitive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/storage"
)

// ProceduralStore persists domain.LearnedPattern records and answers
// spec.md §4.5.4's procedural-memory operations.
type ProceduralStore struct {
	store *storage.Store
}

// NewProceduralStore constructs a ProceduralStore over an open storage.Store.
func NewProceduralStore(store *storage.Store) *ProceduralStore {
	return &ProceduralStore{store: store}
}

const patternColumns = `id, workspace_id, pattern_type, name, description, context,
	times_applied, success_rate, created_at, last_applied_at, representation`

// RememberPattern inserts a new learned pattern, assigning an ID and
// creation time when unset.
func (s *ProceduralStore) RememberPattern(ctx context.Context, workspaceID ids.Id, p domain.LearnedPattern) (domain.LearnedPattern, error) {
	if p.ID.IsNil() {
		p.ID = ids.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	representationJSON, err := json.Marshal(p.Representation)
	if err != nil {
		return domain.LearnedPattern{}, cerrors.Wrap(cerrors.KindInternal, "marshal pattern representation", err)
	}

	var lastApplied any
	if !p.LastAppliedAt.IsZero() {
		lastApplied = p.LastAppliedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = s.store.DB().ExecContext(ctx,
		`INSERT INTO learned_pattern (id, workspace_id, pattern_type, name, description, context,
		                               times_applied, success_rate, created_at, last_applied_at, representation)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID.String(), workspaceID.String(), string(p.PatternType), p.Name,
		nullableString(p.Description), nullableString(p.Context), p.TimesApplied, p.SuccessRate,
		p.CreatedAt.UTC().Format(time.RFC3339Nano), lastApplied, string(representationJSON))
	if err != nil {
		return domain.LearnedPattern{}, cerrors.Wrap(cerrors.KindStorage, "insert learned pattern", err)
	}
	return p, nil
}

// GetPattern returns a learned pattern by id.
func (s *ProceduralStore) GetPattern(ctx context.Context, id ids.Id) (domain.LearnedPattern, error) {
	row := s.store.DB().QueryRowContext(ctx, `SELECT `+patternColumns+` FROM learned_pattern WHERE id = ?`, id.String())
	p, err := scanPattern(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LearnedPattern{}, cerrors.NotFound("cognitive: learned pattern not found")
	}
	return p, err
}

// ListPatterns returns every learned pattern recorded in workspaceID.
func (s *ProceduralStore) ListPatterns(ctx context.Context, workspaceID ids.Id) ([]domain.LearnedPattern, error) {
	rows, err := s.store.DB().QueryContext(ctx,
		`SELECT `+patternColumns+` FROM learned_pattern WHERE workspace_id = ? ORDER BY created_at DESC`,
		workspaceID.String())
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "list learned patterns", err)
	}
	defer rows.Close()

	var out []domain.LearnedPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordSuccess increments times_applied and folds a successful
// application into success_rate via a running average.
func (s *ProceduralStore) RecordSuccess(ctx context.Context, id ids.Id) (domain.LearnedPattern, error) {
	return s.recordOutcome(ctx, id, 1.0)
}

// RecordFailure increments times_applied and folds a failed application
// into success_rate via a running average.
func (s *ProceduralStore) RecordFailure(ctx context.Context, id ids.Id) (domain.LearnedPattern, error) {
	return s.recordOutcome(ctx, id, 0.0)
}

func (s *ProceduralStore) recordOutcome(ctx context.Context, id ids.Id, outcome float64) (domain.LearnedPattern, error) {
	var updated domain.LearnedPattern
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+patternColumns+` FROM learned_pattern WHERE id = ?`, id.String())
		p, err := scanPattern(row)
		if errors.Is(err, sql.ErrNoRows) {
			return cerrors.NotFound("cognitive: learned pattern not found")
		}
		if err != nil {
			return err
		}

		newTimesApplied := p.TimesApplied + 1
		p.SuccessRate = (p.SuccessRate*float64(p.TimesApplied) + outcome) / float64(newTimesApplied)
		p.TimesApplied = newTimesApplied
		p.LastAppliedAt = time.Now().UTC()

		if _, err := tx.ExecContext(ctx,
			`UPDATE learned_pattern SET times_applied = ?, success_rate = ?, last_applied_at = ? WHERE id = ?`,
			p.TimesApplied, p.SuccessRate, p.LastAppliedAt.Format(time.RFC3339Nano), id.String()); err != nil {
			return cerrors.Wrap(cerrors.KindStorage, "update learned pattern outcome", err)
		}
		updated = p
		return nil
	})
	return updated, err
}

func scanPattern(row rowScanner) (domain.LearnedPattern, error) {
	var p domain.LearnedPattern
	var idStr, workspaceIDStr, createdAtStr string
	var description, ctxText, lastAppliedAt, representation sql.NullString

	if err := row.Scan(&idStr, &workspaceIDStr, &p.PatternType, &p.Name, &description, &ctxText,
		&p.TimesApplied, &p.SuccessRate, &createdAtStr, &lastAppliedAt, &representation); err != nil {
		return domain.LearnedPattern{}, err
	}

	id, err := ids.Parse(idStr)
	if err != nil {
		return domain.LearnedPattern{}, cerrors.Wrap(cerrors.KindStorage, "parse pattern id", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return domain.LearnedPattern{}, cerrors.Wrap(cerrors.KindStorage, "parse pattern created_at", err)
	}

	p.ID = id
	p.CreatedAt = createdAt
	p.Description = description.String
	p.Context = ctxText.String
	if lastAppliedAt.Valid && lastAppliedAt.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, lastAppliedAt.String); err == nil {
			p.LastAppliedAt = t
		}
	}
	if representation.Valid && representation.String != "" {
		_ = json.Unmarshal([]byte(representation.String), &p.Representation)
	}

	return p, nil
}
