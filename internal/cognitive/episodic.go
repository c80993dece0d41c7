package cognitive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/storage"
)

// EpisodicStore persists domain.Episode records and answers the
// episodic-memory queries (remember/get/list by agent, workspace, type,
// time, keyword) named in spec.md §4.5.1.
type EpisodicStore struct {
	store *storage.Store
}

// NewEpisodicStore constructs an EpisodicStore over an open storage.Store.
func NewEpisodicStore(store *storage.Store) *EpisodicStore {
	return &EpisodicStore{store: store}
}

const episodeColumns = `id, workspace_id, timestamp, task_description, agent_id, episode_type,
	entities_created, entities_modified, tools_used, outcome, duration_seconds,
	solution_summary, lessons_learned, access_count, pattern_value`

// RememberEpisode inserts a new episode, assigning an ID and timestamp
// when unset.
func (s *EpisodicStore) RememberEpisode(ctx context.Context, ep domain.Episode) (domain.Episode, error) {
	if ep.ID.IsNil() {
		ep.ID = ids.New()
	}
	if ep.Timestamp.IsZero() {
		ep.Timestamp = time.Now().UTC()
	}

	entitiesCreated, err := json.Marshal(ep.EntitiesCreated)
	if err != nil {
		return domain.Episode{}, cerrors.Wrap(cerrors.KindInternal, "marshal entities created", err)
	}
	entitiesModified, err := json.Marshal(ep.EntitiesModified)
	if err != nil {
		return domain.Episode{}, cerrors.Wrap(cerrors.KindInternal, "marshal entities modified", err)
	}
	toolsUsed, err := json.Marshal(ep.ToolsUsed)
	if err != nil {
		return domain.Episode{}, cerrors.Wrap(cerrors.KindInternal, "marshal tools used", err)
	}

	_, err = s.store.DB().ExecContext(ctx,
		`INSERT INTO episode (id, workspace_id, timestamp, task_description, agent_id, episode_type,
		                       entities_created, entities_modified, tools_used, outcome, duration_seconds,
		                       solution_summary, lessons_learned, access_count, pattern_value)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ep.ID.String(), ep.WorkspaceID.String(), ep.Timestamp.UTC().Format(time.RFC3339Nano),
		ep.TaskDescription, nullableString(ep.AgentID), string(ep.EpisodeType),
		string(entitiesCreated), string(entitiesModified), string(toolsUsed),
		string(ep.Outcome), ep.DurationSeconds, nullableString(ep.SolutionSummary),
		nullableString(ep.LessonsLearned), ep.AccessCount, ep.PatternValue)
	if err != nil {
		return domain.Episode{}, cerrors.Wrap(cerrors.KindStorage, "insert episode", err)
	}
	return ep, nil
}

// GetEpisode returns the episode by id, incrementing its access_count as
// a side effect of retrieval (spec.md §4.5.1).
func (s *EpisodicStore) GetEpisode(ctx context.Context, id ids.Id) (domain.Episode, error) {
	var ep domain.Episode
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episode WHERE id = ?`, id.String())
		var scanErr error
		ep, scanErr = scanEpisode(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return cerrors.NotFound("cognitive: episode not found")
		}
		if scanErr != nil {
			return scanErr
		}
		if _, err := tx.ExecContext(ctx, `UPDATE episode SET access_count = access_count + 1 WHERE id = ?`, id.String()); err != nil {
			return cerrors.Wrap(cerrors.KindStorage, "increment episode access count", err)
		}
		ep.AccessCount++
		return nil
	})
	return ep, err
}

// DeleteEpisode removes an episode by id, used by Forget.
func (s *EpisodicStore) DeleteEpisode(ctx context.Context, id ids.Id) error {
	_, err := s.store.DB().ExecContext(ctx, `DELETE FROM episode WHERE id = ?`, id.String())
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "delete episode", err)
	}
	return nil
}

// UpdatePatternValue overwrites an episode's pattern_value, used by
// Consolidate.
func (s *EpisodicStore) UpdatePatternValue(ctx context.Context, id ids.Id, value float64) error {
	_, err := s.store.DB().ExecContext(ctx, `UPDATE episode SET pattern_value = ? WHERE id = ?`, value, id.String())
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "update episode pattern value", err)
	}
	return nil
}

// EpisodeFilter narrows ListEpisodes; zero-valued fields are ignored.
type EpisodeFilter struct {
	WorkspaceID ids.Id
	AgentID     string
	EpisodeType domain.EpisodeType
	Since       time.Time
	Until       time.Time
	Keyword     string
}

// ListEpisodes returns episodes matching filter, most recent first.
func (s *EpisodicStore) ListEpisodes(ctx context.Context, filter EpisodeFilter) ([]domain.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episode WHERE workspace_id = ?`
	args := []any{filter.WorkspaceID.String()}

	if filter.AgentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, filter.AgentID)
	}
	if filter.EpisodeType != "" {
		query += ` AND episode_type = ?`
		args = append(args, string(filter.EpisodeType))
	}
	if !filter.Since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	if !filter.Until.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, filter.Until.UTC().Format(time.RFC3339Nano))
	}
	if filter.Keyword != "" {
		query += ` AND (task_description LIKE ? OR solution_summary LIKE ?)`
		like := "%" + filter.Keyword + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY timestamp DESC`

	rows, err := s.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "list episodes", err)
	}
	defer rows.Close()

	var out []domain.Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// AllEpisodes returns every episode in workspaceID, the input the
// retrieval strategies and Consolidate/Dream/Forget scan.
func (s *EpisodicStore) AllEpisodes(ctx context.Context, workspaceID ids.Id) ([]domain.Episode, error) {
	return s.ListEpisodes(ctx, EpisodeFilter{WorkspaceID: workspaceID})
}

// SearchByKeyword matches task_description or solution_summary
// case-insensitively, grounded on retrieval.rs's search_by_keyword.
func (s *EpisodicStore) SearchByKeyword(ctx context.Context, workspaceID ids.Id, keyword string) ([]domain.Episode, error) {
	all, err := s.AllEpisodes(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(keyword)
	var out []domain.Episode
	for _, ep := range all {
		if strings.Contains(strings.ToLower(ep.TaskDescription), lower) ||
			strings.Contains(strings.ToLower(ep.SolutionSummary), lower) {
			out = append(out, ep)
		}
	}
	return out, nil
}

// FileRelatedEpisodes returns episodes that touched or created a path
// containing filePath, grounded on retrieval.rs's get_file_related_memories.
func (s *EpisodicStore) FileRelatedEpisodes(ctx context.Context, workspaceID ids.Id, filePath string) ([]domain.Episode, error) {
	all, err := s.AllEpisodes(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	var out []domain.Episode
	for _, ep := range all {
		if containsSubstring(ep.EntitiesModified, filePath) || containsSubstring(ep.EntitiesCreated, filePath) {
			out = append(out, ep)
		}
	}
	return out, nil
}

func containsSubstring(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (domain.Episode, error) {
	var ep domain.Episode
	var idStr, workspaceIDStr, timestampStr string
	var agentID, entitiesCreated, entitiesModified, toolsUsed, solutionSummary, lessonsLearned sql.NullString

	if err := row.Scan(&idStr, &workspaceIDStr, &timestampStr, &ep.TaskDescription, &agentID,
		&ep.EpisodeType, &entitiesCreated, &entitiesModified, &toolsUsed, &ep.Outcome,
		&ep.DurationSeconds, &solutionSummary, &lessonsLearned, &ep.AccessCount, &ep.PatternValue); err != nil {
		return domain.Episode{}, err
	}

	id, err := ids.Parse(idStr)
	if err != nil {
		return domain.Episode{}, cerrors.Wrap(cerrors.KindStorage, "parse episode id", err)
	}
	workspaceID, err := ids.Parse(workspaceIDStr)
	if err != nil {
		return domain.Episode{}, cerrors.Wrap(cerrors.KindStorage, "parse episode workspace id", err)
	}
	timestamp, err := time.Parse(time.RFC3339Nano, timestampStr)
	if err != nil {
		return domain.Episode{}, cerrors.Wrap(cerrors.KindStorage, "parse episode timestamp", err)
	}

	ep.ID = id
	ep.WorkspaceID = workspaceID
	ep.Timestamp = timestamp
	ep.AgentID = agentID.String
	ep.SolutionSummary = solutionSummary.String
	ep.LessonsLearned = lessonsLearned.String

	if entitiesCreated.Valid && entitiesCreated.String != "" {
		_ = json.Unmarshal([]byte(entitiesCreated.String), &ep.EntitiesCreated)
	}
	if entitiesModified.Valid && entitiesModified.String != "" {
		_ = json.Unmarshal([]byte(entitiesModified.String), &ep.EntitiesModified)
	}
	if toolsUsed.Valid && toolsUsed.String != "" {
		_ = json.Unmarshal([]byte(toolsUsed.String), &ep.ToolsUsed)
	}

	return ep, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
