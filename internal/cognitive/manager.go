package cognitive

import (
	"context"
	"time"

	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
)

// dreamMinGroupSize is the number of same-type successful episodes that
// must accumulate before Dream mines them into a LearnedPattern. There is
// no original-system grounding for this constant; chosen as a
// conservative floor so a pattern is never minted off a single episode.
const dreamMinGroupSize = 3

// consolidationReinforcement is how far Consolidate nudges pattern_value
// per pass, symmetric for success and failure outcomes.
const consolidationReinforcement = 0.05

// Manager composes the four memory stores and the unified retrieval
// path into the single entry point spec.md §4.5 describes.
type Manager struct {
	Episodic   *EpisodicStore
	Semantic   *SemanticMemory
	Working    *WorkingMemory
	Procedural *ProceduralStore
	Retriever  *Retriever

	now func() time.Time
}

// NewManager wires the four stores and a Retriever into a Manager.
// Semantic and Working may be nil when that subsystem is not configured.
func NewManager(episodic *EpisodicStore, semantic *SemanticMemory, working *WorkingMemory, procedural *ProceduralStore, retriever *Retriever) *Manager {
	return &Manager{
		Episodic:   episodic,
		Semantic:   semantic,
		Working:    working,
		Procedural: procedural,
		Retriever:  retriever,
		now:        time.Now,
	}
}

// Retrieve dispatches to the Retriever, the unified query surface across
// all four retrieval strategies.
func (m *Manager) Retrieve(ctx context.Context, workspaceID ids.Id, query string, strategy RetrievalStrategy, limit int) ([]ScoredMemory, error) {
	return m.Retriever.Retrieve(ctx, workspaceID, query, strategy, limit)
}

// Consolidate reinforces or decays every episode's pattern_value based on
// its outcome, the first half of spec.md §4.5.6's consolidation pass.
// Successful episodes are nudged toward pattern_value=1, failed or
// abandoned episodes toward 0; partial outcomes are left untouched since
// they carry no clear reinforcement signal.
func (m *Manager) Consolidate(ctx context.Context, workspaceID ids.Id) (ConsolidationReport, error) {
	start := m.now()

	episodes, err := m.Episodic.AllEpisodes(ctx, workspaceID)
	if err != nil {
		return ConsolidationReport{}, err
	}

	processed := 0
	for _, ep := range episodes {
		var delta float64
		switch ep.Outcome {
		case domain.OutcomeSuccess:
			delta = consolidationReinforcement
		case domain.OutcomeFailure, domain.OutcomeAbandoned:
			delta = -consolidationReinforcement
		default:
			continue
		}

		newValue := clamp01(ep.PatternValue + delta)
		if newValue == ep.PatternValue {
			continue
		}
		if err := m.Episodic.UpdatePatternValue(ctx, ep.ID, newValue); err != nil {
			return ConsolidationReport{}, err
		}
		processed++
	}

	patternsUpdated, err := m.dreamPatterns(ctx, workspaceID, episodes)
	if err != nil {
		return ConsolidationReport{}, err
	}

	return ConsolidationReport{
		DurationMs:        m.now().Sub(start).Milliseconds(),
		EpisodesProcessed: processed,
		PatternsUpdated:   patternsUpdated,
	}, nil
}

// Dream mines episodic memory for recurring successful task shapes and
// returns the learned patterns it minted or reinforced, the second half
// of spec.md §4.5.6. It is the same mining pass Consolidate runs
// internally, exposed standalone so callers can inspect what it produced.
func (m *Manager) Dream(ctx context.Context, workspaceID ids.Id) ([]domain.LearnedPattern, error) {
	episodes, err := m.Episodic.AllEpisodes(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	var minted []domain.LearnedPattern
	groups := groupBySuccessfulType(episodes)
	for episodeType, group := range groups {
		if len(group) < dreamMinGroupSize {
			continue
		}
		patternType, ok := patternTypeFor(episodeType)
		if !ok {
			continue
		}
		pattern, err := m.reinforcePattern(ctx, workspaceID, patternType, episodeType, group)
		if err != nil {
			return nil, err
		}
		minted = append(minted, pattern)
	}
	return minted, nil
}

func (m *Manager) dreamPatterns(ctx context.Context, workspaceID ids.Id, episodes []domain.Episode) (int, error) {
	groups := groupBySuccessfulType(episodes)
	updated := 0
	for episodeType, group := range groups {
		if len(group) < dreamMinGroupSize {
			continue
		}
		patternType, ok := patternTypeFor(episodeType)
		if !ok {
			continue
		}
		if _, err := m.reinforcePattern(ctx, workspaceID, patternType, episodeType, group); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// reinforcePattern finds an existing pattern named after episodeType and
// records a success against it, or mints a new one from the episode
// group's most recent lesson when none exists yet.
func (m *Manager) reinforcePattern(ctx context.Context, workspaceID ids.Id, patternType domain.PatternType, episodeType domain.EpisodeType, group []domain.Episode) (domain.LearnedPattern, error) {
	name := string(episodeType) + "_pattern"

	existing, err := m.Procedural.ListPatterns(ctx, workspaceID)
	if err != nil {
		return domain.LearnedPattern{}, err
	}
	for _, p := range existing {
		if p.Name == name {
			return m.Procedural.RecordSuccess(ctx, p.ID)
		}
	}

	latest := group[0]
	for _, ep := range group {
		if ep.Timestamp.After(latest.Timestamp) {
			latest = ep
		}
	}

	return m.Procedural.RememberPattern(ctx, workspaceID, domain.LearnedPattern{
		PatternType:   patternType,
		Name:          name,
		Description:   latest.LessonsLearned,
		Context:       latest.TaskDescription,
		TimesApplied:  len(group),
		SuccessRate:   1.0,
		CreatedAt:     m.now().UTC(),
		LastAppliedAt: m.now().UTC(),
	})
}

// Forget deletes episodes whose importance score falls below
// minImportance, returning the number removed. Importance rather than
// age drives forgetting so a rarely-accessed but high pattern_value
// episode survives, per domain.Episode.ImportanceScore's weighting.
func (m *Manager) Forget(ctx context.Context, workspaceID ids.Id, minImportance float64) (int, error) {
	episodes, err := m.Episodic.AllEpisodes(ctx, workspaceID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, ep := range episodes {
		if ep.ImportanceScore() >= minImportance {
			continue
		}
		if err := m.Episodic.DeleteEpisode(ctx, ep.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func groupBySuccessfulType(episodes []domain.Episode) map[domain.EpisodeType][]domain.Episode {
	groups := make(map[domain.EpisodeType][]domain.Episode)
	for _, ep := range episodes {
		if ep.Outcome != domain.OutcomeSuccess {
			continue
		}
		groups[ep.EpisodeType] = append(groups[ep.EpisodeType], ep)
	}
	return groups
}

func patternTypeFor(episodeType domain.EpisodeType) (domain.PatternType, bool) {
	switch episodeType {
	case domain.EpisodeBugFix:
		return domain.PatternBugFix, true
	case domain.EpisodeRefactor:
		return domain.PatternRefactor, true
	default:
		return "", false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
