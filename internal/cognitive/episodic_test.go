package cognitive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/storage"
)

func newTestEpisodicStore(t *testing.T) (*EpisodicStore, ids.Id) {
	t.Helper()
	st, err := storage.Open(storage.Config{
		Driver:    storage.DriverModernC,
		DataDir:   t.TempDir(),
		Namespace: "cognitive-episodic-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewEpisodicStore(st), ids.New()
}

func TestRememberEpisode_RoundTripsThroughGetEpisode(t *testing.T) {
	s, ws := newTestEpisodicStore(t)
	ctx := context.Background()

	ep := domain.Episode{
		WorkspaceID:       ws,
		TaskDescription:   "fix off-by-one in pagination",
		AgentID:           "agent-1",
		EpisodeType:       domain.EpisodeBugFix,
		EntitiesCreated:   []string{"pagination.go"},
		EntitiesModified:  []string{"pagination_test.go"},
		ToolsUsed:         []domain.ToolUsage{{ToolName: "edit", UsageCount: 2}},
		Outcome:           domain.OutcomeSuccess,
		DurationSeconds:   42.5,
		SolutionSummary:   "adjusted loop bound",
		LessonsLearned:    "always check boundary conditions",
		PatternValue:      0.4,
	}

	saved, err := s.RememberEpisode(ctx, ep)
	require.NoError(t, err)
	assert.False(t, saved.ID.IsNil())

	got, err := s.GetEpisode(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "fix off-by-one in pagination", got.TaskDescription)
	assert.Equal(t, domain.EpisodeBugFix, got.EpisodeType)
	assert.Equal(t, []string{"pagination.go"}, got.EntitiesCreated)
	require.Len(t, got.ToolsUsed, 1)
	assert.Equal(t, "edit", got.ToolsUsed[0].ToolName)
	assert.Equal(t, 1, got.AccessCount, "GetEpisode must increment access_count as a side effect")

	got2, err := s.GetEpisode(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got2.AccessCount)
}

func TestGetEpisode_ReturnsNotFoundForUnknownID(t *testing.T) {
	s, _ := newTestEpisodicStore(t)
	_, err := s.GetEpisode(context.Background(), ids.New())
	assert.True(t, cerrors.IsKind(err, cerrors.KindNotFound))
}

func TestDeleteEpisode_RemovesFromListEpisodes(t *testing.T) {
	s, ws := newTestEpisodicStore(t)
	ctx := context.Background()

	saved, err := s.RememberEpisode(ctx, domain.Episode{WorkspaceID: ws, TaskDescription: "t", EpisodeType: domain.EpisodeTask, Outcome: domain.OutcomeSuccess})
	require.NoError(t, err)

	require.NoError(t, s.DeleteEpisode(ctx, saved.ID))

	all, err := s.AllEpisodes(ctx, ws)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdatePatternValue_Persists(t *testing.T) {
	s, ws := newTestEpisodicStore(t)
	ctx := context.Background()

	saved, err := s.RememberEpisode(ctx, domain.Episode{WorkspaceID: ws, TaskDescription: "t", EpisodeType: domain.EpisodeTask, Outcome: domain.OutcomeSuccess, PatternValue: 0.1})
	require.NoError(t, err)

	require.NoError(t, s.UpdatePatternValue(ctx, saved.ID, 0.9))

	got, err := s.GetEpisode(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.PatternValue)
}

func TestListEpisodes_FiltersByAgentAndKeyword(t *testing.T) {
	s, ws := newTestEpisodicStore(t)
	ctx := context.Background()

	_, err := s.RememberEpisode(ctx, domain.Episode{WorkspaceID: ws, AgentID: "alice", TaskDescription: "refactor auth module", EpisodeType: domain.EpisodeRefactor, Outcome: domain.OutcomeSuccess})
	require.NoError(t, err)
	_, err = s.RememberEpisode(ctx, domain.Episode{WorkspaceID: ws, AgentID: "bob", TaskDescription: "fix login bug", EpisodeType: domain.EpisodeBugFix, Outcome: domain.OutcomeSuccess})
	require.NoError(t, err)

	byAgent, err := s.ListEpisodes(ctx, EpisodeFilter{WorkspaceID: ws, AgentID: "alice"})
	require.NoError(t, err)
	require.Len(t, byAgent, 1)
	assert.Equal(t, "alice", byAgent[0].AgentID)

	byKeyword, err := s.ListEpisodes(ctx, EpisodeFilter{WorkspaceID: ws, Keyword: "login"})
	require.NoError(t, err)
	require.Len(t, byKeyword, 1)
	assert.Equal(t, "bob", byKeyword[0].AgentID)
}

func TestSearchByKeyword_IsCaseInsensitive(t *testing.T) {
	s, ws := newTestEpisodicStore(t)
	ctx := context.Background()

	_, err := s.RememberEpisode(ctx, domain.Episode{WorkspaceID: ws, TaskDescription: "Optimize Database Query", EpisodeType: domain.EpisodeTask, Outcome: domain.OutcomeSuccess})
	require.NoError(t, err)

	got, err := s.SearchByKeyword(ctx, ws, "database")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestFileRelatedEpisodes_MatchesCreatedOrModifiedEntities(t *testing.T) {
	s, ws := newTestEpisodicStore(t)
	ctx := context.Background()

	_, err := s.RememberEpisode(ctx, domain.Episode{
		WorkspaceID: ws, TaskDescription: "t", EpisodeType: domain.EpisodeTask, Outcome: domain.OutcomeSuccess,
		EntitiesModified: []string{"internal/server/handler.go"},
	})
	require.NoError(t, err)
	_, err = s.RememberEpisode(ctx, domain.Episode{
		WorkspaceID: ws, TaskDescription: "unrelated", EpisodeType: domain.EpisodeTask, Outcome: domain.OutcomeSuccess,
		EntitiesModified: []string{"internal/other/thing.go"},
	})
	require.NoError(t, err)

	got, err := s.FileRelatedEpisodes(ctx, ws, "handler.go")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t", got[0].TaskDescription)
}

func TestListEpisodes_SinceUntilBoundsTimestamp(t *testing.T) {
	s, ws := newTestEpisodicStore(t)
	ctx := context.Background()

	old := time.Now().Add(-30 * 24 * time.Hour)
	recent := time.Now().Add(-1 * time.Hour)

	_, err := s.RememberEpisode(ctx, domain.Episode{WorkspaceID: ws, Timestamp: old, TaskDescription: "old", EpisodeType: domain.EpisodeTask, Outcome: domain.OutcomeSuccess})
	require.NoError(t, err)
	_, err = s.RememberEpisode(ctx, domain.Episode{WorkspaceID: ws, Timestamp: recent, TaskDescription: "new", EpisodeType: domain.EpisodeTask, Outcome: domain.OutcomeSuccess})
	require.NoError(t, err)

	got, err := s.ListEpisodes(ctx, EpisodeFilter{WorkspaceID: ws, Since: time.Now().Add(-24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].TaskDescription)
}
