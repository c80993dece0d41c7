package cognitive

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
)

// recencyHalfLifeSeconds is 7 days, the decay constant of the Recency
// strategy's exp(-age/7d) score. Despite the name, a score falls to 1/e
// (about 0.37) at this age, not to one half.
const recencyHalfLifeSeconds = 7.0 * 24 * 60 * 60

func calculateRecencyScore(ageSeconds float64) float64 {
	return math.Exp(-ageSeconds / recencyHalfLifeSeconds)
}

func episodeToMemory(ep domain.Episode) Memory {
	return Memory{
		ID:             ep.ID.String(),
		Content:        "Task: " + ep.TaskDescription + "\nSolution: " + ep.SolutionSummary,
		MemoryType:     MemoryEpisodic,
		RelevanceScore: ep.PatternValue,
		Timestamp:      ep.Timestamp,
	}
}

// Retriever answers spec.md §4.5.5's unified retrieve(query, strategy,
// limit) across the four retrieval strategies.
type Retriever struct {
	episodes  *EpisodicStore
	relevance RelevanceSource // optional; nil degrades Relevance/Hybrid to non-relevance scoring
	now       func() time.Time
}

// NewRetriever constructs a Retriever. relevance may be nil.
func NewRetriever(episodes *EpisodicStore, relevance RelevanceSource) *Retriever {
	return &Retriever{episodes: episodes, relevance: relevance, now: time.Now}
}

// Retrieve scores and ranks episodic memory under strategy, returning
// at most limit results sorted by descending combined score.
func (r *Retriever) Retrieve(ctx context.Context, workspaceID ids.Id, query string, strategy RetrievalStrategy, limit int) ([]ScoredMemory, error) {
	switch strategy.Kind {
	case StrategyRecency:
		return r.retrieveByRecency(ctx, workspaceID, limit)
	case StrategyRelevance:
		return r.retrieveByRelevance(ctx, workspaceID, query, limit)
	case StrategyImportance:
		return r.retrieveByImportance(ctx, workspaceID, limit)
	default:
		weights := strategy.Weights
		if weights == (HybridWeights{}) {
			weights = DefaultHybridWeights
		}
		return r.retrieveHybrid(ctx, workspaceID, query, limit, weights)
	}
}

func (r *Retriever) retrieveByRecency(ctx context.Context, workspaceID ids.Id, limit int) ([]ScoredMemory, error) {
	episodes, err := r.episodes.AllEpisodes(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	now := r.now()
	scored := make([]ScoredMemory, 0, len(episodes))
	for _, ep := range episodes {
		age := now.Sub(ep.Timestamp).Seconds()
		score := calculateRecencyScore(age)
		scored = append(scored, ScoredMemory{
			Memory:        episodeToMemory(ep),
			Scores:        MemoryScores{RecencyScore: score},
			CombinedScore: score,
		})
	}
	sortByCombinedScoreDesc(scored)
	return truncateScored(scored, limit), nil
}

// retrieveByRelevance ranks by position in the relevance source's
// output: rank 0 of rankLimit scores 1.0, decaying linearly to 0 at the
// tail, matching the original's "higher rank = lower score" formula.
func (r *Retriever) retrieveByRelevance(ctx context.Context, workspaceID ids.Id, query string, limit int) ([]ScoredMemory, error) {
	if r.relevance == nil {
		return nil, nil
	}
	rankLimit := limit * 2
	rankedIDs, err := r.relevance.RankEpisodes(ctx, query, rankLimit)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredMemory, 0, limit)
	for idx, id := range rankedIDs {
		ep, err := r.episodes.GetEpisode(ctx, id)
		if err != nil {
			continue
		}
		score := 1.0 - float64(idx)/float64(rankLimit)
		scored = append(scored, ScoredMemory{
			Memory:        episodeToMemory(ep),
			Scores:        MemoryScores{RelevanceScore: score},
			CombinedScore: score,
		})
		if len(scored) >= limit {
			break
		}
	}
	return scored, nil
}

func (r *Retriever) retrieveByImportance(ctx context.Context, workspaceID ids.Id, limit int) ([]ScoredMemory, error) {
	episodes, err := r.episodes.AllEpisodes(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredMemory, 0, len(episodes))
	for _, ep := range episodes {
		score := ep.ImportanceScore()
		scored = append(scored, ScoredMemory{
			Memory:        episodeToMemory(ep),
			Scores:        MemoryScores{ImportanceScore: score},
			CombinedScore: score,
		})
	}
	sortByCombinedScoreDesc(scored)
	return truncateScored(scored, limit), nil
}

// retrieveHybrid blends all three component scores with caller-supplied
// weights. When no relevance source is configured (or it returns
// nothing) every episode in the workspace is scored instead, with a
// relevance score of 0, so Hybrid degrades gracefully to
// recency+importance rather than returning empty.
func (r *Retriever) retrieveHybrid(ctx context.Context, workspaceID ids.Id, query string, limit int, weights HybridWeights) ([]ScoredMemory, error) {
	rankLimit := limit * 3
	var rankedIDs []ids.Id
	if r.relevance != nil {
		var err error
		rankedIDs, err = r.relevance.RankEpisodes(ctx, query, rankLimit)
		if err != nil {
			return nil, err
		}
	}
	fallback := len(rankedIDs) == 0
	if fallback {
		all, err := r.episodes.AllEpisodes(ctx, workspaceID)
		if err != nil {
			return nil, err
		}
		for _, ep := range all {
			rankedIDs = append(rankedIDs, ep.ID)
		}
	}

	now := r.now()
	scored := make([]ScoredMemory, 0, len(rankedIDs))
	for idx, id := range rankedIDs {
		ep, err := r.episodes.GetEpisode(ctx, id)
		if err != nil {
			continue
		}

		age := now.Sub(ep.Timestamp).Seconds()
		recencyScore := calculateRecencyScore(age)
		relevanceScore := 0.0
		if !fallback {
			relevanceScore = 1.0 - float64(idx)/float64(rankLimit)
		}
		importanceScore := ep.ImportanceScore()
		combined := recencyScore*weights.Recency + relevanceScore*weights.Relevance + importanceScore*weights.Importance

		scored = append(scored, ScoredMemory{
			Memory: episodeToMemory(ep),
			Scores: MemoryScores{
				RecencyScore:    recencyScore,
				RelevanceScore:  relevanceScore,
				ImportanceScore: importanceScore,
			},
			CombinedScore: combined,
		})
	}
	sortByCombinedScoreDesc(scored)
	return truncateScored(scored, limit), nil
}

// Statistics reports spec.md §4.5.5-adjacent aggregates over episodic
// memory, grounded on retrieval.rs's get_statistics.
func (r *Retriever) Statistics(ctx context.Context, workspaceID ids.Id) (RetrievalStats, error) {
	episodes, err := r.episodes.AllEpisodes(ctx, workspaceID)
	if err != nil {
		return RetrievalStats{}, err
	}

	now := r.now()
	stats := RetrievalStats{TotalMemories: len(episodes)}
	var accessSum int
	for _, ep := range episodes {
		if now.Sub(ep.Timestamp) < 7*24*time.Hour {
			stats.RecentMemories++
		}
		if ep.PatternValue > 0.7 {
			stats.HighValueMemories++
		}
		accessSum += ep.AccessCount
	}
	if stats.TotalMemories > 0 {
		stats.AvgAccessCount = float64(accessSum) / float64(stats.TotalMemories)
	}
	return stats, nil
}

func sortByCombinedScoreDesc(scored []ScoredMemory) {
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].CombinedScore > scored[j].CombinedScore })
}

func truncateScored(scored []ScoredMemory, limit int) []ScoredMemory {
	if limit > 0 && len(scored) > limit {
		return scored[:limit]
	}
	return scored
}
