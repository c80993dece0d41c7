package cognitive

import (
	"context"
	"sort"

	"github.com/cortexmind/cortexd/internal/embed"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/textindex"
	"github.com/cortexmind/cortexd/internal/vectorindex"
)

// RelevanceSource ranks episodes against a free-text query, returning
// their IDs best-match first. Used by the Relevance and Hybrid
// retrieval strategies.
type RelevanceSource interface {
	RankEpisodes(ctx context.Context, query string, limit int) ([]ids.Id, error)
}

// EpisodeRelevance ranks episodes by semantic similarity when a vector
// index and embedder are available, by keyword match otherwise, and
// blends both when both are present. The original system's
// retrieve_by_relevance call chain went through episodic_memory's
// text-similarity search rather than a vector index; keeping the
// keyword path here preserves that behavior as a fallback instead of
// narrowing relevance to vector-only.
type EpisodeRelevance struct {
	vectors  vectorindex.VectorIndex
	embedder embed.Embedder
	keyword  textindex.Index
}

// NewEpisodeRelevance constructs an EpisodeRelevance. vectors/embedder
// and keyword may each be nil independently; RankEpisodes degrades to
// whichever path is configured.
func NewEpisodeRelevance(vectors vectorindex.VectorIndex, embedder embed.Embedder, keyword textindex.Index) *EpisodeRelevance {
	return &EpisodeRelevance{vectors: vectors, embedder: embedder, keyword: keyword}
}

// RankEpisodes returns episode IDs ordered by descending relevance.
func (r *EpisodeRelevance) RankEpisodes(ctx context.Context, query string, limit int) ([]ids.Id, error) {
	vectorRanked := r.rankByVector(ctx, query, limit)
	keywordRanked := r.rankByKeyword(ctx, query, limit)

	switch {
	case len(vectorRanked) > 0 && len(keywordRanked) > 0:
		return blendRanked(vectorRanked, keywordRanked, limit), nil
	case len(vectorRanked) > 0:
		return vectorRanked, nil
	default:
		return keywordRanked, nil
	}
}

func (r *EpisodeRelevance) rankByVector(ctx context.Context, query string, limit int) []ids.Id {
	if r.vectors == nil || r.embedder == nil || !r.embedder.Available(ctx) {
		return nil
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil
	}
	hits, err := r.vectors.Search(ctx, vec, limit)
	if err != nil {
		return nil
	}
	out := make([]ids.Id, 0, len(hits))
	for _, h := range hits {
		if id, err := ids.Parse(h.ID); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func (r *EpisodeRelevance) rankByKeyword(ctx context.Context, query string, limit int) []ids.Id {
	if r.keyword == nil {
		return nil
	}
	hits, err := r.keyword.Search(ctx, query, limit)
	if err != nil {
		return nil
	}
	out := make([]ids.Id, 0, len(hits))
	for _, h := range hits {
		if id, err := ids.Parse(h.DocID); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// blendRanked fuses two rank-ordered ID lists with reciprocal rank
// fusion (k=60, the standard RRF constant), deduplicating by ID.
func blendRanked(a, b []ids.Id, limit int) []ids.Id {
	const k = 60.0
	scores := make(map[ids.Id]float64)
	order := make([]ids.Id, 0, len(a)+len(b))

	add := func(list []ids.Id) {
		for i, id := range list {
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += 1.0 / (k + float64(i+1))
		}
	}
	add(a)
	add(b)

	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}
