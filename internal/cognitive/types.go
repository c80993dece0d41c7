// Package cognitive implements the engine's cognitive memory manager:
// episodic, semantic, working, and procedural memory stores, a unified
// multi-strategy retrieval path, and periodic consolidation/dreaming/
// forgetting passes over episodic memory.
package cognitive

import "time"

// MemoryType classifies which underlying store a retrieved Memory came
// from.
type MemoryType string

const (
	MemoryEpisodic   MemoryType = "EPISODIC"
	MemorySemantic   MemoryType = "SEMANTIC"
	MemoryWorking    MemoryType = "WORKING"
	MemoryProcedural MemoryType = "PROCEDURAL"
)

// Memory is the strategy-agnostic projection every retrieval strategy
// scores and ranks, regardless of which store produced it.
type Memory struct {
	ID             string
	Content        string
	MemoryType     MemoryType
	RelevanceScore float64
	Timestamp      time.Time
}

// StrategyKind selects one of the four retrieval strategies.
type StrategyKind int

const (
	StrategyRecency StrategyKind = iota
	StrategyRelevance
	StrategyImportance
	StrategyHybrid
)

// HybridWeights default to 0.3/0.5/0.2 (recency/relevance/importance),
// matching the original system's default hybrid strategy.
type HybridWeights struct {
	Recency    float64
	Relevance  float64
	Importance float64
}

// DefaultHybridWeights is the (0.3, 0.5, 0.2) default.
var DefaultHybridWeights = HybridWeights{Recency: 0.3, Relevance: 0.5, Importance: 0.2}

// RetrievalStrategy selects a scoring strategy; Weights is only
// consulted when Kind is StrategyHybrid.
type RetrievalStrategy struct {
	Kind    StrategyKind
	Weights HybridWeights
}

// MemoryScores carries each strategy's individual component score,
// regardless of which one produced the final ranking.
type MemoryScores struct {
	RecencyScore    float64
	RelevanceScore  float64
	ImportanceScore float64
}

// ScoredMemory is one retrieval hit: the memory, its component scores,
// and the combined score retrieval sorted by.
type ScoredMemory struct {
	Memory        Memory
	Scores        MemoryScores
	CombinedScore float64
}

// RetrievalStats summarizes episodic memory as of the call, used for
// dashboards and consolidation accounting.
type RetrievalStats struct {
	TotalMemories     int
	RecentMemories    int // within the last 7 days
	HighValueMemories int // pattern_value > 0.7
	AvgAccessCount    float64
}

// ConsolidationReport summarizes one Consolidate pass.
type ConsolidationReport struct {
	DurationMs       int64
	EpisodesProcessed int
	PatternsUpdated  int
}
