package domain

import (
	"time"

	"github.com/cortexmind/cortexd/internal/ids"
)

// EpisodeType classifies the kind of work an episode recorded.
type EpisodeType string

const (
	EpisodeTask     EpisodeType = "TASK"
	EpisodeFeature  EpisodeType = "FEATURE"
	EpisodeBugFix   EpisodeType = "BUG_FIX"
	EpisodeRefactor EpisodeType = "REFACTOR"
)

// Outcome records how an episode concluded.
type Outcome string

const (
	OutcomeSuccess   Outcome = "SUCCESS"
	OutcomePartial   Outcome = "PARTIAL"
	OutcomeFailure   Outcome = "FAILURE"
	OutcomeAbandoned Outcome = "ABANDONED"
)

// ToolUsage records one tool's aggregate usage within an episode.
type ToolUsage struct {
	ToolName        string
	UsageCount      int
	TotalDurationMs int64
	Parameters      map[string]any
}

// Episode is a durable episodic-memory record: a single unit of past
// work, its outcome, and the entities and tools it touched.
type Episode struct {
	ID                ids.Id
	Timestamp         time.Time
	TaskDescription   string
	AgentID           string
	WorkspaceID       ids.Id
	EpisodeType       EpisodeType
	EntitiesCreated   []string
	EntitiesModified  []string
	ToolsUsed         []ToolUsage
	Outcome           Outcome
	DurationSeconds   float64
	SolutionSummary   string
	LessonsLearned    string
	AccessCount       int
	PatternValue      float64 // in [0,1]
}

// ImportanceScore computes 0.6*pattern_value + 0.4*min(access_count,100)/100.
func (e Episode) ImportanceScore() float64 {
	accessComponent := float64(e.AccessCount)
	if accessComponent > 100 {
		accessComponent = 100
	}
	return 0.6*e.PatternValue + 0.4*(accessComponent/100)
}

// SemanticUnit is the memory-layer projection of a CodeUnit: the subset
// of fields cognitive retrieval needs without pulling the full record.
type SemanticUnit struct {
	ID             ids.Id
	QualifiedName  string
	FilePath       string
	StartLine      int
	EndLine        int
	Kind           CodeUnitKind
	Signature      string
	Complexity     Complexity
	HasTests       bool
	HasDocumentation bool
	Embedding      []float32
}

// Priority is a working-memory slot's eviction-resistance tier.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// WorkingSlot is one entry in the bounded, process-local working memory.
type WorkingSlot struct {
	Key          string
	Value        []byte
	Priority     Priority
	InsertedAt   time.Time
	LastAccessAt time.Time
	AccessCount  int
}

// PatternType classifies a learned procedural pattern.
type PatternType string

const (
	PatternRefactor    PatternType = "REFACTOR"
	PatternOptimization PatternType = "OPTIMIZATION"
	PatternBugFix      PatternType = "BUG_FIX"
	PatternIdiomUsage  PatternType = "IDIOM_USAGE"
)

// LearnedPattern is a durable procedural-memory record describing a
// reusable technique the system has observed succeeding or failing.
type LearnedPattern struct {
	ID             ids.Id
	PatternType    PatternType
	Name           string
	Description    string
	Context        string
	TimesApplied   int
	SuccessRate    float64 // in [0,1]
	CreatedAt      time.Time
	LastAppliedAt  time.Time
	Representation map[string]any
}

// EntityType classifies what a vector index entry represents.
type EntityType string

const (
	EntityCode     EntityType = "CODE"
	EntityDocument EntityType = "DOCUMENT"
	EntityIssue    EntityType = "ISSUE"
)

// VectorEntry is a single embedded document tracked by a vector index.
type VectorEntry struct {
	DocumentID string
	Vector     []float32
	Norm       float32
	Metadata   map[string]string
	EntityType EntityType
}
