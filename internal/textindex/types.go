// Package textindex implements a keyword search index over code-unit
// signatures/docstrings and cognitive-memory text, complementing
// internal/vectorindex's semantic search with exact-term ranking.
package textindex

import "context"

// Document is a unit of text to index: a code unit's signature and
// docstring concatenated, or a memory record's content.
type Document struct {
	ID      string
	Content string
}

// Result is one keyword search hit.
type Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// Stats summarizes an index's current state.
type Stats struct {
	DocumentCount int
}

// Index provides relevance-ranked keyword search.
type Index interface {
	Index(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Delete(ctx context.Context, docIDs []string) error
	Stats() Stats
	Close() error
}
