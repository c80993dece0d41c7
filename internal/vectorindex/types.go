// Package vectorindex implements the semantic vector store: an HNSW
// in-memory index, a SQL-backed sqlite-vec index, and a hybrid façade
// that dual-writes between them during a migration from one to the
// other, the shape every VectorIndex implementation and the engine's
// embedding consumers share.
package vectorindex

import (
	"context"

	"github.com/cortexmind/cortexd/internal/cerrors"
)

// DocumentID identifies a vector entry; in practice a code unit's
// qualified name or a memory record's Id string form.
type DocumentID = string

// Vector is a dense embedding.
type Vector = []float32

// SearchResult is one nearest-neighbor hit.
type SearchResult struct {
	ID       DocumentID
	Score    float32 // similarity; higher is closer
	Distance float32 // underlying distance metric, lower is closer
	Metadata map[string]string
}

// IndexStats summarizes an index's current state.
type IndexStats struct {
	Count     int
	Dimension int
	Metric    string
}

// Entry bundles a vector with its metadata for a batch insert.
type Entry struct {
	Vector   Vector
	Metadata map[string]string
}

// SearchFilter narrows a SearchWithFilter call to hits carrying every
// key/value pair in MetadataFilters (exact match) and, when MinScore is
// set, scoring at or above it.
type SearchFilter struct {
	MetadataFilters map[string]string
	MinScore        *float32
}

// VectorIndex is the common interface every vector store implementation
// satisfies: HNSWIndex, SQLiteVecIndex, and HybridVectorStore.
type VectorIndex interface {
	Insert(ctx context.Context, id DocumentID, vec Vector, metadata map[string]string) error
	InsertBatch(ctx context.Context, items map[DocumentID]Entry) error
	Search(ctx context.Context, query Vector, k int) ([]SearchResult, error)
	SearchWithFilter(ctx context.Context, query Vector, k int, filter SearchFilter) ([]SearchResult, error)
	Remove(ctx context.Context, id DocumentID) error
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (IndexStats, error)
}

// searchOverfetchFactor is how many extra nearest neighbors a filtered
// search pulls before trimming back to k, since an exact metadata match
// or a score floor can reject most of the unfiltered top-k.
const searchOverfetchFactor = 8

func matchesFilter(r SearchResult, filter SearchFilter) bool {
	for key, want := range filter.MetadataFilters {
		if r.Metadata[key] != want {
			return false
		}
	}
	if filter.MinScore != nil && r.Score < *filter.MinScore {
		return false
	}
	return true
}

// applyFilter keeps, in order, the first k results of candidates that
// satisfy filter.
func applyFilter(candidates []SearchResult, filter SearchFilter, k int) []SearchResult {
	out := make([]SearchResult, 0, k)
	for _, r := range candidates {
		if !matchesFilter(r, filter) {
			continue
		}
		out = append(out, r)
		if len(out) == k {
			break
		}
	}
	return out
}

// validateDimension guards against inserting or searching a vector of a
// different width than the index was configured for.
func validateDimension(got, want int) error {
	if want > 0 && got != want {
		return cerrors.InvalidInput(
			"vectorindex: dimension mismatch: got vector of width that does not match the index's configured dimension")
	}
	return nil
}
