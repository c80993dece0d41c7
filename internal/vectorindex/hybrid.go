package vectorindex

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// MigrationMode selects how HybridVectorStore routes reads and writes
// between its two underlying indexes while a store migration is in
// flight.
type MigrationMode int

const (
	// SingleStore writes and reads only the old store; the new store is
	// untouched. The starting mode before a migration begins.
	SingleStore MigrationMode = iota
	// DualWrite writes to both stores but still reads from the old one,
	// backfilling the new store without trusting it yet.
	DualWrite
	// DualVerify writes to both and reads from both, counting each dual
	// read in ConsistencyChecks and returning the old store's result (the
	// new store's if the old one fails). The two results are not
	// compared, so ConsistencyMismatches is never incremented.
	DualVerify
	// NewPrimary writes to both stores and tolerates an old-store write
	// failure; reads go to the new store, falling back to the old store
	// only on error. The last mode before old is retired.
	NewPrimary
)

func (m MigrationMode) String() string {
	switch m {
	case SingleStore:
		return "single_store"
	case DualWrite:
		return "dual_write"
	case DualVerify:
		return "dual_verify"
	case NewPrimary:
		return "new_primary"
	default:
		return "unknown"
	}
}

// HybridMetrics counts outcomes of dual-write and dual-read operations
// across the lifetime of a HybridVectorStore. All fields are updated
// with atomic operations and are safe to read concurrently.
type HybridMetrics struct {
	DualWriteSuccesses    atomic.Uint64
	DualWriteFailures     atomic.Uint64
	ConsistencyChecks     atomic.Uint64
	ConsistencyMismatches atomic.Uint64
	OldStoreFailures      atomic.Uint64
	NewStoreFailures      atomic.Uint64
	FallbackActivations   atomic.Uint64
}

// HybridVectorStore coordinates reads and writes between an old and a
// new VectorIndex while migrating from one backing implementation to
// another (typically HNSWIndex to SQLiteVecIndex, or the reverse).
//
// It implements VectorIndex itself, so callers migrate by swapping in a
// HybridVectorStore without touching call sites, then flipping Mode as
// confidence in the new store grows.
type HybridVectorStore struct {
	mu       sync.RWMutex
	mode     MigrationMode
	oldStore VectorIndex
	newStore VectorIndex
	metrics  *HybridMetrics
}

// NewHybridVectorStore wraps oldStore and newStore, starting in mode.
func NewHybridVectorStore(oldStore, newStore VectorIndex, mode MigrationMode) *HybridVectorStore {
	return &HybridVectorStore{
		mode:     mode,
		oldStore: oldStore,
		newStore: newStore,
		metrics:  &HybridMetrics{},
	}
}

// Mode returns the current migration mode.
func (h *HybridVectorStore) Mode() MigrationMode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mode
}

// SetMode changes the migration mode.
func (h *HybridVectorStore) SetMode(mode MigrationMode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mode = mode
}

// Metrics returns the store's operation counters.
func (h *HybridVectorStore) Metrics() *HybridMetrics {
	return h.metrics
}

// dualWrite applies f to the old store, the new store, or both depending
// on the current mode, recording outcomes in metrics. When both stores
// are written, the two writes run concurrently and are joined before
// the outcome is decided.
func (h *HybridVectorStore) dualWrite(ctx context.Context, op string, f func(context.Context, VectorIndex) error) error {
	switch h.Mode() {
	case SingleStore:
		return f(ctx, h.oldStore)
	default: // DualWrite, DualVerify, NewPrimary
		var newErr error
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			newErr = f(ctx, h.newStore)
		}()
		oldErr := f(ctx, h.oldStore)
		wg.Wait()

		switch {
		case oldErr == nil && newErr == nil:
			h.metrics.DualWriteSuccesses.Add(1)
			return nil
		case oldErr != nil && newErr == nil:
			h.metrics.OldStoreFailures.Add(1)
			if h.Mode() == NewPrimary {
				return nil
			}
			return fmt.Errorf("vectorindex: old store failed for %s: %w", op, oldErr)
		case oldErr == nil && newErr != nil:
			h.metrics.NewStoreFailures.Add(1)
			return nil
		default:
			h.metrics.DualWriteFailures.Add(1)
			return fmt.Errorf("vectorindex: both stores failed for %s: old=%v new=%w", op, oldErr, newErr)
		}
	}
}

// readWithFallback routes a read to the store the current mode prefers,
// falling back to the other store on failure where that makes sense.
// Callers that need DualVerify's dual-read-and-compare behavior check
// for that mode themselves before calling this, since comparing two
// results of an arbitrary type T needs type-specific logic (see
// Search's use of readAndLogDifferences).
func readWithFallback[T any](h *HybridVectorStore, ctx context.Context, op string, f func(context.Context, VectorIndex) (T, error)) (T, error) {
	switch h.Mode() {
	case NewPrimary:
		result, err := f(ctx, h.newStore)
		if err == nil {
			return result, nil
		}
		h.metrics.FallbackActivations.Add(1)
		return f(ctx, h.oldStore)
	default: // SingleStore, DualWrite, DualVerify
		return f(ctx, h.oldStore)
	}
}

// readAndLogDifferences reads from both stores during verification.
// Search results can vary slightly between implementations, so it
// records that both paths were exercised without requiring equality,
// and always prefers the old store's result while it remains primary.
func (h *HybridVectorStore) readAndLogDifferences(ctx context.Context, op string, f func(context.Context, VectorIndex) (any, error)) (any, error) {
	h.metrics.ConsistencyChecks.Add(1)

	oldResult, oldErr := f(ctx, h.oldStore)
	newResult, newErr := f(ctx, h.newStore)

	switch {
	case oldErr == nil && newErr == nil:
		return oldResult, nil
	case oldErr == nil && newErr != nil:
		h.metrics.NewStoreFailures.Add(1)
		return oldResult, nil
	case oldErr != nil && newErr == nil:
		h.metrics.OldStoreFailures.Add(1)
		return newResult, nil
	default:
		return nil, fmt.Errorf("vectorindex: both stores failed during verification of %s: old=%v new=%w", op, oldErr, newErr)
	}
}

func (h *HybridVectorStore) Insert(ctx context.Context, id DocumentID, vec Vector, metadata map[string]string) error {
	return h.dualWrite(ctx, "insert", func(ctx context.Context, idx VectorIndex) error {
		return idx.Insert(ctx, id, vec, metadata)
	})
}

func (h *HybridVectorStore) InsertBatch(ctx context.Context, items map[DocumentID]Entry) error {
	return h.dualWrite(ctx, "insert_batch", func(ctx context.Context, idx VectorIndex) error {
		return idx.InsertBatch(ctx, items)
	})
}

func (h *HybridVectorStore) Search(ctx context.Context, query Vector, k int) ([]SearchResult, error) {
	if h.Mode() == DualVerify {
		result, err := h.readAndLogDifferences(ctx, "search", func(ctx context.Context, idx VectorIndex) (any, error) {
			return idx.Search(ctx, query, k)
		})
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, nil
		}
		return result.([]SearchResult), nil
	}
	return readWithFallback(h, ctx, "search", func(ctx context.Context, idx VectorIndex) ([]SearchResult, error) {
		return idx.Search(ctx, query, k)
	})
}

// SearchWithFilter behaves like Search, routing to the same store(s)
// the current migration mode prefers, but only returns hits matching
// filter.
func (h *HybridVectorStore) SearchWithFilter(ctx context.Context, query Vector, k int, filter SearchFilter) ([]SearchResult, error) {
	if h.Mode() == DualVerify {
		result, err := h.readAndLogDifferences(ctx, "search_with_filter", func(ctx context.Context, idx VectorIndex) (any, error) {
			return idx.SearchWithFilter(ctx, query, k, filter)
		})
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, nil
		}
		return result.([]SearchResult), nil
	}
	return readWithFallback(h, ctx, "search_with_filter", func(ctx context.Context, idx VectorIndex) ([]SearchResult, error) {
		return idx.SearchWithFilter(ctx, query, k, filter)
	})
}

func (h *HybridVectorStore) Remove(ctx context.Context, id DocumentID) error {
	return h.dualWrite(ctx, "remove", func(ctx context.Context, idx VectorIndex) error {
		return idx.Remove(ctx, id)
	})
}

func (h *HybridVectorStore) Len(ctx context.Context) (int, error) {
	switch h.Mode() {
	case NewPrimary:
		return h.newStore.Len(ctx)
	default:
		return h.oldStore.Len(ctx)
	}
}

func (h *HybridVectorStore) Clear(ctx context.Context) error {
	return h.dualWrite(ctx, "clear", func(ctx context.Context, idx VectorIndex) error {
		return idx.Clear(ctx)
	})
}

func (h *HybridVectorStore) Stats(ctx context.Context) (IndexStats, error) {
	switch h.Mode() {
	case NewPrimary:
		return h.newStore.Stats(ctx)
	default:
		return h.oldStore.Stats(ctx)
	}
}

var _ VectorIndex = (*HybridVectorStore)(nil)

// MigrationReport summarizes progress moving from the old store to the
// new one, suitable for a status command or dashboard widget.
type MigrationReport struct {
	Mode                  MigrationMode
	OldStoreCount         int
	NewStoreCount         int
	DualWriteSuccesses    uint64
	DualWriteFailures     uint64
	ConsistencyChecks     uint64
	ConsistencyMismatches uint64
	OldStoreFailures      uint64
	NewStoreFailures      uint64
	FallbackActivations   uint64
}

// MigrationReport snapshots the store's current counts and metrics.
func (h *HybridVectorStore) MigrationReport(ctx context.Context) (MigrationReport, error) {
	oldCount, err := h.oldStore.Len(ctx)
	if err != nil {
		return MigrationReport{}, err
	}
	newCount, err := h.newStore.Len(ctx)
	if err != nil {
		return MigrationReport{}, err
	}

	return MigrationReport{
		Mode:                  h.Mode(),
		OldStoreCount:         oldCount,
		NewStoreCount:         newCount,
		DualWriteSuccesses:    h.metrics.DualWriteSuccesses.Load(),
		DualWriteFailures:     h.metrics.DualWriteFailures.Load(),
		ConsistencyChecks:     h.metrics.ConsistencyChecks.Load(),
		ConsistencyMismatches: h.metrics.ConsistencyMismatches.Load(),
		OldStoreFailures:      h.metrics.OldStoreFailures.Load(),
		NewStoreFailures:      h.metrics.NewStoreFailures.Load(),
		FallbackActivations:   h.metrics.FallbackActivations.Load(),
	}, nil
}

// ProgressPercentage estimates how far the new store has caught up to
// the old one by row count. A never-populated old store is trivially
// 100% migrated.
func (r MigrationReport) ProgressPercentage() float64 {
	if r.OldStoreCount == 0 {
		return 100.0
	}
	return (float64(r.NewStoreCount) / float64(r.OldStoreCount)) * 100.0
}

// IsHealthy reports whether the failure rate across dual-write and
// verification operations is below 5%. A store with no recorded
// operations yet is considered healthy.
func (r MigrationReport) IsHealthy() bool {
	total := r.DualWriteSuccesses + r.DualWriteFailures + r.ConsistencyChecks
	if total == 0 {
		return true
	}
	failureRate := float64(r.DualWriteFailures+r.ConsistencyMismatches) / float64(total)
	return failureRate < 0.05
}

// StatusMessage renders a one-line human-readable migration summary.
func (r MigrationReport) StatusMessage() string {
	return fmt.Sprintf(
		"mode=%s progress=%.1f%% old=%d new=%d successes=%d failures=%d mismatches=%d",
		r.Mode, r.ProgressPercentage(), r.OldStoreCount, r.NewStoreCount,
		r.DualWriteSuccesses, r.DualWriteFailures, r.ConsistencyMismatches,
	)
}
