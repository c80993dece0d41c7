package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryPair() (*HNSWIndex, *HNSWIndex) {
	return NewHNSWIndex(HNSWConfig{Dimension: 8}), NewHNSWIndex(HNSWConfig{Dimension: 8})
}

func TestHybridVectorStore_SingleStoreModeOnlyWritesOldStore(t *testing.T) {
	ctx := context.Background()
	oldStore, newStore := newMemoryPair()
	hybrid := NewHybridVectorStore(oldStore, newStore, SingleStore)

	require.NoError(t, hybrid.Insert(ctx, "doc1", testVector(8, 1), nil))

	oldLen, _ := oldStore.Len(ctx)
	newLen, _ := newStore.Len(ctx)
	assert.Equal(t, 1, oldLen)
	assert.Equal(t, 0, newLen)
}

func TestHybridVectorStore_DualWriteModeWritesBothStores(t *testing.T) {
	ctx := context.Background()
	oldStore, newStore := newMemoryPair()
	hybrid := NewHybridVectorStore(oldStore, newStore, DualWrite)

	require.NoError(t, hybrid.Insert(ctx, "doc1", testVector(8, 1), nil))

	oldLen, _ := oldStore.Len(ctx)
	newLen, _ := newStore.Len(ctx)
	assert.Equal(t, 1, oldLen)
	assert.Equal(t, 1, newLen)
}

func TestHybridVectorStore_MigrationReportReflectsDualWriteSuccess(t *testing.T) {
	ctx := context.Background()
	oldStore, newStore := newMemoryPair()
	hybrid := NewHybridVectorStore(oldStore, newStore, DualWrite)

	require.NoError(t, hybrid.Insert(ctx, "doc1", testVector(8, 1), nil))

	report, err := hybrid.MigrationReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.OldStoreCount)
	assert.Equal(t, 1, report.NewStoreCount)
	assert.Equal(t, uint64(1), report.DualWriteSuccesses)
	assert.True(t, report.IsHealthy())
	assert.Equal(t, 100.0, report.ProgressPercentage())
}

func TestHybridVectorStore_SetModeChangesSubsequentRouting(t *testing.T) {
	oldStore, newStore := newMemoryPair()
	hybrid := NewHybridVectorStore(oldStore, newStore, SingleStore)

	assert.Equal(t, SingleStore, hybrid.Mode())
	hybrid.SetMode(DualWrite)
	assert.Equal(t, DualWrite, hybrid.Mode())
}

func TestHybridVectorStore_NewPrimaryEmptyNewStoreResultDoesNotFallBack(t *testing.T) {
	ctx := context.Background()
	oldStore, newStore := newMemoryPair()
	require.NoError(t, oldStore.Insert(ctx, "doc1", testVector(8, 1), nil))

	hybrid := NewHybridVectorStore(oldStore, newStore, NewPrimary)

	// The new store is empty, so its search returns no results and no
	// error; NewPrimary returns that empty result and no fallback fires.
	results, err := hybrid.Search(ctx, testVector(8, 1), 1)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, uint64(0), hybrid.Metrics().FallbackActivations.Load())
}

func TestHybridVectorStore_SearchWithFilterRoutesLikeSearch(t *testing.T) {
	ctx := context.Background()
	oldStore, newStore := newMemoryPair()
	require.NoError(t, oldStore.Insert(ctx, "doc1", testVector(8, 1), map[string]string{"language": "go"}))

	hybrid := NewHybridVectorStore(oldStore, newStore, SingleStore)

	results, err := hybrid.SearchWithFilter(ctx, testVector(8, 1), 10, SearchFilter{
		MetadataFilters: map[string]string{"language": "go"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc1", results[0].ID)
}

func TestHybridVectorStore_ProgressPercentageIsFullWhenOldStoreIsEmpty(t *testing.T) {
	report := MigrationReport{OldStoreCount: 0, NewStoreCount: 0}
	assert.Equal(t, 100.0, report.ProgressPercentage())
}

func TestHybridVectorStore_IsHealthyWithNoOperationsYet(t *testing.T) {
	report := MigrationReport{}
	assert.True(t, report.IsHealthy())
}

func TestHybridVectorStore_IsUnhealthyWhenFailureRateExceedsFivePercent(t *testing.T) {
	report := MigrationReport{DualWriteSuccesses: 90, DualWriteFailures: 10}
	assert.False(t, report.IsHealthy())
}
