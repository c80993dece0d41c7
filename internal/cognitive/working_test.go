package cognitive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmind/cortexd/internal/domain"
)

func TestWorkingMemory_StoreAndRetrieveRoundTrips(t *testing.T) {
	w := NewWorkingMemory(10, 0)

	w.Store("k1", []byte("v1"), domain.PriorityMedium)
	v, ok := w.Retrieve("k1")
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	_, ok = w.Retrieve("missing")
	assert.False(t, ok)
}

func TestWorkingMemory_EvictsLowestPriorityFirstWhenOverMaxItems(t *testing.T) {
	w := NewWorkingMemory(2, 0)

	w.Store("low", []byte("a"), domain.PriorityLow)
	w.Store("high", []byte("b"), domain.PriorityHigh)
	w.Store("critical", []byte("c"), domain.PriorityCritical)

	_, ok := w.Retrieve("low")
	assert.False(t, ok, "lowest priority slot should have been evicted to make room")

	_, ok = w.Retrieve("high")
	assert.True(t, ok)
	_, ok = w.Retrieve("critical")
	assert.True(t, ok)

	stats := w.Statistics()
	assert.Equal(t, 2, stats.CurrentItems)
	assert.Equal(t, 1, stats.TotalEvictions)
}

func TestWorkingMemory_EvictsLeastRecentlyUsedWithinSamePriorityTier(t *testing.T) {
	w := NewWorkingMemory(2, 0)

	w.Store("first", []byte("a"), domain.PriorityMedium)
	w.Store("second", []byte("b"), domain.PriorityMedium)

	_, ok := w.Retrieve("first") // refresh first's LastAccessAt so second becomes the LRU victim
	require.True(t, ok)

	w.Store("third", []byte("c"), domain.PriorityMedium)

	_, ok = w.Retrieve("second")
	assert.False(t, ok, "second should have been evicted as the least-recently-used slot")
	_, ok = w.Retrieve("first")
	assert.True(t, ok)
	_, ok = w.Retrieve("third")
	assert.True(t, ok)
}

func TestWorkingMemory_StoreOnExistingKeyReplacesWithoutDoubleCountingBytes(t *testing.T) {
	w := NewWorkingMemory(0, 100)

	w.Store("k", []byte("short"), domain.PriorityMedium)
	w.Store("k", []byte("a-longer-value"), domain.PriorityMedium)

	stats := w.Statistics()
	assert.Equal(t, 1, stats.CurrentItems)
	assert.Equal(t, len("a-longer-value"), stats.CurrentBytes)
}

func TestWorkingMemory_Statistics_CountsPerPriority(t *testing.T) {
	w := NewWorkingMemory(0, 0)

	w.Store("a", []byte("1"), domain.PriorityHigh)
	w.Store("b", []byte("2"), domain.PriorityHigh)
	w.Store("c", []byte("3"), domain.PriorityLow)

	stats := w.Statistics()
	assert.Equal(t, 2, stats.PerPriorityCounts[domain.PriorityHigh])
	assert.Equal(t, 1, stats.PerPriorityCounts[domain.PriorityLow])
	assert.Equal(t, 3, stats.TotalInsertions)
}
