package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmind/cortexd/internal/domain"
)

func TestHalsteadStats_ZeroVocabularyYieldsZeroVolume(t *testing.T) {
	var s HalsteadStats
	assert.Equal(t, 0.0, s.Volume())
	assert.Equal(t, 0.0, s.Difficulty())
	assert.Equal(t, 0.0, s.Effort())
	assert.Equal(t, 0.0, s.Bugs())
}

func TestHalsteadStats_KnownValuesMatchFormulas(t *testing.T) {
	s := HalsteadStats{UniqueOperators: 3, Operators: 10, UniqueOperands: 4, Operands: 8}
	assert.Equal(t, 18.0, s.Length())
	assert.Equal(t, 7.0, s.Vocabulary())
	assert.InDelta(t, 18.0*2.807355, s.Volume(), 0.001)
	assert.InDelta(t, 3.0, s.Difficulty(), 0.0001)
	assert.InDelta(t, s.Difficulty()*s.Volume(), s.Effort(), 0.0001)
	assert.InDelta(t, s.Effort()/18.0, s.Time(), 0.0001)
}

func TestHalsteadCollector_ClassifiesIdentifiersAsOperandsAndKeywordsAsOperators(t *testing.T) {
	p := NewParser()
	defer p.Close()
	src := []byte("package main\nfunc add(a, b int) int {\n\treturn a + b\n}\n")
	tree, err := p.Parse(context.Background(), src, domain.LanguageGo)
	require.NoError(t, err)

	c := NewHalsteadCollector()
	c.Collect(tree.Root, tree.Source)
	stats := c.Finalize()

	assert.Greater(t, stats.UniqueOperators, uint64(0))
	assert.Greater(t, stats.UniqueOperands, uint64(0))
	assert.GreaterOrEqual(t, stats.Operands, stats.UniqueOperands)
}

func TestHalsteadCollector_MostFrequentOperandsRespectsLimit(t *testing.T) {
	c := NewHalsteadCollector()
	c.operands = map[string]uint64{"a": 5, "b": 3, "c": 9, "d": 1}
	top := c.MostFrequentOperands(2)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].Key)
	assert.Equal(t, "a", top[1].Key)
}
