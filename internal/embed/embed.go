// Package embed turns code units and memory text into dense vectors for
// internal/vectorindex. It ships one real implementation, a
// deterministic hash-based embedder, since no live model is wired in
// this deployment; the interface and caching wrapper are kept general
// so a future network-backed provider slots in without touching
// callers.
package embed

import (
	"context"
	"math"
)

const (
	// Dimensions is the width of every vector this package produces.
	// Callers configuring internal/vectorindex must use the same value.
	Dimensions = 256
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Available(ctx context.Context) bool
	Close() error
}

func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
