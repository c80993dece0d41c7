package ui

import (
	"fmt"
	"io"
	"sync"
)

// PlainRenderer prints a Snapshot as plain text, for CI and piped output.
type PlainRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPlainRenderer constructs a PlainRenderer writing to cfg.Output.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

// Render implements Renderer.
func (r *PlainRenderer) Render(snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := fmt.Fprintf(r.out,
		"workspace: %s\n"+
			"files: %d  directories: %d  cache hit rate: %.1f%%\n"+
			"code units: %d  edges: %d  cycles: %d\n"+
			"vectors: %d (dim %d)  keyword docs: %d\n"+
			"episodes: %d (%d high-value)  patterns: %d  working slots: %d\n",
		snap.WorkspaceName,
		snap.FileCount, snap.DirectoryCount, snap.CacheHitRate*100,
		snap.CodeUnitCount, snap.EdgeCount, snap.CycleCount,
		snap.VectorCount, snap.VectorDimension, snap.KeywordDocCount,
		snap.EpisodeCount, snap.HighValueEpisodes, snap.PatternCount, snap.WorkingSlotCount,
	)
	return err
}

// Close implements Renderer; plain output owns no resources.
func (r *PlainRenderer) Close() error { return nil }
