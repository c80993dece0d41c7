// Package ui renders the engine's workspace statistics to a terminal:
// a rich bubbletea dashboard for interactive TTYs, and a plain text
// fallback for pipes, CI, and --no-tui. cmd/cortexd's stats command
// gathers a Snapshot from the core subsystems and hands it to a
// Renderer; this package has no knowledge of how the snapshot was
// produced.
package ui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Snapshot summarizes one workspace's state across the four
// subsystems, as of the moment it was gathered.
type Snapshot struct {
	WorkspaceName string

	FileCount      int
	DirectoryCount int
	CacheHitRate   float64

	CodeUnitCount int
	EdgeCount     int
	CycleCount    int

	VectorCount     int
	VectorDimension int
	KeywordDocCount int

	EpisodeCount      int
	PatternCount      int
	WorkingSlotCount  int
	HighValueEpisodes int
}

// Renderer displays a Snapshot. Render may be called more than once
// (the stats command can poll); Close releases any terminal resources.
type Renderer interface {
	Render(snap Snapshot) error
	Close() error
}

// Config configures which Renderer NewRenderer constructs.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
}

// NewRenderer picks a TUI renderer for interactive terminals and a
// plain text renderer otherwise, falling back to plain on any TUI
// initialization failure.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY reports whether w is a terminal file descriptor.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether NO_COLOR is set in the environment.
func DetectNoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// DetectCI reports whether a common CI environment variable is set.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if _, ok := os.LookupEnv(v); ok {
			return true
		}
	}
	return false
}
