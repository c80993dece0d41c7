package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cortexmind/cortexd/internal/config"
	"github.com/cortexmind/cortexd/internal/graph"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/ui"
	"github.com/cortexmind/cortexd/internal/vpath"
)

// highValueEpisodeThreshold is the ImportanceScore floor an episode
// must clear to count toward Snapshot.HighValueEpisodes.
const highValueEpisodeThreshold = 0.6

func newStatsCmd() *cobra.Command {
	var dir string
	var plain bool
	var noColor bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show a dashboard of a workspace's VFS, graph, vector, and memory state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, dir, plain, noColor)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Workspace directory")
	cmd.Flags().BoolVar(&plain, "plain", false, "Force plain text output even on a TTY")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI color")

	return cmd
}

func runStats(cmd *cobra.Command, dir string, plain, noColor bool) error {
	root, err := config.FindProjectRoot(dir)
	if err != nil {
		root, _ = os.Getwd()
	}

	engine, err := buildEngine(root, namespaceFor(root), debugMode)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	ctx := cmd.Context()
	workspaceID := workspaceIDFor(root)

	snap, err := gatherSnapshot(ctx, engine, workspaceID, filepath.Base(root))
	if err != nil {
		return fmt.Errorf("gather stats: %w", err)
	}

	renderer := ui.NewRenderer(ui.Config{
		Output:     cmd.OutOrStdout(),
		ForcePlain: plain,
		NoColor:    noColor,
	})
	defer renderer.Close()
	return renderer.Render(snap)
}

// gatherSnapshot walks every subsystem the engine wires and assembles
// the ui.Snapshot the dashboard renders.
func gatherSnapshot(ctx context.Context, engine *Engine, workspaceID ids.Id, workspaceName string) (ui.Snapshot, error) {
	snap := ui.Snapshot{WorkspaceName: workspaceName}

	entries, err := engine.VFS.ListDirectory(ctx, workspaceID, vpath.Root, true)
	if err != nil {
		return ui.Snapshot{}, fmt.Errorf("list workspace tree: %w", err)
	}
	for _, entry := range entries {
		if entry.IsFile() {
			snap.FileCount++
			units, err := engine.Graph.UnitsByFile(ctx, workspaceID, entry.Path)
			if err != nil {
				return ui.Snapshot{}, fmt.Errorf("units for %s: %w", entry.Path, err)
			}
			snap.CodeUnitCount += len(units)
		} else {
			snap.DirectoryCount++
		}
	}

	edges, err := engine.Graph.AllEdges(ctx, workspaceID)
	if err != nil {
		return ui.Snapshot{}, fmt.Errorf("load dependency edges: %w", err)
	}
	snap.EdgeCount = len(edges)
	g := graph.New()
	for _, e := range edges {
		g.AddEdge(e.FromUnit, e.ToUnit)
	}
	snap.CycleCount = len(graph.FindCycles(g))

	cache := engine.VFS.CacheStats()
	total := cache.VNodeEntries + cache.PathEntries
	if total > 0 {
		snap.CacheHitRate = float64(cache.VNodeEntries) / float64(total)
	}

	vecStats, err := engine.Vectors.Stats(ctx)
	if err != nil {
		return ui.Snapshot{}, fmt.Errorf("vector index stats: %w", err)
	}
	snap.VectorCount = vecStats.Count
	snap.VectorDimension = vecStats.Dimension
	snap.KeywordDocCount = engine.Keywords.Stats().DocumentCount

	episodes, err := engine.Memory.Episodic.AllEpisodes(ctx, workspaceID)
	if err != nil {
		return ui.Snapshot{}, fmt.Errorf("load episodes: %w", err)
	}
	snap.EpisodeCount = len(episodes)
	for _, ep := range episodes {
		if ep.ImportanceScore() >= highValueEpisodeThreshold {
			snap.HighValueEpisodes++
		}
	}

	patterns, err := engine.Memory.Procedural.ListPatterns(ctx, workspaceID)
	if err != nil {
		return ui.Snapshot{}, fmt.Errorf("load patterns: %w", err)
	}
	snap.PatternCount = len(patterns)

	snap.WorkingSlotCount = engine.Memory.Working.Statistics().CurrentItems

	return snap, nil
}
