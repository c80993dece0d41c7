package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cortexmind/cortexd/internal/config"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/textindex"
	"github.com/cortexmind/cortexd/internal/vfs"
	"github.com/cortexmind/cortexd/internal/vpath"
)

// ignoredDirs are never walked into when syncing a tree into the VFS.
var ignoredDirs = map[string]bool{
	".git":         true,
	".cortexd":     true,
	"node_modules": true,
	"vendor":       true,
}

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Parse a workspace's source tree into the dependency graph and semantic index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args)
		},
	}
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	startDir := "."
	if len(args) > 0 {
		startDir = args[0]
	}
	root, err := config.FindProjectRoot(startDir)
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

	loaded, err := loadTreeIntoVFS(ctx, engine.VFS, workspaceID, root)
	if err != nil {
		return fmt.Errorf("load workspace tree: %w", err)
	}

	summary, err := engine.Pipeline.IngestWorkspace(ctx, engine.VFS, workspaceID)
	if err != nil {
		return fmt.Errorf("ingest workspace: %w", err)
	}

	indexed, err := indexUnitsForSemanticSearch(ctx, engine, workspaceID)
	if err != nil {
		return fmt.Errorf("index code units: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ingested %s\n", root)
	fmt.Fprintf(out, "  files loaded into vfs: %d\n", loaded)
	fmt.Fprintf(out, "  files: %d total, %d processed, %d skipped, %d failed\n",
		summary.TotalFiles, summary.ProcessedFiles, summary.SkippedFiles, len(summary.FailedFiles))
	fmt.Fprintf(out, "  code units indexed for semantic search: %d\n", indexed)
	for _, f := range summary.FailedFiles {
		fmt.Fprintf(out, "  failed: %s\n", f)
	}
	return nil
}

// loadTreeIntoVFS walks root on the host filesystem and writes every
// regular file into the workspace's virtual filesystem, skipping
// version-control and dependency directories, so the ingestion pipeline
// and the MCP tools that follow operate on VFS content rather than the
// host filesystem directly.
func loadTreeIntoVFS(ctx context.Context, v *vfs.VFS, workspaceID ids.Id, root string) (int, error) {
	loaded := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		vpathStr := "/" + filepath.ToSlash(rel)
		parsed, err := vpath.Parse(vpathStr)
		if err != nil {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		if _, err := v.WriteFile(ctx, workspaceID, parsed, content, vfs.WriteOptions{CreateParents: true}); err != nil {
			return err
		}
		loaded++
		return nil
	})
	return loaded, err
}

// indexUnitsForSemanticSearch walks the workspace's already-ingested
// files, embeds each code unit's signature and docstring, and inserts
// it into both the vector and keyword indexes so semantic_search can
// find it.
func indexUnitsForSemanticSearch(ctx context.Context, engine *Engine, workspaceID ids.Id) (int, error) {
	entries, err := engine.VFS.ListDirectory(ctx, workspaceID, vpath.Root, true)
	if err != nil {
		return 0, err
	}

	var docs []textindex.Document
	indexed := 0
	for _, entry := range entries {
		if !entry.IsFile() {
			continue
		}
		units, err := engine.Graph.UnitsByFile(ctx, workspaceID, entry.Path)
		if err != nil {
			return indexed, err
		}
		for _, unit := range units {
			text := unitSearchText(unit)
			vec, err := engine.Embedder.Embed(ctx, text)
			if err != nil {
				return indexed, err
			}
			unit.Embedding = vec
			unit.EmbeddingModel = engine.Embedder.ModelName()
			if _, err := engine.Memory.Semantic.RememberUnit(ctx, workspaceID, unit); err != nil {
				return indexed, err
			}
			docs = append(docs, textindex.Document{ID: unit.ID.String(), Content: text})
			indexed++
		}
	}

	if len(docs) > 0 {
		if err := engine.Keywords.Index(ctx, docs); err != nil {
			return indexed, err
		}
	}
	return indexed, nil
}

func unitSearchText(unit domain.CodeUnit) string {
	parts := []string{unit.QualifiedName, unit.Signature}
	if unit.Docstring != "" {
		parts = append(parts, unit.Docstring)
	}
	return strings.Join(parts, "\n")
}
