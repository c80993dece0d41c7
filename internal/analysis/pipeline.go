package analysis

import (
	"context"
	"database/sql"
	"time"

	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/storage"
	"github.com/cortexmind/cortexd/internal/vfs"
	"github.com/cortexmind/cortexd/internal/vpath"
)

// Pipeline ties the virtual filesystem's reparse hook to the parser,
// extractor and unit store, so writing a file through vfs.VFS keeps its
// code units and dependency edges current. It also drives a checkpointed
// bulk ingestion pass over a workspace's existing tree.
type Pipeline struct {
	parser    *Parser
	extractor *Extractor
	store     *Store
	raw       *storage.Store
}

// NewPipeline wires a Parser, Extractor and Store into one ingestion path.
func NewPipeline(store *storage.Store) *Pipeline {
	return &Pipeline{
		parser:    NewParser(),
		extractor: NewExtractor(),
		store:     NewStore(store),
		raw:       store,
	}
}

// Close releases the parser's tree-sitter resources.
func (p *Pipeline) Close() { p.parser.Close() }

// ReparseHook returns a vfs.ReparseFunc suitable for vfs.WithReparseFunc,
// reparsing and re-persisting a single file's units and edges whenever
// it changes.
func (p *Pipeline) ReparseHook() vfs.ReparseFunc {
	return func(ctx context.Context, workspaceID ids.Id, path vpath.Path, content []byte) error {
		lang, ok := DefaultRegistry().ByExtension(path.Extension())
		if !ok {
			return nil
		}
		return p.IngestFile(ctx, workspaceID, path, content, lang)
	}
}

// IngestFile parses a single file's content and persists its extracted
// units and edges, replacing whatever was previously recorded for that
// path. Files in an unrecognized language are skipped rather than
// treated as an error, since not every vnode is source code.
func (p *Pipeline) IngestFile(ctx context.Context, workspaceID ids.Id, path vpath.Path, content []byte, lang domain.Language) error {
	if _, ok := DefaultRegistry().ByLanguage(lang); !ok {
		return nil
	}
	tree, err := p.parser.Parse(ctx, content, lang)
	if err != nil {
		return err
	}
	result := p.extractor.Extract(tree, path.String(), "")
	return p.store.SaveUnits(ctx, workspaceID, path.String(), result.Units, result.Edges)
}

// IngestSummary reports the outcome of a bulk ingestion pass.
type IngestSummary struct {
	TotalFiles     int
	ProcessedFiles int
	SkippedFiles   int
	FailedFiles    []string
}

// IngestWorkspace walks every active source file of a workspace through
// IngestFile, recording resumable progress in the ingest_checkpoint
// table so a crash or restart can continue rather than reprocess files
// already embedded. The checkpoint is keyed by file count: if the tree
// has changed shape since a previous partial run, ingestion restarts
// from the beginning rather than risk skipping new files.
func (p *Pipeline) IngestWorkspace(ctx context.Context, v *vfs.VFS, workspaceID ids.Id) (IngestSummary, error) {
	entries, err := v.ListDirectory(ctx, workspaceID, vpath.Root, true)
	if err != nil {
		return IngestSummary{}, err
	}

	var files []domain.VNode
	for _, entry := range entries {
		if !entry.IsFile() {
			continue
		}
		path, err := vpath.Parse(entry.Path)
		if err != nil {
			continue
		}
		if _, ok := DefaultRegistry().ByExtension(path.Extension()); ok {
			files = append(files, entry)
		}
	}

	checkpoint, err := p.loadCheckpoint(ctx, workspaceID)
	if err != nil {
		return IngestSummary{}, err
	}
	if checkpoint.TotalUnits != len(files) {
		checkpoint = ingestCheckpoint{WorkspaceID: workspaceID, Stage: "parsing", TotalUnits: len(files)}
	}

	summary := IngestSummary{TotalFiles: len(files), SkippedFiles: checkpoint.EmbeddedUnits}

	for i := checkpoint.EmbeddedUnits; i < len(files); i++ {
		file := files[i]
		path, err := vpath.Parse(file.Path)
		if err != nil {
			summary.FailedFiles = append(summary.FailedFiles, file.Path)
			continue
		}
		content, err := v.ReadFile(ctx, workspaceID, path)
		if err != nil {
			summary.FailedFiles = append(summary.FailedFiles, file.Path)
			continue
		}
		if err := p.IngestFile(ctx, workspaceID, path, content, file.Language); err != nil {
			summary.FailedFiles = append(summary.FailedFiles, file.Path)
			continue
		}
		summary.ProcessedFiles++
		checkpoint.EmbeddedUnits = i + 1
		if err := p.saveCheckpoint(ctx, checkpoint); err != nil {
			return summary, err
		}
	}

	checkpoint.Stage = "complete"
	if err := p.saveCheckpoint(ctx, checkpoint); err != nil {
		return summary, err
	}
	return summary, nil
}

type ingestCheckpoint struct {
	WorkspaceID   ids.Id
	Stage         string
	TotalUnits    int
	EmbeddedUnits int
}

func (p *Pipeline) loadCheckpoint(ctx context.Context, workspaceID ids.Id) (ingestCheckpoint, error) {
	var c ingestCheckpoint
	c.WorkspaceID = workspaceID
	row := p.raw.DB().QueryRowContext(ctx,
		`SELECT stage, total_units, embedded_units FROM ingest_checkpoint WHERE workspace_id = ?`,
		workspaceID.String())
	err := row.Scan(&c.Stage, &c.TotalUnits, &c.EmbeddedUnits)
	if err == sql.ErrNoRows {
		return c, nil
	}
	if err != nil {
		return c, cerrors.Wrap(cerrors.KindStorage, "load ingest checkpoint", err)
	}
	return c, nil
}

func (p *Pipeline) saveCheckpoint(ctx context.Context, c ingestCheckpoint) error {
	_, err := p.raw.DB().ExecContext(ctx,
		`INSERT INTO ingest_checkpoint (workspace_id, stage, total_units, embedded_units, updated_at)
		 VALUES (?,?,?,?,?)
		 ON CONFLICT(workspace_id) DO UPDATE SET
		   stage = excluded.stage, total_units = excluded.total_units,
		   embedded_units = excluded.embedded_units, updated_at = excluded.updated_at`,
		c.WorkspaceID.String(), c.Stage, c.TotalUnits, c.EmbeddedUnits, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "save ingest checkpoint", err)
	}
	return nil
}
