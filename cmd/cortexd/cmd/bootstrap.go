package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cortexmind/cortexd/internal/analysis"
	"github.com/cortexmind/cortexd/internal/cognitive"
	"github.com/cortexmind/cortexd/internal/config"
	"github.com/cortexmind/cortexd/internal/embed"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/logging"
	"github.com/cortexmind/cortexd/internal/notify"
	"github.com/cortexmind/cortexd/internal/session"
	"github.com/cortexmind/cortexd/internal/storage"
	"github.com/cortexmind/cortexd/internal/textindex"
	"github.com/cortexmind/cortexd/internal/vectorindex"
	"github.com/cortexmind/cortexd/internal/vfs"
)

// Engine wires every core subsystem into the set of collaborators a CLI
// command needs, keyed to a single workspace namespace. Commands build
// one, use what they need, and Close it before exiting.
type Engine struct {
	Config *config.Config

	Storage  *storage.Store
	VFS      *vfs.VFS
	Pipeline *analysis.Pipeline
	Graph    *analysis.Store
	Memory   *cognitive.Manager

	Vectors  vectorindex.VectorIndex
	Keywords textindex.Index
	Embedder embed.Embedder

	Locks    *session.LockManager
	Notifier notify.Publisher

	Logger *slog.Logger

	loggingCleanup func()
}

// buildEngine loads configuration rooted at dir, opens the namespace's
// storage, and wires the VFS, analysis, vector/keyword indexes, and
// cognitive memory manager on top of it.
func buildEngine(dir, namespace string, debug bool) (*Engine, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := logging.DefaultConfig()
	if debug {
		logCfg = logging.DebugConfig()
	}
	logger, loggingCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	slog.SetDefault(logger)

	connTimeout, err := time.ParseDuration(cfg.Storage.ConnTimeout)
	if err != nil {
		loggingCleanup()
		return nil, fmt.Errorf("parse storage.conn_timeout: %w", err)
	}

	store, err := storage.Open(storage.Config{
		Driver:         storage.Driver(cfg.Storage.Driver),
		DataDir:        cfg.Storage.DataDir,
		Namespace:      namespace,
		MinConnections: cfg.Storage.MinConnections,
		MaxConnections: cfg.Storage.MaxConnections,
		ConnTimeout:    connTimeout,
	})
	if err != nil {
		loggingCleanup()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	pipeline := analysis.NewPipeline(store)
	graphStore := analysis.NewStore(store)

	embedder := embed.NewDefaultEmbedder()

	vectors, err := buildVectorIndex(context.Background(), store, cfg)
	if err != nil {
		store.Close()
		loggingCleanup()
		return nil, fmt.Errorf("build vector index: %w", err)
	}

	keywordPath := filepath.Join(cfg.Storage.DataDir, "bleve", namespace)
	keywords, err := textindex.NewBleveIndex(keywordPath)
	if err != nil {
		store.Close()
		loggingCleanup()
		return nil, fmt.Errorf("open keyword index: %w", err)
	}

	vfsStore, err := vfs.New(store, vfs.WithReparseFunc(pipeline.ReparseHook()))
	if err != nil {
		keywords.Close()
		store.Close()
		loggingCleanup()
		return nil, fmt.Errorf("construct vfs: %w", err)
	}

	semantic := cognitive.NewSemanticMemory(graphStore, vectors)
	episodic := cognitive.NewEpisodicStore(store)
	working := cognitive.NewWorkingMemory(cfg.Cognitive.WorkingMaxItems, int(cfg.Cognitive.WorkingMaxBytes))
	procedural := cognitive.NewProceduralStore(store)
	relevance := cognitive.NewEpisodeRelevance(vectors, embedder, keywords)
	retriever := cognitive.NewRetriever(episodic, relevance)
	memory := cognitive.NewManager(episodic, semantic, working, procedural, retriever)

	return &Engine{
		Config:         cfg,
		Storage:        store,
		VFS:            vfsStore,
		Pipeline:       pipeline,
		Graph:          graphStore,
		Memory:         memory,
		Vectors:        vectors,
		Keywords:       keywords,
		Embedder:       embedder,
		Locks:          session.NewLockManager(),
		Notifier:       notify.NoopPublisher{},
		Logger:         logger,
		loggingCleanup: loggingCleanup,
	}, nil
}

// buildVectorIndex always builds the in-memory HNSW index. When the
// namespace was opened with the CGO sqlite-vec driver, it additionally
// builds a SQLiteVecIndex and wraps both in a HybridVectorStore under
// the configured migration mode, so a deployment can migrate off the
// in-memory index without a cutover. The pure-Go modernc driver cannot
// load the sqlite-vec extension, so single_store-on-HNSW is the only
// option available to it.
func buildVectorIndex(ctx context.Context, store *storage.Store, cfg *config.Config) (vectorindex.VectorIndex, error) {
	hnsw := vectorindex.NewHNSWIndex(vectorindex.HNSWConfig{
		Dimension: cfg.Vector.Dimension,
		Metric:    "cos",
	})

	if storage.Driver(cfg.Storage.Driver) != storage.DriverMattn {
		return hnsw, nil
	}

	sqliteVec, err := vectorindex.NewSQLiteVecIndex(ctx, store.DB(), vectorindex.SQLiteVecConfig{
		Dimension: cfg.Vector.Dimension,
		Metric:    "cosine",
	})
	if err != nil {
		return nil, err
	}

	return vectorindex.NewHybridVectorStore(hnsw, sqliteVec, migrationModeFromString(cfg.Vector.Mode)), nil
}

func migrationModeFromString(mode string) vectorindex.MigrationMode {
	switch mode {
	case "dual_write":
		return vectorindex.DualWrite
	case "dual_verify":
		return vectorindex.DualVerify
	case "new_primary":
		return vectorindex.NewPrimary
	default:
		return vectorindex.SingleStore
	}
}

// Close releases every collaborator the engine opened, continuing past
// individual errors so a failure closing one does not strand the rest.
func (e *Engine) Close() error {
	var errs []error
	if e.Keywords != nil {
		if err := e.Keywords.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.Embedder != nil {
		if err := e.Embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.Pipeline != nil {
		e.Pipeline.Close()
	}
	if e.Storage != nil {
		if err := e.Storage.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.loggingCleanup != nil {
		e.loggingCleanup()
	}
	if len(errs) > 0 {
		return fmt.Errorf("engine close: %v", errs)
	}
	return nil
}

// namespaceFor derives a storage namespace from a workspace root path,
// stable across invocations so repeated commands reopen the same
// database rather than creating a fresh one each time.
func namespaceFor(root string) string {
	return filepath.Base(root) + "-" + shortHash(root)
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

// workspaceIDFor derives the workspace Id every core subsystem call
// keys on, deterministically from the project root so successive CLI
// invocations against the same directory resolve to the same
// workspace without a separate id-lookup file.
func workspaceIDFor(root string) ids.Id {
	return ids.Deterministic(root)
}
