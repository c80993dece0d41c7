// Package storage provides the engine's durable record store: a
// connection-pooled SQLite database, one per workspace namespace, guarded
// by an exclusive process-level file lock so a single writer owns a
// namespace at a time.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/cortexmind/cortexd/internal/cerrors"
)

// Driver selects the SQL driver backing a Store.
type Driver string

const (
	// DriverModernC is the pure-Go, CGO-free driver. Default.
	DriverModernC Driver = "modernc"
	// DriverMattn is the CGO driver, required when loading the
	// sqlite-vec extension (see internal/vectorindex).
	DriverMattn Driver = "mattn"
)

func (d Driver) sqlDriverName() string {
	if d == DriverMattn {
		return "sqlite3"
	}
	return "sqlite"
}

// Config configures a Store.
type Config struct {
	Driver         Driver
	DataDir        string
	Namespace      string // workspace namespace; determines the db file name
	MinConnections int
	MaxConnections int
	ConnTimeout    time.Duration
}

// Store owns a single workspace namespace's SQLite database plus an
// exclusive file lock preventing a second process from opening the same
// namespace concurrently, per the one-writer-per-namespace invariant.
type Store struct {
	db     *sql.DB
	lock   *flock.Flock
	path   string
	cfg    Config
	driver Driver
}

// Open acquires the namespace lock, opens (creating if absent) the
// namespace's SQLite database in WAL mode, and returns a ready Store.
// Open fails with cerrors.KindConflict if another process already holds
// the namespace lock.
func Open(cfg Config) (*Store, error) {
	if cfg.Namespace == "" {
		return nil, cerrors.InvalidInput("storage: namespace must not be empty")
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 8
	}
	if cfg.MinConnections <= 0 {
		cfg.MinConnections = 1
	}
	if cfg.ConnTimeout <= 0 {
		cfg.ConnTimeout = 5 * time.Second
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernC
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "create data directory", err)
	}

	dbPath := filepath.Join(cfg.DataDir, cfg.Namespace+".db")
	lockPath := filepath.Join(cfg.DataDir, cfg.Namespace+".lock")

	lock := flock.New(lockPath)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "acquire namespace lock", err)
	}
	if !acquired {
		return nil, cerrors.Conflict(fmt.Sprintf("storage: namespace %q is locked by another process", cfg.Namespace))
	}

	dsn := dbPath
	if cfg.Driver == DriverModernC {
		dsn = dbPath + "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open(cfg.Driver.sqlDriverName(), dsn)
	if err != nil {
		_ = lock.Unlock()
		return nil, cerrors.Wrap(cerrors.KindStorage, "open database", err)
	}

	// A single-writer SQLite database tolerates at most one open
	// connection safely under WAL; bound the pool to the configured max
	// for read concurrency but serialize writes at the call site.
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MinConnections)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, cerrors.Wrap(cerrors.KindStorage, "set pragma: "+p, err)
		}
	}

	s := &Store{db: db, lock: lock, path: dbPath, cfg: cfg, driver: cfg.Driver}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return s, nil
}

// DB returns the underlying *sql.DB for subsystems (vfs, cognitive,
// vectorindex) that need direct query access within this namespace.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the SQLite file backing this store.
func (s *Store) Path() string { return s.path }

// Driver returns the SQL driver in use, relevant to callers (e.g.
// vectorindex) that need the CGO driver for extension loading.
func (s *Store) Driver() Driver { return s.driver }

// Close releases the namespace lock and closes the database.
func (s *Store) Close() error {
	dbErr := s.db.Close()
	lockErr := s.lock.Unlock()
	if dbErr != nil {
		return cerrors.Wrap(cerrors.KindStorage, "close database", dbErr)
	}
	if lockErr != nil {
		return cerrors.Wrap(cerrors.KindStorage, "release namespace lock", lockErr)
	}
	return nil
}

// Acquire waits for a connection from the pool, honoring ctx
// cancellation and the configured connection timeout.
func (s *Store) Acquire(ctx context.Context) (*sql.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConnTimeout)
	defer cancel()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cerrors.New(cerrors.KindTimeout, "storage: acquire connection timed out")
		}
		return nil, cerrors.Wrap(cerrors.KindStorage, "acquire connection", err)
	}
	return conn, nil
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back if fn returns an error or panics.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "commit transaction", err)
	}
	return nil
}
