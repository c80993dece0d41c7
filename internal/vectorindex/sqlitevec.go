package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cortexmind/cortexd/internal/cerrors"
)

// SQLiteVecIndex is a VectorIndex backed by the sqlite-vec extension's
// vec0 virtual table. It requires the storage layer to have been opened
// with the mattn/go-sqlite3 CGO driver and the binary built with the
// sqlite_vec build tag (see init_vec.go); opening the virtual table
// against the pure-Go modernc driver fails because the extension never
// loads.
//
// Vectors are passed to SQLite as their JSON array text representation,
// the format sqlite-vec accepts alongside its compact binary encoding,
// so this file has no compile-time dependency on the CGO bindings
// package and stays buildable under every driver.
type SQLiteVecIndex struct {
	db        *sql.DB
	table     string
	dimension int
	metric    string
}

// SQLiteVecConfig configures a SQLiteVecIndex.
type SQLiteVecConfig struct {
	Table     string // vec0 virtual table name, created if absent
	Dimension int
	Metric    string // "cosine" or "l2"; sqlite-vec default distance is L2
}

// NewSQLiteVecIndex creates the backing vec0 virtual table if it does
// not already exist and returns an index bound to it.
func NewSQLiteVecIndex(ctx context.Context, db *sql.DB, cfg SQLiteVecConfig) (*SQLiteVecIndex, error) {
	if cfg.Table == "" {
		cfg.Table = "vec_items"
	}
	if cfg.Metric == "" {
		cfg.Metric = "cosine"
	}
	if cfg.Dimension <= 0 {
		return nil, cerrors.InvalidInput("vectorindex: sqlite-vec index requires a positive dimension")
	}

	distanceMetric := "L2"
	if cfg.Metric == "cosine" {
		distanceMetric = "cosine"
	}

	stmt := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(
			id TEXT PRIMARY KEY,
			embedding FLOAT[%d] distance_metric=%s,
			+metadata TEXT
		)`, cfg.Table, cfg.Dimension, distanceMetric)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "vectorindex: create vec0 virtual table", err)
	}

	return &SQLiteVecIndex{db: db, table: cfg.Table, dimension: cfg.Dimension, metric: cfg.Metric}, nil
}

func vectorToJSON(v Vector) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", cerrors.Wrap(cerrors.KindInternal, "vectorindex: marshal vector", err)
	}
	return string(b), nil
}

func (idx *SQLiteVecIndex) Insert(ctx context.Context, id DocumentID, vec Vector, metadata map[string]string) error {
	return idx.InsertBatch(ctx, map[DocumentID]Entry{id: {Vector: vec, Metadata: metadata}})
}

func (idx *SQLiteVecIndex) InsertBatch(ctx context.Context, items map[DocumentID]Entry) error {
	if len(items) == 0 {
		return nil
	}
	for _, entry := range items {
		if err := validateDimension(len(entry.Vector), idx.dimension); err != nil {
			return err
		}
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "vectorindex: begin insert transaction", err)
	}
	defer tx.Rollback()

	deleteStmt := fmt.Sprintf("DELETE FROM %s WHERE id = ?", idx.table)
	insertStmt := fmt.Sprintf("INSERT INTO %s(id, embedding, metadata) VALUES (?, ?, ?)", idx.table)

	for id, entry := range items {
		payload, err := vectorToJSON(entry.Vector)
		if err != nil {
			return err
		}
		metaPayload, err := metadataToJSON(entry.Metadata)
		if err != nil {
			return err
		}
		// vec0 has no native upsert; replace explicitly so a re-embed of
		// the same ID doesn't accumulate duplicate rows.
		if _, err := tx.ExecContext(ctx, deleteStmt, id); err != nil {
			return cerrors.Wrap(cerrors.KindStorage, "vectorindex: delete stale vector", err)
		}
		if _, err := tx.ExecContext(ctx, insertStmt, id, payload, metaPayload); err != nil {
			return cerrors.Wrap(cerrors.KindStorage, "vectorindex: insert vector", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "vectorindex: commit insert transaction", err)
	}
	return nil
}

func metadataToJSON(metadata map[string]string) (string, error) {
	if len(metadata) == 0 {
		return "", nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return "", cerrors.Wrap(cerrors.KindInternal, "vectorindex: marshal metadata", err)
	}
	return string(b), nil
}

func metadataFromJSON(raw sql.NullString) map[string]string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var metadata map[string]string
	if err := json.Unmarshal([]byte(raw.String), &metadata); err != nil {
		return nil
	}
	return metadata
}

func (idx *SQLiteVecIndex) Search(ctx context.Context, query Vector, k int) ([]SearchResult, error) {
	if err := validateDimension(len(query), idx.dimension); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, cerrors.InvalidInput("vectorindex: k must be positive")
	}

	payload, err := vectorToJSON(query)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(
		`SELECT id, distance, metadata FROM %s WHERE embedding MATCH ? AND k = ? ORDER BY distance`, idx.table)
	rows, err := idx.db.QueryContext(ctx, stmt, payload, k)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindVectorStore, "vectorindex: sqlite-vec search", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var id string
		var distance float64
		var metaRaw sql.NullString
		if err := rows.Scan(&id, &distance, &metaRaw); err != nil {
			return nil, cerrors.Wrap(cerrors.KindVectorStore, "vectorindex: scan search row", err)
		}
		results = append(results, SearchResult{
			ID:       id,
			Distance: float32(distance),
			Score:    distanceToScore(float32(distance), idx.metric),
			Metadata: metadataFromJSON(metaRaw),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.Wrap(cerrors.KindVectorStore, "vectorindex: iterate search rows", err)
	}
	return results, nil
}

// SearchWithFilter behaves like Search, but only returns hits matching
// filter. sqlite-vec's vec0 table has no native predicate pushdown
// over its auxiliary metadata column, so a set filter or score floor
// overfetches candidates and trims back down to k in Go.
func (idx *SQLiteVecIndex) SearchWithFilter(ctx context.Context, query Vector, k int, filter SearchFilter) ([]SearchResult, error) {
	if len(filter.MetadataFilters) == 0 && filter.MinScore == nil {
		return idx.Search(ctx, query, k)
	}
	if k <= 0 {
		return nil, cerrors.InvalidInput("vectorindex: k must be positive")
	}

	candidates, err := idx.Search(ctx, query, k*searchOverfetchFactor)
	if err != nil {
		return nil, err
	}
	return applyFilter(candidates, filter, k), nil
}

func (idx *SQLiteVecIndex) Remove(ctx context.Context, id DocumentID) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = ?", idx.table)
	if _, err := idx.db.ExecContext(ctx, stmt, id); err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "vectorindex: remove vector", err)
	}
	return nil
}

func (idx *SQLiteVecIndex) Len(ctx context.Context) (int, error) {
	stmt := fmt.Sprintf("SELECT count(*) FROM %s", idx.table)
	var n int
	if err := idx.db.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, cerrors.Wrap(cerrors.KindStorage, "vectorindex: count vectors", err)
	}
	return n, nil
}

func (idx *SQLiteVecIndex) Clear(ctx context.Context) error {
	stmt := fmt.Sprintf("DELETE FROM %s", idx.table)
	if _, err := idx.db.ExecContext(ctx, stmt); err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "vectorindex: clear vec0 table", err)
	}
	return nil
}

func (idx *SQLiteVecIndex) Stats(ctx context.Context) (IndexStats, error) {
	n, err := idx.Len(ctx)
	if err != nil {
		return IndexStats{}, err
	}
	return IndexStats{Count: n, Dimension: idx.dimension, Metric: idx.metric}, nil
}

var _ VectorIndex = (*SQLiteVecIndex)(nil)
