package vfs

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/vpath"
)

// getVNode resolves path to its active vnode, consulting caches first.
// The root path is implicit: it is never stored as a row, so it always
// resolves to a synthetic directory rather than KindNotFound.
func (v *VFS) getVNode(ctx context.Context, workspaceID ids.Id, path vpath.Path) (domain.VNode, error) {
	if path.IsRoot() {
		return rootVNode(workspaceID), nil
	}

	key := pathKey{workspaceID, path.String()}
	if id, ok := v.pathCache.Load(key); ok {
		if node, ok := v.vnodeCache.Load(id); ok {
			return node, nil
		}
	}

	row := v.store.DB().QueryRowContext(ctx,
		`SELECT id, workspace_id, path, kind, content_hash, size_bytes, read_only,
		        language, status, metadata, created_at, updated_at, version
		 FROM vnode WHERE workspace_id = ? AND path = ? AND status = 'ACTIVE'`,
		workspaceID.String(), path.String())

	node, err := scanVNodeRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.VNode{}, cerrors.NotFound("vfs: no such path: " + path.String())
		}
		return domain.VNode{}, err
	}

	v.vnodeCache.Store(node.ID, node)
	v.pathCache.Store(key, node.ID)
	return node, nil
}

// rootVNode is the synthetic always-present directory vnode for "/" in
// workspaceID. It is never persisted and carries a nil ID since nothing
// addresses the root by id.
func rootVNode(workspaceID ids.Id) domain.VNode {
	return domain.VNode{
		WorkspaceID: workspaceID,
		Path:        vpath.Root.String(),
		Kind:        domain.VNodeDirectory,
		Status:      domain.VNodeActive,
		Metadata:    map[string]any{},
	}
}

func scanVNodeRow(row *sql.Row) (domain.VNode, error) {
	var n domain.VNode
	var idStr, wsStr string
	var contentHash, language sql.NullString
	var metadataJSON sql.NullString
	var createdAt, updatedAt string
	var readOnly int

	if err := row.Scan(&idStr, &wsStr, &n.Path, &n.Kind, &contentHash, &n.SizeBytes,
		&readOnly, &language, &n.Status, &metadataJSON, &createdAt, &updatedAt, &n.Version); err != nil {
		return domain.VNode{}, err
	}

	id, err := ids.Parse(idStr)
	if err != nil {
		return domain.VNode{}, cerrors.Wrap(cerrors.KindStorage, "parse vnode id", err)
	}
	ws, err := ids.Parse(wsStr)
	if err != nil {
		return domain.VNode{}, cerrors.Wrap(cerrors.KindStorage, "parse workspace id", err)
	}
	n.ID = id
	n.WorkspaceID = ws
	n.ContentHash = contentHash.String
	n.Language = domain.Language(language.String)
	n.ReadOnly = readOnly != 0
	n.Metadata = map[string]any{}
	if metadataJSON.Valid && metadataJSON.String != "" {
		_ = json.Unmarshal([]byte(metadataJSON.String), &n.Metadata)
	}
	n.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	n.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return n, nil
}

// saveVNode upserts the vnode record by id.
func (v *VFS) saveVNode(ctx context.Context, node domain.VNode) error {
	metadataJSON, err := json.Marshal(node.Metadata)
	if err != nil {
		return cerrors.Wrap(cerrors.KindInternal, "marshal vnode metadata", err)
	}

	readOnly := 0
	if node.ReadOnly {
		readOnly = 1
	}

	_, err = v.store.DB().ExecContext(ctx,
		`INSERT INTO vnode (id, workspace_id, path, kind, content_hash, size_bytes, read_only,
		                     language, status, metadata, created_at, updated_at, version)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   content_hash = excluded.content_hash,
		   size_bytes = excluded.size_bytes,
		   read_only = excluded.read_only,
		   language = excluded.language,
		   status = excluded.status,
		   metadata = excluded.metadata,
		   updated_at = excluded.updated_at,
		   version = excluded.version`,
		node.ID.String(), node.WorkspaceID.String(), node.Path, string(node.Kind),
		nullableString(node.ContentHash), node.SizeBytes, readOnly, string(node.Language),
		string(node.Status), string(metadataJSON),
		node.CreatedAt.Format(time.RFC3339Nano), node.UpdatedAt.Format(time.RFC3339Nano), node.Version)
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "save vnode", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// markDeleted tombstones a vnode in place.
func (v *VFS) markDeleted(ctx context.Context, id ids.Id) error {
	_, err := v.store.DB().ExecContext(ctx,
		`UPDATE vnode SET status = 'DELETED', updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id.String())
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "mark vnode deleted", err)
	}
	return nil
}

// storeContent performs the atomic, race-free dedup upsert: insert a new
// file_content row with reference_count=1, or increment the existing
// row's reference_count by one, all within a single statement so no
// check-then-update race window exists between concurrent writers of
// identical content.
func (v *VFS) storeContent(ctx context.Context, hash string, data []byte) error {
	if _, ok := v.content.Get(hash); ok {
		return v.bumpRefcountOnly(ctx, hash, data)
	}

	if err := v.upsertContent(ctx, hash, data); err != nil {
		return err
	}

	v.cacheContent(hash, data)
	return nil
}

// upsertContent performs the atomic insert-or-bump upsert against
// file_content for hash, inserting a fresh row with reference_count=1 or
// incrementing an existing row's count by one.
func (v *VFS) upsertContent(ctx context.Context, hash string, data []byte) error {
	text, isText := asText(data)
	lineCount := countLines(data)

	_, err := v.store.DB().ExecContext(ctx,
		`INSERT INTO file_content (content_hash, content, content_binary, is_text, size_bytes, line_count, reference_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?)
		 ON CONFLICT(content_hash) DO UPDATE SET reference_count = reference_count + 1`,
		hash, nullableString(text), nullableBytes(isText, data), boolToInt(isText),
		len(data), lineCount, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "store content", err)
	}
	return nil
}

// bumpRefcountOnly increments reference_count for content already known
// to exist (cache hit path), via a single atomic UPDATE. A concurrent
// decrementRefcount can delete the row between the cache check and this
// UPDATE, in which case the UPDATE affects zero rows; fall back to the
// full upsert so the row (and this reference to it) is recreated rather
// than silently lost. data may be nil when the caller (e.g. ForkWorkspace)
// only has the hash on hand; the in-memory content cache is consulted
// instead, and the fallback fails if neither source has the bytes.
func (v *VFS) bumpRefcountOnly(ctx context.Context, hash string, data []byte) error {
	res, err := v.store.DB().ExecContext(ctx,
		`UPDATE file_content SET reference_count = reference_count + 1 WHERE content_hash = ?`, hash)
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "increment content refcount", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "increment content refcount", err)
	}
	if affected > 0 {
		return nil
	}

	if data == nil {
		if cached, ok := v.content.Get(hash); ok {
			data = cached
		} else {
			return cerrors.Internal("vfs: content record missing for hash " + hash)
		}
	}
	if err := v.upsertContent(ctx, hash, data); err != nil {
		return err
	}
	v.cacheContent(hash, data)
	return nil
}

// decrementRefcount decrements a content record's reference count,
// deleting it once it reaches zero.
func (v *VFS) decrementRefcount(ctx context.Context, hash string) error {
	_, err := v.store.DB().ExecContext(ctx,
		`UPDATE file_content SET reference_count = reference_count - 1 WHERE content_hash = ? AND reference_count > 0`, hash)
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "decrement content refcount", err)
	}
	_, err = v.store.DB().ExecContext(ctx,
		`DELETE FROM file_content WHERE content_hash = ? AND reference_count <= 0`, hash)
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "garbage collect content", err)
	}
	v.content.Remove(hash)
	return nil
}

// loadContent returns bytes for hash, serving from cache when present.
func (v *VFS) loadContent(ctx context.Context, hash string) ([]byte, error) {
	if data, ok := v.content.Get(hash); ok {
		return data, nil
	}

	var text sql.NullString
	var binary []byte
	var isText int
	err := v.store.DB().QueryRowContext(ctx,
		`SELECT content, content_binary, is_text FROM file_content WHERE content_hash = ?`, hash).
		Scan(&text, &binary, &isText)
	if err == sql.ErrNoRows {
		return nil, cerrors.Internal("vfs: content record missing for hash " + hash)
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "load content", err)
	}

	var data []byte
	if isText != 0 {
		data = []byte(text.String)
	} else {
		data = binary
	}
	v.cacheContent(hash, data)
	return data, nil
}

func (v *VFS) cacheContent(hash string, data []byte) {
	if int64(len(data)) > v.cacheBytesMax {
		return
	}
	for v.cacheBytesUsed+int64(len(data)) > v.cacheBytesMax && v.content.Len() > 0 {
		if _, _, ok := v.content.RemoveOldest(); !ok {
			break
		}
	}
	v.content.Add(hash, data)
	v.cacheBytesUsed += int64(len(data))
}

func asText(data []byte) (string, bool) {
	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	count := 1
	for _, b := range data {
		if b == '\n' {
			count++
		}
	}
	return count
}

func nullableBytes(isText bool, data []byte) any {
	if isText {
		return nil
	}
	return data
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
