// Package vfs implements the content-addressed, deduplicated virtual
// filesystem: every workspace's files live as vnode records pointing at
// hash-addressed content blobs shared across workspaces.
package vfs

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"lukechampine.com/blake3"

	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/storage"
	"github.com/cortexmind/cortexd/internal/vpath"
)

// ReparseFunc is invoked after a write when the caller opts in via
// WriteOptions.Reparse; it is the ingestion pipeline's hook back into code
// analysis. The VFS itself never schedules reparsing.
type ReparseFunc func(ctx context.Context, workspaceID ids.Id, path vpath.Path, content []byte) error

// DefaultContentCacheBytes is the default byte budget for the
// content cache (256 MiB, matching the spec's cache sizing).
const DefaultContentCacheBytes = 256 * 1024 * 1024

// VFS is the virtual filesystem over a single storage.Store. It caches
// vnodes by id, vnode ids by (workspace, path), and file content by hash.
type VFS struct {
	store *storage.Store

	vnodeCache *syncMap[ids.Id, domain.VNode]
	pathCache  *syncMap[pathKey, ids.Id]
	content    *lru.Cache[string, []byte]
	cacheBytesUsed int64
	cacheBytesMax  int64

	reparse ReparseFunc
}

type pathKey struct {
	workspace ids.Id
	path      string
}

// Option configures a VFS at construction time.
type Option func(*VFS)

// WithContentCacheBytes overrides the default 256 MiB content cache budget.
func WithContentCacheBytes(n int64) Option {
	return func(v *VFS) { v.cacheBytesMax = n }
}

// WithReparseFunc registers the hook WriteFile invokes when called with
// WriteOptions{Reparse: true}.
func WithReparseFunc(fn ReparseFunc) Option {
	return func(v *VFS) { v.reparse = fn }
}

// New constructs a VFS backed by store.
func New(store *storage.Store, opts ...Option) (*VFS, error) {
	v := &VFS{
		store:      store,
		vnodeCache: newSyncMap[ids.Id, domain.VNode](),
		pathCache:  newSyncMap[pathKey, ids.Id](),
		cacheBytesMax: DefaultContentCacheBytes,
	}
	for _, opt := range opts {
		opt(v)
	}

	// Item-count bound chosen generously; byte budget is enforced
	// separately via cacheBytesUsed/cacheBytesMax since golang-lru/v2
	// only bounds by entry count.
	cache, err := lru.NewWithEvict[string, []byte](1<<16, v.onContentEvict)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindInternal, "construct content cache", err)
	}
	v.content = cache

	return v, nil
}

func (v *VFS) onContentEvict(_ string, value []byte) {
	v.cacheBytesUsed -= int64(len(value))
}

// WriteOptions configures a WriteFile call.
type WriteOptions struct {
	// ExpectedHash, when non-empty, must match the current vnode's
	// ContentHash or WriteFile fails with cerrors.KindConflict.
	ExpectedHash string
	// CreateParents creates missing intermediate directory vnodes.
	CreateParents bool
	// Reparse triggers the registered ReparseFunc after a successful write.
	Reparse bool
	Language domain.Language
}

// hashContent computes the blake3 hex digest of raw bytes, per spec.md's
// "content hash is blake3 over the raw bytes, rendered as lowercase hex".
func hashContent(data []byte) string {
	sum := blake3.Sum256(data)
	return bytesToHex(sum[:])
}

const hexDigits = "0123456789abcdef"

func bytesToHex(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

// ReadFile returns the raw bytes of the file at path, serving from the
// content cache when possible.
func (v *VFS) ReadFile(ctx context.Context, workspaceID ids.Id, path vpath.Path) ([]byte, error) {
	node, err := v.getVNode(ctx, workspaceID, path)
	if err != nil {
		return nil, err
	}
	if !node.IsFile() {
		return nil, cerrors.InvalidInput("vfs: not a file: " + path.String())
	}
	if node.ContentHash == "" {
		return nil, cerrors.Internal("vfs: file vnode missing content hash: " + path.String())
	}
	return v.loadContent(ctx, node.ContentHash)
}

// WriteFile creates or overwrites the file at path with data, performing
// an atomic, race-free content dedup upsert.
func (v *VFS) WriteFile(ctx context.Context, workspaceID ids.Id, path vpath.Path, data []byte, opts WriteOptions) (domain.VNode, error) {
	existing, err := v.getVNode(ctx, workspaceID, path)
	var hadExisting bool
	switch {
	case err == nil:
		hadExisting = true
		if existing.ReadOnly {
			return domain.VNode{}, cerrors.ReadOnly("vfs: write to read-only vnode: " + path.String())
		}
		if opts.ExpectedHash != "" && existing.ContentHash != opts.ExpectedHash {
			return domain.VNode{}, cerrors.Conflict("vfs: content hash mismatch at " + path.String())
		}
	case cerrors.IsKind(err, cerrors.KindNotFound):
		// fresh create
	default:
		return domain.VNode{}, err
	}

	if parent, ok := path.Parent(); ok && !parent.IsRoot() {
		if _, perr := v.getVNode(ctx, workspaceID, parent); perr != nil {
			if !cerrors.IsKind(perr, cerrors.KindNotFound) {
				return domain.VNode{}, perr
			}
			if !opts.CreateParents {
				return domain.VNode{}, cerrors.InvalidInput("vfs: parent directory does not exist: " + parent.String())
			}
			if _, err := v.CreateDirectory(ctx, workspaceID, parent, true); err != nil {
				return domain.VNode{}, err
			}
		}
	}

	hash := hashContent(data)
	if err := v.storeContent(ctx, hash, data); err != nil {
		return domain.VNode{}, err
	}

	now := time.Now().UTC()
	var node domain.VNode
	if hadExisting {
		node = existing
		if node.ContentHash != "" && node.ContentHash != hash {
			if err := v.decrementRefcount(ctx, node.ContentHash); err != nil {
				return domain.VNode{}, err
			}
		}
		node.ContentHash = hash
		node.SizeBytes = uint64(len(data))
		node.UpdatedAt = now
		node.Version++
		if opts.Language != "" {
			node.Language = opts.Language
		}
		if err := v.saveVNode(ctx, node); err != nil {
			return domain.VNode{}, err
		}
	} else {
		node = domain.VNode{
			ID:          ids.New(),
			WorkspaceID: workspaceID,
			Path:        path.String(),
			Kind:        domain.VNodeFile,
			ContentHash: hash,
			SizeBytes:   uint64(len(data)),
			Language:    opts.Language,
			Status:      domain.VNodeActive,
			Metadata:    map[string]any{},
			CreatedAt:   now,
			UpdatedAt:   now,
			Version:     1,
		}
		if err := v.saveVNode(ctx, node); err != nil {
			return domain.VNode{}, err
		}
	}

	v.vnodeCache.Store(node.ID, node)
	v.pathCache.Store(pathKey{workspaceID, path.String()}, node.ID)

	if opts.Reparse && v.reparse != nil {
		if err := v.reparse(ctx, workspaceID, path, data); err != nil {
			return node, cerrors.Wrap(cerrors.KindInternal, "vfs: reparse hook failed", err)
		}
	}

	return node, nil
}

// CreateDirectory creates a directory vnode at path, and optionally its
// missing ancestors when createParents is set.
func (v *VFS) CreateDirectory(ctx context.Context, workspaceID ids.Id, path vpath.Path, createParents bool) (domain.VNode, error) {
	if existing, err := v.getVNode(ctx, workspaceID, path); err == nil {
		if existing.IsDirectory() {
			return existing, nil
		}
		return domain.VNode{}, cerrors.InvalidInput("vfs: path exists and is not a directory: " + path.String())
	}

	if parent, ok := path.Parent(); ok && !parent.IsRoot() {
		if _, err := v.getVNode(ctx, workspaceID, parent); err != nil {
			if !cerrors.IsKind(err, cerrors.KindNotFound) {
				return domain.VNode{}, err
			}
			if !createParents {
				return domain.VNode{}, cerrors.InvalidInput("vfs: parent directory does not exist: " + parent.String())
			}
			if _, err := v.CreateDirectory(ctx, workspaceID, parent, true); err != nil {
				return domain.VNode{}, err
			}
		}
	}

	now := time.Now().UTC()
	node := domain.VNode{
		ID:          ids.New(),
		WorkspaceID: workspaceID,
		Path:        path.String(),
		Kind:        domain.VNodeDirectory,
		Status:      domain.VNodeActive,
		Metadata:    map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if err := v.saveVNode(ctx, node); err != nil {
		return domain.VNode{}, err
	}
	v.vnodeCache.Store(node.ID, node)
	v.pathCache.Store(pathKey{workspaceID, path.String()}, node.ID)
	return node, nil
}

// ListDirectory returns the children of path. Non-recursive listings
// return only direct children; recursive listings return all descendants.
func (v *VFS) ListDirectory(ctx context.Context, workspaceID ids.Id, path vpath.Path, recursive bool) ([]domain.VNode, error) {
	dir, err := v.getVNode(ctx, workspaceID, path)
	if err != nil {
		return nil, err
	}
	if !dir.IsDirectory() {
		return nil, cerrors.InvalidInput("vfs: not a directory: " + path.String())
	}

	rows, err := v.store.DB().QueryContext(ctx,
		`SELECT id, workspace_id, path, kind, content_hash, size_bytes, read_only,
		        language, status, metadata, created_at, updated_at, version
		 FROM vnode WHERE workspace_id = ? AND status = 'ACTIVE' AND path LIKE ? ESCAPE '\'`,
		workspaceID.String(), likePrefix(path.String())+"%")
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindStorage, "list directory", err)
	}
	defer rows.Close()

	var out []domain.VNode
	for rows.Next() {
		n, err := scanVNode(rows)
		if err != nil {
			return nil, err
		}
		childPath, err := vpath.Parse(n.Path)
		if err != nil {
			continue
		}
		if !recursive {
			parent, ok := childPath.Parent()
			if !ok || !parent.Equal(path) {
				continue
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func likePrefix(p string) string {
	if p == "/" {
		return "/"
	}
	return p + "/"
}

// Delete removes the vnode at path. Directories require recursive=true
// if they have children.
func (v *VFS) Delete(ctx context.Context, workspaceID ids.Id, path vpath.Path, recursive bool) error {
	node, err := v.getVNode(ctx, workspaceID, path)
	if err != nil {
		return err
	}
	if node.ReadOnly {
		return cerrors.ReadOnly("vfs: delete of read-only vnode: " + path.String())
	}

	if node.IsDirectory() {
		children, err := v.ListDirectory(ctx, workspaceID, path, false)
		if err != nil {
			return err
		}
		if len(children) > 0 && !recursive {
			return cerrors.InvalidInput("vfs: directory not empty: " + path.String())
		}
		if recursive {
			for _, child := range children {
				childPath, err := vpath.Parse(child.Path)
				if err != nil {
					continue
				}
				if err := v.Delete(ctx, workspaceID, childPath, true); err != nil {
					return err
				}
			}
		}
	}

	if err := v.markDeleted(ctx, node.ID); err != nil {
		return err
	}
	if node.IsFile() && node.ContentHash != "" {
		if err := v.decrementRefcount(ctx, node.ContentHash); err != nil {
			return err
		}
	}

	v.vnodeCache.Delete(node.ID)
	v.pathCache.Delete(pathKey{workspaceID, path.String()})
	return nil
}

// Exists reports whether an active vnode exists at path.
func (v *VFS) Exists(ctx context.Context, workspaceID ids.Id, path vpath.Path) (bool, error) {
	_, err := v.getVNode(ctx, workspaceID, path)
	if err == nil {
		return true, nil
	}
	if cerrors.IsKind(err, cerrors.KindNotFound) {
		return false, nil
	}
	return false, err
}

// Metadata returns the vnode record at path.
func (v *VFS) Metadata(ctx context.Context, workspaceID ids.Id, path vpath.Path) (domain.VNode, error) {
	return v.getVNode(ctx, workspaceID, path)
}

// CacheStats reports current cache occupancy for observability.
type CacheStats struct {
	VNodeEntries   int
	PathEntries    int
	ContentEntries int
	ContentBytes   int64
	ContentBudget  int64
}

// CacheStats returns a snapshot of the VFS's cache occupancy.
func (v *VFS) CacheStats() CacheStats {
	return CacheStats{
		VNodeEntries:   v.vnodeCache.Len(),
		PathEntries:    v.pathCache.Len(),
		ContentEntries: v.content.Len(),
		ContentBytes:   v.cacheBytesUsed,
		ContentBudget:  v.cacheBytesMax,
	}
}

// ClearCaches drops all cached vnodes, path lookups, and content.
func (v *VFS) ClearCaches() {
	v.vnodeCache.Clear()
	v.pathCache.Clear()
	v.content.Purge()
	v.cacheBytesUsed = 0
}

func scanVNode(rows *sql.Rows) (domain.VNode, error) {
	var n domain.VNode
	var idStr, wsStr string
	var contentHash, language sql.NullString
	var metadataJSON sql.NullString
	var createdAt, updatedAt string
	var readOnly int

	if err := rows.Scan(&idStr, &wsStr, &n.Path, &n.Kind, &contentHash, &n.SizeBytes,
		&readOnly, &language, &n.Status, &metadataJSON, &createdAt, &updatedAt, &n.Version); err != nil {
		return domain.VNode{}, cerrors.Wrap(cerrors.KindStorage, "scan vnode row", err)
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
