package vfs

import (
	"context"
	"database/sql"
	"time"

	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/ids"
)

// ForkWorkspace clones every active vnode of sourceWorkspace into
// targetWorkspace, giving the clone fresh vnode ids while sharing the
// underlying content records by reference count rather than duplicating
// bytes: since content is addressed by hash, cloning a workspace's file
// set is a metadata-only operation plus a refcount bump per cloned file
// vnode (two files sharing one blob bump it twice).
func (v *VFS) ForkWorkspace(ctx context.Context, sourceWorkspace, targetWorkspace ids.Id) (int, error) {
	rows, err := v.store.DB().QueryContext(ctx,
		`SELECT path, kind, content_hash, size_bytes, read_only, language, metadata
		 FROM vnode WHERE workspace_id = ? AND status = 'ACTIVE' ORDER BY path`,
		sourceWorkspace.String())
	if err != nil {
		return 0, cerrors.Wrap(cerrors.KindStorage, "fork workspace: list source vnodes", err)
	}
	defer rows.Close()

	type sourceRow struct {
		path        string
		kind        string
		contentHash sql.NullString
		sizeBytes   uint64
		readOnly    int
		language    sql.NullString
		metadata    sql.NullString
	}

	var toClone []sourceRow
	for rows.Next() {
		var r sourceRow
		if err := rows.Scan(&r.path, &r.kind, &r.contentHash, &r.sizeBytes, &r.readOnly, &r.language, &r.metadata); err != nil {
			return 0, cerrors.Wrap(cerrors.KindStorage, "fork workspace: scan source vnode", err)
		}
		toClone = append(toClone, r)
	}
	if err := rows.Err(); err != nil {
		return 0, cerrors.Wrap(cerrors.KindStorage, "fork workspace: iterate source vnodes", err)
	}
	if len(toClone) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	cloned := 0
	for _, r := range toClone {
		node := domain.VNode{
			ID:          ids.New(),
			WorkspaceID: targetWorkspace,
			Path:        r.path,
			Kind:        domain.VNodeKind(r.kind),
			ContentHash: r.contentHash.String,
			SizeBytes:   r.sizeBytes,
			ReadOnly:    r.readOnly != 0,
			Language:    domain.Language(r.language.String),
			Status:      domain.VNodeActive,
			Metadata:    map[string]any{},
			CreatedAt:   now,
			UpdatedAt:   now,
			Version:     1,
		}
		if err := v.saveVNode(ctx, node); err != nil {
			return cloned, err
		}
		if r.contentHash.Valid && r.contentHash.String != "" {
			if err := v.bumpRefcountOnly(ctx, r.contentHash.String, nil); err != nil {
				return cloned, err
			}
		}
		v.vnodeCache.Store(node.ID, node)
		v.pathCache.Store(pathKey{targetWorkspace, node.Path}, node.ID)
		cloned++
	}

	return cloned, nil
}
