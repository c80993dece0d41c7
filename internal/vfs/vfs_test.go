package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmind/cortexd/internal/cerrors"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/storage"
	"github.com/cortexmind/cortexd/internal/vpath"
)

func newTestVFS(t *testing.T) (*VFS, ids.Id) {
	t.Helper()
	st, err := storage.Open(storage.Config{
		Driver:    storage.DriverModernC,
		DataDir:   t.TempDir(),
		Namespace: "vfs-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	v, err := New(st)
	require.NoError(t, err)
	return v, ids.New()
}

func TestWriteThenReadFile_RoundTrips(t *testing.T) {
	v, ws := newTestVFS(t)
	ctx := context.Background()
	path := vpath.MustParse("/main.go")

	node, err := v.WriteFile(ctx, ws, path, []byte("package main\n"), WriteOptions{})
	require.NoError(t, err)
	assert.True(t, node.IsFile())
	assert.NotEmpty(t, node.ContentHash)

	data, err := v.ReadFile(ctx, ws, path)
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data))
}

func TestWriteFile_DeduplicatesIdenticalContentAcrossPaths(t *testing.T) {
	v, ws := newTestVFS(t)
	ctx := context.Background()
	content := []byte("shared content")

	n1, err := v.WriteFile(ctx, ws, vpath.MustParse("/a.txt"), content, WriteOptions{})
	require.NoError(t, err)
	n2, err := v.WriteFile(ctx, ws, vpath.MustParse("/b.txt"), content, WriteOptions{})
	require.NoError(t, err)

	assert.Equal(t, n1.ContentHash, n2.ContentHash)

	var refcount int
	require.NoError(t, v.store.DB().QueryRow(
		`SELECT reference_count FROM file_content WHERE content_hash = ?`, n1.ContentHash,
	).Scan(&refcount))
	assert.Equal(t, 2, refcount)
}

func TestWriteFile_SurvivesConcurrentContentRowDeletionBeforeRefcountBump(t *testing.T) {
	v, ws := newTestVFS(t)
	ctx := context.Background()
	content := []byte("shared content")

	n1, err := v.WriteFile(ctx, ws, vpath.MustParse("/a.txt"), content, WriteOptions{})
	require.NoError(t, err)

	// Simulate a concurrent decrementRefcount that garbage collected the
	// file_content row between storeContent's cache check and its refcount
	// UPDATE: the in-memory content cache still believes the hash exists,
	// but the row is gone.
	_, err = v.store.DB().Exec(`DELETE FROM file_content WHERE content_hash = ?`, n1.ContentHash)
	require.NoError(t, err)

	n2, err := v.WriteFile(ctx, ws, vpath.MustParse("/b.txt"), content, WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, n1.ContentHash, n2.ContentHash)

	var refcount int
	require.NoError(t, v.store.DB().QueryRow(
		`SELECT reference_count FROM file_content WHERE content_hash = ?`, n1.ContentHash,
	).Scan(&refcount))
	assert.Equal(t, 1, refcount)

	data, err := v.ReadFile(ctx, ws, vpath.MustParse("/b.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestWriteFile_ReadOnlyVNodeRejectsWrite(t *testing.T) {
	v, ws := newTestVFS(t)
	ctx := context.Background()
	path := vpath.MustParse("/locked.txt")

	node, err := v.WriteFile(ctx, ws, path, []byte("v1"), WriteOptions{})
	require.NoError(t, err)

	node.ReadOnly = true
	require.NoError(t, v.saveVNode(ctx, node))
	v.vnodeCache.Store(node.ID, node)

	_, err = v.WriteFile(ctx, ws, path, []byte("v2"), WriteOptions{})
	require.Error(t, err)
	assert.True(t, cerrors.IsKind(err, cerrors.KindReadOnly))
}

func TestWriteFile_ExpectedHashMismatchIsConflict(t *testing.T) {
	v, ws := newTestVFS(t)
	ctx := context.Background()
	path := vpath.MustParse("/x.txt")

	_, err := v.WriteFile(ctx, ws, path, []byte("v1"), WriteOptions{})
	require.NoError(t, err)

	_, err = v.WriteFile(ctx, ws, path, []byte("v2"), WriteOptions{ExpectedHash: "deadbeef"})
	require.Error(t, err)
	assert.True(t, cerrors.IsKind(err, cerrors.KindConflict))
}

func TestDelete_NonEmptyDirectoryRequiresRecursive(t *testing.T) {
	v, ws := newTestVFS(t)
	ctx := context.Background()

	_, err := v.CreateDirectory(ctx, ws, vpath.MustParse("/dir"), true)
	require.NoError(t, err)
	_, err = v.WriteFile(ctx, ws, vpath.MustParse("/dir/file.txt"), []byte("x"), WriteOptions{})
	require.NoError(t, err)

	err = v.Delete(ctx, ws, vpath.MustParse("/dir"), false)
	require.Error(t, err)
	assert.True(t, cerrors.IsKind(err, cerrors.KindInvalidInput))

	require.NoError(t, v.Delete(ctx, ws, vpath.MustParse("/dir"), true))

	exists, err := v.Exists(ctx, ws, vpath.MustParse("/dir/file.txt"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDelete_DecrementsRefcountAndGarbageCollects(t *testing.T) {
	v, ws := newTestVFS(t)
	ctx := context.Background()
	content := []byte("solo content")

	node, err := v.WriteFile(ctx, ws, vpath.MustParse("/solo.txt"), content, WriteOptions{})
	require.NoError(t, err)

	require.NoError(t, v.Delete(ctx, ws, vpath.MustParse("/solo.txt"), false))

	var count int
	err = v.store.DB().QueryRow(`SELECT COUNT(*) FROM file_content WHERE content_hash = ?`, node.ContentHash).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestListDirectory_NonRecursiveReturnsOnlyDirectChildren(t *testing.T) {
	v, ws := newTestVFS(t)
	ctx := context.Background()

	_, err := v.CreateDirectory(ctx, ws, vpath.MustParse("/src"), true)
	require.NoError(t, err)
	_, err = v.WriteFile(ctx, ws, vpath.MustParse("/src/a.go"), []byte("a"), WriteOptions{})
	require.NoError(t, err)
	_, err = v.CreateDirectory(ctx, ws, vpath.MustParse("/src/nested"), true)
	require.NoError(t, err)
	_, err = v.WriteFile(ctx, ws, vpath.MustParse("/src/nested/b.go"), []byte("b"), WriteOptions{})
	require.NoError(t, err)

	children, err := v.ListDirectory(ctx, ws, vpath.MustParse("/src"), false)
	require.NoError(t, err)
	assert.Len(t, children, 2) // a.go and nested/

	all, err := v.ListDirectory(ctx, ws, vpath.MustParse("/src"), true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListDirectory_RootListsTopLevelEntriesOnFreshWorkspace(t *testing.T) {
	v, ws := newTestVFS(t)
	ctx := context.Background()

	_, err := v.WriteFile(ctx, ws, vpath.MustParse("/main.go"), []byte("package main\n"), WriteOptions{})
	require.NoError(t, err)
	_, err = v.WriteFile(ctx, ws, vpath.MustParse("/src/a.go"), []byte("a"), WriteOptions{CreateParents: true})
	require.NoError(t, err)

	top, err := v.ListDirectory(ctx, ws, vpath.Root, false)
	require.NoError(t, err)
	assert.Len(t, top, 2) // main.go and src/

	all, err := v.ListDirectory(ctx, ws, vpath.Root, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCreateDirectory_RootIsIdempotentAndNeverPersisted(t *testing.T) {
	v, ws := newTestVFS(t)
	ctx := context.Background()

	node, err := v.CreateDirectory(ctx, ws, vpath.Root, false)
	require.NoError(t, err)
	assert.True(t, node.IsDirectory())

	var count int
	require.NoError(t, v.store.DB().QueryRow(
		`SELECT COUNT(*) FROM vnode WHERE workspace_id = ? AND path = '/'`, ws.String(),
	).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestReadFile_NotFoundForMissingPath(t *testing.T) {
	v, ws := newTestVFS(t)
	_, err := v.ReadFile(context.Background(), ws, vpath.MustParse("/missing.txt"))
	require.Error(t, err)
	assert.True(t, cerrors.IsKind(err, cerrors.KindNotFound))
}

func TestWriteFile_InvokesRegisteredReparseHookOnlyWhenRequested(t *testing.T) {
	ctx := context.Background()
	st, err := storage.Open(storage.Config{Driver: storage.DriverModernC, DataDir: t.TempDir(), Namespace: "reparse-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	var calls int
	v, err := New(st, WithReparseFunc(func(ctx context.Context, ws ids.Id, p vpath.Path, content []byte) error {
		calls++
		return nil
	}))
	require.NoError(t, err)
	ws := ids.New()

	_, err = v.WriteFile(ctx, ws, vpath.MustParse("/a.go"), []byte("a"), WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, calls, "reparse must not fire unless explicitly requested")

	_, err = v.WriteFile(ctx, ws, vpath.MustParse("/b.go"), []byte("b"), WriteOptions{Reparse: true})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
