package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/vpath"
)

func TestForkWorkspace_ClonesActiveVNodesAndSharesContent(t *testing.T) {
	v, source := newTestVFS(t)
	ctx := context.Background()

	_, err := v.WriteFile(ctx, source, vpath.MustParse("/main.go"), []byte("package main"), WriteOptions{})
	require.NoError(t, err)
	_, err = v.CreateDirectory(ctx, source, vpath.MustParse("/pkg"), true)
	require.NoError(t, err)
	n2, err := v.WriteFile(ctx, source, vpath.MustParse("/pkg/util.go"), []byte("package pkg"), WriteOptions{})
	require.NoError(t, err)
	require.NoError(t, v.Delete(ctx, source, vpath.MustParse("/pkg/util.go"), false))

	target := ids.New()
	cloned, err := v.ForkWorkspace(ctx, source, target)
	require.NoError(t, err)
	assert.Equal(t, 2, cloned) // main.go and /pkg, not the deleted util.go

	data, err := v.ReadFile(ctx, target, vpath.MustParse("/main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))

	exists, err := v.Exists(ctx, target, vpath.MustParse("/pkg/util.go"))
	require.NoError(t, err)
	assert.False(t, exists)

	_ = n2
}
