package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmind/cortexd/internal/vectorindex"
)

func TestBuildEngine_WiresEveryCollaborator(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CORTEXD_DATA_DIR", dir)

	engine, err := buildEngine(dir, "bootstrap-test", false)
	require.NoError(t, err)
	defer engine.Close()

	assert.NotNil(t, engine.Storage)
	assert.NotNil(t, engine.VFS)
	assert.NotNil(t, engine.Pipeline)
	assert.NotNil(t, engine.Graph)
	assert.NotNil(t, engine.Memory)
	assert.NotNil(t, engine.Vectors)
	assert.NotNil(t, engine.Keywords)
	assert.NotNil(t, engine.Embedder)
	assert.NotNil(t, engine.Locks)
	assert.NotNil(t, engine.Notifier)
	assert.NotNil(t, engine.Logger)
}

func TestBuildVectorIndex_ModernCDriverReturnsBareHNSW(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CORTEXD_DATA_DIR", dir)

	engine, err := buildEngine(dir, "bootstrap-hnsw-test", false)
	require.NoError(t, err)
	defer engine.Close()

	_, isHNSW := engine.Vectors.(*vectorindex.HNSWIndex)
	assert.True(t, isHNSW, "modernc driver should not wire a HybridVectorStore")
}

func TestMigrationModeFromString_MapsKnownModes(t *testing.T) {
	assert.Equal(t, vectorindex.DualWrite, migrationModeFromString("dual_write"))
	assert.Equal(t, vectorindex.DualVerify, migrationModeFromString("dual_verify"))
	assert.Equal(t, vectorindex.NewPrimary, migrationModeFromString("new_primary"))
	assert.Equal(t, vectorindex.SingleStore, migrationModeFromString("single_store"))
	assert.Equal(t, vectorindex.SingleStore, migrationModeFromString("unknown"))
}

func TestNamespaceFor_IsStableAcrossCalls(t *testing.T) {
	a := namespaceFor("/home/user/myproject")
	b := namespaceFor("/home/user/myproject")
	assert.Equal(t, a, b)

	c := namespaceFor("/home/user/otherproject")
	assert.NotEqual(t, a, c)
}

func TestWorkspaceIDFor_IsStableAcrossCalls(t *testing.T) {
	a := workspaceIDFor("/home/user/myproject")
	b := workspaceIDFor("/home/user/myproject")
	assert.Equal(t, a, b)

	c := workspaceIDFor("/home/user/otherproject")
	assert.NotEqual(t, a, c)
}

func TestEngineClose_IsSafeWithPartiallyInitializedEngine(t *testing.T) {
	engine := &Engine{}
	assert.NoError(t, engine.Close())
}
