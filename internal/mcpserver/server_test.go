package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmind/cortexd/internal/analysis"
	"github.com/cortexmind/cortexd/internal/cognitive"
	"github.com/cortexmind/cortexd/internal/storage"
	"github.com/cortexmind/cortexd/internal/vfs"
)

func newTestServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()
	st, err := storage.Open(storage.Config{
		Driver:    storage.DriverModernC,
		DataDir:   t.TempDir(),
		Namespace: "mcpserver-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	v, err := vfs.New(st)
	require.NoError(t, err)

	units := analysis.NewStore(st)
	episodic := cognitive.NewEpisodicStore(st)
	working := cognitive.NewWorkingMemory(100, 1<<20)
	procedural := cognitive.NewProceduralStore(st)
	semantic := cognitive.NewSemanticMemory(units, nil)
	retriever := cognitive.NewRetriever(episodic, nil)
	manager := cognitive.NewManager(episodic, semantic, working, procedural, retriever)

	s, err := NewServer(v, units, manager)
	require.NoError(t, err)
	return s, st
}

func TestNewServer_RequiresVFS(t *testing.T) {
	_, err := NewServer(nil, &analysis.Store{}, &cognitive.Manager{})
	assert.Error(t, err)
}

func TestNewServer_RequiresGraphStore(t *testing.T) {
	st, err := storage.Open(storage.Config{Driver: storage.DriverModernC, DataDir: t.TempDir(), Namespace: "mcpserver-nil-test"})
	require.NoError(t, err)
	defer st.Close()
	v, err := vfs.New(st)
	require.NoError(t, err)

	_, err = NewServer(v, nil, &cognitive.Manager{})
	assert.Error(t, err)
}

func TestNewServer_RequiresMemoryManager(t *testing.T) {
	st, err := storage.Open(storage.Config{Driver: storage.DriverModernC, DataDir: t.TempDir(), Namespace: "mcpserver-nil-test2"})
	require.NoError(t, err)
	defer st.Close()
	v, err := vfs.New(st)
	require.NoError(t, err)

	_, err = NewServer(v, analysis.NewStore(st), nil)
	assert.Error(t, err)
}

func TestNewServer_Succeeds(t *testing.T) {
	s, _ := newTestServer(t)
	assert.NotNil(t, s.mcp)
}

func TestServer_Close_Succeeds(t *testing.T) {
	s, _ := newTestServer(t)
	assert.NoError(t, s.Close())
}

func TestServer_Serve_RejectsUnknownTransport(t *testing.T) {
	s, _ := newTestServer(t)
	err := s.Serve(context.Background(), "carrier-pigeon", "")
	assert.Error(t, err)
}
