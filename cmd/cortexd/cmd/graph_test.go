package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmind/cortexd/internal/graph"
)

func testDiamondGraph() *graph.Graph {
	g := graph.New()
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")
	g.AddEdge("b", "d")
	g.AddEdge("c", "d")
	return g
}

func TestDispatchGraphQuery_ShortestPath(t *testing.T) {
	out, err := dispatchGraphQuery(testDiamondGraph(), "shortest_path", "a", "d", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d"}, out.Path)
}

func TestDispatchGraphQuery_ShortestPathRequiresFromAndTo(t *testing.T) {
	_, err := dispatchGraphQuery(testDiamondGraph(), "shortest_path", "", "d", 0)
	assert.Error(t, err)
}

func TestDispatchGraphQuery_AllPaths(t *testing.T) {
	out, err := dispatchGraphQuery(testDiamondGraph(), "all_paths", "a", "d", 0)
	require.NoError(t, err)
	assert.Len(t, out.Paths, 2)
}

func TestDispatchGraphQuery_Cycles(t *testing.T) {
	g := graph.New()
	g.AddEdge("x", "y")
	g.AddEdge("y", "x")
	out, err := dispatchGraphQuery(g, "cycles", "", "", 0)
	require.NoError(t, err)
	assert.Len(t, out.Cycles, 1)
}

func TestDispatchGraphQuery_Layers(t *testing.T) {
	out, err := dispatchGraphQuery(testDiamondGraph(), "layers", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out.Layers[0])
}

func TestDispatchGraphQuery_Betweenness(t *testing.T) {
	out, err := dispatchGraphQuery(testDiamondGraph(), "betweenness", "", "", 0)
	require.NoError(t, err)
	assert.Contains(t, out.Centrality, "b")
}

func TestDispatchGraphQuery_UnknownOperation(t *testing.T) {
	_, err := dispatchGraphQuery(testDiamondGraph(), "nonsense", "", "", 0)
	assert.Error(t, err)
}

func TestPrintGraphQuery_ShortestPathFormatsArrowChain(t *testing.T) {
	cmd := newGraphCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	out, err := dispatchGraphQuery(testDiamondGraph(), "shortest_path", "a", "d", 0)
	require.NoError(t, err)
	require.NoError(t, printGraphQuery(cmd, "shortest_path", out))

	assert.True(t, strings.Contains(buf.String(), "a -> b -> d"))
}

func TestPrintGraphQuery_NoPathFound(t *testing.T) {
	cmd := newGraphCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	g := graph.New()
	g.AddEdge("a", "b")
	out, err := dispatchGraphQuery(g, "shortest_path", "a", "z", 0)
	require.NoError(t, err)
	require.NoError(t, printGraphQuery(cmd, "shortest_path", out))

	assert.Contains(t, buf.String(), "no path found")
}
