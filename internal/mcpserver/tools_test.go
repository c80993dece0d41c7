package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmind/cortexd/internal/cognitive"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/embed"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/vectorindex"
)

func TestReadWriteFile_RoundTrips(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()
	ws := ids.New().String()

	_, writeOut, err := s.mcpWriteFileHandler(ctx, nil, WriteFileInput{
		WorkspaceID: ws, Path: "/main.go", Content: "package main\n",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, writeOut.ContentHash)

	_, readOut, err := s.mcpReadFileHandler(ctx, nil, ReadFileInput{WorkspaceID: ws, Path: "/main.go"})
	require.NoError(t, err)
	assert.Equal(t, "package main\n", readOut.Content)
	assert.Equal(t, writeOut.ContentHash, readOut.ContentHash)
}

func TestReadFile_InvalidWorkspaceID_ReturnsInvalidParams(t *testing.T) {
	s, _ := newTestServer(t)
	_, _, err := s.mcpReadFileHandler(context.Background(), nil, ReadFileInput{WorkspaceID: "not-a-uuid", Path: "/main.go"})
	require.Error(t, err)
	toolErr, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidParams, toolErr.Code)
}

func TestListDirectory_ReturnsWrittenFile(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()
	ws := ids.New().String()

	_, _, err := s.mcpWriteFileHandler(ctx, nil, WriteFileInput{WorkspaceID: ws, Path: "/pkg/a.go", Content: "package pkg\n", CreateParents: true})
	require.NoError(t, err)

	_, out, err := s.mcpListDirectoryHandler(ctx, nil, ListDirectoryInput{WorkspaceID: ws, Path: "/pkg", Recursive: false})
	require.NoError(t, err)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "/pkg/a.go", out.Entries[0].Path)
}

func TestGraphQuery_ShortestPathFindsSeededEdge(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()
	ws := ids.New()

	require.NoError(t, s.graphStore.UpsertEdge(ctx, ws, domain.DependencyEdge{FromUnit: "a", ToUnit: "b", Kind: domain.DepCalls}))
	require.NoError(t, s.graphStore.UpsertEdge(ctx, ws, domain.DependencyEdge{FromUnit: "b", ToUnit: "c", Kind: domain.DepCalls}))

	_, out, err := s.mcpGraphQueryHandler(ctx, nil, GraphQueryInput{WorkspaceID: ws.String(), Operation: "shortest_path", From: "a", To: "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, out.Path)
}

func TestGraphQuery_CyclesDetectsLoop(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()
	ws := ids.New()

	require.NoError(t, s.graphStore.UpsertEdge(ctx, ws, domain.DependencyEdge{FromUnit: "a", ToUnit: "b", Kind: domain.DepCalls}))
	require.NoError(t, s.graphStore.UpsertEdge(ctx, ws, domain.DependencyEdge{FromUnit: "b", ToUnit: "a", Kind: domain.DepCalls}))

	_, out, err := s.mcpGraphQueryHandler(ctx, nil, GraphQueryInput{WorkspaceID: ws.String(), Operation: "cycles"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Cycles)
}

func TestGraphQuery_UnknownOperation_ReturnsInvalidParams(t *testing.T) {
	s, _ := newTestServer(t)
	_, _, err := s.mcpGraphQueryHandler(context.Background(), nil, GraphQueryInput{WorkspaceID: ids.New().String(), Operation: "levitate"})
	require.Error(t, err)
	toolErr, ok := err.(*ToolError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidParams, toolErr.Code)
}

func TestSemanticSearch_WithoutCollaborators_ReturnsEmpty(t *testing.T) {
	s, _ := newTestServer(t)
	_, out, err := s.mcpSemanticSearchHandler(context.Background(), nil, SemanticSearchInput{WorkspaceID: ids.New().String(), Query: "parse a file"})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
}

func TestSemanticSearch_RanksIndexedUnitByEmbedding(t *testing.T) {
	s, _ := newTestServer(t)
	s.embedder = embed.NewStaticEmbedder()
	s.vectors = vectorindex.NewHNSWIndex(vectorindex.HNSWConfig{Dimension: embed.Dimensions})

	ctx := context.Background()
	ws := ids.New()

	unit, err := s.graphStore.UpsertUnit(ctx, ws, domain.CodeUnit{
		WorkspaceID: ws, Kind: domain.UnitFunction, Name: "ParseFile",
		QualifiedName: "pkg.ParseFile", FilePath: "/pkg/parse.go",
	})
	require.NoError(t, err)

	vec, err := s.embedder.Embed(ctx, "parse a source file into an AST")
	require.NoError(t, err)
	require.NoError(t, s.vectors.Insert(ctx, unit.ID.String(), vec, nil))

	_, out, err := s.mcpSemanticSearchHandler(ctx, nil, SemanticSearchInput{WorkspaceID: ws.String(), Query: "parse a source file into an AST"})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "pkg.ParseFile", out.Results[0].QualifiedName)
}

func TestSemanticSearch_KindFilterExcludesOtherKinds(t *testing.T) {
	s, _ := newTestServer(t)
	s.embedder = embed.NewStaticEmbedder()
	s.vectors = vectorindex.NewHNSWIndex(vectorindex.HNSWConfig{Dimension: embed.Dimensions})

	ctx := context.Background()
	ws := ids.New()

	fn, err := s.graphStore.UpsertUnit(ctx, ws, domain.CodeUnit{
		WorkspaceID: ws, Kind: domain.UnitFunction, Name: "ParseFile",
		QualifiedName: "pkg.ParseFile", FilePath: "/pkg/parse.go",
	})
	require.NoError(t, err)
	cls, err := s.graphStore.UpsertUnit(ctx, ws, domain.CodeUnit{
		WorkspaceID: ws, Kind: domain.UnitClass, Name: "Parser",
		QualifiedName: "pkg.Parser", FilePath: "/pkg/parser.go",
	})
	require.NoError(t, err)

	vec, err := s.embedder.Embed(ctx, "parse a source file into an AST")
	require.NoError(t, err)
	require.NoError(t, s.vectors.Insert(ctx, fn.ID.String(), vec, map[string]string{"kind": string(domain.UnitFunction)}))
	require.NoError(t, s.vectors.Insert(ctx, cls.ID.String(), vec, map[string]string{"kind": string(domain.UnitClass)}))

	_, out, err := s.mcpSemanticSearchHandler(ctx, nil, SemanticSearchInput{
		WorkspaceID: ws.String(), Query: "parse a source file into an AST", Kind: string(domain.UnitFunction),
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "pkg.ParseFile", out.Results[0].QualifiedName)
}

func TestMemoryRetrieve_DefaultsToHybridStrategy(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()
	ws := ids.New()

	_, err := s.memory.Episodic.RememberEpisode(ctx, domain.Episode{
		WorkspaceID: ws, TaskDescription: "fix the parser", EpisodeType: domain.EpisodeBugFix,
		Outcome: domain.OutcomeSuccess, PatternValue: 0.8,
	})
	require.NoError(t, err)

	_, out, err := s.mcpMemoryRetrieveHandler(ctx, nil, MemoryRetrieveInput{WorkspaceID: ws.String()})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Contains(t, out.Results[0].Content, "fix the parser")
}

func TestStrategyKindFor_UnknownNameDefaultsToHybrid(t *testing.T) {
	assert.Equal(t, cognitive.StrategyHybrid, strategyKindFor("nonsense"))
}
