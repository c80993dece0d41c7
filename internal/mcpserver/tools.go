package mcpserver

import (
	"context"
	"log/slog"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cortexmind/cortexd/internal/cognitive"
	"github.com/cortexmind/cortexd/internal/domain"
	"github.com/cortexmind/cortexd/internal/graph"
	"github.com/cortexmind/cortexd/internal/ids"
	"github.com/cortexmind/cortexd/internal/vfs"
	"github.com/cortexmind/cortexd/internal/vpath"
)

// ReadFileInput identifies the file a read_file call targets.
type ReadFileInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"the workspace's id"`
	Path        string `json:"path" jsonschema:"the virtual path of the file to read, e.g. /src/main.go"`
}

// ReadFileOutput is a file's content and metadata.
type ReadFileOutput struct {
	Content     string `json:"content" jsonschema:"the file's content as text"`
	SizeBytes   uint64 `json:"size_bytes" jsonschema:"size of the file in bytes"`
	ContentHash string `json:"content_hash" jsonschema:"blake3 hex digest of the file's content"`
	Language    string `json:"language,omitempty" jsonschema:"detected source language"`
}

func (s *Server) mcpReadFileHandler(ctx context.Context, _ *mcp.CallToolRequest, in ReadFileInput) (*mcp.CallToolResult, ReadFileOutput, error) {
	reqID := generateRequestID()
	wsID, vp, ierr := s.parseWorkspaceAndPath(in.WorkspaceID, in.Path)
	if ierr != nil {
		return nil, ReadFileOutput{}, ierr
	}

	data, err := s.vfs.ReadFile(ctx, wsID, vp)
	if err != nil {
		s.logger.Warn("read_file failed", slog.String("request_id", reqID), slog.String("error", err.Error()))
		return nil, ReadFileOutput{}, mapError(err)
	}
	node, err := s.vfs.Metadata(ctx, wsID, vp)
	if err != nil {
		return nil, ReadFileOutput{}, mapError(err)
	}

	return nil, ReadFileOutput{
		Content:     string(data),
		SizeBytes:   node.SizeBytes,
		ContentHash: node.ContentHash,
		Language:    string(node.Language),
	}, nil
}

// WriteFileInput is the content to write and how to write it.
type WriteFileInput struct {
	WorkspaceID   string `json:"workspace_id" jsonschema:"the workspace's id"`
	Path          string `json:"path" jsonschema:"the virtual path to write, e.g. /src/main.go"`
	Content       string `json:"content" jsonschema:"the file's new content"`
	CreateParents bool   `json:"create_parents,omitempty" jsonschema:"create missing intermediate directories"`
	Language      string `json:"language,omitempty" jsonschema:"source language, if known"`
}

// WriteFileOutput reflects the vnode produced by the write.
type WriteFileOutput struct {
	ContentHash string `json:"content_hash" jsonschema:"blake3 hex digest of the written content"`
	SizeBytes   uint64 `json:"size_bytes" jsonschema:"size of the written content in bytes"`
	Version     uint64 `json:"version" jsonschema:"the vnode's new version number"`
}

func (s *Server) mcpWriteFileHandler(ctx context.Context, _ *mcp.CallToolRequest, in WriteFileInput) (*mcp.CallToolResult, WriteFileOutput, error) {
	reqID := generateRequestID()
	wsID, vp, ierr := s.parseWorkspaceAndPath(in.WorkspaceID, in.Path)
	if ierr != nil {
		return nil, WriteFileOutput{}, ierr
	}

	node, err := s.vfs.WriteFile(ctx, wsID, vp, []byte(in.Content), vfs.WriteOptions{
		CreateParents: in.CreateParents,
		Language:      domain.Language(in.Language),
	})
	if err != nil {
		s.logger.Warn("write_file failed", slog.String("request_id", reqID), slog.String("error", err.Error()))
		return nil, WriteFileOutput{}, mapError(err)
	}

	return nil, WriteFileOutput{
		ContentHash: node.ContentHash,
		SizeBytes:   node.SizeBytes,
		Version:     node.Version,
	}, nil
}

// ListDirectoryInput is a directory to list.
type ListDirectoryInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"the workspace's id"`
	Path        string `json:"path" jsonschema:"the virtual directory path to list"`
	Recursive   bool   `json:"recursive,omitempty" jsonschema:"descend into subdirectories"`
}

// DirectoryEntry is one vnode under the listed directory.
type DirectoryEntry struct {
	Path      string `json:"path" jsonschema:"the vnode's virtual path"`
	Kind      string `json:"kind" jsonschema:"FILE, DIRECTORY, or SYMLINK"`
	SizeBytes uint64 `json:"size_bytes,omitempty" jsonschema:"size in bytes, zero for directories"`
}

// ListDirectoryOutput is the directory's entries.
type ListDirectoryOutput struct {
	Entries []DirectoryEntry `json:"entries" jsonschema:"the directory's vnodes"`
}

func (s *Server) mcpListDirectoryHandler(ctx context.Context, _ *mcp.CallToolRequest, in ListDirectoryInput) (*mcp.CallToolResult, ListDirectoryOutput, error) {
	wsID, vp, ierr := s.parseWorkspaceAndPath(in.WorkspaceID, in.Path)
	if ierr != nil {
		return nil, ListDirectoryOutput{}, ierr
	}

	nodes, err := s.vfs.ListDirectory(ctx, wsID, vp, in.Recursive)
	if err != nil {
		return nil, ListDirectoryOutput{}, mapError(err)
	}

	out := ListDirectoryOutput{Entries: make([]DirectoryEntry, 0, len(nodes))}
	for _, n := range nodes {
		out.Entries = append(out.Entries, DirectoryEntry{
			Path:      n.Path,
			Kind:      string(n.Kind),
			SizeBytes: n.SizeBytes,
		})
	}
	return nil, out, nil
}

// GraphQueryInput selects a dependency-graph algorithm and its operands,
// identifying nodes by code-unit qualified name.
type GraphQueryInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"the workspace's id"`
	Operation   string `json:"operation" jsonschema:"one of: shortest_path, all_paths, cycles, layers, betweenness"`
	From        string `json:"from,omitempty" jsonschema:"source qualified name (shortest_path, all_paths)"`
	To          string `json:"to,omitempty" jsonschema:"target qualified name (shortest_path, all_paths)"`
	MaxLength   int    `json:"max_length,omitempty" jsonschema:"maximum edge count for all_paths, default 10"`
}

// GraphQueryOutput carries whichever result fields the requested
// operation populates; the rest are left at their zero value.
type GraphQueryOutput struct {
	Path       []string           `json:"path,omitempty" jsonschema:"node sequence for shortest_path"`
	Paths      [][]string         `json:"paths,omitempty" jsonschema:"node sequences for all_paths"`
	Cycles     [][]string         `json:"cycles,omitempty" jsonschema:"cyclic node sequences"`
	Layers     [][]string         `json:"layers,omitempty" jsonschema:"topological layers, nodes with no dependents first"`
	Centrality map[string]float64 `json:"centrality,omitempty" jsonschema:"betweenness centrality per node"`
}

func (s *Server) mcpGraphQueryHandler(ctx context.Context, _ *mcp.CallToolRequest, in GraphQueryInput) (*mcp.CallToolResult, GraphQueryOutput, error) {
	wsID, err := ids.Parse(in.WorkspaceID)
	if err != nil {
		return nil, GraphQueryOutput{}, invalidParams("workspace_id: " + err.Error())
	}

	edges, err := s.graphStore.AllEdges(ctx, wsID)
	if err != nil {
		return nil, GraphQueryOutput{}, mapError(err)
	}
	g := graph.New()
	for _, e := range edges {
		g.AddEdge(e.FromUnit, e.ToUnit)
	}

	switch in.Operation {
	case "shortest_path":
		if in.From == "" || in.To == "" {
			return nil, GraphQueryOutput{}, invalidParams("shortest_path requires both from and to")
		}
		p := graph.ShortestPath(g, in.From, in.To)
		if p == nil {
			return nil, GraphQueryOutput{}, nil
		}
		return nil, GraphQueryOutput{Path: p.Nodes}, nil

	case "all_paths":
		if in.From == "" || in.To == "" {
			return nil, GraphQueryOutput{}, invalidParams("all_paths requires both from and to")
		}
		maxLength := in.MaxLength
		if maxLength <= 0 {
			maxLength = 10
		}
		paths := graph.AllPaths(g, in.From, in.To, maxLength)
		out := make([][]string, len(paths))
		for i, p := range paths {
			out[i] = p.Nodes
		}
		return nil, GraphQueryOutput{Paths: out}, nil

	case "cycles":
		cycles := graph.FindCycles(g)
		out := make([][]string, len(cycles))
		for i, c := range cycles {
			out[i] = []string(c)
		}
		return nil, GraphQueryOutput{Cycles: out}, nil

	case "layers":
		layers := graph.TopologicalLayers(g)
		out := make([][]string, len(layers))
		for i, l := range layers {
			out[i] = []string(l)
		}
		return nil, GraphQueryOutput{Layers: out}, nil

	case "betweenness":
		return nil, GraphQueryOutput{Centrality: graph.BetweennessCentrality(g)}, nil

	default:
		return nil, GraphQueryOutput{}, invalidParams("unknown operation: " + in.Operation)
	}
}

// SemanticSearchInput is a free-text query over code units.
type SemanticSearchInput struct {
	WorkspaceID string  `json:"workspace_id" jsonschema:"the workspace's id"`
	Query       string  `json:"query" jsonschema:"free-text description of the code being searched for"`
	Limit       int     `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Kind        string  `json:"kind,omitempty" jsonschema:"restrict results to this unit kind, e.g. FUNCTION, METHOD, CLASS"`
	Language    string  `json:"language,omitempty" jsonschema:"restrict results to this source language, e.g. go, python"`
	MinScore    float64 `json:"min_score,omitempty" jsonschema:"discard the vector leg's hits scoring below this threshold"`
}

// SemanticSearchResult is one matched code unit.
type SemanticSearchResult struct {
	QualifiedName string  `json:"qualified_name" jsonschema:"the unit's fully qualified name"`
	FilePath      string  `json:"file_path" jsonschema:"the file the unit is defined in"`
	Kind          string  `json:"kind" jsonschema:"FUNCTION, METHOD, CLASS, etc."`
	Score         float64 `json:"score" jsonschema:"match score, higher is more relevant"`
}

// SemanticSearchOutput is the ranked list of matches.
type SemanticSearchOutput struct {
	Results []SemanticSearchResult `json:"results" jsonschema:"ranked matches"`
}

func (s *Server) mcpSemanticSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in SemanticSearchInput) (*mcp.CallToolResult, SemanticSearchOutput, error) {
	if in.Query == "" {
		return nil, SemanticSearchOutput{}, invalidParams("query is required")
	}
	wsID, err := ids.Parse(in.WorkspaceID)
	if err != nil {
		return nil, SemanticSearchOutput{}, invalidParams("workspace_id: " + err.Error())
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	filter := vectorindex.SearchFilter{}
	if in.Kind != "" {
		filter.MetadataFilters = map[string]string{"kind": in.Kind}
	}
	if in.Language != "" {
		if filter.MetadataFilters == nil {
			filter.MetadataFilters = map[string]string{}
		}
		filter.MetadataFilters["language"] = in.Language
	}
	if in.MinScore > 0 {
		minScore := float32(in.MinScore)
		filter.MinScore = &minScore
	}

	ranked, err := s.rankSemanticMatches(ctx, in.Query, limit, filter)
	if err != nil {
		return nil, SemanticSearchOutput{}, mapError(err)
	}

	out := SemanticSearchOutput{Results: make([]SemanticSearchResult, 0, len(ranked))}
	for _, r := range ranked {
		id, err := ids.Parse(r.id)
		if err != nil {
			continue // not a code-unit id (e.g. a memory record sharing the index); skip
		}
		unit, err := s.graphStore.GetUnit(ctx, wsID, id)
		if err != nil {
			continue
		}
		out.Results = append(out.Results, SemanticSearchResult{
			QualifiedName: unit.QualifiedName,
			FilePath:      unit.FilePath,
			Kind:          string(unit.Kind),
			Score:         r.score,
		})
	}
	return nil, out, nil
}

type scoredID struct {
	id    string
	score float64
}

// rankSemanticMatches blends the vector and keyword legs when both are
// configured, falling back to whichever single leg is available, and
// returning no results when neither is. filter narrows the vector
// leg's hits; the keyword leg has no metadata to filter on.
func (s *Server) rankSemanticMatches(ctx context.Context, query string, limit int, filter vectorindex.SearchFilter) ([]scoredID, error) {
	var vectorRanked []scoredID
	if s.vectors != nil && s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, query)
		if err != nil {
			return nil, err
		}
		var hits []vectorindex.SearchResult
		if len(filter.MetadataFilters) > 0 || filter.MinScore != nil {
			hits, err = s.vectors.SearchWithFilter(ctx, vec, limit, filter)
		} else {
			hits, err = s.vectors.Search(ctx, vec, limit)
		}
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			vectorRanked = append(vectorRanked, scoredID{id: h.ID, score: float64(h.Score)})
		}
	}

	var keywordRanked []scoredID
	if s.keywords != nil {
		hits, err := s.keywords.Search(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			keywordRanked = append(keywordRanked, scoredID{id: h.DocID, score: h.Score})
		}
	}

	switch {
	case vectorRanked != nil && keywordRanked != nil:
		return reciprocalRankFuse(vectorRanked, keywordRanked, limit), nil
	case vectorRanked != nil:
		return truncateScoredIDs(vectorRanked, limit), nil
	case keywordRanked != nil:
		return truncateScoredIDs(keywordRanked, limit), nil
	default:
		return nil, nil
	}
}

// rrfK is the reciprocal-rank-fusion damping constant, matching the
// value internal/cognitive's relevance blending uses.
const rrfK = 60

// reciprocalRankFuse blends two already rank-ordered ID lists by
// reciprocal rank (1/(rrfK+rank)), summing contributions for IDs
// present in both lists, then returns the top limit by fused score.
func reciprocalRankFuse(a, b []scoredID, limit int) []scoredID {
	fused := make(map[string]float64, len(a)+len(b))
	for i, s := range a {
		fused[s.id] += 1.0 / float64(rrfK+i+1)
	}
	for i, s := range b {
		fused[s.id] += 1.0 / float64(rrfK+i+1)
	}
	out := make([]scoredID, 0, len(fused))
	for id, score := range fused {
		out = append(out, scoredID{id: id, score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func truncateScoredIDs(in []scoredID, limit int) []scoredID {
	sort.SliceStable(in, func(i, j int) bool { return in[i].score > in[j].score })
	if len(in) > limit {
		in = in[:limit]
	}
	return in
}

// MemoryRetrieveInput selects a cognitive retrieval strategy.
type MemoryRetrieveInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"the workspace's id"`
	Query       string `json:"query,omitempty" jsonschema:"free-text query, used by relevance and hybrid strategies"`
	Strategy    string `json:"strategy,omitempty" jsonschema:"one of: recency, relevance, importance, hybrid (default)"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of memories to return, default 10"`
}

// MemoryRetrieveResult is one retrieved episodic memory.
type MemoryRetrieveResult struct {
	ID            string  `json:"id" jsonschema:"the episode's id"`
	Content       string  `json:"content" jsonschema:"a summary of the task and its resolution"`
	CombinedScore float64 `json:"combined_score" jsonschema:"the strategy's combined ranking score"`
}

// MemoryRetrieveOutput is the ranked list of matching memories.
type MemoryRetrieveOutput struct {
	Results []MemoryRetrieveResult `json:"results" jsonschema:"ranked memories"`
}

func (s *Server) mcpMemoryRetrieveHandler(ctx context.Context, _ *mcp.CallToolRequest, in MemoryRetrieveInput) (*mcp.CallToolResult, MemoryRetrieveOutput, error) {
	wsID, err := ids.Parse(in.WorkspaceID)
	if err != nil {
		return nil, MemoryRetrieveOutput{}, invalidParams("workspace_id: " + err.Error())
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	strategy := cognitive.RetrievalStrategy{Kind: strategyKindFor(in.Strategy)}
	scored, err := s.memory.Retrieve(ctx, wsID, in.Query, strategy, limit)
	if err != nil {
		return nil, MemoryRetrieveOutput{}, mapError(err)
	}

	out := MemoryRetrieveOutput{Results: make([]MemoryRetrieveResult, 0, len(scored))}
	for _, m := range scored {
		out.Results = append(out.Results, MemoryRetrieveResult{
			ID:            m.Memory.ID,
			Content:       m.Memory.Content,
			CombinedScore: m.CombinedScore,
		})
	}
	return nil, out, nil
}

func strategyKindFor(name string) cognitive.StrategyKind {
	switch name {
	case "recency":
		return cognitive.StrategyRecency
	case "relevance":
		return cognitive.StrategyRelevance
	case "importance":
		return cognitive.StrategyImportance
	default:
		return cognitive.StrategyHybrid
	}
}

// parseWorkspaceAndPath validates the two identifiers every VFS tool
// takes, returning a ToolError ready to hand back to the client on
// failure.
func (s *Server) parseWorkspaceAndPath(workspaceID, path string) (ids.Id, vpath.Path, *ToolError) {
	wsID, err := ids.Parse(workspaceID)
	if err != nil {
		return ids.Id{}, vpath.Path{}, invalidParams("workspace_id: " + err.Error())
	}
	vp, err := vpath.Parse(path)
	if err != nil {
		return ids.Id{}, vpath.Path{}, invalidParams("path: " + err.Error())
	}
	return wsID, vp, nil
}
