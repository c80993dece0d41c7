// Package mcpserver exposes the engine's four subsystems — the virtual
// file system, the dependency graph, semantic search, and cognitive
// memory — as Model Context Protocol tools. It contains no core logic:
// every handler validates its input, calls straight into the owning
// subsystem, and marshals the result. Callers (an IDE agent, a CLI
// wrapper) talk to this package instead of importing the subsystems
// directly.
package mcpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cortexmind/cortexd/internal/analysis"
	"github.com/cortexmind/cortexd/internal/cognitive"
	"github.com/cortexmind/cortexd/internal/embed"
	"github.com/cortexmind/cortexd/internal/textindex"
	"github.com/cortexmind/cortexd/internal/vectorindex"
	"github.com/cortexmind/cortexd/internal/vfs"
	"github.com/cortexmind/cortexd/pkg/version"
)

// Server bridges MCP clients to the engine's core subsystems.
type Server struct {
	mcp *mcp.Server

	vfs        *vfs.VFS
	graphStore *analysis.Store
	memory     *cognitive.Manager

	vectors  vectorindex.VectorIndex // optional; nil disables semantic_search's vector leg
	keywords textindex.Index         // optional; nil disables semantic_search's keyword leg
	embedder embed.Embedder          // optional; required to embed semantic_search's query text

	logger *slog.Logger
}

// Option configures optional collaborators on a Server.
type Option func(*Server)

func WithVectorIndex(idx vectorindex.VectorIndex) Option {
	return func(s *Server) { s.vectors = idx }
}

func WithKeywordIndex(idx textindex.Index) Option {
	return func(s *Server) { s.keywords = idx }
}

func WithEmbedder(e embed.Embedder) Option {
	return func(s *Server) { s.embedder = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer constructs an MCP server over the engine's VFS, dependency
// graph store, and cognitive memory manager. vfsStore, graphStore, and
// memory are required; the semantic_search collaborators are optional
// and degrade gracefully (see mcpSemanticSearchHandler).
func NewServer(vfsStore *vfs.VFS, graphStore *analysis.Store, memory *cognitive.Manager, opts ...Option) (*Server, error) {
	if vfsStore == nil {
		return nil, fmt.Errorf("mcpserver: vfs is required")
	}
	if graphStore == nil {
		return nil, fmt.Errorf("mcpserver: analysis store is required")
	}
	if memory == nil {
		return nil, fmt.Errorf("mcpserver: cognitive manager is required")
	}

	s := &Server{
		vfs:        vfsStore,
		graphStore: graphStore,
		memory:     memory,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "cortexd",
		Version: version.Version,
	}, nil)

	s.registerTools()
	return s, nil
}

// registerTools wires every tool handler into the underlying MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "read_file",
		Description: "Read a file's content from the virtual file system by workspace and path.",
	}, s.mcpReadFileHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "write_file",
		Description: "Write content to a file in the virtual file system, deduplicating storage by content hash.",
	}, s.mcpWriteFileHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_directory",
		Description: "List the vnodes under a directory path, optionally recursing into subdirectories.",
	}, s.mcpListDirectoryHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "graph_query",
		Description: "Query the code dependency graph: shortest path, all simple paths, cycles, topological layers, or betweenness centrality between or among code units.",
	}, s.mcpGraphQueryHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "semantic_search",
		Description: "Search code units by meaning, blending vector similarity and keyword matching when both are configured.",
	}, s.mcpSemanticSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_retrieve",
		Description: "Retrieve episodic memories relevant to a task under a named strategy: recency, relevance, importance, or hybrid.",
	}, s.mcpMemoryRetrieveHandler)

	s.logger.Info("mcp tools registered", slog.Int("count", 6))
}

// Serve starts the server on the given transport. Only "stdio" is
// currently implemented; addr is reserved for future network transports.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	s.logger.Info("starting mcp server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
		}
		return err
	default:
		return fmt.Errorf("mcpserver: unknown transport %q (supported: stdio)", transport)
	}
}

// Close releases server resources. The underlying SDK server has no
// close method of its own; it stops when Serve's context is canceled.
func (s *Server) Close() error { return nil }

// generateRequestID produces a short hex ID for log correlation across
// a single tool invocation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
