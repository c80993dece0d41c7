package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cortexmind/cortexd/internal/config"
	"github.com/cortexmind/cortexd/internal/mcpserver"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: "Start the MCP server over the workspace at path (default: current directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (only stdio is wired)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string, transport string) error {
	startDir := "."
	if len(args) > 0 {
		startDir = args[0]
	}
	root, err := config.FindProjectRoot(startDir)
	if err != nil {
		root, _ = os.Getwd()
	}

	engine, err := buildEngine(root, namespaceFor(root), debugMode)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	server, err := mcpserver.NewServer(engine.VFS, engine.Graph, engine.Memory,
		mcpserver.WithVectorIndex(engine.Vectors),
		mcpserver.WithKeywordIndex(engine.Keywords),
		mcpserver.WithEmbedder(engine.Embedder),
		mcpserver.WithLogger(engine.Logger),
	)
	if err != nil {
		return fmt.Errorf("construct mcp server: %w", err)
	}
	defer server.Close()

	// stdout is reserved exclusively for MCP JSON-RPC traffic from here on.
	return server.Serve(cmd.Context(), transport, "")
}
