// Package cmd provides the CLI commands for cortexd.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cortexmind/cortexd/pkg/version"
)

var debugMode bool

// NewRootCmd creates the root command for the cortexd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cortexd",
		Short: "A persistent, queryable cognitive model of a codebase",
		Long: `cortexd maintains a content-addressed virtual filesystem, a
code-unit dependency graph, a semantic vector store, and a cognitive
memory manager over one or more workspaces, exposed to coding agents
over the Model Context Protocol.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("cortexd version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newGraphCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
