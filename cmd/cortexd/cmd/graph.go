package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cortexmind/cortexd/internal/config"
	"github.com/cortexmind/cortexd/internal/graph"
)

// graphQueryOutput mirrors mcpserver's GraphQueryOutput: whichever
// operation ran populates its field, the rest stay at zero value.
type graphQueryOutput struct {
	Path       []string           `json:"path,omitempty"`
	Paths      [][]string         `json:"paths,omitempty"`
	Cycles     [][]string         `json:"cycles,omitempty"`
	Layers     [][]string         `json:"layers,omitempty"`
	Centrality map[string]float64 `json:"centrality,omitempty"`
}

func newGraphCmd() *cobra.Command {
	var from, to, dir string
	var maxLength int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "graph [shortest_path|all_paths|cycles|layers|betweenness]",
		Short: "Run a dependency-graph algorithm over a workspace's code units",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, args[0], dir, from, to, maxLength, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Workspace directory")
	cmd.Flags().StringVar(&from, "from", "", "Source qualified name (shortest_path, all_paths)")
	cmd.Flags().StringVar(&to, "to", "", "Target qualified name (shortest_path, all_paths)")
	cmd.Flags().IntVar(&maxLength, "max-length", 10, "Maximum edge count for all_paths")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runGraph(cmd *cobra.Command, operation, dir, from, to string, maxLength int, jsonOutput bool) error {
	root, err := config.FindProjectRoot(dir)
	if err != nil {
		root, _ = os.Getwd()
	}

	engine, err := buildEngine(root, namespaceFor(root), debugMode)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer engine.Close()

	ctx := cmd.Context()
	workspaceID := workspaceIDFor(root)

	edges, err := engine.Graph.AllEdges(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("load dependency edges: %w", err)
	}
	g := graph.New()
	for _, e := range edges {
		g.AddEdge(e.FromUnit, e.ToUnit)
	}

	out, err := dispatchGraphQuery(g, operation, from, to, maxLength)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return printGraphQuery(cmd, operation, out)
}

func dispatchGraphQuery(g *graph.Graph, operation, from, to string, maxLength int) (graphQueryOutput, error) {
	switch operation {
	case "shortest_path":
		if from == "" || to == "" {
			return graphQueryOutput{}, fmt.Errorf("shortest_path requires both --from and --to")
		}
		p := graph.ShortestPath(g, from, to)
		if p == nil {
			return graphQueryOutput{}, nil
		}
		return graphQueryOutput{Path: p.Nodes}, nil

	case "all_paths":
		if from == "" || to == "" {
			return graphQueryOutput{}, fmt.Errorf("all_paths requires both --from and --to")
		}
		if maxLength <= 0 {
			maxLength = 10
		}
		paths := graph.AllPaths(g, from, to, maxLength)
		nodes := make([][]string, len(paths))
		for i, p := range paths {
			nodes[i] = p.Nodes
		}
		return graphQueryOutput{Paths: nodes}, nil

	case "cycles":
		cycles := graph.FindCycles(g)
		out := make([][]string, len(cycles))
		for i, c := range cycles {
			out[i] = []string(c)
		}
		return graphQueryOutput{Cycles: out}, nil

	case "layers":
		layers := graph.TopologicalLayers(g)
		out := make([][]string, len(layers))
		for i, l := range layers {
			out[i] = []string(l)
		}
		return graphQueryOutput{Layers: out}, nil

	case "betweenness":
		return graphQueryOutput{Centrality: graph.BetweennessCentrality(g)}, nil

	default:
		return graphQueryOutput{}, fmt.Errorf("unknown operation: %s", operation)
	}
}

func printGraphQuery(cmd *cobra.Command, operation string, out graphQueryOutput) error {
	w := cmd.OutOrStdout()
	switch operation {
	case "shortest_path":
		if out.Path == nil {
			fmt.Fprintln(w, "no path found")
			return nil
		}
		fmt.Fprintln(w, strings.Join(out.Path, " -> "))

	case "all_paths":
		if len(out.Paths) == 0 {
			fmt.Fprintln(w, "no paths found")
			return nil
		}
		for _, p := range out.Paths {
			fmt.Fprintln(w, strings.Join(p, " -> "))
		}

	case "cycles":
		if len(out.Cycles) == 0 {
			fmt.Fprintln(w, "no cycles found")
			return nil
		}
		for _, c := range out.Cycles {
			fmt.Fprintln(w, strings.Join(c, " -> "))
		}

	case "layers":
		for i, l := range out.Layers {
			fmt.Fprintf(w, "layer %d: %s\n", i, strings.Join(l, ", "))
		}

	case "betweenness":
		for node, score := range out.Centrality {
			fmt.Fprintf(w, "%s: %.4f\n", node, score)
		}
	}
	return nil
}
