package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kraken-build/kraken/pkg/build"
	"github.com/kraken-build/kraken/pkg/graph"
	"github.com/kraken-build/kraken/pkg/system"
)

// vizCmd represents the viz command
var vizCmd = &cobra.Command{
	Use:   "viz [selectors...]",
	Short: "Export the execution graph in DOT format",
	Long: `Prints the execution graph for the given selectors as a Graphviz digraph,
suitable for piping into "dot -Tsvg". Strict dependencies render solid,
order-only ones dashed, property connections blue.`,
	Run: func(cmd *cobra.Command, args []string) {
		all, _ := cmd.Flags().GetBool("all")

		bctx, _, err := newBuildContext(cmd)
		if err != nil {
			fail(err)
		}
		g, err := bctx.BuildGraph(cmd.Context(), build.RunOptions{Selectors: args, All: all})
		if err != nil {
			fail(err)
		}
		fmt.Print(renderDOT(g))
	},
}

func renderDOT(g *graph.Graph) string {
	var b strings.Builder
	b.WriteString("digraph kraken {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")
	for _, task := range g.Tasks() {
		attrs := ""
		if g.IsGoal(task) {
			attrs = " [style=bold]"
		} else if _, ok := task.(*system.GroupTask); ok {
			attrs = " [style=rounded]"
		}
		fmt.Fprintf(&b, "  %q%s;\n", task.Spec().Address().String(), attrs)
	}
	for _, task := range g.Tasks() {
		for _, dep := range g.Dependencies(task) {
			edge, _ := g.EdgeBetween(dep, task)
			style := "solid"
			if !edge.Strict {
				style = "dashed"
			}
			color := ""
			if edge.Property {
				color = ", color=blue"
			}
			fmt.Fprintf(&b, "  %q -> %q [style=%s%s];\n",
				dep.Spec().Address().String(), task.Spec().Address().String(), style, color)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func init() {
	rootCmd.AddCommand(vizCmd)
	vizCmd.Flags().Bool("all", false, "Keep workless group chains in the graph")
}
