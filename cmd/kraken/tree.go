package main

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/kraken-build/kraken/internal/term"
	"github.com/kraken-build/kraken/pkg/adapters/fsstore"
	"github.com/kraken-build/kraken/pkg/build"
	"github.com/kraken-build/kraken/pkg/graph"
	"github.com/kraken-build/kraken/pkg/system"
)

// treeCmd represents the tree command
var treeCmd = &cobra.Command{
	Use:   "tree [selectors...]",
	Short: "Show the execution graph as a status-annotated tree",
	Long: `Builds the execution graph for the given selectors (the defaults when
omitted) and prints the project tree with the tasks that are part of the
graph, annotated with their status. With --resume the statuses of a persisted
state are loaded first.`,
	Run: func(cmd *cobra.Command, args []string) {
		resume, _ := cmd.Flags().GetBool("resume")
		all, _ := cmd.Flags().GetBool("all")
		stateName, _ := cmd.Flags().GetString("state-name")
		stateDir, _ := cmd.Flags().GetString("state-dir")

		store := fsstore.New(stateDir)
		bctx, _, err := newBuildContext(cmd, build.WithStateStore(store))
		if err != nil {
			fail(err)
		}

		g, err := bctx.BuildGraph(cmd.Context(), build.RunOptions{
			Selectors: args,
			All:       all,
			Resume:    resume,
			StateName: stateName,
		})
		if err != nil {
			fail(err)
		}

		printProjectTree(term.Output(), g, bctx.Root(), 0)
	},
}

func printProjectTree(out *termenv.Output, g *graph.Graph, p *system.Project, depth int) {
	if !subtreeInGraph(g, p) {
		return
	}
	indent := strings.Repeat("  ", depth)
	label := p.Address().String()
	if !p.IsRoot() {
		label = p.Name()
	}
	fmt.Fprintf(out, "%s%s\n", indent, out.String(label).Bold())
	for _, task := range p.Tasks() {
		if !g.Contains(task) {
			continue
		}
		status := g.StatusOf(task)
		fmt.Fprintf(out, "%s  %-24s %s\n", indent, task.Spec().Name(), colorStatus(out, status))
	}
	for _, child := range p.Subprojects() {
		printProjectTree(out, g, child, depth+1)
	}
}

func subtreeInGraph(g *graph.Graph, p *system.Project) bool {
	for _, task := range p.Tasks() {
		if g.Contains(task) {
			return true
		}
	}
	for _, child := range p.Subprojects() {
		if subtreeInGraph(g, child) {
			return true
		}
	}
	return false
}

func colorStatus(out *termenv.Output, status system.TaskStatus) string {
	var color string
	switch status.Kind {
	case system.StatusSucceeded, system.StatusUpToDate:
		color = "2" // green
	case system.StatusFailed, system.StatusInterrupted:
		color = "1" // red
	case system.StatusWarning:
		color = "3" // yellow
	case system.StatusSkipped:
		color = "8" // gray
	default:
		return status.String()
	}
	return out.String(status.String()).Foreground(out.Profile.Color(color)).String()
}

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().Bool("resume", false, "Annotate with statuses loaded from the persisted state")
	treeCmd.Flags().Bool("all", false, "Keep workless group chains in the graph")
	treeCmd.Flags().String("state-name", "default", "Name of the persisted run state")
	treeCmd.Flags().String("state-dir", "", "Directory for persisted run state (default .kraken/state)")
}
