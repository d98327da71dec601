package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/kraken-build/kraken/internal/term"
	"github.com/kraken-build/kraken/pkg/system"
)

// describeCmd represents the describe command
var describeCmd = &cobra.Command{
	Use:   "describe <selector>...",
	Short: "Show details of the selected tasks",
	Long: `Prints the address, description, properties and relationships of every task
matching the given selectors. Unset output properties show as deferred; they
only receive values during execution.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		bctx, _, err := newBuildContext(cmd)
		if err != nil {
			fail(err)
		}
		tasks, err := bctx.ResolveTasks(args...)
		if err != nil {
			fail(err)
		}
		for _, task := range tasks.Tasks() {
			describeOne(task)
		}
	},
}

func describeOne(task system.Task) {
	spec := task.Spec()
	fmt.Printf("task %s\n", spec.Address())
	if _, ok := task.(*system.GroupTask); ok {
		fmt.Println("  kind: group")
	}
	fmt.Printf("  default: %v\n", spec.Default)

	if spec.Description != "" {
		if rendered, err := renderMarkdown(spec.Description); err == nil {
			fmt.Print(rendered)
		} else {
			fmt.Printf("  %s\n", spec.Description)
		}
	}

	if slots := spec.Properties(); len(slots) > 0 {
		fmt.Println("  properties:")
		for _, slot := range slots {
			kind := "input"
			if slot.IsOutput() {
				kind = "output"
			}
			fmt.Printf("    %s (%s) = %s\n", slot.Name(), kind, slot.Describe())
		}
	}

	rels, err := task.Relationships()
	if err != nil {
		fmt.Printf("  relationships unresolvable: %v\n\n", err)
		return
	}
	if len(rels) > 0 {
		fmt.Println("  relationships:")
		for _, rel := range rels {
			direction := "depends on"
			if rel.Inverse {
				direction = "required by"
			}
			qualifier := "strict"
			if !rel.Strict {
				qualifier = "order-only"
			}
			if rel.PropertyDerived {
				qualifier += ", property"
			}
			fmt.Printf("    %s %s (%s)\n", direction, rel.Other.Spec().Address(), qualifier)
		}
	}
	fmt.Println()
}

func renderMarkdown(text string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(term.Width()))
	if err != nil {
		return "", err
	}
	return r.Render(text)
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
