package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kraken-build/kraken/internal/term"
	"github.com/kraken-build/kraken/pkg/system"
)

// lsCmd represents the ls command
var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the tasks of the project tree",
	Run: func(cmd *cobra.Command, args []string) {
		bctx, _, err := newBuildContext(cmd)
		if err != nil {
			fail(err)
		}
		defaultOnly, _ := cmd.Flags().GetBool("default")

		out := term.Output()
		width := term.Width()
		bctx.Root().Walk(func(p *system.Project) {
			tasks := p.Tasks()
			if defaultOnly {
				tasks = p.DefaultTasks()
			}
			if len(tasks) == 0 {
				return
			}
			fmt.Fprintln(out, out.String(p.Address().String()).Bold())
			for _, task := range tasks {
				spec := task.Spec()
				marker := " "
				if spec.Default {
					marker = out.String("*").Foreground(out.Profile.Color("2")).String()
				}
				desc := spec.Description
				// Column prefix: two spaces, marker, space, padded name, space.
				if limit := width - 30; limit > 3 && len(desc) > limit {
					desc = desc[:limit-3] + "..."
				}
				fmt.Fprintf(out, "  %s %-24s %s\n", marker, spec.Name(), desc)
			}
			fmt.Fprintln(out)
		})
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().Bool("default", false, "Only list tasks that run by default")
}
