package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kraken-build/kraken/internal/term"
	"github.com/kraken-build/kraken/pkg/adapters/fsstore"
	"github.com/kraken-build/kraken/pkg/build"
	"github.com/kraken-build/kraken/pkg/executor"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [selectors...]",
	Short: "Execute the selected tasks and their dependencies",
	Long: `Resolves the given selectors against the project tree, builds the dependency
graph and executes it. Without selectors the default tasks of the project and
its subprojects run.`,
	Run: func(cmd *cobra.Command, args []string) {
		exclude, _ := cmd.Flags().GetStringArray("exclude")
		excludeSubgraph, _ := cmd.Flags().GetStringArray("exclude-subgraph")
		allowNoTasks, _ := cmd.Flags().GetBool("allow-no-tasks")
		resume, _ := cmd.Flags().GetBool("resume")
		restart, _ := cmd.Flags().GetBool("restart")
		noSave, _ := cmd.Flags().GetBool("no-save")
		all, _ := cmd.Flags().GetBool("all")
		stateName, _ := cmd.Flags().GetString("state-name")
		stateDir, _ := cmd.Flags().GetString("state-dir")
		readOnlyDirs, _ := cmd.Flags().GetStringArray("read-only-state-dir")

		store := fsstore.New(stateDir, fsstore.WithReadOnlyDirs(readOnlyDirs...))
		bctx, _, err := newBuildContext(cmd,
			build.WithStateStore(store),
			build.WithObserver(executor.NewConsoleObserver(term.Output())),
		)
		if err != nil {
			fail(err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = bctx.Run(ctx, build.RunOptions{
			Selectors:       args,
			Exclude:         exclude,
			ExcludeSubgraph: excludeSubgraph,
			AllowNoTasks:    allowNoTasks,
			All:             all,
			Resume:          resume,
			Restart:         restart,
			NoSave:          noSave,
			StateName:       stateName,
		})
		if err != nil {
			fail(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayP("exclude", "x", nil, "Mark matching tasks as skipped")
	runCmd.Flags().StringArrayP("exclude-subgraph", "X", nil, "Remove matching tasks and everything that depends on them")
	runCmd.Flags().Bool("allow-no-tasks", false, "Treat an empty selection as success")
	runCmd.Flags().Bool("resume", false, "Load the persisted state and only run unfinished tasks")
	runCmd.Flags().Bool("restart", false, "With --resume, discard loaded statuses and re-run everything")
	runCmd.Flags().Bool("no-save", false, "Do not persist the run state")
	runCmd.Flags().Bool("all", false, "Keep workless group chains in the graph")
	runCmd.Flags().String("state-name", "default", "Name of the persisted run state")
	runCmd.Flags().String("state-dir", "", "Directory for persisted run state (default .kraken/state)")
	runCmd.Flags().StringArray("read-only-state-dir", nil, "Additional read-only state directories")

	// Make 'run' the default if no command is provided.
	rootCmd.Run = runCmd.Run
}
