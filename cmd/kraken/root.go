package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kraken-build/kraken/internal/logging"
	"github.com/kraken-build/kraken/pkg/build"
)

var rootCmd = &cobra.Command{
	Use:   "kraken",
	Short: "Kraken is a task orchestration build tool",
	Long: `Kraken executes task graphs described by kraken.yaml manifests: projects
and tasks form a colon-addressed tree, selectors pick the goal tasks, and the
dependency graph decides what else runs.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the kraken.yaml manifest")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log verbosity (debug, info, warn, error)")
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	name, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// newBuildContext loads the manifest tree and wraps it in a build context.
func newBuildContext(cmd *cobra.Command, extra ...build.Option) (*build.Context, *slog.Logger, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	dir, _ := cmd.Flags().GetString("dir")
	root, err := loadProjectTree(dir, logger)
	if err != nil {
		return nil, nil, err
	}
	opts := append([]build.Option{build.WithLogger(logger)}, extra...)
	return build.NewContext(root, opts...), logger, nil
}

func fail(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}
