package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kraken-build/kraken/pkg/adapters/fsstore"
	"github.com/kraken-build/kraken/pkg/state"
)

// stateCmd represents the state command group
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and manage persisted run states",
}

var stateLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List persisted run states",
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := newStateManager(cmd)
		if err != nil {
			fail(err)
		}
		names, err := manager.List(cmd.Context())
		if err != nil {
			fail(err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	},
}

var stateShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a persisted run state",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := newStateManager(cmd)
		if err != nil {
			fail(err)
		}
		loaded, err := manager.Load(cmd.Context(), args[0])
		if err != nil {
			fail(err)
		}
		data, err := yaml.Marshal(loaded)
		if err != nil {
			fail(err)
		}
		fmt.Print(string(data))
	},
}

var stateRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a persisted run state",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := newStateManager(cmd)
		if err != nil {
			fail(err)
		}
		if err := manager.Delete(cmd.Context(), args[0]); err != nil {
			fail(err)
		}
	},
}

func newStateManager(cmd *cobra.Command) (*state.Manager, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	stateDir, _ := cmd.Flags().GetString("state-dir")
	readOnlyDirs, _ := cmd.Flags().GetStringArray("read-only-state-dir")
	store := fsstore.New(stateDir, fsstore.WithReadOnlyDirs(readOnlyDirs...))
	return state.NewManager(store, state.WithLogger(logger)), nil
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateLsCmd, stateShowCmd, stateRmCmd)

	stateCmd.PersistentFlags().String("state-dir", "", "Directory for persisted run state (default .kraken/state)")
	stateCmd.PersistentFlags().StringArray("read-only-state-dir", nil, "Additional read-only state directories")
}
