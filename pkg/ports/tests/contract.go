// Package tests holds reusable contract suites that verify adapter
// implementations against their port interfaces.
package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraken-build/kraken/pkg/ports"
	"github.com/kraken-build/kraken/pkg/system"
)

// StateStoreContractTest verifies that a store complies with
// ports.BuildStateStore. Every adapter runs it.
func StateStoreContractTest(t *testing.T, store ports.BuildStateStore) {
	t.Helper()
	ctx := context.Background()

	sample := func(name string) *system.BuildState {
		state := system.NewBuildState(name)
		state.Tasks[":compile"] = system.TaskState{
			Status:  "succeeded",
			Outputs: map[string]any{"binary": "out/bin"},
		}
		state.Tasks[":lint"] = system.TaskState{
			Status:  "failed",
			Message: "2 issues",
		}
		return state
	}

	t.Run("SaveAndLoad", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "run-1", sample("run-1")))

		loaded, err := store.Load(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, "run-1", loaded.Name)
		require.Contains(t, loaded.Tasks, ":compile")
		assert.Equal(t, "succeeded", loaded.Tasks[":compile"].Status)
		assert.Equal(t, "2 issues", loaded.Tasks[":lint"].Message)
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "run-1", sample("run-1")))
		updated := sample("run-1")
		updated.Tasks[":lint"] = system.TaskState{Status: "succeeded"}
		require.NoError(t, store.Save(ctx, "run-1", updated))

		loaded, err := store.Load(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, "succeeded", loaded.Tasks[":lint"].Status)
	})

	t.Run("LoadMissing", func(t *testing.T) {
		_, err := store.Load(ctx, "no-such-run")
		assert.ErrorIs(t, err, ports.ErrStateNotFound)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "run-1", sample("run-1")))
		require.NoError(t, store.Save(ctx, "run-2", sample("run-2")))

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, "run-1")
		assert.Contains(t, names, "run-2")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "run-gone", sample("run-gone")))
		require.NoError(t, store.Delete(ctx, "run-gone"))
		_, err := store.Load(ctx, "run-gone")
		assert.ErrorIs(t, err, ports.ErrStateNotFound)

		assert.NoError(t, store.Delete(ctx, "run-gone"), "deleting twice is fine")
	})
}
