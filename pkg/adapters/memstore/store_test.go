package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraken-build/kraken/pkg/adapters/memstore"
	"github.com/kraken-build/kraken/pkg/ports/tests"
	"github.com/kraken-build/kraken/pkg/system"
)

func TestStoreContract(t *testing.T) {
	tests.StateStoreContractTest(t, memstore.New())
}

func TestStoredStateIsIsolated(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	state := system.NewBuildState("run")
	state.Tasks[":a"] = system.TaskState{Status: "succeeded"}
	require.NoError(t, store.Save(ctx, "run", state))

	// Mutating the original after saving must not leak into the store.
	state.Tasks[":a"] = system.TaskState{Status: "failed"}

	loaded, err := store.Load(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", loaded.Tasks[":a"].Status)

	// Mutating a loaded copy must not change the stored state either.
	loaded.Tasks[":a"] = system.TaskState{Status: "failed"}
	again, err := store.Load(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", again.Tasks[":a"].Status)
}
