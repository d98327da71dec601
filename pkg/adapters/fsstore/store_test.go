package fsstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraken-build/kraken/pkg/adapters/fsstore"
	"github.com/kraken-build/kraken/pkg/ports/tests"
	"github.com/kraken-build/kraken/pkg/system"
)

func TestStoreContract(t *testing.T) {
	tests.StateStoreContractTest(t, fsstore.New(t.TempDir()))
}

func TestDefaultDirectory(t *testing.T) {
	store := fsstore.New("")
	assert.Contains(t, store.Dir(), ".kraken")
}

func TestReadOnlyDirFallback(t *testing.T) {
	ctx := context.Background()
	shared := t.TempDir()
	sharedStore := fsstore.New(shared)
	state := system.NewBuildState("ci-run")
	state.Tasks[":build"] = system.TaskState{Status: "succeeded"}
	require.NoError(t, sharedStore.Save(ctx, "ci-run", state))

	store := fsstore.New(t.TempDir(), fsstore.WithReadOnlyDirs(shared))

	loaded, err := store.Load(ctx, "ci-run")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", loaded.Tasks[":build"].Status)

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "ci-run")

	// Deleting must not touch the read-only layer.
	require.NoError(t, store.Delete(ctx, "ci-run"))
	_, err = store.Load(ctx, "ci-run")
	assert.NoError(t, err, "state still present in the read-only layer")
	_, err = sharedStore.Load(ctx, "ci-run")
	assert.NoError(t, err)
}
