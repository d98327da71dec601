package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraken-build/kraken/pkg/adapters/redisstore"
	"github.com/kraken-build/kraken/pkg/ports/tests"
)

func newClient(t *testing.T) *backend.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestStoreContract(t *testing.T) {
	tests.StateStoreContractTest(t, redisstore.NewFromClient(newClient(t)))
}

func TestLockerMutualExclusion(t *testing.T) {
	ctx := context.Background()
	locker := redisstore.NewLocker(newClient(t), "kraken:state:")

	unlock, err := locker.Lock(ctx, "run-1", time.Minute)
	require.NoError(t, err)

	// A second acquisition must not proceed while the lock is held.
	blocked, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(blocked, "run-1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "run-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLockerIndependentKeys(t *testing.T) {
	ctx := context.Background()
	locker := redisstore.NewLocker(newClient(t), "kraken:state:")

	unlockA, err := locker.Lock(ctx, "run-a", time.Minute)
	require.NoError(t, err)
	defer unlockA(ctx)

	unlockB, err := locker.Lock(ctx, "run-b", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlockB(ctx))
}
