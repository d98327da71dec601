package state_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraken-build/kraken/pkg/adapters/memstore"
	"github.com/kraken-build/kraken/pkg/ports"
	"github.com/kraken-build/kraken/pkg/state"
	"github.com/kraken-build/kraken/pkg/system"
)

func TestManagerRoundTrip(t *testing.T) {
	manager := state.NewManager(memstore.New())
	ctx := context.Background()

	saved := system.NewBuildState("run-1")
	saved.Tasks[":compile"] = system.TaskState{Status: "succeeded"}
	require.NoError(t, manager.Save(ctx, saved))

	loaded, err := manager.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", loaded.Tasks[":compile"].Status)

	names, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, names)

	require.NoError(t, manager.Delete(ctx, "run-1"))
	_, err = manager.Load(ctx, "run-1")
	assert.ErrorIs(t, err, ports.ErrStateNotFound)
}

func TestManagerSerializesAccessPerName(t *testing.T) {
	manager := state.NewManager(memstore.New())
	ctx := context.Background()

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, "shared", func(context.Context) error {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxActive, "critical sections for one name never overlap")
}

func TestManagerIndependentNames(t *testing.T) {
	manager := state.NewManager(memstore.New())
	ctx := context.Background()

	// A lock held on one name must not block another name.
	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = manager.WithLock(ctx, "a", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	done := make(chan struct{})
	go func() {
		_ = manager.WithLock(ctx, "b", func(context.Context) error { return nil })
		close(done)
	}()
	<-done
	close(release)
}

// stubLocker records lock activity; with err set it stands in for an
// unreachable Redis.
type stubLocker struct {
	err      error
	keys     []string
	unlocked int
}

func (l *stubLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return nil, l.err
	}
	return func(context.Context) error {
		l.unlocked++
		return nil
	}, nil
}

func TestManagerDistributedLockErrors(t *testing.T) {
	locker := &stubLocker{err: assert.AnError}
	manager := state.NewManager(memstore.New(), state.WithLocker(locker))

	err := manager.Save(context.Background(), system.NewBuildState("run-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"run-1"}, locker.keys)
}

func TestManagerDistributedLockReleased(t *testing.T) {
	locker := &stubLocker{}
	manager := state.NewManager(memstore.New(), state.WithLocker(locker))

	require.NoError(t, manager.Save(context.Background(), system.NewBuildState("run-1")))
	assert.Equal(t, 1, locker.unlocked)
}
