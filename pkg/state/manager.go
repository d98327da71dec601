// Package state serializes access to a build state store. Several builds may
// share one state directory or Redis database; the manager guards each state
// name with a local mutex and, optionally, a distributed lock.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kraken-build/kraken/internal/logging"
	"github.com/kraken-build/kraken/pkg/ports"
	"github.com/kraken-build/kraken/pkg/system"
)

// lockTTL bounds how long a crashed process can hold a distributed lock.
const lockTTL = 30 * time.Second

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager wraps a BuildStateStore with per-name locking. Lock entries are
// reference counted and dropped when unused.
type Manager struct {
	store ports.BuildStateStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.Locker
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking around store writes.
func WithLocker(locker ports.Locker) Option {
	return func(m *Manager) { m.locker = locker }
}

// WithLogger configures the logger used for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a manager over the given store.
func NewManager(store ports.BuildStateStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) acquire(name string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[name]
	if !ok {
		entry = &lockEntry{}
		m.locks[name] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[name]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, name)
	}
}

// WithLock runs fn while holding the local (and, if configured, distributed)
// lock for the state name.
func (m *Manager) WithLock(ctx context.Context, name string, fn func(context.Context) error) error {
	entry := m.acquire(name)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(name)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, name, lockTTL)
		if err != nil {
			return fmt.Errorf("acquiring distributed lock for state %q: %w", name, err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock, it will expire via TTL",
					"state", name, "err", err)
			}
		}()
	}

	return fn(ctx)
}

// Load retrieves the state under the given name.
func (m *Manager) Load(ctx context.Context, name string) (*system.BuildState, error) {
	var state *system.BuildState
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, name)
		return err
	})
	return state, err
}

// Save persists the state under its name.
func (m *Manager) Save(ctx context.Context, state *system.BuildState) error {
	return m.WithLock(ctx, state.Name, func(ctx context.Context) error {
		return m.store.Save(ctx, state.Name, state)
	})
}

// Delete removes the state under the given name.
func (m *Manager) Delete(ctx context.Context, name string) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		return m.store.Delete(ctx, name)
	})
}

// List returns the stored state names.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying store.
func (m *Manager) Store() ports.BuildStateStore {
	return m.store
}
