// Package memstore keeps build state in memory. Used by tests and by runs
// with persistence disabled.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/kraken-build/kraken/pkg/ports"
	"github.com/kraken-build/kraken/pkg/system"
)

// Store implements ports.BuildStateStore in process memory. Safe for
// concurrent use. States are deep-copied on the way in and out so callers
// cannot mutate stored data.
type Store struct {
	mu     sync.RWMutex
	states map[string]*system.BuildState
}

// New creates an empty store.
func New() *Store {
	return &Store{states: make(map[string]*system.BuildState)}
}

func clone(state *system.BuildState) *system.BuildState {
	out := &system.BuildState{
		Name:      state.Name,
		CreatedAt: state.CreatedAt,
		Tasks:     make(map[string]system.TaskState, len(state.Tasks)),
	}
	for addr, record := range state.Tasks {
		copied := record
		if record.Outputs != nil {
			copied.Outputs = make(map[string]any, len(record.Outputs))
			for k, v := range record.Outputs {
				copied.Outputs[k] = v
			}
		}
		out.Tasks[addr] = copied
	}
	return out
}

func (s *Store) Save(ctx context.Context, name string, state *system.BuildState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[name] = clone(state)
	return nil
}

func (s *Store) Load(ctx context.Context, name string) (*system.BuildState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[name]
	if !ok {
		return nil, ports.ErrStateNotFound
	}
	return clone(state), nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, name)
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.states))
	for name := range s.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
