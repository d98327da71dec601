// Package fsstore persists build state as YAML files in a state directory.
package fsstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kraken-build/kraken/pkg/ports"
	"github.com/kraken-build/kraken/pkg/system"
)

const fileExt = ".yaml"

// Store implements ports.BuildStateStore on the local filesystem. Each state
// is one YAML file named after the state name. Additional read-only
// directories can be layered below the primary one; they are consulted on
// Load and List but never written.
type Store struct {
	dir      string
	readOnly []string
}

// Option configures the store.
type Option func(*Store)

// WithReadOnlyDirs adds directories that are searched on Load when the
// primary directory has no matching state. Useful for sharing state produced
// elsewhere, e.g. by a CI pipeline.
func WithReadOnlyDirs(dirs ...string) Option {
	return func(s *Store) { s.readOnly = append(s.readOnly, dirs...) }
}

// New creates a store rooted at dir. An empty dir defaults to
// ".kraken/state".
func New(dir string, opts ...Option) *Store {
	if dir == "" {
		dir = filepath.Join(".kraken", "state")
	}
	s := &Store{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the primary state directory.
func (s *Store) Dir() string { return s.dir }

func statePath(dir, name string) string {
	return filepath.Join(dir, name+fileExt)
}

// Save writes the state atomically: marshal to a temp file in the same
// directory, fsync, rename over the destination.
func (s *Store) Save(ctx context.Context, name string, state *system.BuildState) error {
	if name == "" {
		return fmt.Errorf("state name must not be empty")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling state %q: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "tmp-"+name+"-*"+fileExt)
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, statePath(s.dir, name)); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// Load reads the state with the given name, falling back to the read-only
// directories when the primary directory has none.
func (s *Store) Load(ctx context.Context, name string) (*system.BuildState, error) {
	if name == "" {
		return nil, fmt.Errorf("state name must not be empty")
	}
	for _, dir := range append([]string{s.dir}, s.readOnly...) {
		data, err := os.ReadFile(statePath(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading state file: %w", err)
		}
		var state system.BuildState
		if err := yaml.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("unmarshaling state %q: %w", name, err)
		}
		return &state, nil
	}
	return nil, ports.ErrStateNotFound
}

// Delete removes the state file from the primary directory.
func (s *Store) Delete(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("state name must not be empty")
	}
	err := os.Remove(statePath(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting state file: %w", err)
	}
	return nil
}

// List returns the state names present in the primary and read-only
// directories, sorted and deduplicated.
func (s *Store) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, dir := range append([]string{s.dir}, s.readOnly...) {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("listing state directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
				continue
			}
			if strings.HasPrefix(entry.Name(), "tmp-") {
				continue
			}
			seen[strings.TrimSuffix(entry.Name(), fileExt)] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
