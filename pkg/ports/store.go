package ports

import (
	"context"
	"errors"

	"github.com/kraken-build/kraken/pkg/system"
)

// ErrStateNotFound is returned by BuildStateStore.Load when no state exists
// under the requested name.
var ErrStateNotFound = errors.New("build state not found")

// BuildStateStore persists run state under a state name. This enables
// resumable builds: a later run loads the terminal statuses and output values
// of an earlier one and only executes what is left.
type BuildStateStore interface {
	// Save persists the state under its name.
	Save(ctx context.Context, name string, state *system.BuildState) error

	// Load retrieves the state for a name. Returns ErrStateNotFound if no
	// state with that name exists.
	Load(ctx context.Context, name string) (*system.BuildState, error)

	// Delete removes the state for a name. Deleting a missing state is not
	// an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored states.
	List(ctx context.Context) ([]string, error)
}
