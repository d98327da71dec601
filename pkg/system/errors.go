package system

import (
	"fmt"

	"github.com/kraken-build/kraken/pkg/address"
)

// TaskNotFoundError is returned when a literal (non-glob) selector matches no
// task. Glob selectors matching nothing are not an error.
type TaskNotFoundError struct {
	Selector string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("selector %q matched no tasks", e.Selector)
}

// ProjectNotFoundError is returned when an address does not refer to a
// project in the tree.
type ProjectNotFoundError struct {
	Address address.Address
}

func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("no project at address %q", e.Address)
}

// MemberExistsError is returned when a task or subproject name is already
// taken within a project. Task and project names share one namespace.
type MemberExistsError struct {
	Project address.Address
	Name    string
}

func (e *MemberExistsError) Error() string {
	return fmt.Sprintf("project %q already has a member named %q", e.Project, e.Name)
}
