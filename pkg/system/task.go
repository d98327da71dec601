// Package system holds the build data model: projects, tasks, typed
// properties and the selector resolution that turns address patterns into
// task sets.
package system

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/kraken-build/kraken/pkg/address"
	"github.com/kraken-build/kraken/pkg/supplier"
)

// Task is a unit of work with properties, relationships and a two-phase
// lifecycle: Prepare may decide that no work is needed, Execute performs it.
// Concrete tasks embed TaskSpec, which supplies everything except Execute.
type Task interface {
	// Spec returns the task's common state: address, project, properties,
	// relationships and flags.
	Spec() *TaskSpec

	// Relationships resolves all relationships of the task, both explicit
	// and inferred from property connections. Lazy selector relationships
	// are resolved against the project tree here, which can fail.
	Relationships() ([]Relationship, error)

	// Prepare runs before graph execution and may report that the task can
	// be skipped or is up to date. Returning a pending status means the
	// task needs to execute.
	Prepare() TaskStatus

	// Execute performs the task's work. All strict dependencies have
	// reached an ok status when this is called, so connected output
	// properties of dependencies are readable. Implementations must set
	// their own output properties before returning a terminal status.
	Execute(ctx context.Context) TaskStatus
}

// Relationship is a resolved directional relationship to another task. A
// strict relationship means Other must run (successfully) before or after
// this task depending on Inverse; a non-strict one only orders execution.
type Relationship struct {
	Other Task

	// Strict distinguishes a hard dependency from order-only sequencing.
	Strict bool

	// Inverse flips the direction: the other task depends on this one.
	Inverse bool

	// PropertyDerived marks relationships inferred from a property
	// connection to another task's output. Skip propagation treats these
	// edges specially: an unexecuted producer starves the consumer.
	PropertyDerived bool
}

type rawRelationship struct {
	other    Task
	selector string // set instead of other for lazy resolution
	strict   bool
	inverse  bool
}

// TaskSpec carries the state common to all tasks. It is embedded by concrete
// task types and bound to a name and project when the task is registered.
type TaskSpec struct {
	addr    address.Address
	name    string
	project *Project
	bound   bool

	// Description documents the task; rendered by ls and describe.
	Description string

	// Default marks the task as part of its project's default selection.
	Default bool

	// Selected records whether the task was explicitly named on the
	// command line. Tasks may alter behaviour based on it.
	Selected bool

	// ExtraOutputs holds arbitrary output objects next to output
	// properties, discoverable through OutputsOfType.
	ExtraOutputs []any

	logger    *slog.Logger
	slots     map[string]Slot
	slotOrder []string
	rels      []rawRelationship
}

// Spec returns the task spec itself; it makes any embedding struct satisfy
// the spec-carrying part of the Task interface.
func (s *TaskSpec) Spec() *TaskSpec { return s }

func (s *TaskSpec) bind(name string, project *Project) {
	s.name = name
	s.project = project
	s.addr = project.Address().Append(name)
	s.logger = project.logger.With("task", s.addr.String())
	s.bound = true
}

// Address returns the task address. It panics if the task has not been
// registered with a project yet.
func (s *TaskSpec) Address() address.Address {
	if !s.bound {
		panic("task is not registered with a project")
	}
	return s.addr
}

func (s *TaskSpec) Name() string      { return s.name }
func (s *TaskSpec) Project() *Project { return s.project }

// Logger returns the task-scoped logger.
func (s *TaskSpec) Logger() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

func (s *TaskSpec) registerSlot(slot Slot) {
	if s.slots == nil {
		s.slots = make(map[string]Slot)
	}
	if _, exists := s.slots[slot.Name()]; exists {
		panic(fmt.Sprintf("duplicate property %q", slot.Name()))
	}
	s.slots[slot.Name()] = slot
	s.slotOrder = append(s.slotOrder, slot.Name())
}

// Properties returns the task's properties in declaration order.
func (s *TaskSpec) Properties() []Slot {
	out := make([]Slot, 0, len(s.slotOrder))
	for _, name := range s.slotOrder {
		out = append(out, s.slots[name])
	}
	return out
}

// Property looks up a property by its declared name.
func (s *TaskSpec) Property(name string) (Slot, bool) {
	slot, ok := s.slots[name]
	return slot, ok
}

// DependsOn declares strict dependencies on other tasks.
func (s *TaskSpec) DependsOn(others ...Task) {
	for _, other := range others {
		s.rels = append(s.rels, rawRelationship{other: other, strict: true})
	}
}

// DependsOnOrderOnly declares order-only dependencies: if both tasks run,
// the other runs first, but its failure does not block this task.
func (s *TaskSpec) DependsOnOrderOnly(others ...Task) {
	for _, other := range others {
		s.rels = append(s.rels, rawRelationship{other: other})
	}
}

// RequiredBy declares inverse strict dependencies: the other tasks depend on
// this one.
func (s *TaskSpec) RequiredBy(others ...Task) {
	for _, other := range others {
		s.rels = append(s.rels, rawRelationship{other: other, strict: true, inverse: true})
	}
}

// DependsOnSelector declares a strict dependency on all tasks matching the
// selector. The selector is resolved lazily when relationships are queried,
// so it may name tasks that do not exist yet at declaration time.
func (s *TaskSpec) DependsOnSelector(selector string) {
	s.rels = append(s.rels, rawRelationship{selector: selector, strict: true})
}

// Relationships resolves property-derived and explicit relationships.
func (s *TaskSpec) Relationships() ([]Relationship, error) {
	var out []Relationship

	// Dependencies inferred through property lineage: any supplier in a
	// property's chain that is a property owned by another task implies
	// that task must have executed first.
	for _, name := range s.slotOrder {
		slot := s.slots[name]
		for _, owner := range lineageOwners(slot, s) {
			out = append(out, Relationship{Other: owner, Strict: true, PropertyDerived: true})
		}
	}

	for _, raw := range s.rels {
		if raw.selector != "" {
			resolved, err := ResolveTasks(s.project.Root(), s.project, []string{raw.selector})
			if err != nil {
				return nil, fmt.Errorf("in task %s: %w", s.addr, err)
			}
			for _, task := range resolved.Tasks() {
				out = append(out, Relationship{Other: task, Strict: raw.strict, Inverse: raw.inverse})
			}
			continue
		}
		out = append(out, Relationship{Other: raw.other, Strict: raw.strict, Inverse: raw.inverse})
	}
	return out, nil
}

// ownedSlot is implemented by properties; it exposes the owning task for
// lineage traversal without fixing the value type.
type ownedSlot interface {
	Owner() Task
	IsOutput() bool
}

func lineageOwners(slot Slot, self *TaskSpec) []Task {
	var owners []Task
	// Suppliers are always pointers, so interface keys hash on identity.
	seen := make(map[supplier.Any]struct{})
	queue := slot.Lineage()
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if _, ok := seen[node]; ok {
			continue
		}
		seen[node] = struct{}{}
		if owned, ok := node.(ownedSlot); ok {
			if owner := owned.Owner(); owner != nil && owner.Spec() != self {
				owners = append(owners, owner)
			}
		}
		queue = append(queue, node.Derived()...)
	}
	return owners
}

// Prepare is the default preparation: the task needs to execute.
func (s *TaskSpec) Prepare() TaskStatus { return Pending("") }

// Finalize freezes all input properties. Output properties stay writable
// since they are populated during execution.
func (s *TaskSpec) Finalize() {
	for _, name := range s.slotOrder {
		slot := s.slots[name]
		if !slot.IsOutput() {
			slot.Finalize()
		}
	}
}

// OutputsOfType collects all output values of the task assignable to the
// given type, from output properties (slice values flattened) and the
// ExtraOutputs list.
func (s *TaskSpec) OutputsOfType(target reflect.Type) []any {
	var out []any
	for _, name := range s.slotOrder {
		slot := s.slots[name]
		if !slot.IsOutput() {
			continue
		}
		out = append(out, slot.GetOfType(target)...)
	}
	for _, obj := range s.ExtraOutputs {
		if obj == nil {
			continue
		}
		if reflect.TypeOf(obj).AssignableTo(target) {
			out = append(out, obj)
		}
	}
	return out
}

// GroupTask aggregates tasks under a common name. It performs no work
// itself; targeting the group forces its members to execute.
type GroupTask struct {
	TaskSpec
	members []Task
}

// Add appends tasks to the group, ignoring duplicates.
func (g *GroupTask) Add(tasks ...Task) {
	for _, task := range tasks {
		duplicate := false
		for _, member := range g.members {
			if member == task {
				duplicate = true
				break
			}
		}
		if !duplicate {
			g.members = append(g.members, task)
		}
	}
}

// Members returns the tasks in the group.
func (g *GroupTask) Members() []Task {
	out := make([]Task, len(g.members))
	copy(out, g.members)
	return out
}

// Relationships lists the group members as strict dependencies, followed by
// the group's explicit relationships.
func (g *GroupTask) Relationships() ([]Relationship, error) {
	out := make([]Relationship, 0, len(g.members))
	for _, member := range g.members {
		out = append(out, Relationship{Other: member, Strict: true})
	}
	rest, err := g.TaskSpec.Relationships()
	if err != nil {
		return nil, err
	}
	return append(out, rest...), nil
}

// Prepare marks the group as skipped; groups carry no work of their own.
func (g *GroupTask) Prepare() TaskStatus { return Skipped("group task") }

// Execute must never be called on a group.
func (g *GroupTask) Execute(ctx context.Context) TaskStatus {
	panic(fmt.Sprintf("group task %s cannot be executed", g.addr))
}

// OutputsOfType includes the outputs of all group members.
func (g *GroupTask) OutputsOfType(target reflect.Type) []any {
	out := g.TaskSpec.OutputsOfType(target)
	for _, member := range g.members {
		out = append(out, member.Spec().outputsOfTypeVia(member, target)...)
	}
	return out
}

// outputsOfTypeVia dispatches to the concrete task's OutputsOfType if it
// overrides the default (nested groups), falling back to the spec's.
func (s *TaskSpec) outputsOfTypeVia(task Task, target reflect.Type) []any {
	if g, ok := task.(*GroupTask); ok {
		return g.OutputsOfType(target)
	}
	return s.OutputsOfType(target)
}

// VoidTask does nothing; by default it prepares as skipped. Useful as a
// placeholder and in tests.
type VoidTask struct {
	TaskSpec
	Skip    *Property[bool]
	Message *Property[string]
}

// NewVoidTask registers a VoidTask with the given project.
func NewVoidTask(project *Project, name string) (*VoidTask, error) {
	task := &VoidTask{}
	task.Skip = NewPropertyDefault[bool](task, "skip", true)
	task.Message = NewPropertyDefault[string](task, "message", "void task")
	if err := project.AddTask(name, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (t *VoidTask) Prepare() TaskStatus {
	if skip, _ := t.Skip.Get(); skip {
		return Skipped(t.Message.GetOr(""))
	}
	return Pending("")
}

func (t *VoidTask) Execute(ctx context.Context) TaskStatus {
	return Succeeded("")
}
