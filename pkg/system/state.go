package system

import (
	"time"
)

// BuildState is the persisted outcome of a run: for every task that reached a
// terminal status, the status, its message and the values of its output
// properties. Loading it into a later run makes finished work resumable.
type BuildState struct {
	Name      string               `yaml:"name" json:"name"`
	CreatedAt time.Time            `yaml:"createdAt" json:"createdAt"`
	Tasks     map[string]TaskState `yaml:"tasks" json:"tasks"`
}

// TaskState is the persisted record of one task, keyed by address in
// BuildState.Tasks.
type TaskState struct {
	Status  string         `yaml:"status" json:"status"`
	Message string         `yaml:"message,omitempty" json:"message,omitempty"`
	Outputs map[string]any `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

// NewBuildState creates an empty state for the given run name.
func NewBuildState(name string) *BuildState {
	return &BuildState{
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Tasks:     make(map[string]TaskState),
	}
}

// RecordTask stores the terminal status of a task along with its populated
// output property values. Non-terminal statuses are ignored, and output
// properties that are still deferred or empty are left out.
func (b *BuildState) RecordTask(task Task, status TaskStatus) {
	if !status.Terminal() {
		return
	}
	record := TaskState{
		Status:  status.Kind.String(),
		Message: status.Message,
	}
	if status.Executed() {
		for _, slot := range task.Spec().Properties() {
			if !slot.IsOutput() {
				continue
			}
			value, err := slot.ValueAny()
			if err != nil {
				continue
			}
			if record.Outputs == nil {
				record.Outputs = make(map[string]any)
			}
			record.Outputs[slot.Name()] = value
		}
	}
	b.Tasks[task.Spec().Address().String()] = record
}

// Statuses converts the persisted records back into task statuses, keyed by
// address. Records with unknown status names are dropped.
func (b *BuildState) Statuses() map[string]TaskStatus {
	out := make(map[string]TaskStatus, len(b.Tasks))
	for addr, record := range b.Tasks {
		kind, err := ParseStatusKind(record.Status)
		if err != nil {
			continue
		}
		out[addr] = TaskStatus{Kind: kind, Message: record.Message}
	}
	return out
}

// RestoreOutputs writes persisted output values back into the matching
// properties of tasks in the tree, so dependents of previously executed
// tasks can read them. Tasks or properties that no longer exist are skipped;
// a value that no longer decodes into its property type is an error.
func (b *BuildState) RestoreOutputs(root *Project) error {
	for addrStr, record := range b.Tasks {
		if len(record.Outputs) == 0 {
			continue
		}
		var task Task
		root.Walk(func(p *Project) {
			for _, candidate := range p.Tasks() {
				if candidate.Spec().Address().String() == addrStr {
					task = candidate
				}
			}
		})
		if task == nil {
			continue
		}
		for name, value := range record.Outputs {
			slot, ok := task.Spec().Property(name)
			if !ok || !slot.IsOutput() {
				continue
			}
			if err := slot.SetAny(value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Merge copies records from other into b, keeping existing entries on
// conflict. Used to layer read-only state directories under the primary one.
func (b *BuildState) Merge(other *BuildState) {
	for addr, record := range other.Tasks {
		if _, ok := b.Tasks[addr]; !ok {
			b.Tasks[addr] = record
		}
	}
}
