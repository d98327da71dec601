package system

import (
	"reflect"
	"sort"
)

// TaskSet is an ordered, duplicate-free collection of tasks. Resolution
// records which selector contributed each task so that callers can report
// per-selector results.
type TaskSet struct {
	tasks      []Task
	seen       map[Task]struct{}
	partitions map[string][]Task
	partOrder  []string
}

// NewTaskSet creates a set seeded with the given tasks.
func NewTaskSet(tasks ...Task) *TaskSet {
	s := &TaskSet{seen: make(map[Task]struct{})}
	s.Add(tasks...)
	return s
}

// Add appends tasks, skipping ones already present.
func (s *TaskSet) Add(tasks ...Task) {
	for _, task := range tasks {
		if _, ok := s.seen[task]; ok {
			continue
		}
		s.seen[task] = struct{}{}
		s.tasks = append(s.tasks, task)
	}
}

// AddPartition appends tasks and records them under the given selector.
// Re-adding a task extends the partition but not the ordered task list.
func (s *TaskSet) AddPartition(selector string, tasks ...Task) {
	s.Add(tasks...)
	if s.partitions == nil {
		s.partitions = make(map[string][]Task)
	}
	if _, ok := s.partitions[selector]; !ok {
		s.partOrder = append(s.partOrder, selector)
	}
	existing := s.partitions[selector]
	for _, task := range tasks {
		present := false
		for _, have := range existing {
			if have == task {
				present = true
				break
			}
		}
		if !present {
			existing = append(existing, task)
		}
	}
	s.partitions[selector] = existing
}

// Tasks returns the tasks in insertion order.
func (s *TaskSet) Tasks() []Task {
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Len returns the number of distinct tasks.
func (s *TaskSet) Len() int { return len(s.tasks) }

// Contains reports membership.
func (s *TaskSet) Contains(task Task) bool {
	_, ok := s.seen[task]
	return ok
}

// Partition returns the tasks recorded for a selector.
func (s *TaskSet) Partition(selector string) []Task {
	return s.partitions[selector]
}

// Selectors returns the recorded selectors in first-use order.
func (s *TaskSet) Selectors() []string {
	out := make([]string, len(s.partOrder))
	copy(out, s.partOrder)
	return out
}

// Sorted returns the tasks ordered by address, for stable display.
func (s *TaskSet) Sorted() []Task {
	out := s.Tasks()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Spec().Address().String() < out[j].Spec().Address().String()
	})
	return out
}

// SelectOutputs collects output values assignable to T across all tasks in
// the set, including group members.
func SelectOutputs[T any](s *TaskSet) []T {
	target := reflect.TypeOf((*T)(nil)).Elem()
	var out []T
	for _, task := range s.tasks {
		var values []any
		if group, ok := task.(*GroupTask); ok {
			values = group.OutputsOfType(target)
		} else {
			values = task.Spec().OutputsOfType(target)
		}
		for _, v := range values {
			out = append(out, v.(T))
		}
	}
	return out
}
