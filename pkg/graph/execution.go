package graph

import (
	"fmt"

	"github.com/kraken-build/kraken/pkg/system"
)

// StatusOf returns the recorded status of a task. Tasks without a recorded
// status are pending.
func (g *Graph) StatusOf(task system.Task) system.TaskStatus {
	if status, ok := g.statuses[task]; ok {
		return status
	}
	return system.Pending("")
}

// SetStatus records a status transition. A terminal status is final: setting
// another status afterwards is a logic error.
func (g *Graph) SetStatus(task system.Task, status system.TaskStatus) error {
	if g.node(task) == nil {
		return fmt.Errorf("task %s is not part of the graph", task.Spec().Address())
	}
	if current, ok := g.statuses[task]; ok && current.Terminal() {
		return fmt.Errorf("task %s already finished as %s, cannot transition to %s",
			task.Spec().Address(), current, status)
	}
	g.statuses[task] = status
	return nil
}

// Ready returns the tasks that may run now, in deterministic graph order: no
// status yet, every strict dependency terminal and ok, every order-only
// dependency terminal.
func (g *Graph) Ready() []system.Task {
	var out []system.Task
	for _, task := range g.order {
		if _, started := g.statuses[task]; started {
			continue
		}
		if g.depsSatisfied(task) {
			out = append(out, task)
		}
	}
	return out
}

func (g *Graph) depsSatisfied(task system.Task) bool {
	n := g.node(task)
	for _, dep := range n.predOrder {
		status, ok := g.statuses[dep]
		if !ok || !status.Terminal() {
			return false
		}
		if n.preds[dep].Strict && !status.Ok() {
			return false
		}
	}
	return true
}

// PropertyStarved returns pending tasks that can never obtain their inputs: a
// strict property-derived dependency finished without executing (skipped or
// excluded), so the connected output will stay deferred. The executor marks
// these skipped before asking for ready tasks.
func (g *Graph) PropertyStarved() []system.Task {
	var out []system.Task
	for _, task := range g.order {
		if _, started := g.statuses[task]; started {
			continue
		}
		n := g.node(task)
		for _, dep := range n.predOrder {
			edge := n.preds[dep]
			if !edge.Property || !edge.Strict {
				continue
			}
			status, ok := g.statuses[dep]
			if ok && status.Terminal() && status.Ok() && !status.Executed() {
				out = append(out, task)
				break
			}
		}
	}
	return out
}

// IsComplete reports whether every task finished with an ok status.
func (g *Graph) IsComplete() bool {
	for _, task := range g.order {
		status, ok := g.statuses[task]
		if !ok || !status.Ok() {
			return false
		}
	}
	return true
}

// Pending returns the tasks that have no recorded status yet.
func (g *Graph) Pending() []system.Task {
	var out []system.Task
	for _, task := range g.order {
		if _, started := g.statuses[task]; !started {
			out = append(out, task)
		}
	}
	return out
}

// NotExecuted returns pending tasks that are blocked for good because a
// strict dependency failed or was interrupted.
func (g *Graph) NotExecuted() []system.Task {
	var out []system.Task
	for _, task := range g.order {
		if _, started := g.statuses[task]; started {
			continue
		}
		if g.blockedByFailure(task, make(map[system.Task]struct{})) {
			out = append(out, task)
		}
	}
	return out
}

func (g *Graph) blockedByFailure(task system.Task, seen map[system.Task]struct{}) bool {
	if _, ok := seen[task]; ok {
		return false
	}
	seen[task] = struct{}{}
	n := g.node(task)
	for _, dep := range n.predOrder {
		if !n.preds[dep].Strict {
			continue
		}
		status, ok := g.statuses[dep]
		if ok && status.Terminal() && !status.Ok() {
			return true
		}
		if !ok && g.blockedByFailure(dep, seen) {
			return true
		}
	}
	return false
}

// MarkSkipped marks the given tasks skipped with the given reason. A task
// that another pending, non-skipped task still strictly requires is not
// skippable; attempting it is an error.
func (g *Graph) MarkSkipped(reason string, tasks ...system.Task) error {
	toSkip := make(map[system.Task]struct{}, len(tasks))
	for _, task := range tasks {
		toSkip[task] = struct{}{}
	}
	for _, task := range tasks {
		n := g.node(task)
		if n == nil {
			return fmt.Errorf("task %s is not part of the graph", task.Spec().Address())
		}
		for _, dependent := range n.succOrder {
			if !n.succs[dependent].Strict || n.succs[dependent].Property {
				continue
			}
			if _, alsoSkipped := toSkip[dependent]; alsoSkipped {
				continue
			}
			status, ok := g.statuses[dependent]
			if !ok || !status.Terminal() {
				return fmt.Errorf("cannot skip task %s: still required by %s",
					task.Spec().Address(), dependent.Spec().Address())
			}
		}
	}
	for _, task := range tasks {
		if err := g.SetStatus(task, system.Skipped(reason)); err != nil {
			return err
		}
	}
	return nil
}

// Exclude marks the given tasks skipped as explicitly excluded, regardless of
// who requires them. Dependents still run unless they consume an excluded
// task's outputs through a property connection.
func (g *Graph) Exclude(tasks ...system.Task) error {
	for _, task := range tasks {
		if err := g.SetStatus(task, system.Skipped("excluded")); err != nil {
			return err
		}
	}
	return nil
}

// ExcludeSubgraph removes each task and all its transitive strict dependents
// from the graph.
func (g *Graph) ExcludeSubgraph(tasks ...system.Task) error {
	remove := make(map[system.Task]struct{})
	queue := make([]system.Task, 0, len(tasks))
	for _, task := range tasks {
		if g.node(task) == nil {
			return fmt.Errorf("task %s is not part of the graph", task.Spec().Address())
		}
		if _, ok := remove[task]; !ok {
			remove[task] = struct{}{}
			queue = append(queue, task)
		}
	}
	for len(queue) > 0 {
		task := queue[0]
		queue = queue[1:]
		n := g.node(task)
		for _, dependent := range n.succOrder {
			if !n.succs[dependent].Strict {
				continue
			}
			if _, ok := remove[dependent]; !ok {
				remove[dependent] = struct{}{}
				queue = append(queue, dependent)
			}
		}
	}
	g.removeNodes(remove)
	return nil
}

// Trim removes workless group chains: any non-goal group whose strict
// dependency closure consists of group tasks only. Groups with real work
// anywhere beneath them, non-group tasks and goals always stay.
func (g *Graph) Trim() {
	remove := make(map[system.Task]struct{})
	for _, task := range g.order {
		if _, isGroup := task.(*system.GroupTask); !isGroup {
			continue
		}
		if _, isGoal := g.goals[task]; isGoal {
			continue
		}
		if g.strictClosureAllGroups(task) {
			remove[task] = struct{}{}
		}
	}
	g.removeNodes(remove)
}

func (g *Graph) strictClosureAllGroups(task system.Task) bool {
	seen := map[system.Task]struct{}{task: {}}
	queue := []system.Task{task}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, isGroup := cur.(*system.GroupTask); !isGroup {
			return false
		}
		n := g.node(cur)
		for _, dep := range n.predOrder {
			if !n.preds[dep].Strict {
				continue
			}
			if _, ok := seen[dep]; !ok {
				seen[dep] = struct{}{}
				queue = append(queue, dep)
			}
		}
	}
	return true
}

func (g *Graph) removeNodes(remove map[system.Task]struct{}) {
	if len(remove) == 0 {
		return
	}
	var order []system.Task
	for _, task := range g.order {
		if _, ok := remove[task]; ok {
			delete(g.nodes, task)
			delete(g.goals, task)
			delete(g.statuses, task)
			continue
		}
		order = append(order, task)
	}
	g.order = order
	for _, n := range g.nodes {
		n.predOrder = pruneEdges(n.predOrder, n.preds, remove)
		n.succOrder = pruneEdges(n.succOrder, n.succs, remove)
	}
}

func pruneEdges(order []system.Task, edges map[system.Task]*Edge, remove map[system.Task]struct{}) []system.Task {
	kept := order[:0]
	for _, task := range order {
		if _, ok := remove[task]; ok {
			delete(edges, task)
			continue
		}
		kept = append(kept, task)
	}
	return kept
}

// Restart clears all recorded statuses so the graph can execute again.
func (g *Graph) Restart() {
	g.statuses = make(map[system.Task]system.TaskStatus)
}

// LoadStatuses applies previously persisted terminal statuses, keyed by task
// address. Tasks not present in the graph and non-terminal statuses are
// ignored.
func (g *Graph) LoadStatuses(statuses map[string]system.TaskStatus) {
	if len(statuses) == 0 {
		return
	}
	for _, task := range g.order {
		status, ok := statuses[task.Spec().Address().String()]
		if ok && status.Terminal() {
			g.statuses[task] = status
		}
	}
}

// Statuses returns a snapshot of all recorded statuses keyed by address.
func (g *Graph) Statuses() map[string]system.TaskStatus {
	out := make(map[string]system.TaskStatus, len(g.statuses))
	for task, status := range g.statuses {
		out[task.Spec().Address().String()] = status
	}
	return out
}
