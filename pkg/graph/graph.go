// Package graph builds and tracks the execution graph over tasks: which
// tasks a build goal pulls in, in what order they may run, and how skips and
// failures propagate.
package graph

import (
	"fmt"
	"strings"

	"github.com/kraken-build/kraken/pkg/system"
)

// Edge annotates a dependency→dependent connection.
type Edge struct {
	// Strict dependencies must reach an ok status before the dependent may
	// run; non-strict edges only order execution.
	Strict bool

	// Implicit marks edges synthesized during group expansion rather than
	// declared on a task.
	Implicit bool

	// Property marks edges inferred from a property connection. A producer
	// that did not execute starves the consumer across such an edge.
	Property bool
}

type node struct {
	task      system.Task
	preds     map[system.Task]*Edge
	succs     map[system.Task]*Edge
	predOrder []system.Task
	succOrder []system.Task
}

// Graph is the execution graph: nodes are tasks, edges point from a
// dependency to its dependent. It also tracks per-task statuses during a
// run.
type Graph struct {
	nodes    map[system.Task]*node
	order    []system.Task
	goals    map[system.Task]struct{}
	statuses map[system.Task]system.TaskStatus
}

// CycleError reports a dependency cycle, carrying the cycle path.
type CycleError struct {
	Path []system.Task
}

func (e *CycleError) Error() string {
	names := make([]string, 0, len(e.Path))
	for _, task := range e.Path {
		names = append(names, task.Spec().Address().String())
	}
	return "dependency cycle: " + strings.Join(names, " -> ")
}

// Build constructs the graph for the given goal tasks. All relationships in
// the project tree are considered so that inverse (required-by) declarations
// on unselected tasks still produce edges; the result contains the goals and
// their transitive strict dependencies, with order-only edges kept only when
// both endpoints are present.
func Build(root *system.Project, goals *system.TaskSet) (*Graph, error) {
	full, err := buildFull(root)
	if err != nil {
		return nil, err
	}
	g, err := full.subgraph(goals.Tasks())
	if err != nil {
		return nil, err
	}
	return g, nil
}

func newGraph() *Graph {
	return &Graph{
		nodes:    make(map[system.Task]*node),
		goals:    make(map[system.Task]struct{}),
		statuses: make(map[system.Task]system.TaskStatus),
	}
}

func buildFull(root *system.Project) (*Graph, error) {
	g := newGraph()
	root.Walk(func(p *system.Project) {
		for _, task := range p.Tasks() {
			g.addNode(task)
		}
	})
	for _, task := range g.order {
		rels, err := task.Relationships()
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			if g.node(rel.Other) == nil {
				// Selector relationships may reach outside the walked
				// tree only if the task was never registered.
				return nil, fmt.Errorf("task %s relates to unregistered task", task.Spec().Address())
			}
			edge := &Edge{Strict: rel.Strict, Property: rel.PropertyDerived}
			if rel.Inverse {
				g.addEdge(task, rel.Other, edge)
			} else {
				g.addEdge(rel.Other, task, edge)
			}
		}
	}
	g.expandGroups()
	return g, nil
}

func (g *Graph) addNode(task system.Task) *node {
	if n, ok := g.nodes[task]; ok {
		return n
	}
	n := &node{
		task:  task,
		preds: make(map[system.Task]*Edge),
		succs: make(map[system.Task]*Edge),
	}
	g.nodes[task] = n
	g.order = append(g.order, task)
	return n
}

func (g *Graph) node(task system.Task) *node { return g.nodes[task] }

func (g *Graph) addEdge(from, to system.Task, edge *Edge) {
	fn := g.addNode(from)
	tn := g.addNode(to)
	if existing, ok := tn.preds[from]; ok {
		// Merge parallel declarations; strictness wins.
		existing.Strict = existing.Strict || edge.Strict
		existing.Property = existing.Property || edge.Property
		existing.Implicit = existing.Implicit && edge.Implicit
		return
	}
	tn.preds[from] = edge
	tn.predOrder = append(tn.predOrder, from)
	fn.succs[to] = edge
	fn.succOrder = append(fn.succOrder, to)
}

// expandGroups gives every member of a group an implicit edge from each of
// the group's non-member dependencies, so members wait for whatever the
// group waits for.
func (g *Graph) expandGroups() {
	for _, task := range g.order {
		group, ok := task.(*system.GroupTask)
		if !ok {
			continue
		}
		members := make(map[system.Task]struct{})
		for _, m := range group.Members() {
			members[m] = struct{}{}
		}
		n := g.node(task)
		for _, dep := range n.predOrder {
			if _, isMember := members[dep]; isMember {
				continue
			}
			edge := n.preds[dep]
			for _, m := range group.Members() {
				if m == dep {
					continue
				}
				g.addEdge(dep, m, &Edge{Strict: edge.Strict, Implicit: true, Property: edge.Property})
			}
		}
	}
}

// subgraph restricts the graph to the goals and their transitive strict
// dependencies.
func (g *Graph) subgraph(goals []system.Task) (*Graph, error) {
	keep := make(map[system.Task]struct{})
	queue := make([]system.Task, 0, len(goals))
	for _, goal := range goals {
		if g.node(goal) == nil {
			return nil, fmt.Errorf("goal task %s is not part of the project tree", goal.Spec().Address())
		}
		if _, ok := keep[goal]; !ok {
			keep[goal] = struct{}{}
			queue = append(queue, goal)
		}
	}
	for len(queue) > 0 {
		task := queue[0]
		queue = queue[1:]
		n := g.node(task)
		for _, dep := range n.predOrder {
			if !n.preds[dep].Strict {
				continue
			}
			if _, ok := keep[dep]; !ok {
				keep[dep] = struct{}{}
				queue = append(queue, dep)
			}
		}
	}

	sub := newGraph()
	for _, task := range g.order {
		if _, ok := keep[task]; ok {
			sub.addNode(task)
		}
	}
	for _, task := range sub.order {
		n := g.node(task)
		for _, dep := range n.predOrder {
			if _, ok := keep[dep]; ok {
				e := *n.preds[dep]
				sub.addEdge(dep, task, &e)
			}
		}
	}
	for _, goal := range goals {
		sub.goals[goal] = struct{}{}
	}
	if cycle := sub.findCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}
	return sub, nil
}

// findCycle returns a cycle path (first node repeated at the end) or nil.
func (g *Graph) findCycle() []system.Task {
	const (
		unseen = iota
		active
		done
	)
	state := make(map[system.Task]int, len(g.order))
	var stack []system.Task
	var cycle []system.Task

	var visit func(task system.Task) bool
	visit = func(task system.Task) bool {
		state[task] = active
		stack = append(stack, task)
		for _, succ := range g.node(task).succOrder {
			switch state[succ] {
			case active:
				start := 0
				for i, t := range stack {
					if t == succ {
						start = i
						break
					}
				}
				cycle = append(append([]system.Task{}, stack[start:]...), succ)
				return true
			case unseen:
				if visit(succ) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[task] = done
		return false
	}

	for _, task := range g.order {
		if state[task] == unseen && visit(task) {
			return cycle
		}
	}
	return nil
}

// Tasks returns all tasks in the graph in insertion order.
func (g *Graph) Tasks() []system.Task {
	out := make([]system.Task, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int { return len(g.order) }

// Contains reports whether the task is part of the graph.
func (g *Graph) Contains(task system.Task) bool { return g.node(task) != nil }

// Goals returns the goal tasks the graph was built for.
func (g *Graph) Goals() []system.Task {
	var out []system.Task
	for _, task := range g.order {
		if _, ok := g.goals[task]; ok {
			out = append(out, task)
		}
	}
	return out
}

// IsGoal reports whether the task is one of the build goals.
func (g *Graph) IsGoal(task system.Task) bool {
	_, ok := g.goals[task]
	return ok
}

// Dependencies returns the task's direct dependencies in the graph.
func (g *Graph) Dependencies(task system.Task) []system.Task {
	n := g.node(task)
	if n == nil {
		return nil
	}
	out := make([]system.Task, len(n.predOrder))
	copy(out, n.predOrder)
	return out
}

// Dependents returns the tasks that directly depend on the given task.
func (g *Graph) Dependents(task system.Task) []system.Task {
	n := g.node(task)
	if n == nil {
		return nil
	}
	out := make([]system.Task, len(n.succOrder))
	copy(out, n.succOrder)
	return out
}

// EdgeBetween returns the edge from dependency to dependent, if any.
func (g *Graph) EdgeBetween(dep, dependent system.Task) (Edge, bool) {
	n := g.node(dependent)
	if n == nil {
		return Edge{}, false
	}
	edge, ok := n.preds[dep]
	if !ok {
		return Edge{}, false
	}
	return *edge, true
}

// ExecutionOrder returns a stable topological ordering of all tasks.
func (g *Graph) ExecutionOrder() []system.Task {
	indegree := make(map[system.Task]int, len(g.order))
	for _, task := range g.order {
		indegree[task] = len(g.node(task).predOrder)
	}
	var ready, out []system.Task
	for _, task := range g.order {
		if indegree[task] == 0 {
			ready = append(ready, task)
		}
	}
	for len(ready) > 0 {
		task := ready[0]
		ready = ready[1:]
		out = append(out, task)
		for _, succ := range g.node(task).succOrder {
			indegree[succ]--
			if indegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}
	return out
}
