// Package build wires the pieces of a run together: selector resolution over
// the project tree, graph construction, execution and persisted, resumable
// run state.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kraken-build/kraken/internal/logging"
	"github.com/kraken-build/kraken/pkg/executor"
	"github.com/kraken-build/kraken/pkg/graph"
	"github.com/kraken-build/kraken/pkg/ports"
	"github.com/kraken-build/kraken/pkg/state"
	"github.com/kraken-build/kraken/pkg/system"
)

// Context owns one build tree and the machinery to execute selections of it.
type Context struct {
	root      *system.Project
	focus     *system.Project
	logger    *slog.Logger
	observers []executor.Observer
	states    *state.Manager
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the context logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) { c.logger = logger }
}

// WithObserver attaches execution observers (console output, metrics).
func WithObserver(obs ...executor.Observer) Option {
	return func(c *Context) { c.observers = append(c.observers, obs...) }
}

// WithStateStore enables run-state persistence on the given store.
func WithStateStore(store ports.BuildStateStore, opts ...state.Option) Option {
	return func(c *Context) { c.states = state.NewManager(store, opts...) }
}

// WithFocus sets the project that relative selectors resolve against.
// Defaults to the root project.
func WithFocus(project *system.Project) Option {
	return func(c *Context) { c.focus = project }
}

// NewContext creates a build context over the given tree.
func NewContext(root *system.Project, opts ...Option) *Context {
	c := &Context{
		root:   root,
		focus:  root,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the root project.
func (c *Context) Root() *system.Project { return c.root }

// Focus returns the project relative selectors resolve against.
func (c *Context) Focus() *system.Project { return c.focus }

// ResolveTasks resolves selectors against the tree, relative to the focus
// project.
func (c *Context) ResolveTasks(selectors ...string) (*system.TaskSet, error) {
	return system.ResolveTasks(c.root, c.focus, selectors)
}

// RunOptions controls a single execution.
type RunOptions struct {
	// Selectors choose the goal tasks; empty means the defaults of the
	// focus project and its descendants.
	Selectors []string

	// Exclude marks the matched tasks as skipped. Their dependents still
	// run unless they consume the excluded tasks' outputs.
	Exclude []string

	// ExcludeSubgraph removes the matched tasks and everything that
	// depends on them.
	ExcludeSubgraph []string

	// AllowNoTasks turns an empty selection into a no-op instead of an
	// error.
	AllowNoTasks bool

	// All keeps workless group chains in the graph instead of trimming
	// them.
	All bool

	// Resume loads terminal statuses and output values from the persisted
	// state, so only unfinished tasks run.
	Resume bool

	// Restart clears the loaded statuses again, re-running everything
	// while still reusing the state name. Requires Resume.
	Restart bool

	// NoSave skips persisting the run state.
	NoSave bool

	// StateName names the persisted state. Empty generates a fresh name.
	StateName string
}

// ErrNoTasks is returned when a selection matches no tasks and
// AllowNoTasks is unset.
var ErrNoTasks = errors.New("no tasks selected")

// Run resolves, builds the graph and executes it, persisting run state
// unless disabled. A partial state snapshot is saved even when execution
// fails or is cancelled.
func (c *Context) Run(ctx context.Context, opts RunOptions) error {
	if opts.Restart && !opts.Resume {
		return fmt.Errorf("restart requires resume")
	}

	g, stateName, err := c.prepareGraph(ctx, opts)
	if err != nil {
		return err
	}
	if g == nil {
		return nil // empty selection, allowed
	}

	exec := executor.New(
		executor.WithLogger(c.logger),
		executor.WithObserver(c.observers...),
	)
	execErr := exec.Execute(ctx, g)

	if c.states != nil && !opts.NoSave {
		// Save with a detached context so a cancelled build still leaves a
		// resumable snapshot behind.
		if err := c.saveState(context.WithoutCancel(ctx), stateName, g); err != nil {
			c.logger.Error("failed to persist build state", "state", stateName, "err", err)
			if execErr == nil {
				return err
			}
		} else {
			c.logger.Info("build state saved", "state", stateName)
		}
	}
	return execErr
}

// BuildGraph constructs the execution graph a run would use, without
// executing it. Query commands (tree, viz, serve) use this.
func (c *Context) BuildGraph(ctx context.Context, opts RunOptions) (*graph.Graph, error) {
	g, _, err := c.prepareGraph(ctx, opts)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNoTasks
	}
	return g, nil
}

func (c *Context) prepareGraph(ctx context.Context, opts RunOptions) (*graph.Graph, string, error) {
	stateName := opts.StateName
	if stateName == "" {
		stateName = uuid.NewString()
	}

	goals, err := c.ResolveTasks(opts.Selectors...)
	if err != nil {
		return nil, "", err
	}
	for _, task := range goals.Tasks() {
		task.Spec().Selected = true
	}
	if goals.Len() == 0 {
		if opts.AllowNoTasks {
			c.logger.Info("selection matched no tasks, nothing to do")
			return nil, stateName, nil
		}
		return nil, "", fmt.Errorf("%w (selectors: %v)", ErrNoTasks, opts.Selectors)
	}

	c.root.Finalize()

	g, err := graph.Build(c.root, goals)
	if err != nil {
		return nil, "", err
	}

	if opts.Resume {
		if err := c.resume(ctx, stateName, g); err != nil {
			return nil, "", err
		}
		if opts.Restart {
			g.Restart()
		}
	}

	if len(opts.ExcludeSubgraph) > 0 {
		tasks, err := c.matchInGraph(g, opts.ExcludeSubgraph)
		if err != nil {
			return nil, "", err
		}
		if err := g.ExcludeSubgraph(tasks...); err != nil {
			return nil, "", err
		}
	}
	if len(opts.Exclude) > 0 {
		tasks, err := c.matchInGraph(g, opts.Exclude)
		if err != nil {
			return nil, "", err
		}
		for _, task := range tasks {
			if g.StatusOf(task).Terminal() {
				continue // already finished in a resumed state
			}
			if err := g.Exclude(task); err != nil {
				return nil, "", err
			}
		}
	}

	if !opts.All {
		g.Trim()
	}
	return g, stateName, nil
}

// matchInGraph resolves selectors and keeps only the tasks that are part of
// the graph.
func (c *Context) matchInGraph(g *graph.Graph, selectors []string) ([]system.Task, error) {
	resolved, err := c.ResolveTasks(selectors...)
	if err != nil {
		return nil, err
	}
	var out []system.Task
	for _, task := range resolved.Tasks() {
		if g.Contains(task) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (c *Context) resume(ctx context.Context, stateName string, g *graph.Graph) error {
	if c.states == nil {
		return fmt.Errorf("resume requires a state store")
	}
	loaded, err := c.states.Load(ctx, stateName)
	if err != nil {
		if errors.Is(err, ports.ErrStateNotFound) {
			c.logger.Info("no previous state to resume from", "state", stateName)
			return nil
		}
		return fmt.Errorf("loading state %q: %w", stateName, err)
	}
	if err := loaded.RestoreOutputs(c.root); err != nil {
		return fmt.Errorf("restoring outputs from state %q: %w", stateName, err)
	}
	g.LoadStatuses(loaded.Statuses())
	c.logger.Info("resumed build state", "state", stateName, "tasks", len(loaded.Tasks))
	return nil
}

func (c *Context) saveState(ctx context.Context, stateName string, g *graph.Graph) error {
	snapshot := system.NewBuildState(stateName)
	for _, task := range g.Tasks() {
		status := g.StatusOf(task)
		if status.Terminal() {
			snapshot.RecordTask(task, status)
		}
	}
	// Keep records of tasks that were not part of this graph, so runs under
	// one state name accumulate.
	existing, err := c.states.Load(ctx, stateName)
	switch {
	case err == nil:
		snapshot.Merge(existing)
	case !errors.Is(err, ports.ErrStateNotFound):
		return err
	}
	return c.states.Save(ctx, snapshot)
}

// States returns the state manager, or nil when persistence is disabled.
func (c *Context) States() *state.Manager { return c.states }
