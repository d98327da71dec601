// Package executor runs a task graph to completion: tasks execute one at a
// time in dependency order, skips and failures propagate through the graph,
// and observers receive lifecycle events.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kraken-build/kraken/internal/logging"
	"github.com/kraken-build/kraken/pkg/graph"
	"github.com/kraken-build/kraken/pkg/system"
)

// Observer receives execution lifecycle events.
type Observer interface {
	GraphStarted(g *graph.Graph)
	TaskStarted(task system.Task)
	TaskFinished(task system.Task, status system.TaskStatus, elapsed time.Duration)
	GraphFinished(g *graph.Graph)
}

// BuildError summarizes a run that did not complete successfully.
type BuildError struct {
	// Failed holds the tasks that finished with a failing status.
	Failed []system.Task

	// NotExecuted holds the tasks that stayed dormant behind a failure.
	NotExecuted []system.Task

	// Cancelled reports whether the run was aborted through the context.
	Cancelled bool
}

func (e *BuildError) Error() string {
	if e.Cancelled {
		return "build cancelled"
	}
	names := make([]string, 0, len(e.Failed))
	for _, task := range e.Failed {
		names = append(names, task.Spec().Address().String())
	}
	if len(names) == 0 {
		return "build failed"
	}
	return fmt.Sprintf("build failed, %d task(s) unsuccessful: %s", len(names), strings.Join(names, ", "))
}

// Executor executes graphs sequentially.
type Executor struct {
	logger    *slog.Logger
	observers []Observer
}

// Option configures the executor.
type Option func(*Executor)

// WithLogger sets the executor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithObserver registers an observer for lifecycle events.
func WithObserver(obs ...Observer) Option {
	return func(e *Executor) { e.observers = append(e.observers, obs...) }
}

// New creates an executor.
func New(opts ...Option) *Executor {
	e := &Executor{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the graph until no task can make progress. Ok skips and
// failures both propagate per the graph rules; on context cancellation the
// running task reports Interrupted and everything still pending is marked
// Skipped, leaving a loadable partial state behind. Returns a BuildError
// when the graph did not complete.
func (e *Executor) Execute(ctx context.Context, g *graph.Graph) error {
	for _, obs := range e.observers {
		obs.GraphStarted(g)
	}

	cancelled := false
	for {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		// Tasks whose property inputs can never materialize are skipped
		// before they are considered runnable.
		for _, task := range g.PropertyStarved() {
			e.finish(g, task, system.Skipped("outputs of a skipped dependency are unavailable"), 0)
		}

		ready := g.Ready()
		if len(ready) == 0 {
			break
		}
		task := ready[0]

		status := task.Prepare()
		if status.Terminal() {
			e.finish(g, task, status, 0)
			continue
		}

		if err := g.SetStatus(task, system.Running("")); err != nil {
			return err
		}
		for _, obs := range e.observers {
			obs.TaskStarted(task)
		}

		start := time.Now()
		status = e.run(ctx, task)
		elapsed := time.Since(start)

		if !status.Terminal() {
			if ctx.Err() != nil {
				status = system.Interrupted("build cancelled")
			} else {
				status = system.Failed(fmt.Sprintf("task returned non-terminal status %q", status))
			}
		}
		e.finish(g, task, status, elapsed)
	}

	if cancelled {
		for _, task := range g.Pending() {
			e.finish(g, task, system.Skipped("build cancelled"), 0)
		}
	}

	for _, obs := range e.observers {
		obs.GraphFinished(g)
	}

	if !cancelled && g.IsComplete() {
		return nil
	}
	return e.buildError(g, cancelled)
}

// run executes a single task, converting panics into failures so one broken
// task does not take the whole build down.
func (e *Executor) run(ctx context.Context, task system.Task) (status system.TaskStatus) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task panicked", "task", task.Spec().Address().String(), "err", r)
			status = system.Failed(fmt.Sprintf("panic: %v", r))
		}
	}()
	if ctx.Err() != nil {
		return system.Interrupted("build cancelled")
	}
	return task.Execute(ctx)
}

func (e *Executor) finish(g *graph.Graph, task system.Task, status system.TaskStatus, elapsed time.Duration) {
	if err := g.SetStatus(task, status); err != nil {
		e.logger.Error("status transition rejected", "task", task.Spec().Address().String(), "err", err)
		return
	}
	for _, obs := range e.observers {
		obs.TaskFinished(task, status, elapsed)
	}
}

func (e *Executor) buildError(g *graph.Graph, cancelled bool) error {
	berr := &BuildError{Cancelled: cancelled}
	for _, task := range g.Tasks() {
		status := g.StatusOf(task)
		if status.Terminal() && !status.Ok() {
			berr.Failed = append(berr.Failed, task)
		}
	}
	for _, task := range g.NotExecuted() {
		if isMemberlessGroup(task) {
			continue
		}
		berr.NotExecuted = append(berr.NotExecuted, task)
	}
	return berr
}

// isMemberlessGroup filters groups that carry no work out of failure
// summaries; reporting them adds noise without information.
func isMemberlessGroup(task system.Task) bool {
	group, ok := task.(*system.GroupTask)
	return ok && len(group.Members()) == 0
}
