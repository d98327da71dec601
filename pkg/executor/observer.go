package executor

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/muesli/termenv"

	"github.com/kraken-build/kraken/pkg/graph"
	"github.com/kraken-build/kraken/pkg/system"
)

// ConsoleObserver prints execution progress and a final summary to a
// terminal, coloring statuses when the output supports it.
type ConsoleObserver struct {
	out     io.Writer
	profile termenv.Profile
}

var _ Observer = (*ConsoleObserver)(nil)

// NewConsoleObserver creates an observer writing to the given termenv
// output.
func NewConsoleObserver(out *termenv.Output) *ConsoleObserver {
	return &ConsoleObserver{out: out, profile: out.Profile}
}

func (o *ConsoleObserver) colorize(s string, kind system.StatusKind) string {
	var color string
	switch kind {
	case system.StatusSucceeded, system.StatusUpToDate:
		color = "2" // green
	case system.StatusFailed, system.StatusInterrupted:
		color = "1" // red
	case system.StatusWarning:
		color = "3" // yellow
	case system.StatusSkipped:
		color = "8" // gray
	default:
		return s
	}
	return termenv.String(s).Foreground(o.profile.Color(color)).String()
}

func (o *ConsoleObserver) GraphStarted(g *graph.Graph) {
	fmt.Fprintf(o.out, "executing %d task(s)\n", g.Len())
}

func (o *ConsoleObserver) TaskStarted(task system.Task) {
	fmt.Fprintf(o.out, "> %s\n", task.Spec().Address())
}

func (o *ConsoleObserver) TaskFinished(task system.Task, status system.TaskStatus, elapsed time.Duration) {
	line := fmt.Sprintf("%s %s", task.Spec().Address(), status)
	if elapsed > 0 {
		line += fmt.Sprintf(" [%s]", elapsed.Round(time.Millisecond))
	}
	fmt.Fprintln(o.out, o.colorize(line, status.Kind))
}

func (o *ConsoleObserver) GraphFinished(g *graph.Graph) {
	counts := make(map[system.StatusKind]int)
	for _, task := range g.Tasks() {
		counts[g.StatusOf(task).Kind]++
	}

	kinds := make([]system.StatusKind, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	fmt.Fprint(o.out, "\nsummary:")
	for _, kind := range kinds {
		fmt.Fprintf(o.out, " %s=%d", o.colorize(kind.String(), kind), counts[kind])
	}
	fmt.Fprintln(o.out)

	var blocked []system.Task
	for _, task := range g.NotExecuted() {
		if !isMemberlessGroup(task) {
			blocked = append(blocked, task)
		}
	}
	if len(blocked) > 0 {
		fmt.Fprintln(o.out, "\nTasks that were not executed due to failing dependencies:")
		for _, task := range blocked {
			fmt.Fprintf(o.out, "  %s\n", o.colorize(task.Spec().Address().String(), system.StatusFailed))
		}
	}
}
