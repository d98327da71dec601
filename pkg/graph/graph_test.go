package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraken-build/kraken/pkg/graph"
	"github.com/kraken-build/kraken/pkg/supplier"
	"github.com/kraken-build/kraken/pkg/system"
)

// stubTask succeeds on execution; tests drive statuses through the graph.
type stubTask struct {
	system.TaskSpec
	Out *system.Property[string]
}

func newStub(t *testing.T, project *system.Project, name string) *stubTask {
	t.Helper()
	task := &stubTask{}
	task.Out = system.NewOutput[string](task, "out")
	require.NoError(t, project.AddTask(name, task))
	return task
}

func (t *stubTask) Execute(ctx context.Context) system.TaskStatus {
	t.Out.Set(t.Name())
	return system.Succeeded("")
}

func build(t *testing.T, root *system.Project, goals ...system.Task) *graph.Graph {
	t.Helper()
	g, err := graph.Build(root, system.NewTaskSet(goals...))
	require.NoError(t, err)
	return g
}

func addrs(tasks []system.Task) []string {
	var out []string
	for _, task := range tasks {
		out = append(out, task.Spec().Address().String())
	}
	return out
}

// sinkTask consumes a slice-valued input.
type sinkTask struct {
	system.TaskSpec
	In    *system.Property[[]string]
	Extra *system.Property[[]string]
}

func (t *sinkTask) Execute(ctx context.Context) system.TaskStatus {
	return system.Succeeded("")
}

func TestBuildInfersEdgeFromMappedSliceConnection(t *testing.T) {
	root := system.NewRootProject()
	producer := newStub(t, root, "producer")
	consumer := &sinkTask{}
	consumer.In = system.NewProperty[[]string](consumer, "in")
	consumer.Extra = system.NewProperty[[]string](consumer, "extra")
	require.NoError(t, root.AddTask("consumer", consumer))

	// A slice constant and a mapped connection both sit in the lineage the
	// graph walks while populating.
	consumer.Extra.Set([]string{"seed"})
	consumer.In.SetSupplier(supplier.Map(producer.Out, func(v string) ([]string, error) {
		return []string{v}, nil
	}))

	g := build(t, root, consumer)
	require.True(t, g.Contains(producer), "mapped connection pulls the producer in")
	edge, ok := g.EdgeBetween(producer, consumer)
	require.True(t, ok)
	assert.True(t, edge.Strict)
	assert.True(t, edge.Property)
}

func TestBuildPullsStrictClosure(t *testing.T) {
	root := system.NewRootProject()
	a := newStub(t, root, "a")
	b := newStub(t, root, "b")
	c := newStub(t, root, "c")
	unrelated := newStub(t, root, "unrelated")
	c.DependsOn(a)
	c.DependsOnOrderOnly(b)

	g := build(t, root, c)
	assert.True(t, g.Contains(a))
	assert.True(t, g.Contains(c))
	assert.False(t, g.Contains(b), "order-only deps are not pulled in")
	assert.False(t, g.Contains(unrelated))
}

func TestOrderOnlyEdgeKeptWhenBothPresent(t *testing.T) {
	root := system.NewRootProject()
	a := newStub(t, root, "a")
	b := newStub(t, root, "b")
	b.DependsOnOrderOnly(a)

	g := build(t, root, a, b)
	edge, ok := g.EdgeBetween(a, b)
	require.True(t, ok)
	assert.False(t, edge.Strict)

	// b is not ready until a finished, ok or not.
	assert.Equal(t, []string{":a"}, addrs(g.Ready()))
	require.NoError(t, g.SetStatus(a, system.Failed("boom")))
	assert.Equal(t, []string{":b"}, addrs(g.Ready()), "order-only failure does not block")
}

func TestRequiredByProducesEdge(t *testing.T) {
	root := system.NewRootProject()
	a := newStub(t, root, "a")
	b := newStub(t, root, "b")
	a.RequiredBy(b)

	g := build(t, root, b)
	assert.True(t, g.Contains(a), "required-by pulls the dependency in for the dependent goal")
	edge, ok := g.EdgeBetween(a, b)
	require.True(t, ok)
	assert.True(t, edge.Strict)
}

func TestGroupExpansionAddsImplicitEdges(t *testing.T) {
	root := system.NewRootProject()
	dep := newStub(t, root, "dep")
	m1 := newStub(t, root, "m1")
	m2 := newStub(t, root, "m2")
	g := root.Group("workers")
	g.Add(m1, m2)
	g.DependsOn(dep)

	gr := build(t, root, g)
	for _, member := range []system.Task{m1, m2} {
		edge, ok := gr.EdgeBetween(dep, member)
		require.True(t, ok, "member %s must wait for the group dependency", member.Spec().Name())
		assert.True(t, edge.Strict)
		assert.True(t, edge.Implicit)
	}
	assert.Equal(t, []string{":dep"}, addrs(gr.Ready()))
}

func TestCycleDetection(t *testing.T) {
	root := system.NewRootProject()
	a := newStub(t, root, "a")
	b := newStub(t, root, "b")
	a.DependsOn(b)
	b.DependsOn(a)

	_, err := graph.Build(root, system.NewTaskSet(a))
	var cycle *graph.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.GreaterOrEqual(t, len(cycle.Path), 3)
	assert.Contains(t, err.Error(), ":a")
	assert.Contains(t, err.Error(), ":b")
}

func TestTrimRemovesWorklessGroupChains(t *testing.T) {
	root := system.NewRootProject()
	worker := newStub(t, root, "worker")
	lint := root.Group("lint")
	lint.Add(worker)
	test, _ := root.Task("test")

	g := build(t, root, test, lint)
	g.Trim()

	assert.True(t, g.Contains(test), "goals survive even without work")
	assert.True(t, g.Contains(lint), "groups with real members survive")
	assert.True(t, g.Contains(worker))
	check, _ := root.Task("check")
	gen, _ := root.Task("gen")
	assert.False(t, g.Contains(check), "memberless non-goal groups are trimmed")
	assert.False(t, g.Contains(gen))
}

func TestDiamondFailureLeavesIndependentBranchRunnable(t *testing.T) {
	root := system.NewRootProject()
	a := newStub(t, root, "a")
	b := newStub(t, root, "b")
	c := newStub(t, root, "c")
	d := newStub(t, root, "d")
	b.DependsOn(a)
	c.DependsOn(a)
	d.DependsOn(b, c)

	g := build(t, root, d)
	require.NoError(t, g.SetStatus(a, system.Succeeded("")))
	require.NoError(t, g.SetStatus(b, system.Failed("boom")))

	assert.Equal(t, []string{":c"}, addrs(g.Ready()), "independent branch keeps running")
	require.NoError(t, g.SetStatus(c, system.Succeeded("")))
	assert.Empty(t, g.Ready(), "d is dormant behind the failure")
	assert.Equal(t, []string{":d"}, addrs(g.NotExecuted()))
	assert.False(t, g.IsComplete())
}

func TestSkippedCountsAsOk(t *testing.T) {
	root := system.NewRootProject()
	a := newStub(t, root, "a")
	b := newStub(t, root, "b")
	b.DependsOn(a)

	g := build(t, root, b)
	require.NoError(t, g.SetStatus(a, system.Skipped("nothing to do")))
	assert.Equal(t, []string{":b"}, addrs(g.Ready()))
	require.NoError(t, g.SetStatus(b, system.UpToDate("")))
	assert.True(t, g.IsComplete())
}

func TestPropertyStarvation(t *testing.T) {
	root := system.NewRootProject()
	producer := newStub(t, root, "producer")
	consumer := newStub(t, root, "consumer")
	consumer.Out.SetSupplier(supplier.Map(producer.Out, func(v string) (string, error) {
		return v + "!", nil
	}))

	g := build(t, root, consumer)
	require.NoError(t, g.Exclude(producer))
	assert.Equal(t, []string{":consumer"}, addrs(g.PropertyStarved()),
		"excluded producer can never satisfy the connected property")
}

func TestExcludeDoesNotStarvePlainDependents(t *testing.T) {
	root := system.NewRootProject()
	a := newStub(t, root, "a")
	b := newStub(t, root, "b")
	b.DependsOn(a)

	g := build(t, root, b)
	require.NoError(t, g.Exclude(a))
	assert.Empty(t, g.PropertyStarved())
	assert.Equal(t, []string{":b"}, addrs(g.Ready()))
}

func TestMarkSkippedGuard(t *testing.T) {
	root := system.NewRootProject()
	a := newStub(t, root, "a")
	b := newStub(t, root, "b")
	b.DependsOn(a)

	g := build(t, root, b)
	err := g.MarkSkipped("not needed", a)
	require.Error(t, err, "b still requires a")
	assert.Contains(t, err.Error(), ":b")

	require.NoError(t, g.MarkSkipped("not needed", a, b), "skipping both together is fine")
	assert.Equal(t, system.StatusSkipped, g.StatusOf(a).Kind)
}

func TestExcludeSubgraphRemovesDependents(t *testing.T) {
	root := system.NewRootProject()
	a := newStub(t, root, "a")
	b := newStub(t, root, "b")
	c := newStub(t, root, "c")
	d := newStub(t, root, "d")
	b.DependsOn(a)
	c.DependsOn(b)
	d.DependsOn(a)

	g := build(t, root, c, d)
	require.NoError(t, g.ExcludeSubgraph(b))
	assert.False(t, g.Contains(b))
	assert.False(t, g.Contains(c), "transitive dependents removed")
	assert.True(t, g.Contains(a))
	assert.True(t, g.Contains(d))
}

func TestSetStatusReentryIsError(t *testing.T) {
	root := system.NewRootProject()
	a := newStub(t, root, "a")

	g := build(t, root, a)
	require.NoError(t, g.SetStatus(a, system.Running("")))
	require.NoError(t, g.SetStatus(a, system.Succeeded("")))
	err := g.SetStatus(a, system.Failed("again"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":a")
}

func TestLoadStatusesAndRestart(t *testing.T) {
	root := system.NewRootProject()
	a := newStub(t, root, "a")
	b := newStub(t, root, "b")
	b.DependsOn(a)

	g := build(t, root, b)
	g.LoadStatuses(map[string]system.TaskStatus{
		":a":       system.Succeeded("from previous run"),
		":unknown": system.Failed(""),
		":b":       system.Pending("not terminal, ignored"),
	})
	assert.Equal(t, []string{":b"}, addrs(g.Ready()))

	g.Restart()
	assert.Equal(t, []string{":a"}, addrs(g.Ready()))
}

func TestExecutionOrderIsTopological(t *testing.T) {
	root := system.NewRootProject()
	a := newStub(t, root, "a")
	b := newStub(t, root, "b")
	c := newStub(t, root, "c")
	b.DependsOn(a)
	c.DependsOn(b)

	g := build(t, root, c)
	assert.Equal(t, []string{":a", ":b", ":c"}, addrs(g.ExecutionOrder()))
}
