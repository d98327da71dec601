// Package observability exposes Prometheus metrics for task execution.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kraken-build/kraken/pkg/graph"
	"github.com/kraken-build/kraken/pkg/system"
)

// Metrics collects execution metrics. It implements the executor's Observer
// interface so it can be attached to any run.
type Metrics struct {
	registry      *prometheus.Registry
	tasksTotal    *prometheus.CounterVec
	graphSize     prometheus.Gauge
	taskDurations prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kraken_tasks_total",
			Help: "Number of tasks finished, by terminal status.",
		}, []string{"status"}),
		graphSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kraken_graph_tasks",
			Help: "Number of tasks in the currently executing graph.",
		}),
		taskDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kraken_task_duration_seconds",
			Help:    "Wall-clock execution time per task.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}
	m.registry.MustRegister(m.tasksTotal, m.graphSize, m.taskDurations)
	return m
}

// Registry returns the registry holding the collectors, for exposure via
// promhttp.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) GraphStarted(g *graph.Graph) {
	m.graphSize.Set(float64(g.Len()))
}

func (m *Metrics) TaskStarted(task system.Task) {}

func (m *Metrics) TaskFinished(task system.Task, status system.TaskStatus, elapsed time.Duration) {
	m.tasksTotal.WithLabelValues(status.Kind.String()).Inc()
	if elapsed > 0 {
		m.taskDurations.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) GraphFinished(g *graph.Graph) {}
