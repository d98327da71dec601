// Package httpapi serves a read-only JSON view of the build: tasks, the
// execution graph, persisted run states and Prometheus metrics. It never
// triggers execution.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraken-build/kraken/internal/logging"
	"github.com/kraken-build/kraken/pkg/build"
	"github.com/kraken-build/kraken/pkg/graph"
	"github.com/kraken-build/kraken/pkg/observability"
	"github.com/kraken-build/kraken/pkg/ports"
	"github.com/kraken-build/kraken/pkg/system"
)

// Server exposes the query endpoints over a build context.
type Server struct {
	bctx    *build.Context
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithMetrics exposes the given collectors on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewHandler builds the HTTP handler.
func NewHandler(bctx *build.Context, opts ...Option) http.Handler {
	s := &Server{bctx: bctx, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/tasks", s.tasks)
		r.Get("/graph", s.graph)
		r.Get("/state/{name}", s.state)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// taskInfo is the wire form of one task.
type taskInfo struct {
	Address     string             `json:"address"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Default     bool               `json:"default"`
	Group       bool               `json:"group"`
	Properties  []taskPropertyInfo `json:"properties,omitempty"`
}

type taskPropertyInfo struct {
	Name   string `json:"name"`
	Output bool   `json:"output"`
	Set    bool   `json:"set"`
}

func describeTask(task system.Task) taskInfo {
	spec := task.Spec()
	_, isGroup := task.(*system.GroupTask)
	info := taskInfo{
		Address:     spec.Address().String(),
		Name:        spec.Name(),
		Description: spec.Description,
		Default:     spec.Default,
		Group:       isGroup,
	}
	for _, slot := range spec.Properties() {
		info.Properties = append(info.Properties, taskPropertyInfo{
			Name:   slot.Name(),
			Output: slot.IsOutput(),
			Set:    slot.IsSet(),
		})
	}
	return info
}

func (s *Server) tasks(w http.ResponseWriter, r *http.Request) {
	var out []taskInfo
	s.bctx.Root().Walk(func(p *system.Project) {
		for _, task := range p.Tasks() {
			out = append(out, describeTask(task))
		}
	})
	s.writeJSON(w, out)
}

// graphResponse is the wire form of the execution graph.
type graphResponse struct {
	Tasks []taskInfo  `json:"tasks"`
	Edges []graphEdge `json:"edges"`
}

type graphEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Strict   bool   `json:"strict"`
	Implicit bool   `json:"implicit"`
	Property bool   `json:"property"`
}

func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	opts := build.RunOptions{Selectors: r.URL.Query()["selector"]}
	g, err := s.bctx.BuildGraph(r.Context(), opts)
	if err != nil {
		var notFound *system.TaskNotFoundError
		if errors.Is(err, build.ErrNoTasks) || errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		s.logger.Error("graph construction failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, graphToResponse(g))
}

func graphToResponse(g *graph.Graph) graphResponse {
	resp := graphResponse{}
	for _, task := range g.Tasks() {
		resp.Tasks = append(resp.Tasks, describeTask(task))
		for _, dep := range g.Dependencies(task) {
			edge, _ := g.EdgeBetween(dep, task)
			resp.Edges = append(resp.Edges, graphEdge{
				From:     dep.Spec().Address().String(),
				To:       task.Spec().Address().String(),
				Strict:   edge.Strict,
				Implicit: edge.Implicit,
				Property: edge.Property,
			})
		}
	}
	return resp
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	manager := s.bctx.States()
	if manager == nil {
		http.Error(w, "state persistence is not configured", http.StatusNotFound)
		return
	}
	name := chi.URLParam(r, "name")
	loaded, err := manager.Load(r.Context(), name)
	if err != nil {
		if errors.Is(err, ports.ErrStateNotFound) {
			http.Error(w, "no such state", http.StatusNotFound)
			return
		}
		s.logger.Error("state load failed", "state", name, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, loaded)
}
