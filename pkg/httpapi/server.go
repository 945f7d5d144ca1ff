// Package httpapi serves key sequence evaluation over HTTP for hosts that
// run the engine out of process.
//
//	GET  /healthz    liveness
//	GET  /modes      bound modes
//	GET  /bindings   (mode, keys, command) triples, optionally ?mode=
//	POST /evaluate   {"mode": "Normal", "keys": ["g", "g"], "variables": {...}}
//	GET  /metrics    Prometheus metrics, when configured
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/dshills/keychord/pkg/condition"
	"github.com/dshills/keychord/pkg/domain/types"
	"github.com/dshills/keychord/pkg/engine"
	"github.com/dshills/keychord/pkg/environment"
	kcerrors "github.com/dshills/keychord/pkg/errors"
	"github.com/dshills/keychord/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Tree is the evaluation tree served by the API.
type Tree = engine.Tree[types.Mode, types.Key, types.Action]

const maxBodyBytes = 1 << 20

// EvaluateRequest is the body of POST /evaluate.
type EvaluateRequest struct {
	Mode      string              `json:"mode,omitempty"`
	Keys      []string            `json:"keys"`
	Variables condition.Variables `json:"variables,omitempty"`
}

// EvaluateResponse is the body of a successful POST /evaluate.
type EvaluateResponse struct {
	Actions []string `json:"actions"`
}

// BindingResponse is one element of GET /bindings.
type BindingResponse struct {
	Mode    string   `json:"mode"`
	Keys    []string `json:"keys"`
	Command string   `json:"command"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Server answers requests against the current tree. SetTree swaps the tree
// while requests are in flight.
type Server struct {
	tree     atomic.Pointer[Tree]
	router   chi.Router
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics mounts GET /metrics serving g.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// New creates a server for tree.
func New(tree *Tree, opts ...Option) *Server {
	s := &Server{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	s.tree.Store(tree)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/modes", s.handleModes)
	r.Get("/bindings", s.handleBindings)
	r.Post("/evaluate", s.handleEvaluate)
	if s.gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.gatherer))
	}
	s.router = r
	return s
}

// SetTree replaces the served tree.
func (s *Server) SetTree(tree *Tree) {
	s.tree.Store(tree)
}

// Tree returns the served tree.
func (s *Server) Tree() *Tree {
	return s.tree.Load()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.Strings(s.Tree().Modes()))
}

func (s *Server) handleBindings(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")

	out := make([]BindingResponse, 0)
	for _, b := range s.Tree().Bindings() {
		if mode != "" && b.Mode.String() != mode {
			continue
		}
		out = append(out, BindingResponse{
			Mode:    b.Mode.String(),
			Keys:    types.Strings(b.Keys),
			Command: b.Command.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if len(req.Keys) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "keys must not be empty"})
		return
	}

	mode := types.DefaultMode
	if req.Mode != "" {
		mode = types.Mode(req.Mode)
	}
	env := environment.New[types.Mode, types.Action](mode)
	env.AllowAll(true)
	for name, value := range req.Variables {
		env.Set(name, value)
	}

	actions, err := s.Tree().Evaluate(env, types.Keys(req.Keys...))
	if err != nil {
		s.logger.Debug("evaluate request failed", "mode", mode, "keys", req.Keys, "error", err)
		var e *kcerrors.Error
		if errors.As(err, &e) {
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: string(e.Kind)})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, EvaluateResponse{Actions: types.Strings(actions)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
