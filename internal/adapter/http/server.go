// Package http exposes the service's operational endpoints: liveness,
// readiness, Prometheus metrics, and the current-conditions snapshot.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/overcastlab/meteod/internal/scheduler"
)

// ReadinessChecker reports whether the dataset has been populated at least
// once.
type ReadinessChecker interface {
	CheckReadiness() bool
}

// ConditionsSource yields the last published conditions snapshot.
type ConditionsSource interface {
	Conditions() *scheduler.Snapshot
}

// Server wraps the standard HTTP server with the service's routes.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer builds the HTTP server on the given address.
func NewServer(addr string, readiness ReadinessChecker, conditions ConditionsSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady(readiness))
	mux.HandleFunc("GET /conditions", s.handleConditions(conditions))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP makes the server usable directly as a handler in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(readiness ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if !readiness.CheckReadiness() {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no data"})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleConditions(conditions ConditionsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := conditions.Conditions()
		if snap == nil {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no conditions derived yet"})
			return
		}
		s.writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
