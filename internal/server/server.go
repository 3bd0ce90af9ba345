// Package server provides the HTTP API of the search service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/askindex/internal/config"
	"github.com/hyperjump/askindex/internal/metrics"
	"github.com/hyperjump/askindex/internal/service"
)

// Server is the HTTP server in front of a started service.State.
type Server struct {
	state  *service.State
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server. The state must come from a successful service.Start.
func NewServer(state *service.State, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		state:  state,
		config: cfg,
		logger: logger,
	}
}

// Router builds the HTTP handler with every route and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(jsonRecoverer(s.logger))
	r.Use(metrics.Middleware)
	if s.config.Server.RequestTimeoutSec > 0 {
		r.Use(requestTimeout(time.Duration(s.config.Server.RequestTimeoutSec) * time.Second))
	}
	r.Use(middleware.Compress(5))

	r.Post("/search", s.handleSearch)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Start serves on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
