// Package core provides the HTTP chassis for the estimator API. It builds a
// chi router that serves both the long-running HTTP server and the Lambda
// entry point, and applies the cross-cutting concerns (panic recovery,
// request ids, logging, CORS, metrics, error envelopes) before requests
// reach the domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"solarfarm/internal/config"
)

// MetricsCollector records API telemetry.
type MetricsCollector interface {
	// RecordRequest records one completed request. Implementations emit
	// types.MetricAPILatency and types.MetricAPIRequestCount.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// flusher is implemented by collectors that buffer data points.
type flusher interface {
	Flush(ctx context.Context) error
}

// Server holds the dependencies shared by every request.
type Server struct {
	Config       *config.Config
	Logger       *slog.Logger
	Validator    *Validator
	Metrics      MetricsCollector
	HealthChecks []HealthChecker

	// V1RouteRegistrars mount domain handlers under /v1. They are supplied
	// by main so core never imports handler packages.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer validates its inputs and prepares an empty router. Call
// MountRoutes once all registrars and health checks are attached.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router exposes the chi.Mux for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown flushes buffered metrics.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	if f, ok := s.Metrics.(flusher); ok {
		if err := f.Flush(ctx); err != nil {
			s.Logger.Error("error flushing metrics", "error", err)
			return fmt.Errorf("flushing metrics: %w", err)
		}
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
