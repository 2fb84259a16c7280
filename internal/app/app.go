// Package app wires configuration into a ready-to-serve API: the sunlight
// sources, the metrics collector, the domain handlers and the core server.
// Both the HTTP binary and the Lambda functions build through here.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"solarfarm/internal/api/handlers"
	"solarfarm/internal/config"
	"solarfarm/internal/core"
	"solarfarm/internal/sunlight"
	"solarfarm/internal/telemetry"
	"solarfarm/internal/types"
)

// App is a fully wired API.
type App struct {
	Server *core.Server
	Table  *sunlight.Table
	Lookup sunlight.Lookup

	// Metrics is nil when METRICS_ENABLED is false.
	Metrics *telemetry.Collector
}

// recorder is what the handlers and lookups report to.
type recorder interface {
	handlers.EstimateRecorder
	sunlight.Recorder
}

// Options replace dependencies Build would otherwise create.
type Options struct {
	// CloudWatch is used instead of an SDK client when metrics are enabled.
	CloudWatch telemetry.CloudWatchClient
}

// NewLogger returns a JSON slog.Logger writing to w at the named level.
// Unknown levels fall back to info.
func NewLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Build creates every dependency named by cfg and mounts the routes.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	table, err := loadTable(cfg.Sunlight.TablePath, logger)
	if err != nil {
		return nil, err
	}

	a := &App{Server: srv, Table: table}

	var rec recorder = telemetry.Discard{}
	if cfg.Observability.MetricsEnabled {
		client := opts.CloudWatch
		if client == nil {
			client, err = telemetry.NewCloudWatchClient(ctx, cfg.AWS.Region, cfg.AWS.EndpointURL)
			if err != nil {
				return nil, err
			}
		}
		a.Metrics = telemetry.NewCollector(client, cfg.Observability.MetricNamespace, logger)
		srv.Metrics = a.Metrics
		rec = a.Metrics
	}

	var lookup sunlight.Lookup = sunlight.Instrumented{Next: table, Source: types.SourceTable, Recorder: rec}
	srv.HealthChecks = append(srv.HealthChecks, table)

	if cfg.Sunlight.APIURL != "" {
		remote, err := sunlight.NewHTTPLookup(
			cfg.Sunlight.APIURL,
			cfg.Sunlight.APIKey,
			cfg.Sunlight.Timeout,
			cfg.Service+"/"+cfg.Build.Version,
		)
		if err != nil {
			return nil, err
		}
		lookup = sunlight.Fallback{
			Primary:   sunlight.Instrumented{Next: remote, Source: types.SourceHTTP, Recorder: rec},
			Secondary: lookup,
		}
		srv.HealthChecks = append(srv.HealthChecks, remote)
		logger.Info("remote sunlight lookup enabled", "url", cfg.Sunlight.APIURL)
	}
	a.Lookup = lookup

	estimates := handlers.NewEstimateHandler(cfg.Model.Estimator(), lookup, srv.Validator, rec, logger)
	cities := handlers.NewCityHandler(table, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		estimates.RegisterRoutes,
		cities.RegisterRoutes,
	)
	srv.MountRoutes()

	return a, nil
}

func loadTable(path string, logger *slog.Logger) (*sunlight.Table, error) {
	if path == "" {
		return sunlight.DefaultTable(), nil
	}

	table, res, err := sunlight.LoadTableFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading sunlight table %s: %w", path, err)
	}
	for _, lineErr := range res.Errors {
		logger.Warn("skipped sunlight table row", "path", path, "line", lineErr.Line, "error", lineErr.Err)
	}
	logger.Info("sunlight table loaded", "path", path, "cities", res.Loaded, "skipped", len(res.Errors))
	return table, nil
}

// Routes lists the mounted routes as "METHOD pattern", for startup logs
// and tests.
func (a *App) Routes() []string {
	var routes []string
	_ = chi.Walk(a.Server.Router(), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	})
	return routes
}
