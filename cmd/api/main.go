// Package main is the entry point for the solar farm estimator API.
//
// It loads configuration, wires the sunlight sources, metrics and handlers
// through internal/app, and serves the chi router. Outside Lambda it runs a
// standard HTTP server with graceful shutdown on SIGINT/SIGTERM. Inside
// Lambda (detected from the runtime environment) every API Gateway HTTP API
// event is replayed through the same router.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"solarfarm/internal/app"
	"solarfarm/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	provider := config.NewSSMProvider(os.Getenv("AWS_REGION"), config.WithSSMEndpoint(os.Getenv("AWS_ENDPOINT_URL")))
	cfg, err := config.LoadConfig(provider)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := app.NewLogger(cfg.LogLevel, os.Stdout)
	logger.Info("solarfarm API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"metrics", cfg.Observability.MetricsEnabled,
	)

	a, err := app.Build(context.Background(), cfg, logger, app.Options{})
	if err != nil {
		return fmt.Errorf("building application: %w", err)
	}
	logger.Debug("routes mounted", "routes", a.Routes())

	if isLambdaEnvironment() {
		lambda.Start(lambdaHandler(a, logger))
		return nil
	}

	return runHTTPServer(a, cfg, logger)
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// lambdaHandler serves one HTTP API event and flushes buffered metrics
// before the execution environment can be frozen.
func lambdaHandler(a *app.App, logger *slog.Logger) func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return func(ctx context.Context, ev events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		resp, err := app.ServeAPIGatewayV2(ctx, a.Server.Handler(), ev)
		if a.Metrics != nil {
			if ferr := a.Metrics.Flush(ctx); ferr != nil {
				logger.Warn("metrics flush failed", "error", ferr)
			}
		}
		return resp, err
	}
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(a *app.App, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Buffered metrics are published once a minute while serving.
	flushCtx, stopFlush := context.WithCancel(context.Background())
	defer stopFlush()
	if a.Metrics != nil {
		go flushLoop(flushCtx, a, logger, time.Minute)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	stopFlush()

	if err := a.Server.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

func flushLoop(ctx context.Context, a *app.App, logger *slog.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Metrics.Flush(ctx); err != nil {
				logger.Warn("periodic metrics flush failed", "error", err)
			}
		}
	}
}
