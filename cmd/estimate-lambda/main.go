// Package main is the entry point for the single-purpose estimate Lambda.
//
// The function sits behind an API Gateway HTTP API route. Whatever the
// route, the event body is treated as an estimate request and answered
// exactly as POST /v1/estimates would be, envelope included.
//
// Cold start loads configuration (resolving _SSM_PARAM secrets) and wires
// the application once; each invocation then replays the event through the
// router and flushes buffered metrics.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"solarfarm/internal/app"
	"solarfarm/internal/config"
)

// estimatePath is the route every event is dispatched to.
const estimatePath = "/v1/estimates"

// Handler serves estimate events.
type Handler struct {
	app    *app.App
	logger *slog.Logger
}

// Handle rewrites the event to POST /v1/estimates and serves it.
func (h *Handler) Handle(ctx context.Context, ev events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	ev.RawPath = estimatePath
	ev.RawQueryString = ""
	ev.RequestContext.HTTP.Method = http.MethodPost

	resp, err := app.ServeAPIGatewayV2(ctx, h.app.Server.Handler(), ev)
	if err != nil {
		h.logger.Error("failed to translate event", "error", err, "aws_request_id", ev.RequestContext.RequestID)
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":{"code":"validation_invalid_json","message":"request body could not be decoded"}}`,
		}, nil
	}

	if h.app.Metrics != nil {
		if ferr := h.app.Metrics.Flush(ctx); ferr != nil {
			h.logger.Warn("metrics flush failed", "error", ferr)
		}
	}
	return resp, nil
}

func newHandler(ctx context.Context, provider config.SecretProvider) (*Handler, error) {
	cfg, err := config.LoadConfig(provider)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger := app.NewLogger(cfg.LogLevel, os.Stdout).With("function", "estimate-lambda")

	a, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		return nil, fmt.Errorf("building application: %w", err)
	}

	logger.Info("estimate lambda initialised",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
	)
	return &Handler{app: a, logger: logger}, nil
}

func main() {
	provider := config.NewSSMProvider(os.Getenv("AWS_REGION"), config.WithSSMEndpoint(os.Getenv("AWS_ENDPOINT_URL")))
	handler, err := newHandler(context.Background(), provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	lambda.Start(handler.Handle)
}
