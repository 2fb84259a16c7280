package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarfarm/internal/app"
	"solarfarm/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// buildTestApp loads config from a minimal local environment and wires the
// application the same way run does.
func buildTestApp(t *testing.T) *app.App {
	t.Helper()
	setTestEnv(t)

	cfg, err := config.LoadConfig(nil)
	require.NoError(t, err)

	a, err := app.Build(context.Background(), cfg, testLogger(), app.Options{})
	require.NoError(t, err)
	return a
}

func TestHealthEndpoint(t *testing.T) {
	a := buildTestApp(t)

	rec := httptest.NewRecorder()
	a.Server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestLambdaHandler(t *testing.T) {
	a := buildTestApp(t)
	handler := lambdaHandler(a, testLogger())

	ev := events.APIGatewayV2HTTPRequest{RawPath: "/v1/parameters"}
	ev.RequestContext.HTTP.Method = http.MethodGet

	resp, err := handler(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, `"key":"land_area"`)
}

func TestIsLambdaEnvironment(t *testing.T) {
	os.Unsetenv("AWS_LAMBDA_RUNTIME_API")
	os.Unsetenv("_LAMBDA_SERVER_PORT")
	assert.False(t, isLambdaEnvironment())

	t.Setenv("AWS_LAMBDA_RUNTIME_API", "localhost:8080")
	assert.True(t, isLambdaEnvironment())
}

// setTestEnv sets the minimal environment variables required by
// config.LoadConfig for a local run.
func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("PORT", "8080")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("SUNLIGHT_TABLE_PATH", "")
	t.Setenv("SUNLIGHT_API_URL", "")
}
