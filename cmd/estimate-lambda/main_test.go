package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baselineJSON = `{
	"land_area": 13, "land_cost": 90000, "panel_area": 2, "panel_power": 0.4,
	"land_density": 60, "sunlight_hours": 3.8, "panel_cost": 150,
	"maintenance": 10000, "kwh_payment": 0.06, "additional_costs": 200000
}`

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("SUNLIGHT_API_URL", "")
	t.Setenv("SUNLIGHT_TABLE_PATH", "")

	h, err := newHandler(context.Background(), nil)
	require.NoError(t, err)
	return h
}

func event(body string) events.APIGatewayV2HTTPRequest {
	ev := events.APIGatewayV2HTTPRequest{RawPath: "/", Body: body}
	ev.RequestContext.HTTP.Method = http.MethodGet
	ev.RequestContext.RequestID = "lambda-req-1"
	return ev
}

func TestHandle_Estimate(t *testing.T) {
	h := newTestHandler(t)

	resp, err := h.Handle(context.Background(), event(baselineJSON))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])

	var env struct {
		Data struct {
			Result struct {
				PayoffYears  float64 `json:"payoff_years"`
				PayoffStatus string  `json:"payoff_status"`
			} `json:"result"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &env))
	assert.InDelta(t, 5.41595, env.Data.Result.PayoffYears, 1e-4)
	assert.Equal(t, "reachable", env.Data.Result.PayoffStatus)
}

func TestHandle_Base64Body(t *testing.T) {
	h := newTestHandler(t)

	ev := event(base64.StdEncoding.EncodeToString([]byte(baselineJSON)))
	ev.IsBase64Encoded = true

	resp, err := h.Handle(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandle_Errors(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name   string
		ev     events.APIGatewayV2HTTPRequest
		status int
		code   string
	}{
		{"empty body", event(""), http.StatusBadRequest, "validation_invalid_json"},
		{"missing field", event(`{"land_area": 13}`), http.StatusBadRequest, "validation_missing_required_field"},
		{"zero revenue", event(`{"land_area": 13, "land_cost": 0, "panel_area": 2, "panel_power": 0.4,
			"land_density": 60, "sunlight_hours": 3.8, "panel_cost": 150, "maintenance": 0,
			"kwh_payment": 0, "additional_costs": 0}`), http.StatusUnprocessableEntity, "estimate_zero_revenue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.Handle(context.Background(), tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var env struct {
				Error struct {
					Code      string `json:"code"`
					RequestID string `json:"request_id"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal([]byte(resp.Body), &env))
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, "lambda-req-1", env.Error.RequestID)
		})
	}

	t.Run("undecodable base64", func(t *testing.T) {
		ev := event("%%%")
		ev.IsBase64Encoded = true
		resp, err := h.Handle(context.Background(), ev)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
