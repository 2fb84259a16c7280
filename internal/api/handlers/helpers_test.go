package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"solarfarm/internal/core"
	"solarfarm/internal/estimator"
	"solarfarm/internal/sunlight"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubLookup answers from a fixed map and 404s everything else.
type stubLookup struct {
	hours map[string]float64
	err   error
}

func (s *stubLookup) SunlightHours(ctx context.Context, cityID string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if h, ok := s.hours[cityID]; ok {
		return h, nil
	}
	return 0, sunlight.NotFound(cityID)
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (f *fakeRecorder) RecordEstimate(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func newTestEstimateHandler(lookup sunlight.Lookup, rec EstimateRecorder) *EstimateHandler {
	logger := testLogger()
	return NewEstimateHandler(estimator.DefaultModel(), lookup, core.NewValidator(logger), rec, logger)
}

func makeRouter(registrars ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		for _, reg := range registrars {
			reg(r)
		}
	})
	return r
}

// baselineBody is the default dashboard scenario as a request body.
func baselineBody() map[string]any {
	return map[string]any{
		"land_area":        13,
		"land_cost":        90000,
		"panel_area":       2,
		"panel_power":      0.4,
		"land_density":     60,
		"sunlight_hours":   3.8,
		"panel_cost":       150,
		"maintenance":      10000,
		"kwh_payment":      0.06,
		"additional_costs": 200000,
	}
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage    `json:"data"`
	Meta  *core.ResponseMeta `json:"meta"`
	Error *core.ErrorDetail  `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}
