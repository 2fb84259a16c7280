package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarfarm/internal/types"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

func requestWithID(method, target, body, id string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if id != "" {
		req = req.WithContext(types.WithRequestID(req.Context(), id))
	}
	return req
}

func TestJSON_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, requestWithID(http.MethodGet, "/", "", ""), http.StatusCreated, APIResponse{
		Data: map[string]int{"num_panels": 11363},
		Meta: &ResponseMeta{Count: 1},
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"num_panels":11363},"meta":{"count":1}}`, rec.Body.String())
}

func TestJSON_MarshalFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, requestWithID(http.MethodGet, "/", "", "req-9"), http.StatusOK, map[string]float64{"bad": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), errObj["code"])
	assert.Equal(t, "req-9", errObj["request_id"])
}

func TestError_StatusMapping(t *testing.T) {
	tests := []struct {
		code types.ErrorCode
		want int
	}{
		{types.ErrCodeValidationInvalidInput, http.StatusBadRequest},
		{types.ErrCodeEstimateZeroRevenue, http.StatusUnprocessableEntity},
		{types.ErrCodeNotFoundCity, http.StatusNotFound},
		{types.ErrCodeUpstreamSunlight, http.StatusBadGateway},
		{types.ErrCodeInternalSunlight, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			err := fmt.Errorf("wrapped: %w", types.NewAppErrorWithDetails(tt.code, "msg", errors.New("secret cause"), map[string]any{"k": "v"}))
			Error(rec, requestWithID(http.MethodGet, "/", "", "req-1"), err)

			assert.Equal(t, tt.want, rec.Code)
			assert.NotContains(t, rec.Body.String(), "secret cause")

			errObj := decodeBody(t, rec)["error"].(map[string]any)
			assert.Equal(t, string(tt.code), errObj["code"])
			assert.Equal(t, "msg", errObj["message"])
			assert.Equal(t, "req-1", errObj["request_id"])
			assert.Equal(t, map[string]any{"k": "v"}, errObj["details"])
		})
	}
}

func TestError_GenericErrorIsOpaque(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, requestWithID(http.MethodGet, "/", "", ""), errors.New("disk on fire"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
	errObj := decodeBody(t, rec)["error"].(map[string]any)
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), errObj["code"])
}

type decodeTarget struct {
	LandArea *float64 `json:"land_area"`
	CityID   string   `json:"city_id"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"land_area": 13, "city_id": "phoenix"}`, ""},
		{"unknown field", `{"land_area": 13, "acreage": 2}`, "unknown field"},
		{"syntax error", `{"land_area": }`, "malformed JSON"},
		{"empty body", ``, "must not be empty"},
		{"type mismatch", `{"land_area": "thirteen"}`, "invalid value"},
		{"two values", `{"land_area": 1}{"land_area": 2}`, "single JSON object"},
		{"too large", `{"city_id": "` + strings.Repeat("a", maxRequestBodySize) + `"}`, "1MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst decodeTarget
			rec := httptest.NewRecorder()
			err := DecodeJSON(rec, requestWithID(http.MethodPost, "/", tt.body, ""), &dst)

			if tt.wantErr == "" {
				require.NoError(t, err)
				require.NotNil(t, dst.LandArea)
				assert.Equal(t, 13.0, *dst.LandArea)
				return
			}

			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr), "got %v", err)
			assert.Equal(t, types.ErrCodeValidationInvalidJSON, appErr.Code)
			assert.Contains(t, appErr.Message, tt.wantErr)
		})
	}
}

func TestDecodeJSON_TypeMismatchDetails(t *testing.T) {
	var dst decodeTarget
	err := DecodeJSON(httptest.NewRecorder(), requestWithID(http.MethodPost, "/", `{"land_area": "x"}`, ""), &dst)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "land_area", appErr.Details["field"])
	assert.Equal(t, "float64", appErr.Details["expected"])
}
