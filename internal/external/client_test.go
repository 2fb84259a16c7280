package external

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarfarm/internal/types"
)

func noopSleep(context.Context, time.Duration) error { return nil }

func newTestClient(opts ...BaseClientOption) *BaseClient {
	opts = append([]BaseClientOption{WithSleepFunc(noopSleep)}, opts...)
	return NewBaseClient(&http.Client{Timeout: 2 * time.Second}, "test", DefaultRetryPolicy(), "solarfarm-test/1.0", opts...)
}

func requireAppCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr), "expected *types.AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

func TestBaseClient_Do_Success(t *testing.T) {
	var gotUA, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReqID = r.Header.Get("X-Request-Id")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	ctx := types.WithRequestID(context.Background(), "req-42")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := newTestClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "solarfarm-test/1.0", gotUA)
	assert.Equal(t, "req-42", gotReqID)
}

func TestBaseClient_Do_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := newTestClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBaseClient_Do_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := newTestClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBaseClient_Do_ReplaysBody(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{"city":"tucson"}`))
	resp, err := newTestClient().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{`{"city":"tucson"}`, `{"city":"tucson"}`}, bodies)
}

func TestBaseClient_Do_ExhaustedRetries(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   types.ErrorCode
	}{
		{"server error", http.StatusInternalServerError, types.ErrCodeUpstreamUnavailable},
		{"rate limited", http.StatusTooManyRequests, types.ErrCodeUpstreamRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
			resp, err := newTestClient().Do(req)
			assert.Nil(t, resp)
			requireAppCode(t, err, tt.code)
			assert.Equal(t, int32(1+DefaultRetryPolicy().MaxRetries), calls.Load())
		})
	}
}

func TestBaseClient_Do_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(WithTripAfter(2))

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := client.Do(req)
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, client.BreakerState())

	before := calls.Load()
	req, _ = http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err = client.Do(req)
	requireAppCode(t, err, types.ErrCodeUpstreamRateLimited)
	assert.Equal(t, before, calls.Load(), "open breaker must not reach the server")
}

func TestBaseClient_Do_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(WithSleepFunc(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	_, err := client.Do(req)
	requireAppCode(t, err, types.ErrCodeUpstreamUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBaseClient_Do_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	_, err := newTestClient().Do(req)
	requireAppCode(t, err, types.ErrCodeUpstreamUnavailable)
}

func TestComputeBackoff(t *testing.T) {
	c := newTestClient()
	policy := c.retryPolicy

	t.Run("retry-after seconds", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Retry-After": []string{"1"}}}
		assert.Equal(t, time.Second, c.computeBackoff(0, resp))
	})

	t.Run("retry-after clamped", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Retry-After": []string{"120"}}}
		assert.Equal(t, policy.MaxWait, c.computeBackoff(0, resp))
	})

	t.Run("exponential within bounds", func(t *testing.T) {
		for attempt := 0; attempt < 6; attempt++ {
			d := c.computeBackoff(attempt, nil)
			assert.GreaterOrEqual(t, d, policy.MinWait)
			assert.LessOrEqual(t, d, policy.MaxWait)
		}
	})
}
