package sunlight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"solarfarm/internal/external"
	"solarfarm/internal/types"
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 64 << 10

// HTTPLookup queries a remote sunlight service at
// GET {baseURL}/v1/cities/{id}, which answers {"sunlight_hours": n}.
// Concurrent lookups of the same city share one upstream call. That call
// is not tied to any single caller's context: a caller that gives up does
// not fail the others still waiting on it.
type HTTPLookup struct {
	baseURL      string
	apiKey       types.SecretString
	client       *external.BaseClient
	group        singleflight.Group
	fetchTimeout time.Duration
}

// HTTPOption customises an HTTPLookup.
type HTTPOption func(*httpSettings)

type httpSettings struct {
	httpClient *http.Client
	retry      external.RetryPolicy
	clientOpts []external.BaseClientOption
}

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *httpSettings) { s.httpClient = c }
}

// WithRetryPolicy replaces external.DefaultRetryPolicy.
func WithRetryPolicy(p external.RetryPolicy) HTTPOption {
	return func(s *httpSettings) { s.retry = p }
}

// WithClientOptions passes options through to the underlying BaseClient.
func WithClientOptions(opts ...external.BaseClientOption) HTTPOption {
	return func(s *httpSettings) { s.clientOpts = append(s.clientOpts, opts...) }
}

// NewHTTPLookup builds a lookup against baseURL. timeout bounds each
// individual upstream attempt; a shared fetch is bounded by every attempt
// plus the longest backoff between them.
func NewHTTPLookup(baseURL string, apiKey types.SecretString, timeout time.Duration, userAgent string, opts ...HTTPOption) (*HTTPLookup, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid sunlight API URL %q", baseURL)
	}

	s := httpSettings{
		httpClient: &http.Client{Timeout: timeout},
		retry:      external.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	attempts := time.Duration(s.retry.MaxRetries + 1)
	return &HTTPLookup{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		client:       external.NewBaseClient(s.httpClient, "sunlight-api", s.retry, userAgent, s.clientOpts...),
		fetchTimeout: timeout*attempts + s.retry.MaxWait*(attempts-1),
	}, nil
}

type cityResponse struct {
	SunlightHours *float64 `json:"sunlight_hours"`
}

// SunlightHours implements Lookup.
func (l *HTTPLookup) SunlightHours(ctx context.Context, cityID string) (float64, error) {
	ch := l.group.DoChan(cityID, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.fetchTimeout)
		defer cancel()
		return l.fetch(fetchCtx, cityID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(float64), nil
	case <-ctx.Done():
		return 0, types.NewAppError(types.ErrCodeUpstreamSunlight, "sunlight lookup abandoned", ctx.Err())
	}
}

func (l *HTTPLookup) fetch(ctx context.Context, cityID string) (float64, error) {
	endpoint := l.baseURL + "/v1/cities/" + url.PathEscape(cityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build sunlight request", err)
	}
	req.Header.Set("Accept", "application/json")
	if l.apiKey.IsSet() {
		req.Header.Set("X-Api-Key", l.apiKey.Unmask())
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return 0, upstreamError("sunlight service unavailable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, upstreamError("failed to read sunlight response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, NotFound(cityID)
	case resp.StatusCode != http.StatusOK:
		return 0, upstreamError(fmt.Sprintf("sunlight service returned %d", resp.StatusCode), nil)
	}

	var payload cityResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, upstreamError("malformed sunlight response", err)
	}
	if payload.SunlightHours == nil {
		return 0, upstreamError("sunlight response is missing sunlight_hours", nil)
	}
	hours := *payload.SunlightHours
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 || hours > MaxSunlightHours {
		return 0, upstreamError(fmt.Sprintf("sunlight service returned out-of-range value %v", hours), nil)
	}
	return hours, nil
}

func upstreamError(msg string, err error) *types.AppError {
	appErr := types.NewAppError(types.ErrCodeUpstreamSunlight, msg, err)
	var inner *types.AppError
	if errors.As(err, &inner) {
		appErr = appErr.WithDetails(map[string]any{"cause": inner.Code})
	}
	return appErr
}

// Name implements core.HealthChecker.
func (l *HTTPLookup) Name() string { return "sunlight_api" }

// Check reports unhealthy while the circuit breaker is open. It never
// calls the upstream itself.
func (l *HTTPLookup) Check(context.Context) error {
	if l.client.BreakerState() == gobreaker.StateOpen {
		return errors.New("circuit breaker open")
	}
	return nil
}
