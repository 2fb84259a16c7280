package core

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"solarfarm/internal/types"
)

const requestIDHeader = "X-Request-Id"

// maxRequestIDLen caps a caller-supplied request id. Longer ids are
// replaced with a fresh UUID so they never reach logs verbatim.
const maxRequestIDLen = 128

// statusRecorder remembers the first status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// Status is the code sent to the client; 200 when the handler wrote nothing.
func (sr *statusRecorder) Status() int {
	if sr.status == 0 {
		return http.StatusOK
	}
	return sr.status
}

// RequestIDMiddleware reuses an incoming X-Request-Id or mints a UUID. The
// id goes into the context together with a logger carrying request_id, and
// is echoed in the response header before any handler runs.
func RequestIDMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := types.WithRequestID(r.Context(), id)
			ctx = types.WithLogger(ctx, logger.With(slog.String("request_id", id)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recoverer converts a panic into a logged stack trace and a 500 envelope.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func (s *Server) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			s.writePanic(w, r, rvr)
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writePanic(w http.ResponseWriter, r *http.Request, rvr any) {
	logger := types.LoggerFromContext(r.Context(), s.Logger)
	requestID := types.GetRequestID(r.Context())
	if requestID == "" {
		// Recovering outside RequestIDMiddleware; the header may still be set.
		requestID = w.Header().Get(requestIDHeader)
		logger = logger.With(slog.String("request_id", requestID))
	}

	logger.Error("handler panicked",
		slog.String("method", r.Method),
		slog.String("route", routePattern(r)),
		slog.Any("panic", rvr),
		slog.String("stack", string(debug.Stack())),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write(panicBody(requestID))
}

// panicBody renders the 500 envelope. Every field is a plain string, so
// marshalling cannot fail.
func panicBody(requestID string) []byte {
	body, _ := json.Marshal(APIErrorResponse{Error: ErrorDetail{
		Code:      string(types.ErrCodeInternalUnexpected),
		Message:   "an unexpected error occurred",
		RequestID: requestID,
	}})
	return body
}

// headerRedactor masks the values of selected headers in request logs.
type headerRedactor map[string]struct{}

func newHeaderRedactor(names []string) headerRedactor {
	hr := make(headerRedactor, len(names))
	for _, n := range names {
		hr[http.CanonicalHeaderKey(n)] = struct{}{}
	}
	return hr
}

func (hr headerRedactor) group(h http.Header) slog.Attr {
	args := make([]any, 0, len(h))
	for name, values := range h {
		v := strings.Join(values, ", ")
		if _, masked := hr[http.CanonicalHeaderKey(name)]; masked {
			v = "[REDACTED]"
		}
		args = append(args, slog.String(name, v))
	}
	return slog.Group("headers", args...)
}

// statusLevel logs 5xx as errors, 4xx as warnings and the rest as info.
func statusLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// RequestLogger writes one "request completed" line per request with the
// matched route, status and duration. Headers named in redactedHeaders are
// logged as [REDACTED].
func RequestLogger(logger *slog.Logger, redactedHeaders []string) func(http.Handler) http.Handler {
	redactor := newHeaderRedactor(redactedHeaders)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routePattern(r)),
				slog.Int("status", rec.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if id := types.GetRequestID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if len(r.Header) > 0 {
				attrs = append(attrs, redactor.group(r.Header))
			}
			logger.LogAttrs(r.Context(), statusLevel(rec.Status()), "request completed", attrs...)
		})
	}
}

// MetricsMiddleware reports every request to s.Metrics, keyed by the chi
// route pattern so /v1/cities/{id} stays one metric series. With no
// collector configured it is a pass-through.
func (s *Server) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		s.Metrics.RecordRequest(r.Method, routePattern(r), strconv.Itoa(rec.Status()), time.Since(start))
	})
}

var securityHeaders = []struct{ name, value string }{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
}

// SecurityHeaders sets the fixed hardening headers on every response,
// including errors and panics further down the chain.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range securityHeaders {
			w.Header().Set(h.name, h.value)
		}
		next.ServeHTTP(w, r)
	})
}

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type, X-Request-Id"
	corsMaxAge       = "86400"
)

// corsPolicy decides which origins may call the API from a browser.
type corsPolicy struct {
	anyOrigin bool
	origins   map[string]struct{}
}

func newCORSPolicy(allowed []string) corsPolicy {
	p := corsPolicy{origins: make(map[string]struct{}, len(allowed))}
	for _, o := range allowed {
		if o == "*" {
			p.anyOrigin = true
		}
		p.origins[o] = struct{}{}
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not allowed.
func (p corsPolicy) allowOrigin(origin string) string {
	if p.anyOrigin {
		return "*"
	}
	if _, ok := p.origins[origin]; ok && origin != "" {
		return origin
	}
	return ""
}

// NewCORSMiddleware adds CORS headers for allowed origins and answers
// OPTIONS preflights with 204 without reaching the router.
func NewCORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := newCORSPolicy(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowed := policy.allowOrigin(r.Header.Get("Origin")); allowed != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allowed)
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Expose-Headers", requestIDHeader)
				h.Set("Access-Control-Max-Age", corsMaxAge)
				if allowed != "*" {
					h.Add("Vary", "Origin")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// routePattern returns the matched chi pattern, or the raw path when the
// request did not match a route.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
