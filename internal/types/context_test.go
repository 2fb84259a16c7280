package types

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Equal(t, "", GetRequestID(context.Background()))
}

func TestLoggerFromContext(t *testing.T) {
	fallback := slog.Default()
	scoped := slog.Default().With("request_id", "req-1")

	assert.Same(t, fallback, LoggerFromContext(context.Background(), fallback))
	assert.Same(t, scoped, LoggerFromContext(WithLogger(context.Background(), scoped), fallback))
}
