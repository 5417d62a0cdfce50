package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerFromContext_Default(t *testing.T) {
	assert.Same(t, slog.Default(), LoggerFromContext(context.Background()))
	//nolint:staticcheck // nil context is handled explicitly
	assert.Same(t, slog.Default(), LoggerFromContext(nil))
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	lg := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := ContextWithLogger(context.Background(), lg)
	ctx = With(ctx, slog.String("interview_id", "iv-1"))
	LoggerFromContext(ctx).Info("hello")
	assert.Contains(t, buf.String(), `"interview_id":"iv-1"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestContextWithLogger_NilLogger(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, ContextWithLogger(ctx, nil))
}
