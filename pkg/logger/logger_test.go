package logger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testHandler struct {
	logs  *[]string
	attrs []slog.Attr
}

func (h *testHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *testHandler) Handle(_ context.Context, record slog.Record) error {
	parts := []string{record.Message}
	for _, attr := range h.attrs {
		parts = append(parts, fmt.Sprintf("%s=%v", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s=%v", attr.Key, attr.Value))
		return true
	})
	*h.logs = append(*h.logs, strings.Join(parts, " "))
	return nil
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &testHandler{logs: h.logs, attrs: merged}
}

func (h *testHandler) WithGroup(_ string) slog.Handler {
	return h
}

func newCapturingLogger() (*SlogLogger, *[]string) {
	var captured []string
	return &SlogLogger{logger: slog.New(&testHandler{logs: &captured})}, &captured
}

func TestNew_Success(t *testing.T) {
	logger := New("test-package")

	assert.NotNil(t, logger)
	assert.IsType(t, &SlogLogger{}, logger)
}

func TestNewWithConfig_Formats(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		contains string
	}{
		{name: "json", format: FormatJSON, contains: `"msg":"hello"`},
		{name: "text", format: FormatText, contains: "msg=hello"},
		{name: "default falls back to json", format: "", contains: `"msg":"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithConfig(Config{
				Name:   "inspections",
				Format: tt.format,
				Level:  slog.LevelDebug,
				Writer: &buf,
			})

			logger.Info("hello")

			assert.Contains(t, buf.String(), tt.contains)
			assert.Contains(t, buf.String(), "inspections")
		})
	}
}

func TestNewWithContext_NoTraceID(t *testing.T) {
	logger := NewWithContext(context.Background(), "test-service")

	assert.NotNil(t, logger)
	assert.IsType(t, &SlogLogger{}, logger)
}

func TestError_ReturnsMessage(t *testing.T) {
	logger := New("test")

	err := logger.Error("test error message", "key", "value")

	require.Error(t, err)
	assert.Equal(t, "test error message", err.Error())
}

func TestErr_ReturnsOriginal(t *testing.T) {
	logger := New("test")

	original := errors.New("original error")

	assert.Equal(t, original, logger.Err("context message", original))
	assert.Nil(t, logger.Err("message", nil))
}

func TestErrorWithType_WrapsCategory(t *testing.T) {
	errNotFound := errors.New("NOT_FOUND")
	logger, captured := newCapturingLogger()

	err := logger.ErrorWithType(errNotFound, "inspection not found", "inspectionID", "abc")

	require.Error(t, err)
	assert.ErrorIs(t, err, errNotFound)
	assert.Equal(t, "NOT_FOUND: inspection not found", err.Error())
	require.Len(t, *captured, 1)
	assert.Contains(t, (*captured)[0], "errorType=NOT_FOUND")
	assert.Contains(t, (*captured)[0], "inspectionID=abc")
}

func TestErrorf_Method(t *testing.T) {
	logger := New("test")

	err := logger.Errorf("test error", "detailed message")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "detailed message")
}

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "trace-123")

	assert.Equal(t, "trace-123", TraceIDFromContext(ctx))
	assert.Equal(t, "", TraceIDFromContext(context.Background()))
}

func TestTraceFromContext(t *testing.T) {
	t.Run("adds trace id when present", func(t *testing.T) {
		logger, captured := newCapturingLogger()
		ctx := ContextWithTraceID(context.Background(), "context-trace-123")

		logger.TraceFromContext(ctx).Info("signed")

		require.Len(t, *captured, 1)
		assert.Contains(t, (*captured)[0], "traceID=context-trace-123")
	})

	t.Run("leaves logger untouched without trace id", func(t *testing.T) {
		logger, captured := newCapturingLogger()

		logger.TraceFromContext(context.Background()).Info("signed")

		require.Len(t, *captured, 1)
		assert.NotContains(t, (*captured)[0], "traceID")
	})
}

func TestChainedScopes(t *testing.T) {
	logger, captured := newCapturingLogger()

	logger.WithTraceID("chained-trace-222").
		File("inspection.controller.go").
		Function("AddRoom").
		Info("room created")

	require.Len(t, *captured, 1)
	line := (*captured)[0]
	assert.Contains(t, line, "room created")
	assert.Contains(t, line, "traceID=chained-trace-222")
	assert.Contains(t, line, "file=inspection.controller.go")
	assert.Contains(t, line, "function=AddRoom")
}

func TestTimer_Functionality(t *testing.T) {
	logger, captured := newCapturingLogger()

	done := logger.Timer("export")
	done()

	require.NotEmpty(t, *captured)
	assert.Contains(t, (*captured)[len(*captured)-1], "Timer Completed")
}
