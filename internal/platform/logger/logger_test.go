package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/phrazzld/lexi-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		want  slog.Level
		valid bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warn ", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}

	for _, tc := range tests {
		got, ok := ParseLevel(tc.in)
		assert.Equal(t, tc.want, got, "level %q", tc.in)
		assert.Equal(t, tc.valid, ok, "level %q", tc.in)
	}
}

// Setup swaps the process-wide default logger, so these tests do not run in parallel.
func TestSetupHonoursLevel(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	buf := &TestLogBuffer{}
	l := setup(config.ServerConfig{LogLevel: "warn"}, buf)

	l.Info("hidden")
	l.Warn("shown", slog.String("component", "test"))

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["msg"])
	assert.Equal(t, "test", entries[0]["component"])
	assert.Same(t, l, slog.Default())
}

func TestSetupReturnsLogger(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	l, err := Setup(config.ServerConfig{LogLevel: "debug"})
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))
}

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	fallback, _ := NewTestLogger()
	custom, _ := NewTestLogger()

	assert.Same(t, fallback, FromContextOrDefault(context.Background(), fallback))

	ctx := WithLogger(context.Background(), custom)
	assert.Same(t, custom, FromContextOrDefault(ctx, fallback))
	assert.Same(t, custom, FromContext(ctx))

	assert.Panics(t, func() { WithLogger(context.Background(), nil) })
}

func TestFromContextAttachesRequestID(t *testing.T) {
	t.Parallel()

	fallback, buf := NewTestLogger()
	ctx := WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestIDFromContext(ctx))

	FromContextOrDefault(ctx, fallback).Info("hello")

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0]["request_id"])
}
