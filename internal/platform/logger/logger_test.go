package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ConsoleOnly(t *testing.T) {
	l := New(Options{Env: "dev", App: "test"})
	require.NotNil(t, l)

	// No file handler registered, Close is a no-op.
	assert.NoError(t, Close(l))
}

func TestNew_WithFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.log")

	l := New(Options{
		Env:       "prod",
		FileLevel: "debug",
		File:      file,
		App:       "test",
	})
	require.NotNil(t, l)

	l.Info("hello from test")
	require.NoError(t, Close(l))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
	assert.Contains(t, string(data), `"app":"test"`)
}

func TestClose_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	l := New(Options{Env: "prod", File: filepath.Join(dir, "x.log"), App: "test"})

	require.NoError(t, Close(l))
	require.NoError(t, Close(l))
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, levelFromString("debug"))
	assert.Equal(t, slog.LevelInfo, levelFromString("info"))
	assert.Equal(t, slog.LevelWarn, levelFromString("WARN"))
	assert.Equal(t, slog.LevelError, levelFromString("error"))
	assert.Equal(t, slog.LevelInfo, levelFromString("bogus"))
}

func TestMultiHandler_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	l := slog.New(h)

	l.Info("fan out", "k", "v")

	assert.Contains(t, a.String(), "fan out")
	assert.Contains(t, b.String(), `"msg":"fan out"`)
}

func TestMultiHandler_RespectsLevels(t *testing.T) {
	var quiet, chatty bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&chatty, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	l := slog.New(h)
	l.Debug("whisper")

	assert.Empty(t, quiet.String())
	assert.Contains(t, chatty.String(), "whisper")
}

func TestMultiHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(slog.NewTextHandler(&buf, nil)).WithAttrs([]slog.Attr{slog.String("component", "pool")})
	l := slog.New(h)

	l.Info("attributed")
	assert.Contains(t, buf.String(), "component=pool")
}
