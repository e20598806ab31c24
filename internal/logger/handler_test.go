package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, Options{Level: slog.LevelDebug}))

	log.Info("login", "username", "alice", "password", "hunter2", "Authorization", "Bearer abc.def", "refresh", "r.t.k")

	out := buf.String()
	assert.Contains(t, out, "username=alice")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "abc.def")
	assert.NotContains(t, out, "r.t.k")
	assert.Contains(t, out, "password="+redacted)
}

func TestPrettyHandlerLevelsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, Options{Level: slog.LevelWarn}))

	log.Info("hidden")
	require.Empty(t, buf.String())

	log.WithGroup("client").With("path", "/jobs/").Warn("request", slog.Group("retry", "attempt", 1))
	out := buf.String()
	assert.Contains(t, out, "WARN  request")
	assert.Contains(t, out, "client.path=/jobs/")
	assert.Contains(t, out, "client.retry.attempt=1")
}

func TestPrettyHandlerFormatsValues(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, Options{}))

	log.Info("done", "took", 1500*time.Millisecond, "error", "boom happened", "empty", "")

	out := buf.String()
	assert.Contains(t, out, "took=1.5s")
	assert.Contains(t, out, `error="boom happened"`)
	assert.Contains(t, out, `empty=""`)
	assert.NotContains(t, out, "\033[")
}

func TestPrettyHandlerColor(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, Options{Color: true}))

	log.Error("failed")
	assert.Contains(t, buf.String(), red+"ERROR"+reset)
}

func TestUseColor(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "log"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, UseColor(f))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, UseColor(os.Stderr))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
