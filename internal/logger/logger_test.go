package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movora/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := parseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseLevel("verbose")
	assert.Error(t, err)
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, config.LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)

	WithError(WithRunID(log, "r-1"), errors.New("boom")).Info("stage done", "rows", 3)
	log.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "stage done", rec["msg"])
	assert.Equal(t, "r-1", rec["run_id"])
	assert.Equal(t, "boom", rec["error"])
	assert.Equal(t, float64(3), rec["rows"])
	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}`), rec["time"])
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(&bytes.Buffer{}, config.LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
	_, err = New(&bytes.Buffer{}, config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestSetupFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "movora.log")
	closer, err := Setup(config.LogConfig{Level: "info", Format: "text", Output: "file", FilePath: path})
	require.NoError(t, err)
	slog.Info("hello")
	require.NoError(t, closer.Close())
	assert.FileExists(t, path)

	_, err = Setup(config.LogConfig{Output: "file"})
	assert.Error(t, err)
}

func TestContextLogger(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}
