package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onchainification/candlestick-retriever/internal/config"
)

func TestNew(t *testing.T) {
	log, closer, err := New(config.LoggingConfig{Level: "info", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	defer closer.Close()

	require.NotNil(t, log)
	assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "retriever.log")

	log, closer, err := New(config.LoggingConfig{
		Level:    "debug",
		Format:   "json",
		Output:   "file",
		FilePath: path,
	})
	require.NoError(t, err)
	defer closer.Close()

	log.Info("started", "pairs", 42)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"started"`)
	assert.Contains(t, string(data), `"level":"INFO"`)
	assert.Contains(t, string(data), `"pairs":42`)
}

func TestComponent(t *testing.T) {
	log, closer, err := New(config.LoggingConfig{Level: "info", Output: "stderr"})
	require.NoError(t, err)
	defer closer.Close()

	assert.NotNil(t, Component(log, "exchange"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("garbage"))
}
