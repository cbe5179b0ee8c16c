package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mineralclassifier/internal/config"
)

func TestLoggerWritesLevelFiles(t *testing.T) {
	cfg := config.Default()
	cfg.LogDirectory = filepath.Join(t.TempDir(), "logs")

	l, err := NewLogger(cfg)
	require.NoError(t, err)
	defer l.Close()

	l.Info("model %s loaded", "vit-minerals")
	l.Warning("slow inference")
	l.Error("boom")

	info, err := os.ReadFile(filepath.Join(cfg.LogDirectory, InfoFile))
	require.NoError(t, err)
	assert.Contains(t, string(info), "model vit-minerals loaded")
	assert.Contains(t, string(info), "logger_test.go")

	warning, err := os.ReadFile(filepath.Join(cfg.LogDirectory, WarningFile))
	require.NoError(t, err)
	assert.Contains(t, string(warning), "slow inference")
	assert.NotContains(t, string(warning), "boom")
}

func TestCleanLogs(t *testing.T) {
	cfg := config.Default()
	cfg.LogDirectory = t.TempDir()

	l, err := NewLogger(cfg)
	require.NoError(t, err)
	defer l.Close()

	l.Error("first failure")
	require.NoError(t, l.CleanLogs(ErrorFile))

	data, err := os.ReadFile(filepath.Join(cfg.LogDirectory, ErrorFile))
	require.NoError(t, err)
	assert.Empty(t, data)

	assert.Error(t, l.CleanLogs("../secrets"))
}

func TestDiscardLogger(t *testing.T) {
	l := NewDiscard()
	l.Info("ignored %d", 1)
	assert.NoError(t, l.CleanLogs(InfoFile))
	assert.Empty(t, l.Dir())
	assert.NoError(t, l.Close())
}
