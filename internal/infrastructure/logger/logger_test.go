package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"critical", zapcore.FatalLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := ProductionConfig()
	cfg.Output = path

	log, err := New(cfg)
	require.NoError(t, err)
	log.Info("hello file")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello file"`)
}

func TestNew_BadFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = filepath.Join(t.TempDir(), "missing", "dir", "app.log")

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNew_ExtraCoreReceivesEntries(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	cfg := DefaultConfig()
	cfg.Output = "stderr"

	log, err := New(cfg, core)
	require.NoError(t, err)
	log.Info("teed")

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "teed", recorded.All()[0].Message)
}

func TestLevel_Zap(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, LevelNotSet.Zap())
	assert.Equal(t, zapcore.DebugLevel, LevelDebug.Zap())
	assert.Equal(t, zapcore.InfoLevel, LevelInfo.Zap())
	assert.Equal(t, zapcore.InfoLevel, Level(25).Zap())
	assert.Equal(t, zapcore.WarnLevel, LevelWarn.Zap())
	assert.Equal(t, zapcore.ErrorLevel, LevelError.Zap())
	assert.Equal(t, zapcore.ErrorLevel, LevelCritical.Zap())
}

func TestLevel_Values(t *testing.T) {
	assert.Equal(t, Level(50), LevelCritical)
	assert.Equal(t, LevelCritical, LevelFatal)
	assert.Equal(t, Level(30), LevelWarning)
	assert.Equal(t, LevelWarning, LevelWarn)
	assert.Equal(t, "WARNING", LevelWarn.String())
	assert.Equal(t, "Level 25", Level(25).String())

	lvl, ok := LevelFromName("warn")
	assert.True(t, ok)
	assert.Equal(t, LevelWarning, lvl)
	_, ok = LevelFromName("loud")
	assert.False(t, ok)
}
