package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.AppConfig{Env: "development"}, config.LogConfig{Level: "debug", Format: "console"})
	assert.Equal(t, Config{Level: "debug", Format: "console", Output: "stdout"}, cfg)

	cfg = FromAppConfig(config.AppConfig{Env: "production"}, config.LogConfig{Level: "info", Format: "console", Output: "stderr"})
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	log.Info("stock adjusted")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"stock adjusted"`)
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "app.log")})
	assert.Error(t, err)
}

func TestNewForEnvironment(t *testing.T) {
	log, err := NewForEnvironment("production")
	require.NoError(t, err)
	assert.NotNil(t, log)
}
