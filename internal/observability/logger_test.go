// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/uiprobe/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("console logger colors the level", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "uiprobe",
			Colors:      config.ColorConfig{Info: "green"},
		}
		logger := NewLogger(cfg, zapcore.AddSync(&buf))
		logger.Named("orchestrator").Info("Phase started.", zap.String("phase", "accessibility"))
		require.NoError(t, logger.Sync())

		output := buf.String()
		assert.Contains(t, output, colorGreen+"INFO"+colorReset)
		assert.Contains(t, output, "uiprobe.orchestrator.")
		assert.Contains(t, output, "Phase started.")
		assert.Contains(t, output, `"phase": "accessibility"`)
	})

	t.Run("json logger emits structured entries", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := config.LoggerConfig{Level: "info", Format: "json", ServiceName: "JSONTest"}
		logger := NewLogger(cfg, zapcore.AddSync(&buf))
		logger.Warn("Reference skipped.", zap.String("source", "stripe"))
		require.NoError(t, logger.Sync())

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "Log output should be valid JSON")
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "JSONTest", entry["logger"])
		assert.Equal(t, "Reference skipped.", entry["msg"])
		assert.Equal(t, "stripe", entry["source"])
	})

	t.Run("level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(config.LoggerConfig{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))
		logger.Info("hidden")
		require.NoError(t, logger.Sync())
		assert.Empty(t, buf.String())
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(config.LoggerConfig{Level: "chatty", Format: "json"}, zapcore.AddSync(&buf))
		logger.Debug("hidden")
		logger.Info("shown")
		require.NoError(t, logger.Sync())
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("file core writes json", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "uiprobe.log")
		var console bytes.Buffer
		logger := NewLogger(config.LoggerConfig{Level: "info", Format: "console", LogFile: logPath, MaxSize: 1}, zapcore.AddSync(&console))
		logger.Error("Session failed.", zap.String("route", "home"))
		require.NoError(t, logger.Sync())

		content, err := os.ReadFile(logPath)
		require.NoError(t, err)
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(content), &entry))
		assert.Equal(t, "home", entry["route"])
	})
}

func TestGlobalLogger(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	var buf bytes.Buffer
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"}, zapcore.AddSync(&buf))
	// A second initialization is ignored.
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "second"}, zapcore.AddSync(&buf))

	GetLogger().Info("hello")
	Sync()
	assert.Contains(t, buf.String(), `"logger":"first"`)
	assert.NotContains(t, buf.String(), "second")
}
