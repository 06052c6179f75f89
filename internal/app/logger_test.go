package app

import (
	"bytes"
	"encoding/json"
	"github.com/nextlevelmlops/iris-ml-classification/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(config.LogConfig{Level: "debug", Format: "json"}, &buf)

		logger.Named("token-provider").Debug("token obtained", zap.Int("status", 200))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "debug", entry["level"])
		assert.Equal(t, "iris-prediction-service.token-provider", entry["logger"])
		assert.Equal(t, "token obtained", entry["msg"])
		assert.EqualValues(t, 200, entry["status"])
	})

	t.Run("level filters entries", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)

		logger.Info("dropped")
		assert.Zero(t, buf.Len())

		logger.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("bad level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(config.LogConfig{Level: "loud", Format: "console"}, &buf)

		logger.Debug("dropped")
		assert.Zero(t, buf.Len())

		logger.Info("kept")
		assert.Contains(t, buf.String(), "kept")
		assert.Contains(t, buf.String(), "INFO")
		assert.Contains(t, buf.String(), "iris-prediction-service")
	})
}
