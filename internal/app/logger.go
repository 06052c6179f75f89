package app

import (
	"github.com/nextlevelmlops/iris-ml-classification/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"io"
	"os"
)

func NewLogger(cfg config.LogConfig) *zap.Logger {
	return newLogger(cfg, os.Stdout)
}

// newLogger falls back to info for an unknown LOG_LEVEL. LOG_FORMAT=console
// selects the development encoder, anything else JSON.
func newLogger(cfg config.LogConfig, out io.Writer) *zap.Logger {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	return zap.New(
		zapcore.NewCore(encoder, zapcore.AddSync(out), level),
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	).Named(serviceName)
}
