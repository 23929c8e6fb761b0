package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production json logger. the level is read from LOG_LEVEL (debug, info, warn, error).
func New() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "time"
	cfg.Level = zap.NewAtomicLevelAt(levelFromEnv())
	return cfg.Build()
}

func levelFromEnv() zapcore.Level {
	level, err := zapcore.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
