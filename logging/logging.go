// Package logging builds the process logger: zap underneath, log/slog on top.
package logging

import (
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

const DefaultLevel = "info"

type UnknownLevelError struct {
	Level string
}

func (err UnknownLevelError) Error() string {
	return fmt.Sprintf("unknown log level %q", err.Level)
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, &UnknownLevelError{Level: level}
	}
}

// New returns a JSON production logger. An unknown level falls back to info
// and is reported once the logger exists.
func New(level string) (*zap.Logger, error) {
	lvl, levelErr := ParseLevel(level)

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if levelErr != nil {
		logger.Warn("unknown log level, defaulting to info", zap.String("level", level))
	}

	return logger, nil
}

// NewSlog wraps logger so slog call sites write through zap.
func NewSlog(logger *zap.Logger) *slog.Logger {
	return slog.New(zapslog.NewHandler(logger.Core(), zapslog.WithCaller(true)))
}
