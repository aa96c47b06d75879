// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the process logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/nexus-search/pkg/types"
)

// New returns a zap logger writing to stderr at cfg.Level ("debug", "info",
// "warn", "error") in cfg.Encoding ("console" or "json"). Empty fields take
// info and console.
func New(cfg types.LogConfig) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch enc := strings.ToLower(cfg.Encoding); enc {
	case "", "console":
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		config.Sampling = nil
	case "json":
		config.Encoding = "json"
	default:
		return nil, fmt.Errorf("%w: unknown log encoding %q (want console or json)", types.ErrInvalidConfig, cfg.Encoding)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a level name to its zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return 0, fmt.Errorf("%w: unknown log level %q", types.ErrInvalidConfig, name)
	}
	return level, nil
}
