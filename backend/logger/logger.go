// Package logger provides structured logging with zap.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// New creates a new zap.Logger depending on the environment.
func New(env string) *zap.Logger {
	if env == "production" {
		return build(zap.NewProductionConfig())
	}
	return build(zap.NewDevelopmentConfig())
}

// build falls back to a no-op logger when cfg cannot be built, so callers
// always get a usable logger.
func build(cfg zap.Config) *zap.Logger {
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger, logging disabled: %v\n", err)
		return zap.NewNop()
	}
	return logger
}
