// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
)

// RunIDKey is the field every log line of one extractor run carries.
const RunIDKey = "run_id"

// L is the process logger used outside a run, such as for command failures.
// It is a no-op until InitLogger is called.
var L = zap.NewNop()

// InitLogger points L at a production logger. If that logger cannot be built
// L falls back to zap's example logger, which writes JSON to stdout.
func InitLogger() {
	logger, err := New(false)
	if err != nil {
		L = zap.NewExample()
		L.Warn("falling back to example logger", zap.Error(err))
		return
	}
	L = logger
}

// New builds a zap.Logger configured for development or production.
func New(development bool) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = false
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}

// WithRun tags logger with a freshly generated run ID and returns both.
func WithRun(logger *zap.Logger, ids annotate.IDGenerator) (*zap.Logger, string, error) {
	runID, err := ids.NewID()
	if err != nil {
		return nil, "", fmt.Errorf("generate run id: %w", err)
	}
	return logger.With(zap.String(RunIDKey, runID)), runID, nil
}
