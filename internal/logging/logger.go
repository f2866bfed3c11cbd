// Package logging builds the zap logger used across envup.
// Console output is human-oriented by default; JSON output is for
// machine consumption (ENVUP_LOG_JSON=1).
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects logger behavior.
type Options struct {
	// Verbose enables debug-level output.
	Verbose bool

	// JSON switches to the production JSON encoder.
	JSON bool
}

// New builds the process logger.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.JSON {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		// Status lines are the UI; logs stay out of the way on stderr.
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		cfg.DisableStacktrace = true
	}

	if opts.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Nop returns a logger that discards everything. Used by tests and as a
// safe default before flags are parsed.
func Nop() *zap.Logger {
	return zap.NewNop()
}
