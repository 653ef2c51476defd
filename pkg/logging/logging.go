// Package logging constructs the process logger. The logger is built
// once at startup and passed explicitly to every component; nothing in
// the pipeline reads a global.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
)

// New builds a zap logger from config. Output always goes to stderr;
// when logsDir is non-empty it is additionally teed to
// <logsDir>/pipeline.log so the health CLI can tail it.
func New(cfg config.LoggingConfig, logsDir string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}

	if logsDir != "" {
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create logs directory: %w", err)
		}
		path := filepath.Join(logsDir, "pipeline.log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(f), level))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}
