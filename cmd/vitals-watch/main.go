// Command vitals-watch runs the ingestion pipeline: it watches the
// incoming directory and processes each new vitals file through schema
// enforcement, cleaning, outlier flagging, de-identification, and the
// configured sinks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/evergreen-health/vitals-ingress/pkg/alert"
	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/logging"
	"github.com/evergreen-health/vitals-ingress/pkg/pipeline"
	"github.com/evergreen-health/vitals-ingress/pkg/sink"
	"github.com/evergreen-health/vitals-ingress/pkg/watcher"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the pipeline configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "vitals-watch: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Optional; secrets may come from the real environment instead.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging, cfg.Dirs.Logs)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting vitals ingress",
		zap.String("config", configPath),
		zap.String("incoming", cfg.Dirs.Incoming),
		zap.String("glob", cfg.FileGlob))

	dispatcher := alert.NewDispatcher(logger,
		alert.NewEmail(logger),
		alert.NewWebhook(logger))

	sinks, err := sink.FromConfig(cfg, logger)
	if err != nil {
		return err
	}
	if len(sinks) == 0 {
		logger.Warn("No sinks enabled, transformed data will be discarded")
	}
	pipelineSinks := make([]pipeline.Sink, len(sinks))
	for i, s := range sinks {
		pipelineSinks[i] = s
	}

	metrics := pipeline.NewMetrics()
	orch := pipeline.NewOrchestrator(cfg, pipelineSinks, dispatcher, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = watcher.New(cfg, orch, logger).Run(ctx)
	metrics.LogSummary(logger)

	for _, s := range sinks {
		if closer, ok := s.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				logger.Warn("Failed to close sink", zap.String("sink", s.Name()), zap.Error(cerr))
			}
		}
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
