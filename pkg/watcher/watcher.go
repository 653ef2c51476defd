// Package watcher runs the single-threaded polling loop that discovers
// new input files and hands each to the pipeline exactly once per
// process lifetime.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
)

// Processor handles one discovered file; implemented by
// pipeline.Orchestrator.
type Processor interface {
	ProcessFile(ctx context.Context, path string) bool
}

// Watcher polls the incoming directory and dispatches unseen files
// sequentially, in sorted order. The seen-set is in-memory only: a
// restart resets it and already-handled files are reprocessed.
type Watcher struct {
	cfg    *config.Config
	proc   Processor
	seen   map[string]struct{}
	logger *zap.Logger
}

// New creates a watcher.
func New(cfg *config.Config, proc Processor, logger *zap.Logger) *Watcher {
	return &Watcher{
		cfg:    cfg,
		proc:   proc,
		seen:   make(map[string]struct{}),
		logger: logger.Named("watcher"),
	}
}

// EnsureDirs creates the well-known directories. Idempotent.
func (w *Watcher) EnsureDirs() error {
	dirs := []string{
		w.cfg.Dirs.Incoming,
		w.cfg.Dirs.Quarantine,
		w.cfg.Dirs.MaskedOut,
		w.cfg.Dirs.Logs,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ScanOnce performs one poll iteration and returns how many files were
// dispatched. Every dispatched file joins the seen-set regardless of
// outcome, so a permanently-bad file is never reprocessed in this run.
func (w *Watcher) ScanOnce(ctx context.Context) int {
	pattern := filepath.Join(w.cfg.Dirs.Incoming, w.cfg.FileGlob)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		w.logger.Error("Bad watch glob", zap.String("pattern", pattern), zap.Error(err))
		return 0
	}
	sort.Strings(matches)

	dispatched := 0
	for _, path := range matches {
		if _, ok := w.seen[path]; ok {
			continue
		}
		if ctx.Err() != nil {
			return dispatched
		}

		ok := w.proc.ProcessFile(ctx, path)
		w.seen[path] = struct{}{}
		dispatched++

		w.logger.Debug("Dispatched file",
			zap.String("path", path),
			zap.Bool("success", ok))
	}
	return dispatched
}

// Run polls forever, sleeping the configured interval between scans.
// It returns only when the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.EnsureDirs(); err != nil {
		return err
	}

	w.logger.Info("Watching for new files",
		zap.String("dir", w.cfg.Dirs.Incoming),
		zap.String("glob", w.cfg.FileGlob),
		zap.Duration("pollInterval", w.cfg.Watcher.PollInterval()))

	for {
		w.ScanOnce(ctx)

		select {
		case <-time.After(w.cfg.Watcher.PollInterval()):
		case <-ctx.Done():
			w.logger.Info("Watcher stopping", zap.Error(ctx.Err()))
			return ctx.Err()
		}
	}
}
