// Package pipeline composes the transformation stages and the per-file
// failure boundary: schema enforcement, cleaning, outlier flagging,
// de-identification, the outlier policy decision, and sink dispatch.
// Any stage error routes the original file to quarantine and fires the
// alert channels; no error ever crosses into the watch loop.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/deid"
	"github.com/evergreen-health/vitals-ingress/pkg/qc"
	"github.com/evergreen-health/vitals-ingress/pkg/schema"
	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

// Sink persists a transformed table; implemented by pkg/sink.
type Sink interface {
	Name() string
	Write(ctx context.Context, t *table.Table) error
}

// Alerter notifies operators; implemented by alert.Dispatcher. It must
// never fail.
type Alerter interface {
	Alert(ctx context.Context, subject, body string)
}

// Orchestrator runs one file through the transform stages inside the
// failure boundary.
type Orchestrator struct {
	cfg     *config.Config
	sinks   []Sink
	alerts  Alerter
	metrics *Metrics
	logger  *zap.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg *config.Config, sinks []Sink, alerts Alerter, metrics *Metrics, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		sinks:   sinks,
		alerts:  alerts,
		metrics: metrics,
		logger:  logger.Named("pipeline"),
	}
}

// ProcessFile runs the full pipeline for one input file. The returned
// boolean drives the watcher's bookkeeping only; the transformed table
// never leaves the boundary.
func (o *Orchestrator) ProcessFile(ctx context.Context, path string) bool {
	job := NewFileJob(path)
	result := NewFileResult(job)

	err := o.run(ctx, path, result)
	if err != nil {
		o.logger.Error("Failed processing file",
			zap.String("jobID", job.ID),
			zap.String("path", path),
			zap.String("state", result.State.String()),
			zap.Error(err))
		o.quarantine(path)
		o.alerts.Alert(ctx, "ETL Failure", fmt.Sprintf("File: %s\nError: %v", path, err))
		result.Complete(StateQuarantined, err)
		o.metrics.Record(result)
		return false
	}

	result.Complete(StateSunk, nil)
	o.metrics.Record(result)
	o.logger.Info("Processed OK",
		zap.String("jobID", job.ID),
		zap.String("path", path),
		zap.Int("rows", result.RowsSunk),
		zap.Int("flaggedRows", result.FlaggedRows),
		zap.Duration("duration", result.Duration))
	return true
}

func (o *Orchestrator) run(ctx context.Context, path string, result *FileResult) error {
	t, err := table.ReadFile(path, o.cfg.InputFormat)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	result.RowsRead = t.NumRows()

	if err := schema.Enforce(t, o.cfg.Schema); err != nil {
		return err
	}
	result.State = StateSchemaChecked

	if o.cfg.Cleaning.PadZipLeft() {
		qc.PadZIP(t, "zip", o.cfg.Cleaning.ZipLength)
	}
	qc.ClipRanges(t, o.cfg.Cleaning.ClipRanges)
	result.State = StateCleaned

	if err := qc.FlagOutliers(t, o.cfg.Outliers); err != nil {
		return fmt.Errorf("failed to flag outliers: %w", err)
	}
	result.FlaggedRows = qc.FlaggedRows(t)
	result.State = StateFlagged

	if err := deid.Apply(t, o.cfg.SafeHarbor); err != nil {
		return fmt.Errorf("de-identification failed: %w", err)
	}
	result.State = StateDeIdentified

	if o.cfg.Outliers.Action == "quarantine" && result.FlaggedRows > 0 {
		return outlierPolicyError(result.FlaggedRows)
	}
	result.State = StateOutlierPolicyApplied

	for _, s := range o.sinks {
		if err := s.Write(ctx, t); err != nil {
			return fmt.Errorf("sink %s failed: %w", s.Name(), err)
		}
	}
	result.RowsSunk = t.NumRows()
	return nil
}

// quarantine moves the original source file into quarantine storage.
// The move is best-effort: a failure is logged but never escalates.
func (o *Orchestrator) quarantine(path string) {
	dest := filepath.Join(o.cfg.Dirs.Quarantine, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		o.logger.Warn("Failed to move file to quarantine",
			zap.String("path", path),
			zap.String("dest", dest),
			zap.Error(err))
		return
	}
	o.logger.Info("Quarantined file", zap.String("path", path), zap.String("dest", dest))
}
