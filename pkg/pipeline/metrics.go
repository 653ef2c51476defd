package pipeline

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Metrics tracks pipeline counters for observability. The watch loop is
// single-threaded today; the mutex keeps Record and LogSummary safe
// should callers ever run them concurrently.
type Metrics struct {
	mu sync.Mutex

	StartTime        time.Time
	FilesProcessed   int
	FilesQuarantined int
	RowsRead         int64
	RowsSunk         int64
	FlaggedRows      int64
	ProcessingTime   time.Duration
}

// NewMetrics creates a metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// Record incorporates one file result.
func (m *Metrics) Record(r *FileResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RowsRead += int64(r.RowsRead)
	m.FlaggedRows += int64(r.FlaggedRows)
	m.ProcessingTime += r.Duration
	if r.Success() {
		m.FilesProcessed++
		m.RowsSunk += int64(r.RowsSunk)
	} else {
		m.FilesQuarantined++
	}
}

// LogSummary emits the current counters.
func (m *Metrics) LogSummary(logger *zap.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger.Info("Pipeline summary",
		zap.Duration("uptime", time.Since(m.StartTime)),
		zap.Int("filesProcessed", m.FilesProcessed),
		zap.Int("filesQuarantined", m.FilesQuarantined),
		zap.Int64("rowsRead", m.RowsRead),
		zap.Int64("rowsSunk", m.RowsSunk),
		zap.Int64("flaggedRows", m.FlaggedRows),
		zap.Duration("processingTime", m.ProcessingTime))
}
