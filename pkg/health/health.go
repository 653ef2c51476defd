// Package health builds the read-only operational report: file counts,
// sink row statistics, and the pipeline log tail. It observes the sinks
// and log only and is never part of the processing path.
package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/qc"
	"github.com/evergreen-health/vitals-ingress/pkg/sink"
)

const arrivalWindow = 5 * time.Minute

// Report is a point-in-time snapshot of pipeline health.
type Report struct {
	GeneratedAt time.Time

	IncomingCount   int
	QuarantineCount int
	ArrivalsPerMin  float64

	ParquetPath    string
	ParquetRows    int
	ParquetFlagged int
	ParquetErr     error

	RelationalTable string
	RelationalRows  int
	RelationalErr   error

	LogPath string
	LogTail []string
}

// Collect gathers the report for the given configuration.
func Collect(ctx context.Context, cfg *config.Config, tailLines int) *Report {
	r := &Report{GeneratedAt: time.Now()}

	r.IncomingCount = countGlob(cfg.Dirs.Incoming, cfg.FileGlob)
	r.QuarantineCount = countGlob(cfg.Dirs.Quarantine, cfg.FileGlob)
	r.ArrivalsPerMin = arrivalRate(cfg.Dirs.Incoming, cfg.FileGlob, time.Now())

	if cfg.Sinks.Parquet.Enabled {
		r.ParquetPath = cfg.Sinks.Parquet.Path
		r.ParquetRows, r.ParquetFlagged, r.ParquetErr = parquetStats(ctx, cfg.Sinks.Parquet.Path)
	}

	if cfg.Sinks.Relational.Enabled {
		r.RelationalTable = cfg.Sinks.Relational.Table
		r.RelationalRows, r.RelationalErr = relationalCount(ctx, cfg.Sinks.Relational)
	}

	r.LogPath = filepath.Join(cfg.Dirs.Logs, "pipeline.log")
	r.LogTail = tail(r.LogPath, tailLines)
	return r
}

// Render writes the report as text.
func (r *Report) Render(w io.Writer) {
	line := strings.Repeat("=", 70)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "Vitals Ingress — Health Report")
	fmt.Fprintf(w, "As of: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, line)

	fmt.Fprintf(w, "\nIncoming files:    %d\n", r.IncomingCount)
	fmt.Fprintf(w, "Quarantined files: %d\n", r.QuarantineCount)
	fmt.Fprintf(w, "Arrival rate (5m): %.2f files/min\n", r.ArrivalsPerMin)

	if r.ParquetPath != "" {
		if r.ParquetErr != nil {
			fmt.Fprintf(w, "\nParquet %s: %v\n", r.ParquetPath, r.ParquetErr)
		} else {
			pct := 0.0
			if r.ParquetRows > 0 {
				pct = float64(r.ParquetFlagged) / float64(r.ParquetRows) * 100
			}
			fmt.Fprintf(w, "\nParquet rows: %d\n", r.ParquetRows)
			fmt.Fprintf(w, "  Outlier-flagged rows: %d (%.2f%%)\n", r.ParquetFlagged, pct)
		}
	}

	if r.RelationalTable != "" {
		if r.RelationalErr != nil {
			fmt.Fprintf(w, "\nRelational table %s: %v\n", r.RelationalTable, r.RelationalErr)
		} else {
			fmt.Fprintf(w, "\nRelational rows (%s): %d\n", r.RelationalTable, r.RelationalRows)
		}
	}

	fmt.Fprintf(w, "\nLog tail: %s\n", r.LogPath)
	for _, l := range r.LogTail {
		fmt.Fprintf(w, "  %s\n", l)
	}
}

func countGlob(dir, glob string) int {
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return 0
	}
	return len(matches)
}

func arrivalRate(dir, glob string, now time.Time) float64 {
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return 0
	}
	cutoff := now.Add(-arrivalWindow)
	hits := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			hits++
		}
	}
	return float64(hits) / arrivalWindow.Minutes()
}

func parquetStats(ctx context.Context, path string) (rows, flagged int, err error) {
	if _, err := os.Stat(path); err != nil {
		return 0, 0, errors.New("not found")
	}
	t, err := sink.ReadParquet(ctx, path)
	if err != nil {
		return 0, 0, err
	}
	return t.NumRows(), qc.FlaggedRows(t), nil
}

func relationalCount(ctx context.Context, cfg config.RelationalSinkConfig) (int, error) {
	driver, dsn := sink.DriverFor(cfg.URI)
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	defer db.Close()

	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %q`, cfg.Table)
	if err := db.GetContext(ctx, &n, query); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

// tail returns the last n lines of the log file. The log stays small
// enough that reading it whole is good enough here.
func tail(path string, n int) []string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return []string{"<log file not found>"}
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return []string{"<empty>"}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
