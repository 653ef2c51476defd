// Package sink implements the durable destinations a transformed table
// is written to: an append-only parquet file, a relational table, and a
// push endpoint. Sinks are always additive; nothing is ever rolled
// back.
package sink

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

// Sink persists one table of records to a target.
type Sink interface {
	// Name identifies the sink in logs and errors.
	Name() string

	// Write persists the table. A returned error fails the file.
	Write(ctx context.Context, t *table.Table) error
}

// FromConfig builds every enabled sink. A push sink whose URL variable
// is unset is skipped with a warning rather than failing startup.
func FromConfig(cfg *config.Config, logger *zap.Logger) ([]Sink, error) {
	var sinks []Sink

	if cfg.Sinks.Parquet.Enabled {
		sinks = append(sinks, NewParquet(cfg.Sinks.Parquet, logger))
	}

	if cfg.Sinks.Relational.Enabled {
		rel, err := NewRelational(cfg.Sinks.Relational, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize relational sink: %w", err)
		}
		sinks = append(sinks, rel)
	}

	if cfg.Sinks.Push.Enabled {
		url := os.Getenv(cfg.Sinks.Push.DatasetURLEnv)
		if url == "" {
			logger.Warn("Push sink enabled but URL variable is unset, skipping",
				zap.String("env", cfg.Sinks.Push.DatasetURLEnv))
		} else {
			sinks = append(sinks, NewPush(url, cfg.Retry, logger))
		}
	}

	return sinks, nil
}
