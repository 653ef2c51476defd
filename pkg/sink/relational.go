package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

const insertBatchSize = 500

// Relational appends rows to a database table, creating it on first
// write. PostgreSQL and SQLite targets are selected by URI. Writes are
// always additive; there is no upsert or delete.
type Relational struct {
	db     *sqlx.DB
	table  string
	logger *zap.Logger
}

// NewRelational opens the database connection for the sink.
func NewRelational(cfg config.RelationalSinkConfig, logger *zap.Logger) (*Relational, error) {
	driver, dsn := DriverFor(cfg.URI)

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Relational{
		db:     db,
		table:  cfg.Table,
		logger: logger.Named("relational-sink"),
	}, nil
}

// DriverFor maps a sink URI to a database/sql driver and DSN.
func DriverFor(uri string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return "postgres", uri
	case strings.HasPrefix(uri, "sqlite://"):
		return "sqlite", strings.TrimPrefix(uri, "sqlite://")
	case strings.HasPrefix(uri, "sqlite:"):
		return "sqlite", strings.TrimPrefix(uri, "sqlite:")
	default:
		return "sqlite", uri
	}
}

// Name identifies the sink.
func (r *Relational) Name() string { return "relational" }

// Close releases the database connection.
func (r *Relational) Close() error { return r.db.Close() }

// Write ensures the target table exists and appends every row.
func (r *Relational) Write(ctx context.Context, t *table.Table) error {
	if t.NumRows() == 0 {
		return nil
	}

	if err := r.ensureTable(ctx, t); err != nil {
		return err
	}

	cols := t.Columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c.Name)
	}

	rows := t.NumRows()
	for start := 0; start < rows; start += insertBatchSize {
		end := start + insertBatchSize
		if end > rows {
			end = rows
		}

		placeholders := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*len(cols))
		marks := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
		for i := start; i < end; i++ {
			placeholders = append(placeholders, marks)
			for _, c := range cols {
				args = append(args, sqlValue(c.Values[i]))
			}
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			quoteIdent(r.table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
		query = r.db.Rebind(query)

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", r.table, err)
		}
	}

	r.logger.Info("Appended rows to relational sink",
		zap.String("table", r.table),
		zap.Int("rows", rows))
	return nil
}

// ensureTable creates the target table from the batch's column kinds if
// it does not exist.
func (r *Relational) ensureTable(ctx context.Context, t *table.Table) error {
	defs := make([]string, 0, t.NumCols())
	for _, c := range t.Columns() {
		defs = append(defs, fmt.Sprintf("%s %s", quoteIdent(c.Name), sqlType(c.Kind)))
	}

	createSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		quoteIdent(r.table), strings.Join(defs, ",\n\t"))
	if _, err := r.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", r.table, err)
	}
	return nil
}

func sqlType(k table.Kind) string {
	switch k {
	case table.Int:
		return "BIGINT"
	case table.Float:
		return "DOUBLE PRECISION"
	case table.Date:
		return "DATE"
	case table.DateTime:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func sqlValue(v table.Value) interface{} {
	if !v.Valid() {
		return nil
	}
	switch v.Kind() {
	case table.Int:
		n, _ := v.Int()
		return n
	case table.Float:
		f, _ := v.Float()
		return f
	case table.Date, table.DateTime:
		ts, _ := v.Time()
		return ts
	default:
		s, _ := v.Str()
		return s
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
