package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/array"
	"github.com/apache/arrow/go/v16/arrow/memory"
	"github.com/apache/arrow/go/v16/parquet"
	"github.com/apache/arrow/go/v16/parquet/compress"
	"github.com/apache/arrow/go/v16/parquet/file"
	"github.com/apache/arrow/go/v16/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

const parquetChunkSize = 64 * 1024

// Parquet writes tables to a single parquet file. Append mode reads the
// existing file fully, concatenates, and rewrites; row order across
// calls is preserved but the whole file is rewritten on every call.
type Parquet struct {
	path   string
	mode   string
	logger *zap.Logger
}

// NewParquet creates the parquet sink.
func NewParquet(cfg config.ParquetSinkConfig, logger *zap.Logger) *Parquet {
	return &Parquet{path: cfg.Path, mode: cfg.Mode, logger: logger.Named("parquet-sink")}
}

// Name identifies the sink.
func (p *Parquet) Name() string { return "parquet" }

// Write persists the table to the parquet file.
func (p *Parquet) Write(ctx context.Context, t *table.Table) error {
	out := t
	if p.mode == "append" {
		if _, err := os.Stat(p.path); err == nil {
			existing, err := ReadParquet(ctx, p.path)
			if err != nil {
				return fmt.Errorf("failed to read existing parquet %s: %w", p.path, err)
			}
			out = concatTables(existing, t)
		}
	}

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create sink directory: %w", err)
		}
	}

	if err := writeParquet(p.path, out); err != nil {
		return err
	}

	p.logger.Info("Wrote parquet sink",
		zap.String("path", p.path),
		zap.Int("newRows", t.NumRows()),
		zap.Int("totalRows", out.NumRows()))
	return nil
}

func writeParquet(path string, t *table.Table) error {
	fields := make([]arrow.Field, 0, t.NumCols())
	for _, c := range t.Columns() {
		fields = append(fields, arrow.Field{Name: c.Name, Type: arrowType(c.Kind), Nullable: true})
	}
	arrowSchema := arrow.NewSchema(fields, nil)

	mem := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(mem, arrowSchema)
	defer builder.Release()

	for i, c := range t.Columns() {
		if err := appendColumn(builder.Field(i), c); err != nil {
			return fmt.Errorf("column %q: %w", c.Name, err)
		}
	}

	rec := builder.NewRecord()
	defer rec.Release()
	atbl := array.NewTableFromRecords(arrowSchema, []arrow.Record{rec})
	defer atbl.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	if err := pqarrow.WriteTable(atbl, f, parquetChunkSize, props, pqarrow.DefaultWriterProps()); err != nil {
		return fmt.Errorf("failed to write parquet %s: %w", path, err)
	}
	return nil
}

func appendColumn(b array.Builder, c *table.Column) error {
	for _, v := range c.Values {
		if !v.Valid() {
			b.AppendNull()
			continue
		}
		switch c.Kind {
		case table.String:
			s, _ := v.Str()
			b.(*array.StringBuilder).Append(s)
		case table.Int:
			n, _ := v.Int()
			b.(*array.Int64Builder).Append(n)
		case table.Float:
			f, _ := v.Float()
			b.(*array.Float64Builder).Append(f)
		case table.Date:
			ts, _ := v.Time()
			b.(*array.Date32Builder).Append(arrow.Date32FromTime(ts))
		case table.DateTime:
			ts, _ := v.Time()
			at, err := arrow.TimestampFromTime(ts, arrow.Microsecond)
			if err != nil {
				b.AppendNull()
				continue
			}
			b.(*array.TimestampBuilder).Append(at)
		default:
			return fmt.Errorf("unsupported kind %v", c.Kind)
		}
	}
	return nil
}

func arrowType(k table.Kind) arrow.DataType {
	switch k {
	case table.Int:
		return arrow.PrimitiveTypes.Int64
	case table.Float:
		return arrow.PrimitiveTypes.Float64
	case table.Date:
		return arrow.FixedWidthTypes.Date32
	case table.DateTime:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// ReadParquet loads a parquet file into a table. Shared with the health
// report, which uses it for sink statistics.
func ReadParquet(ctx context.Context, path string) (*table.Table, error) {
	rf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet %s: %w", path, err)
	}
	defer rf.Close()

	fr, err := pqarrow.NewFileReader(rf,
		pqarrow.ArrowReadProperties{BatchSize: parquetChunkSize},
		memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}

	atbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet table: %w", err)
	}
	defer atbl.Release()

	t := table.New()
	for ci := 0; ci < int(atbl.NumCols()); ci++ {
		fieldType := atbl.Schema().Field(ci).Type
		col := &table.Column{
			Name: atbl.Schema().Field(ci).Name,
			Kind: kindFromArrow(fieldType),
		}
		for _, chunk := range atbl.Column(ci).Data().Chunks() {
			if err := appendFromArrow(col, chunk, fieldType); err != nil {
				return nil, fmt.Errorf("column %q: %w", col.Name, err)
			}
		}
		if err := t.SetColumn(col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func kindFromArrow(dt arrow.DataType) table.Kind {
	switch dt.ID() {
	case arrow.INT64:
		return table.Int
	case arrow.FLOAT64:
		return table.Float
	case arrow.DATE32:
		return table.Date
	case arrow.TIMESTAMP:
		return table.DateTime
	default:
		return table.String
	}
}

func appendFromArrow(col *table.Column, arr arrow.Array, dt arrow.DataType) error {
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			col.Values = append(col.Values, table.Missing(col.Kind))
			continue
		}
		switch a := arr.(type) {
		case *array.String:
			col.Values = append(col.Values, table.NewString(a.Value(i)))
		case *array.Int64:
			col.Values = append(col.Values, table.NewInt(a.Value(i)))
		case *array.Float64:
			col.Values = append(col.Values, table.NewFloat(a.Value(i)))
		case *array.Date32:
			col.Values = append(col.Values, table.NewDate(a.Value(i).ToTime()))
		case *array.Timestamp:
			unit := dt.(*arrow.TimestampType).Unit
			col.Values = append(col.Values, table.NewDateTime(a.Value(i).ToTime(unit)))
		default:
			return fmt.Errorf("unsupported parquet column type %s", dt)
		}
	}
	return nil
}

// concatTables appends b's rows after a's. Columns are unioned in a's
// order; rows lacking a column are filled with missing values, and a
// kind conflict degrades both sides to strings.
func concatTables(a, b *table.Table) *table.Table {
	out := table.New()

	names := a.ColumnNames()
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		seen[n] = struct{}{}
	}
	for _, n := range b.ColumnNames() {
		if _, ok := seen[n]; !ok {
			names = append(names, n)
		}
	}

	for _, name := range names {
		ca, cb := a.Col(name), b.Col(name)
		kind := table.String
		switch {
		case ca != nil && cb != nil && ca.Kind == cb.Kind:
			kind = ca.Kind
		case ca != nil && cb == nil:
			kind = ca.Kind
		case ca == nil && cb != nil:
			kind = cb.Kind
		}

		col := &table.Column{Name: name, Kind: kind}
		col.Values = appendAsKind(col.Values, ca, a.NumRows(), kind)
		col.Values = appendAsKind(col.Values, cb, b.NumRows(), kind)
		// Ignore the length-mismatch error: both sides are padded to
		// their table's row count above.
		_ = out.SetColumn(col)
	}
	return out
}

func appendAsKind(values []table.Value, c *table.Column, rows int, kind table.Kind) []table.Value {
	if c == nil {
		for i := 0; i < rows; i++ {
			values = append(values, table.Missing(kind))
		}
		return values
	}
	for _, v := range c.Values {
		switch {
		case !v.Valid():
			values = append(values, table.Missing(kind))
		case v.Kind() == kind:
			values = append(values, v)
		default:
			values = append(values, table.NewString(v.Text()))
		}
	}
	return values
}
