package qc

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

// FlagColumn is the per-row flag column added by FlagOutliers.
const FlagColumn = "outlier_flags"

// madScale converts a median absolute deviation into a robust z-score
// (the normal-consistency constant).
const madScale = 0.6745

// metricColumns is the fixed candidate set of vitals metrics, in flag
// aggregation order.
var metricColumns = []string{"systolic_bp", "diastolic_bp", "heart_rate"}

// FlagOutliers annotates each row with the names of every metric whose
// value is a statistical outlier, comma-joined in candidate order, empty
// when none fired. Candidate columns are read numerically regardless of
// their declared kind, so numeric text in an undeclared String column
// still participates; values are never mutated. When no candidate metric
// column exists the table is returned unmodified and no flag column is
// added.
func FlagOutliers(t *table.Table, cfg config.OutlierConfig) error {
	var present []string
	for _, name := range metricColumns {
		if t.Has(name) {
			present = append(present, name)
		}
	}
	if len(present) == 0 {
		return nil
	}

	rows := t.NumRows()
	masks := make(map[string][]bool, len(present))
	for _, name := range present {
		c := t.Col(name)
		values := make([]float64, rows)
		valid := make([]bool, rows)
		for i, v := range c.Values {
			values[i], valid[i] = numericValue(v)
		}
		if cfg.Method == "mad" {
			masks[name] = madMask(values, valid, cfg.MADThreshold)
		} else {
			masks[name] = iqrMask(values, valid, cfg.IQRMultiplier)
		}
	}

	flags := &table.Column{Name: FlagColumn, Kind: table.String}
	var names []string
	for i := 0; i < rows; i++ {
		names = names[:0]
		for _, name := range present {
			if masks[name][i] {
				names = append(names, "flag_"+name)
			}
		}
		flags.Values = append(flags.Values, table.NewString(strings.Join(names, ",")))
	}
	return t.SetColumn(flags)
}

// FlaggedRows counts rows whose flag column is non-empty. A table
// without the flag column has zero flagged rows.
func FlaggedRows(t *table.Table) int {
	c := t.Col(FlagColumn)
	if c == nil {
		return 0
	}
	n := 0
	for _, v := range c.Values {
		if s, ok := v.Str(); ok && s != "" {
			n++
		}
	}
	return n
}

// iqrMask flags values outside [q1 - k*iqr, q3 + k*iqr]. Missing values
// are excluded from the quantiles and never flagged.
func iqrMask(values []float64, valid []bool, k float64) []bool {
	sample := validSample(values, valid)
	mask := make([]bool, len(values))
	if len(sample) == 0 {
		return mask
	}
	sort.Float64s(sample)
	q1 := quantile(sample, 0.25)
	q3 := quantile(sample, 0.75)
	iqr := q3 - q1
	lower, upper := q1-k*iqr, q3+k*iqr
	for i := range values {
		mask[i] = valid[i] && (values[i] < lower || values[i] > upper)
	}
	return mask
}

// madMask flags values whose robust z-score exceeds the threshold. A
// zero MAD (degenerate distribution) flags nothing.
func madMask(values []float64, valid []bool, threshold float64) []bool {
	sample := validSample(values, valid)
	mask := make([]bool, len(values))
	if len(sample) == 0 {
		return mask
	}
	sort.Float64s(sample)
	m := quantile(sample, 0.5)

	devs := make([]float64, len(sample))
	for i, x := range sample {
		devs[i] = math.Abs(x - m)
	}
	sort.Float64s(devs)
	mad := quantile(devs, 0.5)
	if mad == 0 {
		return mask
	}

	for i := range values {
		if !valid[i] {
			continue
		}
		z := madScale * math.Abs(values[i]-m) / mad
		mask[i] = z > threshold
	}
	return mask
}

// numericValue reads a value as a float, parsing numeric text when the
// column was never coerced. Unparseable and missing values are excluded.
func numericValue(v table.Value) (float64, bool) {
	if f, ok := v.Float(); ok {
		return f, true
	}
	if !v.Valid() {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Text()), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func validSample(values []float64, valid []bool) []float64 {
	sample := make([]float64, 0, len(values))
	for i, ok := range valid {
		if ok {
			sample = append(sample, values[i])
		}
	}
	return sample
}

// quantile computes the linear-interpolation quantile of a sorted,
// non-empty sample: position p*(n-1), interpolated between neighbors.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
