package qc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

func floatColumn(t *testing.T, tbl *table.Table, name string, values ...float64) {
	t.Helper()
	c := &table.Column{Name: name, Kind: table.Float}
	for _, v := range values {
		c.Values = append(c.Values, table.NewFloat(v))
	}
	require.NoError(t, tbl.SetColumn(c))
}

func TestPadZIP(t *testing.T) {
	tbl := table.New()
	c := &table.Column{Name: "zip", Kind: table.String, Values: []table.Value{
		table.NewString("2134"),
		table.NewString("02134"),
		table.Missing(table.String),
	}}
	require.NoError(t, tbl.SetColumn(c))

	PadZIP(tbl, "zip", 5)

	assert.Equal(t, "02134", c.Values[0].Text())
	assert.Equal(t, "02134", c.Values[1].Text())
	assert.False(t, c.Values[2].Valid())

	// Absent column is a no-op.
	PadZIP(tbl, "postal_code", 5)
}

func TestClipRanges(t *testing.T) {
	tbl := table.New()
	c := &table.Column{Name: "systolic_bp", Kind: table.String, Values: []table.Value{
		table.NewString("500"),
		table.NewString("10"),
		table.NewString("120"),
		table.Missing(table.String),
		table.NewString("garbage"),
	}}
	require.NoError(t, tbl.SetColumn(c))

	ranges := map[string]config.Range{
		"systolic_bp": {Lo: 50, Hi: 250},
		"absent_col":  {Lo: 0, Hi: 1},
	}
	ClipRanges(tbl, ranges)

	got := tbl.Col("systolic_bp")
	assert.Equal(t, table.Float, got.Kind)

	f, _ := got.Values[0].Float()
	assert.Equal(t, 250.0, f, "above hi clamps to hi")
	f, _ = got.Values[1].Float()
	assert.Equal(t, 50.0, f, "below lo clamps to lo")
	f, _ = got.Values[2].Float()
	assert.Equal(t, 120.0, f, "in-range untouched")
	assert.False(t, got.Values[3].Valid(), "missing passes through")
	assert.False(t, got.Values[4].Valid(), "unparseable becomes missing")

	// Idempotent.
	ClipRanges(tbl, ranges)
	f, _ = got.Values[0].Float()
	assert.Equal(t, 250.0, f)
}

func TestFlagOutliersIQR(t *testing.T) {
	tbl := table.New()
	floatColumn(t, tbl, "systolic_bp",
		100, 101, 102, 103, 104, 105, 106, 107, 108, 1000)

	err := FlagOutliers(tbl, config.OutlierConfig{Method: "iqr", IQRMultiplier: 1.5})
	require.NoError(t, err)

	flags := tbl.Col(FlagColumn)
	require.NotNil(t, flags)
	for i := 0; i < 9; i++ {
		assert.Equal(t, "", flags.Values[i].Text(), "row %d should not be flagged", i)
	}
	assert.Equal(t, "flag_systolic_bp", flags.Values[9].Text())
	assert.Equal(t, 1, FlaggedRows(tbl))
}

func TestFlagOutliersMAD(t *testing.T) {
	tbl := table.New()
	floatColumn(t, tbl, "heart_rate",
		100, 101, 102, 103, 104, 105, 106, 107, 108, 1000)

	err := FlagOutliers(tbl, config.OutlierConfig{Method: "mad", MADThreshold: 6.0})
	require.NoError(t, err)

	assert.Equal(t, 1, FlaggedRows(tbl))
	assert.Equal(t, "flag_heart_rate", tbl.Col(FlagColumn).Values[9].Text())
}

func TestFlagOutliersMADZeroGuard(t *testing.T) {
	// Nine identical values: the MAD is zero, so nothing may be flagged
	// even though one value is wildly off.
	tbl := table.New()
	floatColumn(t, tbl, "heart_rate",
		100, 100, 100, 100, 100, 100, 100, 100, 100, 1000)

	err := FlagOutliers(tbl, config.OutlierConfig{Method: "mad", MADThreshold: 6.0})
	require.NoError(t, err)
	assert.Equal(t, 0, FlaggedRows(tbl))
}

func TestFlagOutliersUncoercedStringColumn(t *testing.T) {
	// A candidate metric with no declared schema type arrives as numeric
	// text; detection still reads it numerically.
	tbl := table.New()
	c := &table.Column{Name: "heart_rate", Kind: table.String}
	for _, s := range []string{"70", "71", "72", "73", "74", "75", "76", "77", "78", "7000"} {
		c.Values = append(c.Values, table.NewString(s))
	}
	require.NoError(t, tbl.SetColumn(c))

	err := FlagOutliers(tbl, config.OutlierConfig{Method: "iqr", IQRMultiplier: 1.5})
	require.NoError(t, err)

	assert.Equal(t, 1, FlaggedRows(tbl))
	assert.Equal(t, "flag_heart_rate", tbl.Col(FlagColumn).Values[9].Text())

	// The column itself is left as text.
	assert.Equal(t, table.String, tbl.Col("heart_rate").Kind)
	assert.Equal(t, "7000", tbl.Col("heart_rate").Values[9].Text())
}

func TestFlagOutliersNonNumericTextExcluded(t *testing.T) {
	tbl := table.New()
	c := &table.Column{Name: "heart_rate", Kind: table.String}
	for _, s := range []string{"70", "71", "72", "73", "74", "75", "76", "77", "78", "n/a"} {
		c.Values = append(c.Values, table.NewString(s))
	}
	require.NoError(t, tbl.SetColumn(c))

	err := FlagOutliers(tbl, config.OutlierConfig{Method: "iqr", IQRMultiplier: 1.5})
	require.NoError(t, err)

	assert.Equal(t, 0, FlaggedRows(tbl), "unparseable text is excluded, never flagged")
}

func TestFlagOutliersSkipsMissing(t *testing.T) {
	tbl := table.New()
	c := &table.Column{Name: "systolic_bp", Kind: table.Float}
	for _, f := range []float64{100, 101, 102, 103, 104, 105, 106, 107, 108} {
		c.Values = append(c.Values, table.NewFloat(f))
	}
	c.Values = append(c.Values, table.Missing(table.Float))
	require.NoError(t, tbl.SetColumn(c))

	err := FlagOutliers(tbl, config.OutlierConfig{Method: "iqr", IQRMultiplier: 1.5})
	require.NoError(t, err)

	flags := tbl.Col(FlagColumn)
	assert.Equal(t, "", flags.Values[9].Text(), "missing values are never flagged")
}

func TestFlagOutliersMultipleColumns(t *testing.T) {
	tbl := table.New()
	floatColumn(t, tbl, "diastolic_bp",
		80, 81, 82, 83, 84, 85, 86, 87, 88, 800)
	floatColumn(t, tbl, "systolic_bp",
		100, 101, 102, 103, 104, 105, 106, 107, 108, 1000)

	err := FlagOutliers(tbl, config.OutlierConfig{Method: "iqr", IQRMultiplier: 1.5})
	require.NoError(t, err)

	// Flag names are joined in candidate order regardless of table order.
	assert.Equal(t, "flag_systolic_bp,flag_diastolic_bp", tbl.Col(FlagColumn).Values[9].Text())
	assert.Equal(t, 1, FlaggedRows(tbl))
}

func TestFlagOutliersNoCandidates(t *testing.T) {
	tbl := table.New()
	floatColumn(t, tbl, "temperature", 98.6, 99.1)

	err := FlagOutliers(tbl, config.OutlierConfig{Method: "iqr", IQRMultiplier: 1.5})
	require.NoError(t, err)

	assert.False(t, tbl.Has(FlagColumn), "no candidate metrics, no flag column")
	assert.Equal(t, 0, FlaggedRows(tbl))
}

func TestQuantileLinearInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.75, quantile(sorted, 0.25))
	assert.Equal(t, 2.5, quantile(sorted, 0.5))
	assert.Equal(t, 3.25, quantile(sorted, 0.75))
	assert.Equal(t, 5.0, quantile([]float64{5}, 0.5))
}
