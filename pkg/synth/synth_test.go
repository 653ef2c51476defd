package synth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

func tableText(t *table.Table) [][]string {
	rows := make([][]string, t.NumRows())
	for i := range rows {
		for _, c := range t.Columns() {
			rows[i] = append(rows[i], c.Values[i].Text())
		}
	}
	return rows
}

func TestGenerateEventsShape(t *testing.T) {
	tbl := GenerateEvents(50, 1)

	assert.Equal(t, 50, tbl.NumRows())
	assert.Equal(t, []string{
		"patient_id", "first_name", "last_name", "dob", "zip",
		"event_ts", "systolic_bp", "diastolic_bp", "heart_rate",
	}, tbl.ColumnNames())

	zip := tbl.Col("zip")
	for i := 0; i < tbl.NumRows(); i++ {
		assert.Len(t, zip.Values[i].Text(), 5)
	}

	ids := tbl.Col("patient_id")
	assert.Len(t, ids.Values[0].Text(), 36, "uuid-formatted identifier")
}

func TestGenerateEventsDeterministic(t *testing.T) {
	a := GenerateEvents(30, 7)
	b := GenerateEvents(30, 7)
	assert.Equal(t, tableText(a), tableText(b))

	c := GenerateEvents(30, 8)
	assert.NotEqual(t, tableText(a), tableText(c))
}

func TestNoiseDeterministic(t *testing.T) {
	n := Noise{MissingFrac: 0.1, OutlierFrac: 0.05, SwapBPFrac: 0.05, SkewTSFrac: 0.05, DupFrac: 0.1, Seed: 3}

	a := GenerateEvents(40, 9)
	n.Inject(a)
	b := GenerateEvents(40, 9)
	n.Inject(b)

	assert.Equal(t, tableText(a), tableText(b))
}

func TestNoiseMissingFrac(t *testing.T) {
	tbl := GenerateEvents(100, 2)
	Noise{MissingFrac: 0.1, Seed: 2}.Inject(tbl)

	missing := 0
	for _, v := range tbl.Col("zip").Values {
		if !v.Valid() {
			missing++
		}
	}
	assert.Equal(t, 10, missing)
}

func TestNoiseDupFrac(t *testing.T) {
	tbl := GenerateEvents(100, 2)
	Noise{DupFrac: 0.05, Seed: 2}.Inject(tbl)
	assert.Equal(t, 105, tbl.NumRows())

	for _, c := range tbl.Columns() {
		assert.Len(t, c.Values, 105, "every column grows together")
	}
}

func TestNoiseOutlierFracSpikesVitals(t *testing.T) {
	tbl := GenerateEvents(100, 2)
	Noise{OutlierFrac: 0.05, Seed: 2}.Inject(tbl)

	spiked := 0
	for _, v := range tbl.Col("systolic_bp").Values {
		if f, ok := v.Float(); ok && f >= 290 {
			spiked++
		}
	}
	assert.Equal(t, 5, spiked)
}

func TestNoiseSmallTableStillInjects(t *testing.T) {
	tbl := GenerateEvents(3, 2)
	Noise{MissingFrac: 0.01, Seed: 2}.Inject(tbl)

	missing := 0
	for _, v := range tbl.Col("zip").Values {
		if !v.Valid() {
			missing++
		}
	}
	assert.Equal(t, 1, missing, "a positive fraction always hits at least one row")
}

func TestWriteStamped(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "incoming")
	tbl := GenerateEvents(5, 1)

	path, err := WriteStamped(dir, "events", tbl)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	matches, err := filepath.Glob(filepath.Join(dir, "events_*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, path, matches[0])

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	back, err := table.ReadCSV(f)
	require.NoError(t, err)
	assert.Equal(t, 5, back.NumRows())
	assert.Equal(t, tbl.ColumnNames(), back.ColumnNames())
}
