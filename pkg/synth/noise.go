package synth

import (
	"time"

	"golang.org/x/exp/rand"

	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

// Noise configures defect injection. Each fraction selects at least one
// row when positive, so small tables still get every enabled defect.
type Noise struct {
	// MissingFrac blanks out zip, dob and heart_rate values.
	MissingFrac float64
	// OutlierFrac replaces vitals with values far outside plausible
	// clinical ranges.
	OutlierFrac float64
	// SwapBPFrac swaps systolic and diastolic readings.
	SwapBPFrac float64
	// SkewTSFrac shifts event timestamps backwards by 1-180 minutes to
	// simulate late-arriving data.
	SkewTSFrac float64
	// DupFrac appends duplicate copies of existing rows.
	DupFrac float64

	Seed uint64
}

var outlierSpikes = map[string][2]float64{
	"systolic_bp":  {290, 460},
	"diastolic_bp": {180, 320},
	"heart_rate":   {240, 420},
}

// Inject mutates the table in place according to the configured
// fractions. Deterministic under Seed.
func (n Noise) Inject(t *table.Table) {
	rng := rand.New(rand.NewSource(n.Seed))

	if n.MissingFrac > 0 {
		for _, name := range []string{"zip", "dob", "heart_rate"} {
			injectMissing(rng, t.Col(name), n.MissingFrac)
		}
	}

	if n.OutlierFrac > 0 {
		for name, span := range outlierSpikes {
			spike(rng, t.Col(name), n.OutlierFrac, span[0], span[1])
		}
	}

	if n.SwapBPFrac > 0 {
		swapBP(rng, t, n.SwapBPFrac)
	}

	if n.SkewTSFrac > 0 {
		skewTimestamps(rng, t.Col("event_ts"), n.SkewTSFrac)
	}

	if n.DupFrac > 0 {
		duplicateRows(rng, t, n.DupFrac)
	}
}

func sampleSize(rows int, frac float64) int {
	if rows == 0 {
		return 0
	}
	k := int(float64(rows) * frac)
	if k < 1 {
		k = 1
	}
	if k > rows {
		k = rows
	}
	return k
}

func injectMissing(rng *rand.Rand, c *table.Column, frac float64) {
	if c == nil {
		return
	}
	for _, i := range pick(rng, len(c.Values), sampleSize(len(c.Values), frac)) {
		c.Values[i] = table.Missing(c.Kind)
	}
}

func spike(rng *rand.Rand, c *table.Column, frac, lo, hi float64) {
	if c == nil {
		return
	}
	for _, i := range pick(rng, len(c.Values), sampleSize(len(c.Values), frac)) {
		c.Values[i] = table.NewFloat(round1(lo + rng.Float64()*(hi-lo)))
	}
}

func swapBP(rng *rand.Rand, t *table.Table, frac float64) {
	sys, dia := t.Col("systolic_bp"), t.Col("diastolic_bp")
	if sys == nil || dia == nil {
		return
	}
	for _, i := range pick(rng, len(sys.Values), sampleSize(len(sys.Values), frac)) {
		sys.Values[i], dia.Values[i] = dia.Values[i], sys.Values[i]
	}
}

func skewTimestamps(rng *rand.Rand, c *table.Column, frac float64) {
	if c == nil {
		return
	}
	for _, i := range pick(rng, len(c.Values), sampleSize(len(c.Values), frac)) {
		v := c.Values[i]
		if !v.Valid() {
			continue
		}
		ts, err := time.Parse(time.RFC3339, v.Text())
		if err != nil {
			continue
		}
		back := time.Duration(1+rng.Intn(180)) * time.Minute
		c.Values[i] = table.NewString(ts.Add(-back).Format(time.RFC3339))
	}
}

func duplicateRows(rng *rand.Rand, t *table.Table, frac float64) {
	rows := t.NumRows()
	if rows == 0 {
		return
	}
	for _, i := range pick(rng, rows, sampleSize(rows, frac)) {
		for _, c := range t.Columns() {
			c.Values = append(c.Values, c.Values[i])
		}
	}
}

// pick returns k distinct indices in [0, n).
func pick(rng *rand.Rand, n, k int) []int {
	perm := rng.Perm(n)
	return perm[:k]
}
