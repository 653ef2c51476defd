// Package synth generates synthetic vitals event files for exercising
// the pipeline end to end, and injects the realistic data defects the
// quality stages exist to catch. Everything is deterministic under a
// seed.
package synth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

var firstNames = []string{
	"Ava", "Ben", "Carlos", "Dana", "Elif", "Frank", "Grace", "Hiro",
	"Ines", "Jamal", "Kira", "Liam", "Mona", "Noah", "Olga", "Priya",
}

var lastNames = []string{
	"Adams", "Baker", "Chen", "Diaz", "Eriksen", "Fischer", "Gupta",
	"Haddad", "Ivanov", "Johnson", "Kim", "Lopez", "Mbeki", "Nguyen",
}

// GenerateEvents builds n synthetic event rows with the pipeline's input
// schema: patient identity, dob, zip, event timestamp, and normally
// distributed vitals. The same n and seed always produce the same table.
func GenerateEvents(n int, seed uint64) *table.Table {
	rng := rand.New(rand.NewSource(seed))
	sbp := distuv.Normal{Mu: 120, Sigma: 15, Src: rand.NewSource(seed + 1)}
	dbp := distuv.Normal{Mu: 80, Sigma: 10, Src: rand.NewSource(seed + 2)}
	hr := distuv.Normal{Mu: 72, Sigma: 12, Src: rand.NewSource(seed + 3)}

	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	ids := make([]table.Value, n)
	first := make([]table.Value, n)
	last := make([]table.Value, n)
	dob := make([]table.Value, n)
	zip := make([]table.Value, n)
	eventTS := make([]table.Value, n)
	sys := make([]table.Value, n)
	dia := make([]table.Value, n)
	heart := make([]table.Value, n)

	for i := 0; i < n; i++ {
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			// The seeded source never fails to read.
			panic(err)
		}
		ids[i] = table.NewString(id.String())
		first[i] = table.NewString(firstNames[rng.Intn(len(firstNames))])
		last[i] = table.NewString(lastNames[rng.Intn(len(lastNames))])

		birth := time.Date(1930+rng.Intn(76), time.Month(1+rng.Intn(12)),
			1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
		dob[i] = table.NewString(birth.Format("2006-01-02"))
		zip[i] = table.NewString(fmt.Sprintf("%05d", rng.Intn(100000)))

		ts := base.Add(-time.Duration(rng.Intn(30*24*60)) * time.Minute)
		eventTS[i] = table.NewString(ts.Format(time.RFC3339))

		sys[i] = table.NewFloat(round1(sbp.Rand()))
		dia[i] = table.NewFloat(round1(dbp.Rand()))
		heart[i] = table.NewFloat(round1(hr.Rand()))
	}

	t := table.New()
	t.SetColumn(&table.Column{Name: "patient_id", Kind: table.String, Values: ids})
	t.SetColumn(&table.Column{Name: "first_name", Kind: table.String, Values: first})
	t.SetColumn(&table.Column{Name: "last_name", Kind: table.String, Values: last})
	t.SetColumn(&table.Column{Name: "dob", Kind: table.String, Values: dob})
	t.SetColumn(&table.Column{Name: "zip", Kind: table.String, Values: zip})
	t.SetColumn(&table.Column{Name: "event_ts", Kind: table.String, Values: eventTS})
	t.SetColumn(&table.Column{Name: "systolic_bp", Kind: table.Float, Values: sys})
	t.SetColumn(&table.Column{Name: "diastolic_bp", Kind: table.Float, Values: dia})
	t.SetColumn(&table.Column{Name: "heart_rate", Kind: table.Float, Values: heart})
	return t
}

func round1(f float64) float64 {
	return float64(int64(f*10+0.5)) / 10
}
