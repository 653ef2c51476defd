// Command vitals-synth drops a synthetic vitals event file into the
// incoming directory, optionally laced with the data defects the
// pipeline's quality stages are there to catch.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/synth"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the pipeline configuration file")
	rows := flag.Int("rows", 200, "Number of event rows to generate")
	seed := flag.Uint64("seed", 42, "Random seed")
	outDir := flag.String("out", "", "Output directory (defaults to the configured incoming dir)")
	missing := flag.Float64("missing", 0.03, "Fraction of values blanked out")
	outliers := flag.Float64("outliers", 0.01, "Fraction of vitals spiked out of range")
	swapBP := flag.Float64("swap-bp", 0.02, "Fraction of rows with systolic/diastolic swapped")
	skewTS := flag.Float64("skew-ts", 0.03, "Fraction of timestamps skewed backwards")
	dups := flag.Float64("dups", 0.02, "Fraction of rows duplicated")
	clean := flag.Bool("clean", false, "Disable all noise injection")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vitals-synth: %v\n", err)
		os.Exit(1)
	}

	dir := *outDir
	if dir == "" {
		dir = cfg.Dirs.Incoming
	}

	t := synth.GenerateEvents(*rows, *seed)
	if !*clean {
		synth.Noise{
			MissingFrac: *missing,
			OutlierFrac: *outliers,
			SwapBPFrac:  *swapBP,
			SkewTSFrac:  *skewTS,
			DupFrac:     *dups,
			Seed:        *seed,
		}.Inject(t)
	}

	path, err := synth.WriteStamped(dir, "events", t)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vitals-synth: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d rows -> %s\n", t.NumRows(), path)
}
