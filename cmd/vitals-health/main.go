// Command vitals-health prints a point-in-time health report for the
// pipeline: file counts, arrival rate, sink row statistics, and the log
// tail. It never modifies anything.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/health"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the pipeline configuration file")
	tailLines := flag.Int("tail", 15, "Number of log lines to include")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vitals-health: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	health.Collect(ctx, cfg, *tailLines).Render(os.Stdout)
}
