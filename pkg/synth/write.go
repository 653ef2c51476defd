package synth

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

// WriteStamped writes the table as CSV into dir under a
// timestamp-suffixed name, so repeated runs never collide and the watch
// glob picks the file up. Returns the written path.
func WriteStamped(dir, base string, t *table.Table) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	now := time.Now()
	name := fmt.Sprintf("%s_%s_%06d.csv", base, now.Format("20060102_150405"), now.Nanosecond()/1000)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := table.WriteCSV(f, t); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
