package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// State is a file's position in the processing state machine.
// Transitions are strictly sequential; any error transitions directly
// to StateQuarantined.
type State int

const (
	StateReceived State = iota
	StateSchemaChecked
	StateCleaned
	StateFlagged
	StateDeIdentified
	StateOutlierPolicyApplied
	StateSunk
	StateQuarantined
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case StateReceived:
		return "Received"
	case StateSchemaChecked:
		return "SchemaChecked"
	case StateCleaned:
		return "Cleaned"
	case StateFlagged:
		return "Flagged"
	case StateDeIdentified:
		return "DeIdentified"
	case StateOutlierPolicyApplied:
		return "OutlierPolicyApplied"
	case StateSunk:
		return "Sunk"
	case StateQuarantined:
		return "Quarantined"
	default:
		return "Unknown"
	}
}

// FileJob identifies one input file dispatch.
type FileJob struct {
	ID        string
	Path      string
	CreatedAt time.Time
}

// NewFileJob creates a job for an input file.
func NewFileJob(path string) FileJob {
	return FileJob{
		ID:        uuid.New().String(),
		Path:      path,
		CreatedAt: time.Now(),
	}
}

// FileResult records the outcome of processing one file.
type FileResult struct {
	JobID       string
	Path        string
	State       State
	RowsRead    int
	RowsSunk    int
	FlaggedRows int
	Err         error
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}

// NewFileResult initializes a result for a job.
func NewFileResult(job FileJob) *FileResult {
	return &FileResult{
		JobID:     job.ID,
		Path:      job.Path,
		State:     StateReceived,
		StartTime: time.Now(),
	}
}

// Complete finalizes the result with a terminal state.
func (r *FileResult) Complete(state State, err error) {
	r.State = state
	r.Err = err
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// Success reports whether the file reached the sinks.
func (r *FileResult) Success() bool {
	return r.State == StateSunk
}
