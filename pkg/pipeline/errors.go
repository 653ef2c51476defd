package pipeline

import (
	"errors"
	"fmt"
)

// ErrOutlierPolicy marks a file rejected because flagged rows were
// present under the quarantine outlier policy. This is a designed
// outcome, not a bug: the whole file is quarantined no matter how many
// rows were clean.
var ErrOutlierPolicy = errors.New("outlier rows present under quarantine policy")

func outlierPolicyError(flagged int) error {
	return fmt.Errorf("%w: %d flagged rows", ErrOutlierPolicy, flagged)
}
