package reconcile

import (
	"fmt"
	"time"
)

// FailurePolicy decides what a refresh does with the Live Set when ingestion fails.
type FailurePolicy string

const (
	// PolicyPreserve leaves the Live Set and Member Index untouched when the desired set
	// could not be fully staged.
	PolicyPreserve FailurePolicy = "preserve"
	// PolicyTruncate diffs against whatever was staged before the failure, which may shrink
	// or empty the Live Set.
	PolicyTruncate FailurePolicy = "truncate"
)

// ParsePolicy converts a configuration value into a FailurePolicy.
// An empty value selects PolicyPreserve.
func ParsePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", PolicyPreserve:
		return PolicyPreserve, nil
	case PolicyTruncate:
		return PolicyTruncate, nil
	default:
		return "", fmt.Errorf("unknown failure policy: %s", s)
	}
}

// Options controls refresh behavior.
type Options struct {
	// FailurePolicy applies when staging the desired set fails.
	FailurePolicy FailurePolicy
}

// Result describes one refresh.
type Result struct {
	// SegmentID is the refreshed segment.
	SegmentID string `json:"segment_id"`

	// Cardinality is the size of the Live Set read back after the refresh.
	Cardinality int64 `json:"cardinality"`

	// Staged counts the valid rows written to the staging set, duplicates included.
	Staged int `json:"staged"`

	// Added counts members present in the desired set but not in the previous Live Set.
	Added int64 `json:"added"`

	// Removed counts members present in the previous Live Set but not in the desired set.
	Removed int64 `json:"removed"`

	// Published reports that the Live Set was rewritten, even if a later step failed.
	Published bool `json:"published"`

	// Duration is the wall time of the refresh.
	Duration time.Duration `json:"duration"`
}
