package domain

import (
	"math"
	"time"
)

// Cleanup defaults.
const (
	DefaultCleanupThreshold = 1.0
	DefaultDecayLambda      = 0.001
)

// EffectiveScore applies exponential decay to a relevance score:
// score × e^(−λ·days).
func EffectiveScore(relevance float64, days, lambda float64) float64 {
	return relevance * math.Exp(-lambda*days)
}

// DaysSince returns the fractional days between then and now, never negative.
func DaysSince(then, now time.Time) float64 {
	d := now.Sub(then).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// MissingTrackingPolicy decides what cleanup does with legacy documents
// that carry no access-tracking fields.
type MissingTrackingPolicy string

const (
	// MissingTrackingSkip exempts untracked documents from decay.
	MissingTrackingSkip MissingTrackingPolicy = "skip"

	// MissingTrackingZero treats untracked documents as score 0, never accessed.
	MissingTrackingZero MissingTrackingPolicy = "zero"
)

// CleanupOptions parameterise a cleanup run.
type CleanupOptions struct {
	// DryRun reports what would be deleted without deleting.
	DryRun bool

	// Threshold is the effective score below which a document is deleted.
	Threshold float64

	// DecayLambda is the decay rate per day.
	DecayLambda float64

	// Collection limits the run to one collection. Empty means all.
	Collection string

	// MissingTracking controls legacy documents. Defaults to skip.
	MissingTracking MissingTrackingPolicy

	// Now fixes the evaluation time. Zero uses the service clock.
	Now time.Time
}

// Validate checks the options.
func (o CleanupOptions) Validate() error {
	if o.Threshold < 0 || math.IsNaN(o.Threshold) {
		return &ValidationError{Field: "threshold", Reason: "must be a non-negative number"}
	}
	if o.DecayLambda < 0 || math.IsNaN(o.DecayLambda) {
		return &ValidationError{Field: "decay_lambda", Reason: "must be a non-negative number"}
	}
	switch o.MissingTracking {
	case "", MissingTrackingSkip, MissingTrackingZero:
		return nil
	default:
		return &ValidationError{Field: "missing_tracking", Reason: "must be skip or zero"}
	}
}

// CleanupAction is the decision taken for one document.
type CleanupAction string

// Cleanup actions.
const (
	ActionDeleted          CleanupAction = "deleted"
	ActionWouldDelete      CleanupAction = "would_delete"
	ActionKept             CleanupAction = "kept"
	ActionSkippedExternal  CleanupAction = "skipped_external"
	ActionSkippedUntracked CleanupAction = "skipped_untracked"
	ActionFailed           CleanupAction = "failed"
)

// CleanupEntry reports the evaluation of one document.
type CleanupEntry struct {
	Collection      string
	DocumentID      string
	Title           string
	RelevanceScore  int
	DaysSinceAccess float64
	EffectiveScore  float64
	Chunks          int
	Action          CleanupAction
	Error           string
}

// CleanupReport is the result of a cleanup run.
type CleanupReport struct {
	DryRun      bool
	Threshold   float64
	DecayLambda float64
	RanAt       time.Time
	Collections []string
	Entries     []CleanupEntry
}

// Count returns the number of entries with the given action.
func (r *CleanupReport) Count(action CleanupAction) int {
	n := 0
	for i := range r.Entries {
		if r.Entries[i].Action == action {
			n++
		}
	}
	return n
}

// Failed returns the entries whose evaluation or deletion failed.
func (r *CleanupReport) Failed() []CleanupEntry {
	var out []CleanupEntry
	for i := range r.Entries {
		if r.Entries[i].Action == ActionFailed {
			out = append(out, r.Entries[i])
		}
	}
	return out
}
