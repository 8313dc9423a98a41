package domain

import "fmt"

// MutationResult describes a write that was applied.
type MutationResult struct {
	// Documents are the documents written or removed, in their new state.
	Documents []Document

	// Chunks is the total number of chunk records written or removed.
	Chunks int

	// Message is a human-readable summary.
	Message string
}

// Outcome is the result of a mutating operation. Exactly one variant is set:
// Applied carries the result of a write, Candidates lists the documents an
// ambiguous filter resolved to, in which case nothing was written.
type Outcome struct {
	applied    *MutationResult
	candidates []Document
}

// Applied wraps a completed mutation.
func Applied(r MutationResult) Outcome {
	return Outcome{applied: &r}
}

// AmbiguousCandidates wraps the candidate set of an ambiguous filter.
func AmbiguousCandidates(docs []Document) Outcome {
	return Outcome{candidates: docs}
}

// IsAmbiguous returns true if no write happened because several documents matched.
func (o Outcome) IsAmbiguous() bool {
	return o.applied == nil
}

// Result returns the applied mutation, or false for the ambiguous variant.
func (o Outcome) Result() (MutationResult, bool) {
	if o.applied == nil {
		return MutationResult{}, false
	}
	return *o.applied, true
}

// Candidates returns the ambiguous candidate set.
func (o Outcome) Candidates() []Document {
	return o.candidates
}

// Message summarises the outcome.
func (o Outcome) Message() string {
	if o.applied != nil {
		return o.applied.Message
	}
	return fmt.Sprintf("Multiple documents matched (%d). Please specify which one by document_id.", len(o.candidates))
}
