package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// Typed errors below match these sentinels with errors.Is.
var (
	// ErrNotFound indicates no document matched.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrReadOnlyContent indicates a content mutation on an external document.
	ErrReadOnlyContent = errors.New("content is read-only")

	// ErrBackend indicates a vector store or provider call failed.
	ErrBackend = errors.New("backend failure")

	// ErrConsistency indicates a document's chunk set violates its invariants.
	ErrConsistency = errors.New("consistency violation")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSummaryUnavailable indicates the summarisation service is not configured.
	ErrSummaryUnavailable = errors.New("summary service unavailable")

	// ErrCollectionNotFound indicates the named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")
)

// ValidationError reports a missing or invalid field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// Is matches ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ReadOnlyContentError is returned when update, append or delete targets a
// document whose source type does not allow content changes.
type ReadOnlyContentError struct {
	DocumentID string
	Title      string
	SourceType SourceType
	SourceRef  string
	Op         string
}

func (e *ReadOnlyContentError) Error() string {
	msg := fmt.Sprintf("cannot %s %q: it is a %q document", e.Op, e.Title, e.SourceType)
	if e.SourceRef != "" {
		msg += " (source: " + e.SourceRef + ")"
	}
	return msg + "; change it at the source"
}

// Is matches ErrReadOnlyContent.
func (e *ReadOnlyContentError) Is(target error) bool {
	return target == ErrReadOnlyContent
}

// NotFoundError reports that a filter matched nothing where a match was required.
type NotFoundError struct {
	Collection string
	Filter     Filter
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no matching documents found in %q for %s", e.Collection, e.Filter)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// BackendError wraps a failed call to the vector store or a provider.
// Partial is set when a write may have left the chunk set of DocumentID
// in a mixed state; retrying the whole operation repairs it.
type BackendError struct {
	Op         string
	Collection string
	DocumentID string
	Partial    bool
	Err        error
}

func (e *BackendError) Error() string {
	msg := e.Op
	if e.DocumentID != "" {
		msg += " " + e.DocumentID
	}
	if e.Partial {
		msg += " (partial write, retry the operation)"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is matches ErrBackend.
func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// ConsistencyViolation reports a chunk-index gap or metadata divergence.
// It is never repaired implicitly.
type ConsistencyViolation struct {
	DocumentID string
	Reason     string
}

func (e *ConsistencyViolation) Error() string {
	return fmt.Sprintf("consistency violation in document %s: %s", e.DocumentID, e.Reason)
}

// Is matches ErrConsistency.
func (e *ConsistencyViolation) Is(target error) bool {
	return target == ErrConsistency
}
