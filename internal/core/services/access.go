package services

import (
	"context"
	"time"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/logger"
)

// AccessTracker maintains relevance_score and last_accessed_at.
// Each update is one metadata batch covering every chunk of a document.
type AccessTracker struct {
	store       driven.VectorStore
	adoptLegacy bool
	now         func() time.Time
}

// NewAccessTracker creates a tracker writing through store.
// With adoptLegacy set, reads initialise tracking on records that lack it.
func NewAccessTracker(store driven.VectorStore, adoptLegacy bool, now func() time.Time) *AccessTracker {
	if now == nil {
		now = time.Now
	}
	return &AccessTracker{store: store, adoptLegacy: adoptLegacy, now: now}
}

// Stamp applies an access to metadata that is about to be rewritten anyway.
// Writes always initialise tracking, legacy or not.
func (t *AccessTracker) Stamp(m *domain.Metadata, weight int) {
	m.Touch(t.now().UTC(), weight)
}

// Track records a read of each resolved document. Legacy records are
// skipped unless adoption is enabled. The returned documents carry the
// metadata as stored after tracking.
func (t *AccessTracker) Track(
	ctx context.Context, collection string, docs []resolved, weight int,
) ([]domain.Document, error) {
	now := t.now().UTC()
	out := make([]domain.Document, 0, len(docs))
	for _, r := range docs {
		doc := r.doc
		if !doc.Metadata.Tracked() && !t.adoptLegacy {
			logger.Debug("access: %s has no tracking fields, leaving it untouched", doc.ID)
			out = append(out, doc)
			continue
		}

		meta := doc.Metadata.Clone()
		meta.Touch(now, weight)
		if err := t.store.SetMetadata(ctx, collection, r.keys, meta); err != nil {
			return out, &domain.BackendError{
				Op:         "track access",
				Collection: collection,
				DocumentID: doc.ID,
				Partial:    len(r.keys) > 1,
				Err:        err,
			}
		}
		doc.Metadata = meta
		out = append(out, doc)
	}
	return out, nil
}
