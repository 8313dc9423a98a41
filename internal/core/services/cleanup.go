package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure CleanupService implements the interface.
var _ driving.CleanupService = (*CleanupService)(nil)

// CleanupService deletes composed documents whose decayed relevance has
// fallen below a threshold.
type CleanupService struct {
	store driven.VectorStore
	now   func() time.Time
}

// NewCleanupService creates a cleanup service. A nil clock uses time.Now.
func NewCleanupService(store driven.VectorStore, now func() time.Time) *CleanupService {
	if now == nil {
		now = time.Now
	}
	return &CleanupService{store: store, now: now}
}

// Run evaluates every document of the selected collections. Documents are
// evaluated and deleted one at a time, so a cancelled context stops the run
// before any unevaluated document is touched.
func (s *CleanupService) Run(ctx context.Context, opts domain.CleanupOptions) (*domain.CleanupReport, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.MissingTracking == "" {
		opts.MissingTracking = domain.MissingTrackingSkip
	}
	now := opts.Now
	if now.IsZero() {
		now = s.now()
	}
	now = now.UTC()

	collections, err := s.collections(ctx, opts.Collection)
	if err != nil {
		return nil, err
	}

	logger.Section("Cleanup")
	logger.Debug("cleanup: threshold=%g lambda=%g dry_run=%t collections=%v",
		opts.Threshold, opts.DecayLambda, opts.DryRun, collections)

	report := &domain.CleanupReport{
		DryRun:      opts.DryRun,
		Threshold:   opts.Threshold,
		DecayLambda: opts.DecayLambda,
		RanAt:       now,
		Collections: collections,
	}
	for _, coll := range collections {
		if err := s.sweep(ctx, coll, opts, now, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *CleanupService) collections(ctx context.Context, name string) ([]string, error) {
	if name != "" {
		ok, err := s.store.CollectionExists(ctx, name)
		if err != nil {
			return nil, &domain.BackendError{Op: "check collection", Collection: name, Err: err}
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
		}
		return []string{name}, nil
	}
	names, err := s.store.Collections(ctx)
	if err != nil {
		return nil, &domain.BackendError{Op: "list collections", Err: err}
	}
	return names, nil
}

// sweep processes one collection. Only cancellation aborts it; every other
// failure becomes a report entry.
func (s *CleanupService) sweep(
	ctx context.Context, coll string, opts domain.CleanupOptions, now time.Time, report *domain.CleanupReport,
) error {
	chunks, err := scrollAll(ctx, s.store, coll, domain.Filter{})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		report.Entries = append(report.Entries, domain.CleanupEntry{
			Collection: coll,
			Action:     domain.ActionFailed,
			Error:      err.Error(),
		})
		logger.Warn("cleanup: scanning %s failed: %v", coll, err)
		return nil
	}

	order, groups := groupByDocument(chunks)
	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, keys := evaluate(coll, groups[id], opts, now)
		if entry.Action == domain.ActionWouldDelete && !opts.DryRun {
			if err := s.store.Delete(ctx, coll, keys); err != nil {
				entry.Action = domain.ActionFailed
				entry.Error = (&domain.BackendError{
					Op: "delete document", Collection: coll, DocumentID: id, Partial: true, Err: err,
				}).Error()
				logger.Warn("cleanup: %s", entry.Error)
			} else {
				entry.Action = domain.ActionDeleted
				logger.Info("cleanup: deleted %s %q (effective score %.3f)", id, entry.Title, entry.EffectiveScore)
			}
		}
		report.Entries = append(report.Entries, entry)
	}
	return nil
}

// evaluate decides the fate of one document's chunk set. It returns the keys
// to delete when the document is marked.
func evaluate(
	coll string, chunks []domain.Chunk, opts domain.CleanupOptions, now time.Time,
) (domain.CleanupEntry, []domain.ChunkKey) {
	first := chunks[0]
	entry := domain.CleanupEntry{
		Collection: coll,
		DocumentID: first.DocumentID,
		Title:      first.Title,
		Chunks:     len(chunks),
	}

	doc, err := domain.Assemble(chunks)
	if err != nil {
		entry.Action = domain.ActionFailed
		entry.Error = err.Error()
		return entry, nil
	}
	meta := doc.Metadata
	entry.RelevanceScore = meta.RelevanceScore

	if !meta.SourceType.IsComposed() {
		entry.Action = domain.ActionSkippedExternal
		return entry, nil
	}

	score := float64(meta.RelevanceScore)
	if meta.Tracked() {
		entry.DaysSinceAccess = domain.DaysSince(*meta.LastAccessedAt, now)
	} else {
		if opts.MissingTracking != domain.MissingTrackingZero {
			entry.Action = domain.ActionSkippedUntracked
			return entry, nil
		}
		// Never accessed: score 0, age measured from creation.
		score = 0
		entry.RelevanceScore = 0
		if !meta.CreatedAt.IsZero() {
			entry.DaysSinceAccess = domain.DaysSince(meta.CreatedAt, now)
		}
	}

	entry.EffectiveScore = domain.EffectiveScore(score, entry.DaysSinceAccess, opts.DecayLambda)
	if entry.EffectiveScore >= opts.Threshold {
		entry.Action = domain.ActionKept
		return entry, nil
	}
	entry.Action = domain.ActionWouldDelete
	return entry, domain.Keys(chunks)
}
