package driving

import (
	"context"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// CleanupService runs the decay-based cleanup sweep.
type CleanupService interface {
	// Run evaluates every document in scope and deletes those whose decayed
	// score is below the threshold. Per-document failures are recorded in
	// the report; an error is returned only when the sweep cannot run.
	Run(ctx context.Context, opts domain.CleanupOptions) (*domain.CleanupReport, error)
}
