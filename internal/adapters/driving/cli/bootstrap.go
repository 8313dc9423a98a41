package cli

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/docindex/internal/adapters/driven/ai"
	"github.com/custodia-labs/docindex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/instrumented"
	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docindex/internal/chunker"
	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/core/services"
	"github.com/custodia-labs/docindex/internal/logger"
)

// bootstrap loads settings and wires the services for commands that need
// the vector store.
func bootstrap(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	settings := services.NewSettingsService(configStore).WithEnv(os.LookupEnv)
	st, err := settings.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if err := st.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(configStore.Dir(), "prompts"))
	if err != nil {
		return err
	}
	aiResult, err := ai.Init(ctx, st, prompts, false)
	if err != nil {
		return fmt.Errorf("initialising AI services: %w", err)
	}
	for _, w := range aiResult.Warnings {
		logger.Warn("%s", w)
	}

	store, err := openVectorStore(ctx, st)
	if err != nil {
		aiResult.Close()
		return err
	}

	ch, err := chunker.FromSettings(st.Chunking)
	if err != nil {
		aiResult.Close()
		_ = store.Close()
		return err
	}

	opts := []services.DocumentOption{
		services.WithDefaultCollection(st.VectorStore.Collection),
		services.WithSearchLimit(st.VectorStore.SearchLimit),
		services.WithAdoptLegacy(st.Access.AdoptLegacy),
		services.WithAutoTags(st.Summary.AutoTags),
	}
	if aiResult.Summariser != nil {
		opts = append(opts, services.WithSummariser(aiResult.Summariser, st.Summary.BestEffort))
	}

	documentService = services.NewDocumentService(store, aiResult.EmbeddingService, ch, opts...)
	cleanupService = services.NewCleanupService(store, time.Now)
	settingsService = settings
	appSettings = st
	backendPinger = store
	closeServices = func() {
		aiResult.Close()
		if err := store.Close(); err != nil {
			logger.Warn("closing vector store: %v", err)
		}
	}

	logger.Debug("backend %s, collection %s, embedding %s/%s",
		st.VectorStore.Backend, st.VectorStore.Collection, st.Embedding.Provider, st.Embedding.Model)
	return nil
}

// openVectorStore creates the configured backend wrapped with tracing,
// logging and the optional rate limit.
func openVectorStore(ctx context.Context, st *domain.AppSettings) (driven.VectorStore, error) {
	var (
		inner driven.VectorStore
		err   error
	)
	switch st.VectorStore.Backend {
	case domain.VectorBackendQdrant:
		inner = qdrant.NewStore(qdrant.Config{
			URL:     st.Qdrant.URL,
			APIKey:  st.Qdrant.APIKey,
			Timeout: st.Qdrant.Timeout,
		})
	case domain.VectorBackendSQLite:
		inner, err = sqlite.NewStore(st.SQLite.Path)
	case domain.VectorBackendPgvector:
		inner, err = pgvector.NewStore(ctx, st.Postgres.DSN)
	case domain.VectorBackendMemory:
		logger.Warn("memory backend selected: documents are lost on exit")
		inner = memory.NewVectorStore()
	default:
		return nil, fmt.Errorf("unknown vector backend %q", st.VectorStore.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", st.VectorStore.Backend, err)
	}

	var opts []instrumented.Option
	if rate := st.VectorStore.RateLimit; rate > 0 {
		opts = append(opts, instrumented.WithRateLimit(rate, int(math.Max(1, math.Ceil(rate)))))
	}
	return instrumented.New(inner, string(st.VectorStore.Backend), opts...), nil
}
