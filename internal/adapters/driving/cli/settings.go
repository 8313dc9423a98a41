package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docindex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
	"github.com/custodia-labs/docindex/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or initialise settings",
	Long: `Settings are read from config.toml in the config directory, then
overridden by environment variables such as QDRANT_URL, COLLECTION_NAME
and EMBEDDING_PROVIDER, which may also come from a .env file.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current settings to the config file",
	RunE:  runSettingsInit,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsInitCmd)
	rootCmd.AddCommand(settingsCmd)
}

// settings returns the wired settings service, opening the config store
// when the command ran without the backend.
func settings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService = services.NewSettingsService(store).WithEnv(os.LookupEnv)
	return settingsService, nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := settings()
	if err != nil {
		return err
	}
	st, err := svc.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	cmd.Println("Vector store:")
	cmd.Printf("  Backend:      %s\n", st.VectorStore.Backend)
	cmd.Printf("  Collection:   %s\n", st.VectorStore.Collection)
	cmd.Printf("  Search limit: %d\n", st.VectorStore.SearchLimit)
	cmd.Printf("  Read-only:    %t\n", st.VectorStore.ReadOnly)
	if st.VectorStore.RateLimit > 0 {
		cmd.Printf("  Rate limit:   %g/s\n", st.VectorStore.RateLimit)
	}
	switch st.VectorStore.Backend {
	case domain.VectorBackendQdrant:
		cmd.Printf("  Qdrant URL:   %s\n", st.Qdrant.URL)
		if st.Qdrant.APIKey != "" {
			cmd.Printf("  Qdrant key:   %s\n", maskAPIKey(st.Qdrant.APIKey))
		}
	case domain.VectorBackendSQLite:
		cmd.Printf("  SQLite path:  %s\n", valueOr(st.SQLite.Path, "~/.docindex/data/vectors.db"))
	case domain.VectorBackendPgvector:
		cmd.Printf("  Postgres:     %s\n", maskDSN(st.Postgres.DSN))
	}

	cmd.Println("\nEmbedding:")
	cmd.Printf("  Provider:     %s\n", st.Embedding.Provider.Description())
	cmd.Printf("  Model:        %s\n", st.Embedding.Model)
	if st.Embedding.APIKey != "" {
		cmd.Printf("  API key:      %s\n", maskAPIKey(st.Embedding.APIKey))
	}
	if st.EmbeddingCache.Enabled() {
		cmd.Printf("  Redis cache:  %s (ttl %s)\n", st.EmbeddingCache.RedisAddr, st.EmbeddingCache.TTL)
	}

	cmd.Println("\nSummary:")
	if st.Summary.IsConfigured() {
		cmd.Printf("  Provider:     %s\n", st.Summary.Provider.Description())
		cmd.Printf("  Model:        %s\n", st.Summary.Model)
		cmd.Printf("  Best effort:  %t\n", st.Summary.BestEffort)
		cmd.Printf("  Auto tags:    %t\n", st.Summary.AutoTags)
	} else {
		cmd.Println("  Not configured")
	}

	cmd.Println("\nChunking:")
	cmd.Printf("  Size/overlap: %d/%d tokens (%.1f chars per token)\n",
		st.Chunking.ChunkSize, st.Chunking.Overlap, st.Chunking.CharsPerToken)

	cmd.Println("\nCleanup:")
	cmd.Printf("  Threshold:    %g\n", st.Cleanup.Threshold)
	cmd.Printf("  Decay lambda: %g\n", st.Cleanup.DecayLambda)
	cmd.Printf("  Untracked:    %s\n", st.Cleanup.Policy())
	cmd.Printf("  Adopt legacy: %t\n", st.Access.AdoptLegacy)

	cmd.Println("\nServer:")
	cmd.Printf("  MCP:          %s %s\n", st.Server.Transport, st.Server.Address)
	cmd.Printf("  Sync API:     %s\n", st.Server.APIAddress)
	if len(st.Server.ToolDescriptions) > 0 {
		names := make([]string, 0, len(st.Server.ToolDescriptions))
		for name := range st.Server.ToolDescriptions {
			names = append(names, name)
		}
		sort.Strings(names)
		cmd.Printf("  Custom tools: %s\n", strings.Join(names, ", "))
	}

	if err := st.Validate(); err != nil {
		cmd.Printf("\nWarning: %v\n", err)
	}
	return nil
}

func runSettingsInit(cmd *cobra.Command, _ []string) error {
	svc, err := settings()
	if err != nil {
		return err
	}
	st, err := svc.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if err := svc.Save(st); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	cmd.Println("Settings saved.")
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// maskDSN hides the password of a postgres URL.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return dsn[:scheme+3] + creds[:colon] + ":****" + dsn[at:]
	}
	return dsn
}
