// Package cli implements the docindex command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
	"github.com/custodia-labs/docindex/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired by the bootstrap. Tests replace them with mocks.
var (
	documentService driving.DocumentService
	cleanupService  driving.CleanupService
	settingsService driving.SettingsService
	appSettings     *domain.AppSettings
	backendPinger   interface{ Ping(ctx context.Context) error }
	closeServices   = func() {}
)

var (
	verbose   bool
	configDir string
	envFile   string
)

// annotationNeedsBackend marks commands that need the vector store.
const annotationNeedsBackend = "needs-backend"

var rootCmd = &cobra.Command{
	Use:   "docindex",
	Short: "Chunked document index over a vector store",
	Long: `docindex stores documents as chunked, embedded records in a vector store
and serves them to assistants over MCP and to sync flows over a REST API.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "Config directory (default ~/.docindex)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before config")
}

// Execute runs the root command. Cancelling ctx stops the servers.
func Execute(ctx context.Context) error {
	defer func() { closeServices() }()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by the version command and the API.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if !needsBackend(cmd) {
		return nil
	}
	if documentService != nil && cleanupService != nil {
		return nil
	}
	return bootstrap(cmd.Context())
}

func needsBackend(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[annotationNeedsBackend]; ok {
			return true
		}
	}
	return false
}

func backendCommand() map[string]string {
	return map[string]string{annotationNeedsBackend: "true"}
}

func requireDocuments() error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	return nil
}

func currentSettings() domain.AppSettings {
	if appSettings != nil {
		return *appSettings
	}
	return domain.DefaultAppSettings()
}
