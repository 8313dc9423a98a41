package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docindex/internal/adapters/driving/rest"
)

var apiCmd = &cobra.Command{
	Use:         "api",
	Short:       "Sync API commands",
	Annotations: backendCommand(),
}

var apiServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST sync API",
	Long: `Start the REST API used by external sync flows.

Routes are served under /api/v1:
  GET    /health
  GET    /documents         list, filtered by source_ref, source_type, category, title
  POST   /documents         store, or replace when document_id is given
  PUT    /documents/{id}    replace content of any source type
  DELETE /documents/{id}    delete a document of any source type`,
	RunE: runAPIServe,
}

func init() {
	apiServeCmd.Flags().String("addr", "", "Listen address (default from config)")
	apiCmd.AddCommand(apiServeCmd)
	rootCmd.AddCommand(apiCmd)
}

func runAPIServe(cmd *cobra.Command, _ []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("getting addr flag: %w", err)
	}
	if addr == "" {
		addr = currentSettings().Server.APIAddress
	}

	opts := []rest.Option{rest.WithVersion(version)}
	if backendPinger != nil {
		opts = append(opts, rest.WithPinger(backendPinger))
	}
	server := rest.New(documentService, opts...)

	fmt.Fprintf(cmd.ErrOrStderr(), "Sync API listening on http://%s/api/v1\n", displayAddr(addr))
	return server.Run(cmd.Context(), addr)
}
