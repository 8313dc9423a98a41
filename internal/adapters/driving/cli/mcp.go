package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docindex/internal/adapters/driving/mcp"
	"github.com/custodia-labs/docindex/internal/core/domain"
)

var mcpCmd = &cobra.Command{
	Use:         "mcp",
	Short:       "MCP server commands",
	Long:        `Commands for the Model Context Protocol (MCP) server integration.`,
	Annotations: backendCommand(),
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default the server communicates over stdio. Use --transport http to serve
streamable HTTP instead, for remote clients and the MCP Inspector.

With vector_store.read_only set, only the find, list and collections tools
are exposed.

Examples:
  # Stdio mode (default)
  docindex mcp serve

  # HTTP mode
  docindex mcp serve --transport http --addr :8000`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().String("transport", "", "Transport: stdio or http (default from config)")
	mcpServeCmd.Flags().String("addr", "", "HTTP listen address (default from config)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}
	st := currentSettings()

	transport, err := cmd.Flags().GetString("transport")
	if err != nil {
		return fmt.Errorf("getting transport flag: %w", err)
	}
	if transport == "" {
		transport = string(st.Server.Transport)
	}
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("getting addr flag: %w", err)
	}
	if addr == "" {
		addr = st.Server.Address
	}

	server, err := mcp.NewServer(&mcp.Ports{Document: documentService}, mcp.Options{
		ReadOnly:         st.VectorStore.ReadOnly,
		ToolDescriptions: st.Server.ToolDescriptions,
	})
	if err != nil {
		return err
	}

	switch domain.Transport(transport) {
	case domain.TransportHTTP:
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", displayAddr(addr))
		return server.RunHTTP(cmd.Context(), addr)
	case domain.TransportStdio:
		return server.Run(cmd.Context())
	default:
		return fmt.Errorf("unknown transport %q: use stdio or http", transport)
	}
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
