package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-indexer/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve search and run tools to MCP clients",
	Long: `Serves the MCP tools (search, list_sources, index_status, run_source,
run_history) over stdio, or over streamable HTTP when --http is given.

Runs requested through run_source are executed by this process, so the
command holds the data directory lock like 'serve' does.

Examples:
  sercha-indexer mcp serve
  sercha-indexer mcp serve --http 127.0.0.1:8765`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve over HTTP on this address instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	server, err := mcp.NewServer(&mcp.Ports{
		Search:   searchService,
		Sources:  sourceService,
		Indexing: indexingService,
	})
	if err != nil {
		return err
	}

	stop, err := startWorkers(cmd.Context())
	if err != nil {
		return err
	}
	defer stop()

	if mcpHTTPAddr != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}
	return server.Run(cmd.Context())
}
