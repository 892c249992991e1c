package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mmrag/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can ingest,
retrieve and ask questions over the index.

By default, the server communicates over stdio using JSON-RPC.

Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Examples:
  # Stdio mode (default)
  mmrag mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  mmrag mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "mmrag": {
        "command": "/path/to/mmrag",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Retrieval: retrievalService,
		Answer:    answerService,
		Status:    statusService,
		Ingest:    ingestService,
		Queue:     ingestQueue,
		Files:     fileFinder,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	return runUntilSignal(cmd.Context(), func(ctx context.Context) error {
		if ingestQueue != nil {
			if err := ingestQueue.Start(ctx); err != nil {
				return fmt.Errorf("start queue: %w", err)
			}
			defer ingestQueue.Stop() //nolint:errcheck // Best-effort shutdown
		}

		if port > 0 {
			addr := fmt.Sprintf(":%d", port)
			fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
			return server.RunHTTP(ctx, addr)
		}
		return server.Run(ctx)
	})
}
