package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/linkdeck/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can list,
link and unlink accounts.

By default, the server communicates over stdio using JSON-RPC.
Use --http to serve streamable HTTP instead, for the MCP Inspector or
remote access.

Examples:
  # Stdio mode (default)
  linkdeck mcp

  # HTTP mode
  linkdeck mcp --http localhost:8080

Client configuration:
  {
    "mcpServers": {
      "linkdeck": {
        "command": "/path/to/linkdeck",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().String("http", "", "serve HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	addr, err := cmd.Flags().GetString("http")
	if err != nil {
		return fmt.Errorf("getting http flag: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Link:    linkService,
		History: historyService,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	startSession(ctx)
	stop := startBackground(ctx)
	defer stop()

	if addr != "" {
		cmd.PrintErrf("MCP server listening on http://%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}
	return server.Run(ctx)
}
