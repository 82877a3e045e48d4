package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server restores the stored session and exposes it as tools:
  session_status   state, ingestion progress and connection
  ask_document     ask a question and wait for the answer
  upload_document  upload a local document

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default)
  docchat mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  docchat mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().Duration("answer-timeout", mcp.DefaultAnswerTimeout, "how long ask_document waits for a reply")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	timeout, err := cmd.Flags().GetDuration("answer-timeout")
	if err != nil {
		return fmt.Errorf("getting answer-timeout flag: %w", err)
	}

	ctx := cmd.Context()
	svc, _, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession(svc)

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{Session: svc})
	if err != nil {
		return err
	}
	server.SetAnswerTimeout(timeout)

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
