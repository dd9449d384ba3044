package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"helpdesk-kb/internal/mcp"
)

// NewMCPCmd creates the mcp command.
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for agents",
		Long: `Start an MCP (Model Context Protocol) server on stdio.

Exposes the rag_search and kb_stats tools so an agent can query the
knowledge base while answering a customer.`,
		Example: `  # Configure in an MCP client:
  # {
  #   "mcpServers": {
  #     "helpdesk-kb": {
  #       "command": "kbctl",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
		Args: cobra.NoArgs,
		RunE: runMCP,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	kb, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(cmd, kb)

	server := mcp.NewServer(kb.Knowledge, version)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("MCP server starting on stdio")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}
