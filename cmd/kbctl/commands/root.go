// Package commands implements the kbctl command tree.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"helpdesk-kb/internal/app"
	"helpdesk-kb/internal/config"
)

var (
	outputFormat string
	quiet        bool
	verbose      bool

	version = "dev"
	commit  = "none"
)

// SetVersion records build information for the version command.
func SetVersion(v, c string) {
	version = v
	commit = c
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kbctl",
		Short: "Manage the helpdesk knowledge base",
		Long: `kbctl manages the helpdesk knowledge base from the command line.

It uses the same configuration as the API server (environment variables,
.env and RAG_CONFIG_FILE) and talks to the database and vector backend directly.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress informational output")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		NewIngestCmd(),
		NewSearchCmd(),
		NewListCmd(),
		NewDeleteCmd(),
		NewStatsCmd(),
		NewMCPCmd(),
		NewWatchCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// openApp loads configuration and wires the knowledge base. Logs go to stderr so
// stdout carries only command output.
func openApp(cmd *cobra.Command) (*app.App, error) {
	if outputFormat != "text" && outputFormat != "json" {
		return nil, fmt.Errorf("--format must be text or json, got %q", outputFormat)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	switch {
	case verbose:
		cfg.LogLevel = slog.LevelDebug
	case quiet:
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = max(cfg.LogLevel, slog.LevelWarn)
	}
	slog.SetDefault(app.NewLogger(cfg, os.Stderr))

	kb, err := app.New(cmd.Context(), cfg, app.Options{})
	if err != nil {
		return nil, fmt.Errorf("initializing knowledge base: %w", err)
	}
	return kb, nil
}

// closeApp closes kb, reporting failures on stderr.
func closeApp(cmd *cobra.Command, kb *app.App) {
	if err := kb.Close(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: closing knowledge base: %v\n", err)
	}
}
