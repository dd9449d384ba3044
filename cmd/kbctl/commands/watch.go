package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"helpdesk-kb/internal/ingest"
)

var (
	watchDebounce time.Duration
	watchSource   string
	watchInitial  bool
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Ingest files as they appear in a directory",
		Long: `Watch a directory tree and ingest supported files when they are
created or written. A changed file replaces the document previously
ingested for it during this run.

The directory defaults to WATCH_DIR.`,
		Example: `  kbctl watch ./inbox
  WATCH_DIR=/srv/kb-drop kbctl watch --initial`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().DurationVar(&watchDebounce, "debounce", ingest.DefaultDebounce, "Quiet period before a changed file is ingested")
	cmd.Flags().StringVar(&watchSource, "source", ingest.DefaultSource, "Provenance tag stored with each document")
	cmd.Flags().BoolVar(&watchInitial, "initial", false, "Ingest existing files before watching")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	kb, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(cmd, kb)

	dir := kb.Config.WatchDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("no directory given and WATCH_DIR is not set")
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ing := ingest.NewIngester(kb.Knowledge, kb.Extractors, watchSource, "")
	out := cmd.OutOrStdout()

	if watchInitial {
		if _, err := ing.IngestDir(ctx, dir); err != nil {
			return fmt.Errorf("ingesting %s: %w", dir, err)
		}
	}

	handle := func(ctx context.Context, path string) {
		res, err := ing.Replace(ctx, path)
		if err != nil {
			slog.Warn("Failed to ingest file", "path", path, "error", err)
			return
		}
		if !quiet {
			fmt.Fprintf(out, "ingested %s as %s\n", path, res.DocumentID)
		}
	}

	w := ingest.NewWatcher(dir, ing.Accepts, handle, watchDebounce)
	return w.Run(ctx)
}
