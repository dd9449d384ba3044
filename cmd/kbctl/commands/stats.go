package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCoverage bool

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base statistics",
		Long:  `Show document, chunk and query counts, optionally with indexing coverage.`,
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}

	cmd.Flags().BoolVar(&statsCoverage, "coverage", false, "Include indexing coverage")

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	kb, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(cmd, kb)

	stats, err := kb.Knowledge.Stats(cmd.Context(), statsCoverage)
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		return printJSON(out, stats)
	}

	fmt.Fprintf(out, "Documents: %d\n", stats.DocumentCount)
	fmt.Fprintf(out, "Chunks:    %d\n", stats.ChunkCount)
	fmt.Fprintf(out, "Queries:   %d\n", stats.QueryCount)

	statuses := make([]string, 0, len(stats.DocumentsByStatus))
	for s := range stats.DocumentsByStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(out, "  %s: %d\n", s, stats.DocumentsByStatus[s])
	}

	if stats.Coverage != nil {
		return printJSON(out, stats.Coverage)
	}
	return nil
}
