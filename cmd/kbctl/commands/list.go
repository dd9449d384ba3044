package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Long:  `List all documents in the knowledge base, newest first.`,
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	kb, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(cmd, kb)

	docs, err := kb.Knowledge.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		return printJSON(out, docs)
	}

	if len(docs) == 0 {
		if !quiet {
			fmt.Fprintln(out, "No documents found")
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSOURCE\tSTATUS\tCHUNKS\tCREATED")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			d.ID, truncate(d.Title, 40), d.Source, d.Status, d.ChunkCount, d.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
