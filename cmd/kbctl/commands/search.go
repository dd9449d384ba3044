package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"helpdesk-kb/internal/rag"
)

var (
	searchLimit        int
	searchUser         string
	searchConversation string
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Long: `Run the retrieval tool against the knowledge base.

Prints the ranked passages whose similarity passes the configured
threshold, or a not-found message when nothing is relevant.`,
		Example: `  kbctl search "how long do refunds take"
  kbctl search --limit 10 --format json "reset password"`,
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchLimit, "limit", rag.DefaultTopK, "Maximum results to return")
	cmd.Flags().StringVar(&searchUser, "user", "", "User ID recorded in the query log")
	cmd.Flags().StringVar(&searchConversation, "conversation", "", "Conversation ID recorded in the query log")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(searchLimit, "limit"); err != nil {
		return err
	}

	kb, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(cmd, kb)

	res := kb.Knowledge.Retrieve(cmd.Context(), args[0], searchLimit, &rag.ToolContext{
		UserID:         searchUser,
		ConversationID: searchConversation,
	})

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		return printJSON(out, res)
	}

	if res.Error != "" {
		return fmt.Errorf("search failed: %s", res.Error)
	}
	if !res.Found {
		fmt.Fprintln(out, res.Message)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSIMILARITY\tSOURCE\tCONTENT")
	for _, r := range res.Results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Rank, r.Similarity, truncate(r.Source, 30), truncate(oneLine(r.Content), 80))
	}
	return w.Flush()
}
