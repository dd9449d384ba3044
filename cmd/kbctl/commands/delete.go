package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"helpdesk-kb/internal/service"
)

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document",
		Long:  `Delete a document together with its chunks and vectors.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
	kb, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(cmd, kb)

	ctx := cmd.Context()
	id := args[0]

	if _, err := kb.Knowledge.GetDocument(ctx, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return fmt.Errorf("document %s not found", id)
		}
		return fmt.Errorf("loading document: %w", err)
	}

	if !kb.Knowledge.DeleteDocument(ctx, id) {
		return fmt.Errorf("failed to delete document %s", id)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
	}
	return nil
}
