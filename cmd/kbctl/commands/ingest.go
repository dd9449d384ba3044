package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"helpdesk-kb/internal/extract"
	"helpdesk-kb/internal/ingest"
	"helpdesk-kb/internal/service"
)

var (
	ingestTitle  string
	ingestSource string
	ingestUser   string
)

// NewIngestCmd creates the ingest command.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Add files or directories to the knowledge base",
		Long: `Extract, chunk and embed files into the knowledge base.

Directories are scanned recursively; hidden entries and unsupported
file types are skipped. Supported types: plain text, Markdown, PDF,
DOCX, CSV and JSON.`,
		Example: `  kbctl ingest docs/refund-policy.md
  kbctl ingest --source confluence exports/
  kbctl ingest --title "Pricing" pricing.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().StringVar(&ingestTitle, "title", "", "Document title (single file only; defaults to the file name)")
	cmd.Flags().StringVar(&ingestSource, "source", ingest.DefaultSource, "Provenance tag stored with each document")
	cmd.Flags().StringVar(&ingestUser, "user", "", "Recorded as uploadedBy in document metadata")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestTitle != "" && len(args) > 1 {
		return fmt.Errorf("--title can only be used with a single file")
	}

	kb, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(cmd, kb)

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	ing := ingest.NewIngester(kb.Knowledge, kb.Extractors, ingestSource, ingestUser)

	var failed int
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		if info.IsDir() {
			res, err := ing.IngestDir(ctx, path)
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", path, err)
			}
			for _, p := range res.Ingested {
				if !quiet {
					fmt.Fprintf(out, "ingested %s\n", filepath.Join(path, p))
				}
			}
			for p, err := range res.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %v\n", filepath.Join(path, p), err)
			}
			failed += len(res.Failed)
			continue
		}

		id, err := ingestFile(cmd, kb.Knowledge, ing, path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %v\n", path, err)
			failed++
			continue
		}
		if !quiet {
			fmt.Fprintf(out, "ingested %s as %s\n", path, id)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed to ingest", failed)
	}
	return nil
}

// ingestFile uploads one file, honoring --title.
func ingestFile(cmd *cobra.Command, svc service.KnowledgeService, ing *ingest.Ingester, path string) (string, error) {
	if ingestTitle == "" {
		res, err := ing.IngestFile(cmd.Context(), path)
		if err != nil {
			return "", err
		}
		return res.DocumentID, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	res, err := svc.UploadFile(cmd.Context(), service.UploadRequest{
		File:       extract.File{Name: filepath.Base(path), Data: data},
		Title:      ingestTitle,
		Source:     ingestSource,
		UploadedBy: ingestUser,
	})
	if err != nil {
		return "", err
	}
	return res.DocumentID, nil
}
