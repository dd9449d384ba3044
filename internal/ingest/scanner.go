// Package ingest loads documents from the local filesystem into the knowledge base.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScannedFile represents a file found during a directory scan.
type ScannedFile struct {
	RelPath string // Relative path from the scan root (e.g., "billing/refunds.md")
	Folder  string // Folder part of RelPath, "" for root-level files
	AbsPath string
}

// Scan walks root and returns every file accepted by accept, sorted by RelPath.
// Hidden files and directories are skipped.
func Scan(ctx context.Context, root string, accept func(path string) bool) ([]ScannedFile, error) {
	var files []ScannedFile

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if accept != nil && !accept(path) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		folder := filepath.ToSlash(filepath.Dir(relPath))
		if folder == "." {
			folder = ""
		}

		files = append(files, ScannedFile{RelPath: relPath, Folder: folder, AbsPath: path})
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
