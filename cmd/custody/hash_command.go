package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"custody/internal/hashing"
)

type hashEntry struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

func newHashCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:         "hash <dir>",
		Short:       "Hash every file under a directory",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveCaseDir(args[0])
			if err != nil {
				return err
			}

			paths, err := hashing.ListFiles(root)
			if err != nil {
				return err
			}
			rels := make([]string, 0, len(paths))
			for _, p := range paths {
				rel, err := filepath.Rel(root, p)
				if err != nil {
					return fmt.Errorf("relativize %s: %w", p, err)
				}
				rels = append(rels, filepath.ToSlash(rel))
			}
			hashing.SortPaths(rels)

			entries := make([]hashEntry, 0, len(rels))
			for _, rel := range rels {
				digest, err := hashing.ComputeFileHash(filepath.Join(root, filepath.FromSlash(rel)))
				if err != nil {
					return err
				}
				entries = append(entries, hashEntry{Path: rel, SHA256: digest})
			}

			if outPath != "" {
				encoded, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return fmt.Errorf("encode hash listing: %w", err)
				}
				if err := os.WriteFile(outPath, append(encoded, '\n'), 0o644); err != nil {
					return fmt.Errorf("write hash listing: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d hashes to %s\n", len(entries), outPath)
				return nil
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Path, e.SHA256})
			}
			printRows(cmd.OutOrStdout(), []string{"Path", "SHA-256"}, rows, nil)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the hash listing to a JSON file")
	return cmd
}
