package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"custody/internal/auditlog"
	"custody/internal/config"
	"custody/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var normalizeMtime bool

	cmd := &cobra.Command{
		Use:   "export <case_dir>",
		Short: "Package a case directory into a reproducible archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseDir, err := resolveCaseDir(args[0])
			if err != nil {
				return err
			}
			expanded, err := config.ExpandPath(outPath)
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}
			archivePath, err := filepath.Abs(expanded)
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}

			return ctx.withJournal(func(journal *auditlog.Store) error {
				exp := export.NewExporter(journal, ctx.commandLogger())
				written, err := exp.Export(cmd.Context(), caseDir, archivePath, export.Options{
					NormalizeMtime: normalizeMtime,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{
						"archive":         written,
						"normalize_mtime": normalizeMtime,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", caseDir, written)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination archive path")
	cmd.Flags().BoolVar(&normalizeMtime, "normalize-mtime", false, "Pin entry timestamps for byte-reproducible archives")
	cmd.MarkFlagRequired("out")
	return cmd
}
