package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"custody/internal/auditlog"
	"custody/internal/manifest"
)

func newManifestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest <case_dir>",
		Short: "Create or refresh the canonical manifest for a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseDir, err := resolveCaseDir(args[0])
			if err != nil {
				return err
			}
			logger := ctx.commandLogger()

			version := manifest.ToolVersionNotFound
			if client, err := ctx.transcoder(); err == nil {
				version = client.Version(cmd.Context())
			}

			var m *manifest.CanonicalManifest
			err = ctx.withJournal(func(journal *auditlog.Store) error {
				var createErr error
				m, createErr = manifest.Create(cmd.Context(), caseDir, version, logger)
				if createErr != nil {
					return createErr
				}
				journal.Record(cmd.Context(), logger, auditlog.Event{
					CaseDir: caseDir,
					Action:  auditlog.ActionManifestCreated,
					Path:    manifest.CanonicalRelPath(),
					Detail:  fmt.Sprintf("originals=%d derivatives=%d", len(m.Originals), len(m.Derivatives)),
				})
				return nil
			})
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, m)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Manifest written to %s\n", manifest.CanonicalPath(caseDir))
			rows := make([][]string, 0, len(m.Originals))
			for _, rec := range m.Originals {
				rows = append(rows, []string{rec.Path, strconv.FormatInt(rec.Size, 10), rec.SHA256})
			}
			printRows(out, []string{"Path", "Size", "SHA-256"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft})
			return nil
		},
	}
}
