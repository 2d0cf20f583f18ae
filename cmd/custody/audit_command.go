package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"custody/internal/auditlog"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit <case_dir>",
		Short: "Show the custody journal for a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseDir, err := resolveCaseDir(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			journal, err := auditlog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open audit journal: %w", err)
			}
			defer journal.Close()

			events, err := journal.ListByCase(cmd.Context(), caseDir, limit)
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, events)
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintf(out, "No journal entries for %s\n", caseDir)
				return nil
			}
			rows := make([][]string, 0, len(events))
			for _, e := range events {
				rows = append(rows, []string{
					e.CreatedAt.Local().Format(time.RFC3339),
					string(e.Action),
					e.Path,
					e.Detail,
				})
			}
			printRows(out, []string{"Time", "Action", "Path", "Detail"}, rows, nil)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of entries to show")
	return cmd
}
