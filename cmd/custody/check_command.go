package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"custody/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [case_dir]",
		Short: "Validate the environment before running custody operations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var caseDir string
			if len(args) == 1 {
				caseDir, err = resolveCaseDir(args[0])
				if err != nil {
					return err
				}
			}

			results := preflight.RunAll(cmd.Context(), cfg, caseDir)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.Name, passFail(r.Passed), r.Detail})
				}
				printRows(cmd.OutOrStdout(), []string{"Check", "Status", "Detail"}, rows, nil)
			}

			if !preflight.AllPassed(results) {
				return fmt.Errorf("preflight checks failed")
			}
			return nil
		},
	}
}

func passFail(passed bool) string {
	if passed {
		return "ok"
	}
	return "failed"
}
