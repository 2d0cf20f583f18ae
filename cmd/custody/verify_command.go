package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"custody/internal/auditlog"
	"custody/internal/verify"
)

// errVerificationProblems marks a completed verification pass that found
// missing or mismatched files. main maps it to its own exit code so callers
// can distinguish "tamper detected" from "could not verify".
var errVerificationProblems = errors.New("verification found problems")

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <case_dir>",
		Short: "Re-hash case files against the canonical manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseDir, err := resolveCaseDir(args[0])
			if err != nil {
				return err
			}

			var report *verify.Report
			err = ctx.withJournal(func(journal *auditlog.Store) error {
				var verifyErr error
				report, verifyErr = verify.NewVerifier(journal, ctx.commandLogger()).Verify(cmd.Context(), caseDir)
				return verifyErr
			})
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printVerifyReport(cmd, report)
			}
			if !report.Clean() {
				return fmt.Errorf("%s: %w", caseDir, errVerificationProblems)
			}
			return nil
		},
	}
}

func printVerifyReport(cmd *cobra.Command, report *verify.Report) {
	out := cmd.OutOrStdout()
	if report.Clean() {
		fmt.Fprintf(out, "Verified %d files, no problems found\n", report.Checked)
		return
	}
	fmt.Fprintf(out, "Verified %d files: %d missing, %d mismatched\n",
		report.Checked, len(report.Missing), len(report.Mismatches))
	for _, path := range report.Missing {
		fmt.Fprintf(out, "missing\t%s\n", path)
	}
	rows := make([][]string, 0, len(report.Mismatches))
	for _, mm := range report.Mismatches {
		rows = append(rows, []string{mm.Path, mm.Field, mm.Expected, mm.Got})
	}
	if len(rows) > 0 {
		printRows(out, []string{"Path", "Field", "Expected", "Got"}, rows, nil)
	}
}
