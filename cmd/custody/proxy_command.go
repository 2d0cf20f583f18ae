package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"custody/internal/auditlog"
	"custody/internal/proxy"
	"custody/internal/transcode"
)

func newProxyCommand(ctx *commandContext) *cobra.Command {
	var presetFlag string

	cmd := &cobra.Command{
		Use:   "proxy <case_dir> <original_rel_path>",
		Short: "Generate a playback proxy and register it as a derivative",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseDir, err := resolveCaseDir(args[0])
			if err != nil {
				return err
			}
			preset, err := transcode.ParsePreset(presetFlag)
			if err != nil {
				return err
			}
			client, err := ctx.transcoder()
			if err != nil {
				return err
			}

			return ctx.withJournal(func(journal *auditlog.Store) error {
				gen, err := proxy.NewGenerator(client, journal, ctx.commandLogger())
				if err != nil {
					return err
				}
				outputRel, sha, err := gen.Create(cmd.Context(), caseDir, args[1], preset)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]string{
						"path":   outputRel,
						"preset": preset.String(),
						"sha256": sha,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Proxy %s (%s) registered, sha256 %s\n", outputRel, preset, sha)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&presetFlag, "preset", "web", "Proxy preset (web or review)")
	return cmd
}
