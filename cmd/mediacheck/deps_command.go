package main

import (
	"github.com/spf13/cobra"

	"mediacheck/internal/deps"
	"mediacheck/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tools",
		Long: "Report whether ffmpeg, unrar, and mkvmerge can be found. Tools for stages " +
			"disabled in the configuration are listed as optional.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(preflight.Requirements(cfg, true))

			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				detail := s.Detail
				if s.Available {
					detail = s.Path
				}
				rows = append(rows, []string{s.Name, s.Command, dependencyState(s), detail, s.Description})
			}
			if err := writeTable(cmd.OutOrStdout(), []string{"Tool", "Command", "State", "Detail", "Used For"}, rows, nil); err != nil {
				return err
			}
			return preflight.DepsErr(statuses)
		},
	}
}

func dependencyState(s deps.Status) string {
	switch {
	case s.Available:
		return "ok"
	case s.Optional:
		return "optional"
	default:
		return "missing"
	}
}
