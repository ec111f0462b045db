package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tonearm/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries([]deps.Requirement{
				{
					Name:        "FFmpeg",
					Command:     cfg.FFmpeg.Binary,
					Description: "Used for loudness analysis, encoding, and tagging",
				},
			})

			rows := make([][]string, 0, len(statuses))
			missing := 0
			for _, status := range statuses {
				detail := status.Detail
				if detail == "" {
					detail = status.Command
				}
				rows = append(rows, []string{status.Name, yesNo(status.Available), detail})
				if !status.Available && !status.Optional {
					missing++
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Dependency", "Available", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			if missing > 0 {
				return fmt.Errorf("%d required dependency(ies) missing", missing)
			}
			return nil
		},
	}
}
