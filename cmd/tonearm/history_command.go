package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tonearm/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var showTracks bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent processing runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer func() { _ = store.Close() }()

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					run.StartedAt.Local().Format(time.DateTime),
					formatDuration(run),
					run.Status,
					strconv.Itoa(run.Tracks),
					run.ErrorMessage,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Duration", "Status", "Tracks", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))

			if !showTracks {
				return nil
			}
			for _, run := range runs {
				records, err := store.RunTracks(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					continue
				}
				trackRows := make([][]string, 0, len(records))
				for _, record := range records {
					trackRows = append(trackRows, []string{
						record.Track,
						yesNo(record.Normalized),
						yesNo(record.Retagged),
						yesNo(record.Promoted),
						record.ErrorMessage,
					})
				}
				fmt.Fprintf(out, "\nRun %s\n", shortID(run.ID))
				fmt.Fprintln(out, renderTable(
					[]string{"Track", "Normalized", "Retagged", "Promoted", "Error"},
					trackRows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&showTracks, "tracks", false, "Show per-track outcomes for each run")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(run journal.Run) string {
	if run.FinishedAt.IsZero() {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
