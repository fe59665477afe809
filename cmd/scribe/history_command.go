package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/events"
	"scribe/internal/history"
	"scribe/internal/logging"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListJobs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No jobs recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, r := range records {
				detail := r.ResultPath
				if r.ErrorMessage != "" {
					detail = fmt.Sprintf("%s: %s", r.ErrorKind, r.ErrorMessage)
				}
				rows = append(rows, []string{
					r.ID,
					r.CreatedAt.Local().Format(time.DateTime),
					string(r.Status),
					r.TargetLanguage,
					strconv.Itoa(r.UtteranceCount),
					events.FormatDuration(r.Duration()),
					r.SourcePath,
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Job", "Started", "Status", "Lang", "Utts", "Took", "Source", "Result"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.AddCommand(newHistoryEventsCommand(ctx))
	return cmd
}

func newHistoryEventsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "events <job-id>",
		Long:  "Show the events one job raised. The job id may be abbreviated to any unique prefix.",
		Short: "Show the events one job raised",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			jobID := strings.TrimSpace(args[0])
			record, err := store.FindJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			records, err := store.Events(cmd.Context(), record.ID)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}
			rows := make([][]string, 0, len(records))
			for _, e := range records {
				details := e.Details()
				parts := make([]string, 0, len(details))
				for _, d := range details {
					parts = append(parts, d.Key+"="+d.Value)
				}
				rows = append(rows, []string{
					e.OccurredAt.Local().Format("15:04:05.000"),
					string(e.Kind),
					e.Origin,
					strings.Join(parts, " "),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s (%s)\n", logging.ShortID(record.ID), record.Status)
			fmt.Fprintln(out, renderTable([]string{"Time", "Event", "Origin", "Details"}, rows, nil, wrapColumn(3, 70)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func openHistory(cmd *cobra.Command, ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cmd.Context(), cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}
