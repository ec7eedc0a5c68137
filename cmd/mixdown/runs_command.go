package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mixdown/internal/metadata"
	"mixdown/internal/store"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ledger, err := store.Open(ledgerPath(cfg))
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer ledger.Close()

			runs, err := ledger.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					run.Mood,
					run.Genre,
					fmt.Sprintf("%d", run.TrackCount),
					run.Status,
					run.CreatedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Mood", "Genre", "Tracks", "Status", "Created"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	cmd.AddCommand(newRunShowCommand(ctx))
	return cmd
}

func newRunShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its per-track outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ledger, err := store.Open(ledgerPath(cfg))
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer ledger.Close()

			run, err := findRun(cmd, ledger, args[0])
			if err != nil {
				return err
			}
			tracks, err := ledger.ListTracks(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s\n", run.ID)
			fmt.Fprintf(out, "  mood/genre: %s %s\n", run.Mood, run.Genre)
			fmt.Fprintf(out, "  status:     %s\n", run.Status)
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "  error:      %s\n", run.ErrorMessage)
			}
			if run.VideoPath != "" {
				fmt.Fprintf(out, "  video:      %s\n", run.VideoPath)
			}
			if run.TitlesTier != "" {
				fmt.Fprintf(out, "  tiers:      titles=%s thumbnail=%s\n", run.TitlesTier, run.ThumbnailTier)
			}

			if len(tracks) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(tracks))
			for _, track := range tracks {
				detail := metadata.FormatTimestamp(track.Duration)
				if track.ErrorMessage != "" {
					detail = track.ErrorMessage
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", track.Index),
					track.Title,
					track.Status,
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Title", "Status", "Detail"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}
}

// findRun accepts either a full run id or the 8-character prefix shown by
// the list view.
func findRun(cmd *cobra.Command, ledger *store.Store, id string) (store.Run, error) {
	run, err := ledger.GetRun(cmd.Context(), id)
	if err == nil {
		return run, nil
	}
	runs, listErr := ledger.ListRuns(cmd.Context(), 0)
	if listErr != nil {
		return store.Run{}, err
	}
	for _, candidate := range runs {
		if strings.HasPrefix(candidate.ID, id) {
			return candidate, nil
		}
	}
	return store.Run{}, err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
