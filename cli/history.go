package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/autotrack/history"
)

func newHistoryCommand(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print per-account totals over the last cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}

			store, err := history.Open(a.settings.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			since := time.Now().AddDate(0, 0, -days)
			cycles, err := store.Recent(cmd.Context(), days)
			if err != nil {
				return err
			}
			totals, err := store.AccountTotals(cmd.Context(), since)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CYCLE\tSTARTED\tGENRE\tGENERATED\tUPLOADED\tMONETIZED\tFAILURES")
			for _, c := range cycles {
				if c.StartedAt.Before(since) {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%d\n",
					shortID(c.ID), humanize.Time(c.StartedAt), c.Genre,
					c.TotalGenerated, c.ExpectedTracks(), c.TotalUploads(), c.TotalMonetized(), c.FailureCount)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "PLATFORM\tACCOUNT\tUPLOADED\tMONETIZED")
			for _, t := range totals {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", t.Platform, t.Account, t.UploadCount, t.MonetizationCount)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "number of days to cover")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
