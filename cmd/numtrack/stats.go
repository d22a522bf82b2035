package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"numtrack/internal/record"
	"numtrack/internal/view"
)

func newStatsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print counts per status and sub-status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(cmd.Context(), flags, false)
			if err != nil {
				return err
			}
			defer c.Close()
			src := c.store.Load(cmd.Context())
			counts := view.Count(c.store.Records())

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "source\t%s\n", src)
			for _, s := range record.Statuses {
				line := fmt.Sprintf("%s\t%d", s.Label(), counts.Status[s])
				if sc, ok := counts.Sub[s]; ok {
					line += fmt.Sprintf("\tdone %d\tno %d", sc.Done, sc.No)
				}
				fmt.Fprintln(w, line)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			updates := view.RecentUpdates(c.store.Records(), time.Now())
			if len(updates) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "\nrecent updates")
				for _, u := range updates {
					fmt.Fprintf(cmd.OutOrStdout(), "  #%d %s %s\n", u.Number, u.Record.Status, u.At.Format(record.DateLayout))
				}
			}
			return nil
		},
	}
}
