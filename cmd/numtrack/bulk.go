package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"numtrack/internal/export"
	"numtrack/internal/record"
	"numtrack/internal/tracker"
)

func newBulkCmd(flags *globalFlags) *cobra.Command {
	var fromCSV string
	cmd := &cobra.Command{
		Use:   "bulk <range> <status>",
		Short: "Set one status on a list of numbers and ranges",
		Long: `Sets the status of every number named by a range list such as
"1-10, 15, 20-25". Malformed tokens are skipped and bounds are clamped to
1-1421. With --from-csv, statuses and names are applied from a file in the
export layout instead.`,
		Example: `  numtrack bulk "100-105,200" pending
  numtrack bulk --from-csv number-status-tracker.csv`,
		Args: func(cmd *cobra.Command, args []string) error {
			if fromCSV != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var status record.Status
			if fromCSV == "" {
				var err error
				if status, err = record.ParseStatus(args[1]); err != nil {
					return err
				}
			}

			c, err := openClient(cmd.Context(), flags, false)
			if err != nil {
				return err
			}
			defer c.Close()
			c.store.Load(cmd.Context())

			if fromCSV != "" {
				changed, err := applyCSV(c.store, fromCSV)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %d numbers from %s\n", changed, fromCSV)
				return nil
			}

			numbers, err := c.store.BulkApply(args[0], status)
			if err != nil {
				return err
			}
			if len(numbers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no valid numbers in range")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "set %d numbers to %s\n", len(numbers), status)
			return nil
		},
	}
	cmd.Flags().StringVar(&fromCSV, "from-csv", "", "apply statuses and names from an exported CSV")
	return cmd
}

// applyCSV brings the store in line with an exported file and returns
// how many numbers changed. Each number gets at most one write-through.
func applyCSV(store *tracker.Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	rows, err := export.ReadCSV(f)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	edits := make([]tracker.Edit, 0, len(rows))
	for n := record.MinNumber; n <= record.MaxNumber; n++ {
		row, ok := rows[n]
		if !ok {
			continue
		}
		name := row.Name
		edits = append(edits, tracker.Edit{Number: n, Status: row.Status, Name: &name})
	}
	changed, err := store.ApplyEdits(edits)
	if err != nil {
		return 0, err
	}
	return len(changed), nil
}
