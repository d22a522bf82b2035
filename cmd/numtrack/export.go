package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"numtrack/internal/export"
	"numtrack/internal/view"
)

func newExportCmd(flags *globalFlags) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every number to a CSV or XLSX file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var write func(io.Writer, view.Records) error
			switch format {
			case "csv":
				write = export.WriteCSV
			case "xlsx":
				write = export.WriteXLSX
			default:
				return fmt.Errorf("unknown format %q (want csv or xlsx)", format)
			}

			c, err := openClient(cmd.Context(), flags, false)
			if err != nil {
				return err
			}
			defer c.Close()
			src := c.store.Load(cmd.Context())
			c.log.Debug("records loaded", zap.Stringer("source", src))

			if out == "-" {
				return write(cmd.OutOrStdout(), c.store.Records())
			}
			if out == "" {
				out = export.DefaultCSVName
				if format == "xlsx" {
					out = export.DefaultXLSXName
				} else if c.cfg.ExportPath != "" {
					out = c.cfg.ExportPath
				}
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := write(f, c.store.Records()); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", out, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s (from %s)\n", out, src)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout")
	return cmd
}
