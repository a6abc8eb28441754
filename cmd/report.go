package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uxprobe/internal/reporting"
)

// newReportCmd creates the `report` command, which re-renders a saved JSON
// report into other formats without running the browser again.
func newReportCmd(opts *rootOptions) *cobra.Command {
	var formats []string
	var stdout bool

	reportCmd := &cobra.Command{
		Use:   "report <report.json>",
		Short: "Render a saved JSON report into other formats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := reporting.Load(args[0])
			if err != nil {
				return err
			}
			if len(formats) == 0 {
				formats = opts.cfg.Output().Formats
			}

			if stdout {
				if len(formats) != 1 {
					return fmt.Errorf("--stdout needs exactly one --format")
				}
				r, err := reporting.New(formats[0], "stdout", Version)
				if err != nil {
					return err
				}
				if err := r.Write(report); err != nil {
					r.Close()
					return err
				}
				return r.Close()
			}

			written, err := reporting.WriteAll(opts.cfg.Output().Dir, formats, report, Version)
			if err != nil {
				return err
			}
			opts.logger.Info("Rendered report.", zap.String("run_id", report.RunID), zap.Strings("formats", formats))
			for _, path := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "Report written: %s\n", path)
			}
			return nil
		},
	}

	reportCmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "Formats to render (default: output.formats)")
	reportCmd.Flags().StringP("output-dir", "o", "", "Output directory. (Overrides config/env)")
	reportCmd.Flags().BoolVar(&stdout, "stdout", false, "Write a single format to standard output instead of a file")
	return reportCmd
}
