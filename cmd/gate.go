package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/uxprobe/internal/reporting"
)

// newGateCmd creates the `gate` command, which checks a saved report against
// the configured thresholds. A failing report exits with status 2.
func newGateCmd(opts *rootOptions) *cobra.Command {
	gateCmd := &cobra.Command{
		Use:   "gate <report.json>",
		Short: "Check a saved report against the configured thresholds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := reporting.Load(args[0])
			if err != nil {
				return err
			}
			return checkGate(cmd.OutOrStdout(), report, opts.cfg.Thresholds())
		},
	}
	gateCmd.Flags().Int("min-score", 0, "Minimum overall score. (Overrides config/env)")
	return gateCmd
}
