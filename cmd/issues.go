package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/uxprobe/internal/issues"
	"github.com/xkilldash9x/uxprobe/internal/reporting"
)

// newIssuesCmd creates the `issues` command, which files GitHub issues for the
// high-severity failures of a saved report.
func newIssuesCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	issuesCmd := &cobra.Command{
		Use:   "issues <report.json>",
		Short: "File GitHub issues for high-severity failures in a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := reporting.Load(args[0])
			if err != nil {
				return err
			}
			gh := opts.cfg.GitHub()
			out := cmd.OutOrStdout()

			if dryRun {
				drafts := issues.Plan(report, gh.Labels, gh.MaxIssues)
				fmt.Fprintf(out, "%d issue(s) would be filed:\n", len(drafts))
				for _, d := range drafts {
					fmt.Fprintf(out, "  - %s\n", d.Title)
				}
				return nil
			}

			filer, err := issues.New(gh, opts.logger)
			if err != nil {
				return err
			}
			filed, err := filer.File(cmd.Context(), report)
			for _, f := range filed {
				state := "created"
				if f.Existing {
					state = "already open"
				}
				fmt.Fprintf(out, "  #%d %s (%s) %s\n", f.Number, f.Title, state, f.URL)
			}
			return err
		},
	}

	issuesCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the issues that would be filed without calling GitHub")
	issuesCmd.Flags().String("owner", "", "Repository owner. (Overrides config/env)")
	issuesCmd.Flags().String("repo", "", "Repository name. (Overrides config/env)")
	return issuesCmd
}
