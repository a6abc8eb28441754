package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/a11y"
	"github.com/xkilldash9x/uxprobe/internal/browser"
	"github.com/xkilldash9x/uxprobe/internal/config"
	"github.com/xkilldash9x/uxprobe/internal/gate"
	"github.com/xkilldash9x/uxprobe/internal/orchestrator"
	"github.com/xkilldash9x/uxprobe/internal/reporting"
)

// launcherFactory builds the browser launcher for a run. Tests swap in a mock.
type launcherFactory func(cfg config.Interface, logger *zap.Logger) schemas.Launcher

func defaultLauncherFactory(cfg config.Interface, logger *zap.Logger) schemas.Launcher {
	return browser.NewLauncher(browser.OptionsFromConfig(cfg), logger)
}

// newAuditCmd creates and configures the `audit` command.
func newAuditCmd(opts *rootOptions, newLauncher launcherFactory) *cobra.Command {
	var failOnThreshold bool

	auditCmd := &cobra.Command{
		Use:   "audit [url]",
		Short: "Audit a web page and write the configured reports",
		Long: `Audit loads the page in headless Chrome, runs every enabled probe and writes
one report per configured format. The URL may also come from audit.url in the
config file or UXPROBE_AUDIT_URL.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg
			logger := opts.logger

			if len(args) == 1 {
				cfg.SetAuditURL(args[0])
			}
			if err := cfg.ValidateTarget(); err != nil {
				return err
			}

			engine := a11y.NewScriptEngine(cfg.Accessibility(), logger)
			orch, err := orchestrator.New(cfg, logger, newLauncher(cfg, logger), engine, nil)
			if err != nil {
				return fmt.Errorf("failed to initialize orchestrator: %w", err)
			}

			start := time.Now()
			logger.Info("Starting audit.", zap.String("url", cfg.Audit().URL))
			report, err := orch.Run(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Audit aborted by signal.")
				}
				return err
			}
			logger.Info("Audit finished.", zap.Duration("duration", time.Since(start)))

			written, err := reporting.WriteAll(cfg.Output().Dir, cfg.Output().Formats, report, Version)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSummary(out, report)
			for _, path := range written {
				fmt.Fprintf(out, "Report written: %s\n", path)
			}

			if failOnThreshold {
				return checkGate(out, report, cfg.Thresholds())
			}
			return nil
		},
	}

	auditCmd.Flags().StringP("output-dir", "o", "", "Directory for reports and screenshots. (Overrides config/env)")
	auditCmd.Flags().StringSliceP("format", "f", nil, "Report formats: json, html, sarif, junit. (Overrides config/env)")
	auditCmd.Flags().Bool("headless", true, "Run Chrome without a window. (Overrides config/env)")
	auditCmd.Flags().Duration("timeout", 0, "Navigation timeout. (Overrides config/env)")
	auditCmd.Flags().Int("concurrency", 0, "Device contexts evaluated at once by the responsive probe. (Overrides config/env)")
	auditCmd.Flags().String("engine-path", "", "Local accessibility engine script. (Overrides config/env)")
	auditCmd.Flags().Duration("slow-mo", 0, "Pause after each page action. (Overrides config/env)")
	auditCmd.Flags().BoolVar(&failOnThreshold, "fail-on-threshold", false, "Exit with status 2 when the report fails the configured thresholds")

	return auditCmd
}

// checkGate prints the gate verdict and turns a failure into exit status 2.
func checkGate(out io.Writer, report *schemas.Report, t config.ThresholdsConfig) error {
	res := gate.Evaluate(report, t)
	if res.Passed {
		fmt.Fprintln(out, "Quality gate: PASSED")
		return nil
	}
	fmt.Fprintln(out, "Quality gate: FAILED")
	for _, v := range res.Violations {
		fmt.Fprintf(out, "  - %s\n", v.Detail)
	}
	return &ExitError{Code: gate.ExitCode, Err: res.Error()}
}

func printSummary(out io.Writer, report *schemas.Report) {
	s := report.Summary
	fmt.Fprintf(out, "\nAudit of %s\n", report.URL)
	fmt.Fprintf(out, "Overall score: %d/100\n", report.OverallScore)
	fmt.Fprintf(out, "Checks: %d (%d passed, %d warnings, %d failed)\n",
		s.Total, s.ByStatus[schemas.StatusPass], s.ByStatus[schemas.StatusWarning], s.ByStatus[schemas.StatusFail])
	if n := len(report.AccessibilityIssues); n > 0 {
		fmt.Fprintf(out, "Accessibility issues: %d (%d critical, %d serious)\n",
			n, report.CountImpact(schemas.ImpactCritical), report.CountImpact(schemas.ImpactSerious))
	}
	if len(report.Recommendations) > 0 {
		fmt.Fprintln(out, "Top recommendations:")
		for i, rec := range report.Recommendations {
			if i == 3 {
				break
			}
			fmt.Fprintf(out, "  %d. %s\n", i+1, rec)
		}
	}
}
