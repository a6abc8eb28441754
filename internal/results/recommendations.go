package results

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/uxprobe/api/schemas"
)

const (
	maxCriticalItems     = 3
	loadTimeBudgetMs     = 3000
	lcpBudgetMs          = 2500
	mediumIssueThreshold = 5
	altTextTest          = "Image Alt Text"
)

// GeneralRecommendations close every recommendation list.
var GeneralRecommendations = []string{
	"Run this audit in CI so regressions are caught before release.",
	"Test key journeys with a screen reader and keyboard only.",
	"Validate changes with real users; heuristics do not replace usability testing.",
}

// Recommendations derives the recommendation list in priority order: the
// worst high-severity failures, performance budgets, missing alt text,
// responsive problems, the volume of medium issues, then general advice.
func Recommendations(findings []schemas.Finding, metrics schemas.PerformanceMetrics, responsive []schemas.ResponsiveResult) []string {
	var recs []string

	n := 0
	for _, f := range Prioritize(findings) {
		if n == maxCriticalItems {
			break
		}
		if f.Status == schemas.StatusFail && f.Severity == schemas.SeverityHigh {
			recs = append(recs, fmt.Sprintf("Critical: %s (%s): %s", f.Test, f.Category, f.Details))
			n++
		}
	}

	if metrics.LoadTime > loadTimeBudgetMs {
		recs = append(recs, fmt.Sprintf(
			"Improve page load time (currently %.0fms, target under %dms): compress assets, enable caching and defer non-critical scripts.",
			metrics.LoadTime, loadTimeBudgetMs))
	}

	if metrics.LargestContentfulPaint > lcpBudgetMs {
		rec := fmt.Sprintf("Reduce Largest Contentful Paint (currently %.0fms, target under %dms)",
			metrics.LargestContentfulPaint, lcpBudgetMs)
		if metrics.LCPEntry != nil && metrics.LCPEntry.URL != "" {
			rec += fmt.Sprintf(" by optimizing %s", metrics.LCPEntry.URL)
		}
		recs = append(recs, rec+".")
	}

	for _, f := range findings {
		if f.Test == altTextTest && f.Status == schemas.StatusFail {
			recs = append(recs, "Add descriptive alt text to all informative images so screen reader users get the same content.")
			break
		}
	}

	var devices []string
	for _, r := range responsive {
		if len(r.Issues) > 0 {
			devices = append(devices, r.Device)
		}
	}
	if len(devices) > 0 {
		recs = append(recs, fmt.Sprintf("Fix responsive design issues on: %s.", strings.Join(devices, ", ")))
	}

	medium := 0
	for _, f := range findings {
		if f.Status != schemas.StatusPass && f.Severity == schemas.SeverityMedium {
			medium++
		}
	}
	if medium > mediumIssueThreshold {
		recs = append(recs, fmt.Sprintf("Address the %d medium-severity issues; together they noticeably degrade the experience.", medium))
	}

	return append(recs, GeneralRecommendations...)
}
