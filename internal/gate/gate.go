// Package gate decides whether a finished report clears the configured CI
// thresholds.
package gate

import (
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/config"
)

// ExitCode is the process exit status used when a report fails the gate.
const ExitCode = 2

// Violation is one threshold the report exceeded.
type Violation struct {
	Rule   string  `json:"rule"`
	Actual float64 `json:"actual"`
	Limit  float64 `json:"limit"`
	Detail string  `json:"detail"`
}

// Result is the gate verdict.
type Result struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations"`
}

// Error returns nil when the gate passed, otherwise an error listing every
// violation.
func (r Result) Error() error {
	if r.Passed {
		return nil
	}
	details := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		details[i] = v.Detail
	}
	return fmt.Errorf("quality gate failed: %s", strings.Join(details, "; "))
}

// Evaluate checks report against t. A zero duration or score disables that
// check; a negative issue limit disables that count.
func Evaluate(report *schemas.Report, t config.ThresholdsConfig) Result {
	var vs []Violation

	if t.MinOverallScore > 0 && report.OverallScore < t.MinOverallScore {
		vs = append(vs, Violation{
			Rule:   "min_overall_score",
			Actual: float64(report.OverallScore),
			Limit:  float64(t.MinOverallScore),
			Detail: fmt.Sprintf("overall score %d is below %d", report.OverallScore, t.MinOverallScore),
		})
	}

	if v, ok := overBudget("max_load_time", "load time", report.Performance.LoadTime, t.MaxLoadTime); ok {
		vs = append(vs, v)
	}
	if v, ok := overBudget("max_lcp", "largest contentful paint", report.Performance.LargestContentfulPaint, t.MaxLCP); ok {
		vs = append(vs, v)
	}

	if v, ok := overCount("max_critical_issues", schemas.ImpactCritical, report.CountImpact(schemas.ImpactCritical), t.MaxCriticalIssues); ok {
		vs = append(vs, v)
	}
	if v, ok := overCount("max_serious_issues", schemas.ImpactSerious, report.CountImpact(schemas.ImpactSerious), t.MaxSeriousIssues); ok {
		vs = append(vs, v)
	}

	return Result{Passed: len(vs) == 0, Violations: vs}
}

func overBudget(rule, label string, actualMs float64, limit time.Duration) (Violation, bool) {
	limitMs := float64(limit.Milliseconds())
	if limit <= 0 || actualMs <= limitMs {
		return Violation{}, false
	}
	return Violation{
		Rule:   rule,
		Actual: actualMs,
		Limit:  limitMs,
		Detail: fmt.Sprintf("%s %.0fms exceeds %.0fms", label, actualMs, limitMs),
	}, true
}

func overCount(rule string, impact schemas.Impact, n, limit int) (Violation, bool) {
	if limit < 0 || n <= limit {
		return Violation{}, false
	}
	return Violation{
		Rule:   rule,
		Actual: float64(n),
		Limit:  float64(limit),
		Detail: fmt.Sprintf("%d %s accessibility issues exceed the limit of %d", n, impact, limit),
	}, true
}
