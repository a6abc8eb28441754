package results

import (
	"github.com/google/uuid"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
)

// BuildReport assembles the final Report from everything the session
// collected. The session is not modified and the Report shares no slices
// with it.
func BuildReport(s *audit.Session) *schemas.Report {
	findings := s.Findings()
	metrics := s.Performance()
	responsive := s.ResponsiveResults()

	report := &schemas.Report{
		RunID:               uuid.NewString(),
		URL:                 s.URL,
		TestDate:            s.Now(),
		OverallScore:        OverallScore(findings),
		Findings:            findings,
		Performance:         metrics,
		AccessibilityIssues: s.AccessibilityIssues(),
		ResponsiveResults:   responsive,
		Recommendations:     Recommendations(findings, metrics, responsive),
		Summary:             Summarize(findings),
	}
	if s.Evidence != nil {
		report.ProblemAreas = s.Evidence.ProblemAreas()
	}
	if report.Findings == nil {
		report.Findings = []schemas.Finding{}
	}
	if report.AccessibilityIssues == nil {
		report.AccessibilityIssues = []schemas.AccessibilityIssue{}
	}
	if report.ResponsiveResults == nil {
		report.ResponsiveResults = []schemas.ResponsiveResult{}
	}
	return report
}
