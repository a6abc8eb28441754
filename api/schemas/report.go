package schemas

import (
	"time"
)

// LCPEntry describes the element the browser reported as the largest contentful paint.
type LCPEntry struct {
	Element   string  `json:"element,omitempty"`
	URL       string  `json:"url,omitempty"`
	Size      float64 `json:"size"`
	StartTime float64 `json:"startTime"`
}

// PerformanceMetrics is a one-shot timing snapshot of the audited page. All
// timings are milliseconds since navigation start; sizes are bytes.
type PerformanceMetrics struct {
	LoadTime               float64   `json:"loadTime"`
	DOMContentLoaded       float64   `json:"domContentLoaded"`
	FirstPaint             float64   `json:"firstPaint"`
	FirstContentfulPaint   float64   `json:"firstContentfulPaint"`
	LargestContentfulPaint float64   `json:"largestContentfulPaint"`
	LCPEntry               *LCPEntry `json:"lcpEntry,omitempty"`
	TotalTransferSize      float64   `json:"totalTransferSize"`
	RequestCount           int       `json:"requestCount"`

	// Main document body sizes as seen on the wire and after decoding.
	DocumentEncodedSize float64 `json:"documentEncodedSize,omitempty"`
	DocumentDecodedSize float64 `json:"documentDecodedSize,omitempty"`
}

// ResponsiveResult is the outcome of rendering the page at one device viewport.
type ResponsiveResult struct {
	Device         string   `json:"device"`
	ViewportWidth  int      `json:"viewportWidth"`
	ViewportHeight int      `json:"viewportHeight"`
	Issues         []string `json:"issues"`
	Screenshot     string   `json:"screenshot,omitempty"`
}

// Summary counts findings by status and severity.
type Summary struct {
	Total      int              `json:"total"`
	ByStatus   map[Status]int   `json:"byStatus"`
	BySeverity map[Severity]int `json:"bySeverity"`
	// Failing counts non-passing findings per severity.
	Failing map[Severity]int `json:"failing"`
}

// Report is the root aggregate of one audit run. It is built once at the end
// of a session and owned by the caller from then on.
type Report struct {
	RunID               string               `json:"runId"`
	URL                 string               `json:"url"`
	TestDate            time.Time            `json:"testDate"`
	OverallScore        int                  `json:"overallScore"`
	Findings            []Finding            `json:"findings"`
	Performance         PerformanceMetrics   `json:"performance"`
	AccessibilityIssues []AccessibilityIssue `json:"accessibilityIssues"`
	ResponsiveResults   []ResponsiveResult   `json:"responsiveResults"`
	ProblemAreas        []ProblemArea        `json:"problemAreas,omitempty"`
	Recommendations     []string             `json:"recommendations"`
	Summary             Summary              `json:"summary"`
}

// CountImpact returns how many accessibility issues carry the given impact.
func (r *Report) CountImpact(impact Impact) int {
	n := 0
	for _, issue := range r.AccessibilityIssues {
		if issue.Severity == impact {
			n++
		}
	}
	return n
}
