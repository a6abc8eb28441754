package schemas

import (
	"math"
	"time"
)

// -- Finding Schemas --

// Status is the outcome of a single evaluated check.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusWarning Status = "warning"
)

// Severity ranks how much a finding matters to the end user. The values are
// lowercase so they read naturally in JSON and in CI output.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Score bounds for a single finding.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// Finding is the outcome of one evaluated check (a "test result"). Findings are
// appended to a session in the order probes produce them and are treated as
// immutable afterwards.
type Finding struct {
	Category string   `json:"category"`
	Test     string   `json:"test"`
	Status   Status   `json:"status"`
	Score    float64  `json:"score"`
	Details  string   `json:"details"`
	Severity Severity `json:"severity"`

	Timestamp time.Time `json:"timestamp"`

	// Elements lists specific DOM nodes that contributed to the outcome.
	Elements        []ElementIssue `json:"elements,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// Failed reports whether the finding did not pass.
func (f Finding) Failed() bool {
	return f.Status == StatusFail
}

// ClampScore forces s into [MinScore, MaxScore]. NaN counts as MinScore.
func ClampScore(s float64) float64 {
	switch {
	case math.IsNaN(s), s < MinScore:
		return MinScore
	case s > MaxScore:
		return MaxScore
	default:
		return s
	}
}

// Position is the top-left corner of an element in CSS pixels, relative to the document.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the width and height of an element's bounding box in CSS pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementIssue pins a finding to one DOM node, with its geometry and remediation advice.
type ElementIssue struct {
	Selector       string   `json:"selector"`
	Position       Position `json:"position"`
	Size           Size     `json:"size"`
	Description    string   `json:"description"`
	Severity       Severity `json:"severity"`
	Recommendation string   `json:"recommendation"`
	// Screenshot is the path of the captured evidence image, if any.
	Screenshot string `json:"screenshot,omitempty"`
}

// ProblemArea groups element evidence by the (category, test) pair that flagged it.
type ProblemArea struct {
	Category string         `json:"category"`
	Test     string         `json:"test"`
	Elements []ElementIssue `json:"elements"`
}

// -- Accessibility Schemas --

// Impact is the audit engine's severity vocabulary.
type Impact string

const (
	ImpactCritical Impact = "critical"
	ImpactSerious  Impact = "serious"
	ImpactModerate Impact = "moderate"
	ImpactMinor    Impact = "minor"
)

// AccessibilityIssue is one violation instance reported by the audit engine.
type AccessibilityIssue struct {
	Type        string   `json:"type"`
	Severity    Impact   `json:"severity"`
	Element     string   `json:"element"`
	Description string   `json:"description"`
	WCAGLevel   []string `json:"wcagLevel"`
	Help        string   `json:"help,omitempty"`
}
