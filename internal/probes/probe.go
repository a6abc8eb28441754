// Package probes contains the heuristic checks run against the audited page.
// Every probe reads page state through schemas.PageContext and appends
// Findings to the audit.Session it is given.
package probes

import (
	"context"
	"fmt"
	"math"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
	"github.com/xkilldash9x/uxprobe/internal/evidence"
)

// Categories used in findings.
const (
	CategoryPerformance   = "Performance"
	CategoryVisual        = "Visual Design"
	CategoryAccessibility = "Accessibility"
	CategoryNavigation    = "Navigation"
	CategoryContent       = "Content"
	CategoryConversion    = "Conversion"
	CategoryForms         = "Forms"
	CategoryInteraction   = "Interaction"
	CategorySEO           = "SEO"
	CategoryResponsive    = "Responsive"
)

// maxEvidence caps the number of elements recorded per test.
const maxEvidence = 10

// base carries the identity shared by all probes.
type base struct {
	name     string
	category string
}

func (b base) Name() string     { return b.name }
func (b base) Category() string { return b.category }

// All returns every probe in the order they run against the page.
func All() []audit.Probe {
	return []audit.Probe{
		NewPerformance(),
		NewVisualHierarchy(),
		NewColorContrast(),
		NewNavigation(),
		NewReadability(),
		NewCTA(),
		NewForms(),
		NewInteractiveElements(),
		NewKeyboardNavigation(),
		NewSEO(),
		NewResponsive(),
		NewAccessibility(),
	}
}

// severityFor is the default severity for a status when a check does not
// specify its own.
func severityFor(status schemas.Status) schemas.Severity {
	switch status {
	case schemas.StatusFail:
		return schemas.SeverityHigh
	case schemas.StatusWarning:
		return schemas.SeverityMedium
	default:
		return schemas.SeverityLow
	}
}

func finding(category, test string, status schemas.Status, score float64, details string, recs ...string) schemas.Finding {
	return schemas.Finding{
		Category:        category,
		Test:            test,
		Status:          status,
		Score:           score,
		Severity:        severityFor(status),
		Details:         details,
		Recommendations: recs,
	}
}

// penalty returns max(floor, 10 - per*n).
func penalty(n int, per, floor float64) float64 {
	return math.Max(floor, 10-per*float64(n))
}

func evaluate(ctx context.Context, s *audit.Session, script string, out interface{}) error {
	if err := s.Page.Evaluate(ctx, script, out); err != nil {
		return fmt.Errorf("page evaluation failed: %w", err)
	}
	return nil
}

// recordAll records evidence for up to maxEvidence specs and returns the
// issues that resolved to live elements.
func recordAll(ctx context.Context, s *audit.Session, category, test string, specs []evidence.Spec) []schemas.ElementIssue {
	var out []schemas.ElementIssue
	for i, spec := range specs {
		if i >= maxEvidence {
			break
		}
		if issue := s.Evidence.RecordProblemArea(ctx, category, test, spec, true); issue != nil {
			out = append(out, *issue)
		}
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
