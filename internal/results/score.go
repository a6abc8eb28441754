// Package results reduces the findings of an audit session into an overall
// score, a prioritized list of recommendations and the final Report.
package results

import (
	"math"
	"sort"

	"github.com/xkilldash9x/uxprobe/api/schemas"
)

// OverallScore is the mean finding score rescaled to 0-100 and rounded. Every
// finding weighs the same. An empty set scores 0.
func OverallScore(findings []schemas.Finding) int {
	if len(findings) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range findings {
		sum += schemas.ClampScore(f.Score)
	}
	return int(math.Round(100 * sum / (schemas.MaxScore * float64(len(findings)))))
}

var severityOrder = map[schemas.Severity]int{
	schemas.SeverityHigh:   1,
	schemas.SeverityMedium: 2,
	schemas.SeverityLow:    3,
}

// Prioritize returns the findings that did not pass, most severe first and
// lowest score first within a severity. Ties keep their original order.
func Prioritize(findings []schemas.Finding) []schemas.Finding {
	out := make([]schemas.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Status != schemas.StatusPass {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, ok := severityOrder[out[i].Severity]
		if !ok {
			oi = 99
		}
		oj, ok := severityOrder[out[j].Severity]
		if !ok {
			oj = 99
		}
		if oi != oj {
			return oi < oj
		}
		return out[i].Score < out[j].Score
	})
	return out
}

// Summarize counts findings per status and severity.
func Summarize(findings []schemas.Finding) schemas.Summary {
	s := schemas.Summary{
		Total:      len(findings),
		ByStatus:   map[schemas.Status]int{},
		BySeverity: map[schemas.Severity]int{},
		Failing:    map[schemas.Severity]int{},
	}
	for _, f := range findings {
		s.ByStatus[f.Status]++
		s.BySeverity[f.Severity]++
		if f.Status != schemas.StatusPass {
			s.Failing[f.Severity]++
		}
	}
	return s
}
