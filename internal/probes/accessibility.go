package probes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/a11y"
	"github.com/xkilldash9x/uxprobe/internal/audit"
	"github.com/xkilldash9x/uxprobe/internal/evidence"
)

// Landmarks every page is expected to expose.
var Landmarks = []string{"main", "navigation", "banner", "contentinfo"}

var landmarkScript = script(`
const has = (sel) => !!document.querySelector(sel);
const firstLinks = Array.from(document.querySelectorAll("a[href]")).slice(0, 3);
return {
  skipLink: firstLinks.some(a => {
    const href = a.getAttribute("href") || "";
    return href.startsWith("#") && href.length > 1 && /skip|main|content/i.test(textOf(a) + " " + href);
  }),
  lang: (document.documentElement.getAttribute("lang") || "").trim(),
  landmarks: {
    main: has("main, [role=main]"),
    navigation: has("nav, [role=navigation]"),
    banner: has("[role=banner]") || Array.from(document.querySelectorAll("header")).some(h => !h.closest("article, aside, main, nav, section")),
    contentinfo: has("[role=contentinfo]") || Array.from(document.querySelectorAll("footer")).some(f => !f.closest("article, aside, main, nav, section"))
  }
};`)

type landmarkState struct {
	SkipLink  bool            `json:"skipLink"`
	Lang      string          `json:"lang"`
	Landmarks map[string]bool `json:"landmarks"`
}

// Accessibility runs the rule engine and a set of structural checks the
// engine does not grade on its own.
type Accessibility struct{ base }

func NewAccessibility() *Accessibility {
	return &Accessibility{base{name: "accessibility", category: CategoryAccessibility}}
}

func (a *Accessibility) Run(ctx context.Context, s *audit.Session) error {
	s.AddFinding(a.automatedAudit(ctx, s))

	if f, err := a.focusOrder(ctx, s); err != nil {
		s.AddDegraded(CategoryAccessibility, "Keyboard Focus Order", err)
	} else {
		s.AddFinding(f)
	}

	var st landmarkState
	if err := evaluate(ctx, s, landmarkScript, &st); err != nil {
		return err
	}
	s.AddFinding(gradeSkipLink(st.SkipLink))
	s.AddFinding(gradeLang(st.Lang))
	s.AddFinding(gradeLandmarks(st.Landmarks))
	return nil
}

// AuditScore converts violation counts into a 0-10 score.
func AuditScore(critical, serious, moderate int) float64 {
	return math.Max(0, 10-2*float64(critical)-float64(serious)-0.5*float64(moderate))
}

func (a *Accessibility) automatedAudit(ctx context.Context, s *audit.Session) schemas.Finding {
	const test = "Automated Accessibility Audit"
	if s.Engine == nil {
		return engineLimitation(test, errors.New("no accessibility engine configured"))
	}
	res, err := s.Engine.Run(ctx, s.Page)
	if err != nil {
		s.Logger.Warn("Accessibility engine did not run.", zap.Error(err))
		return engineLimitation(test, err)
	}

	issues := a11y.Issues(res)
	s.AddAccessibilityIssues(issues...)

	counts := make(map[schemas.Impact]int)
	var specs []evidence.Spec
	for _, issue := range issues {
		counts[issue.Severity]++
		if issue.Severity == schemas.ImpactCritical || issue.Severity == schemas.ImpactSerious {
			specs = append(specs, evidence.Spec{
				Selector:       issue.Element,
				Description:    issue.Description,
				Severity:       schemas.SeverityHigh,
				Recommendation: issue.Help,
			})
		}
	}
	critical, serious := counts[schemas.ImpactCritical], counts[schemas.ImpactSerious]
	moderate, minor := counts[schemas.ImpactModerate], counts[schemas.ImpactMinor]
	score := AuditScore(critical, serious, moderate)
	details := fmt.Sprintf("%d violations: %d critical, %d serious, %d moderate, %d minor.",
		len(issues), critical, serious, moderate, minor)

	switch {
	case critical+serious > 0:
		f := finding(CategoryAccessibility, test, schemas.StatusFail, score, details,
			"Fix critical and serious accessibility violations first; they block assistive technology users.")
		f.Elements = recordAll(ctx, s, CategoryAccessibility, test, specs)
		return f
	case moderate+minor > 0:
		return finding(CategoryAccessibility, test, schemas.StatusWarning, score, details,
			"Review the remaining moderate and minor accessibility violations.")
	default:
		return finding(CategoryAccessibility, test, schemas.StatusPass, score, "No accessibility violations detected.")
	}
}

func engineLimitation(test string, err error) schemas.Finding {
	details := fmt.Sprintf("Automated accessibility rules could not be evaluated: %v", err)
	if errors.Is(err, a11y.ErrEngineUnavailable) {
		details = fmt.Sprintf("The accessibility engine could not be loaded, so automated rules were skipped: %v", err)
	}
	f := audit.Degraded(CategoryAccessibility, test, err)
	f.Details = details
	f.Recommendations = []string{"Bundle the accessibility engine locally (accessibility.engine_path) and re-run the audit."}
	return f
}

func (a *Accessibility) focusOrder(ctx context.Context, s *audit.Session) (schemas.Finding, error) {
	const test = "Keyboard Focus Order"
	var focusable int
	if err := evaluate(ctx, s, focusableCountScript, &focusable); err != nil {
		return schemas.Finding{}, err
	}
	steps := focusSteps(s)
	stops, err := traverseFocus(ctx, s, steps)
	if err != nil {
		return schemas.Finding{}, err
	}

	if focusable > 0 && len(stops) == 0 {
		return finding(CategoryAccessibility, test, schemas.StatusFail, 3,
			fmt.Sprintf("Focus never left the document body in %d Tab presses.", steps),
			"Ensure interactive elements are focusable in document order."), nil
	}

	var specs []evidence.Spec
	for _, stop := range stops {
		if stop.TabIndex > 0 {
			specs = append(specs, evidence.Spec{
				Selector:       stop.Selector,
				Description:    fmt.Sprintf("tabindex=%d overrides the natural focus order", stop.TabIndex),
				Severity:       schemas.SeverityMedium,
				Recommendation: `Use tabindex="0" and order elements in the DOM instead.`,
			})
		}
	}
	if len(specs) > 0 {
		f := finding(CategoryAccessibility, test, schemas.StatusWarning, 7,
			fmt.Sprintf("%s use a positive tabindex.", plural(len(specs), "element", "elements")),
			"Avoid positive tabindex values.")
		f.Elements = recordAll(ctx, s, CategoryAccessibility, test, specs)
		return f, nil
	}
	return finding(CategoryAccessibility, test, schemas.StatusPass, 10,
		fmt.Sprintf("Focus moved through %s in document order.", plural(len(stops), "element", "elements"))), nil
}

func gradeSkipLink(present bool) schemas.Finding {
	if present {
		return finding(CategoryAccessibility, "Skip Link", schemas.StatusPass, 10, "Page offers a skip link.")
	}
	return finding(CategoryAccessibility, "Skip Link", schemas.StatusWarning, 6, "No skip-to-content link near the top of the page.",
		"Add a \"Skip to main content\" link as the first focusable element.")
}

func gradeLang(lang string) schemas.Finding {
	if lang != "" {
		return finding(CategoryAccessibility, "Language Attribute", schemas.StatusPass, 10,
			fmt.Sprintf("Document language is %q.", lang))
	}
	return finding(CategoryAccessibility, "Language Attribute", schemas.StatusFail, 3, "The <html> element has no lang attribute.",
		`Declare the page language, e.g. <html lang="en">.`)
}

func gradeLandmarks(found map[string]bool) schemas.Finding {
	const test = "Landmark Roles"
	var missing []string
	for _, l := range Landmarks {
		if !found[l] {
			missing = append(missing, l)
		}
	}
	if len(missing) == 0 {
		return finding(CategoryAccessibility, test, schemas.StatusPass, 10, "All standard landmarks are present.")
	}
	return finding(CategoryAccessibility, test, schemas.StatusWarning, penalty(len(missing), 2, 4),
		fmt.Sprintf("Missing landmarks: %s.", strings.Join(missing, ", ")),
		"Use <header>, <nav>, <main> and <footer> so screen reader users can jump between regions.")
}
