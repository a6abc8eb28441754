package probes

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
	"github.com/xkilldash9x/uxprobe/internal/evidence"
)

var interactiveScript = script(`
const named = (el) => {
  if (textOf(el)) return true;
  if (el.getAttribute("aria-label") || el.getAttribute("aria-labelledby") || el.getAttribute("title")) return true;
  return Array.from(el.querySelectorAll("img[alt]")).some(img => img.getAttribute("alt").trim());
};
const native = new Set(["A", "BUTTON", "INPUT", "SELECT", "TEXTAREA", "SUMMARY", "LABEL", "OPTION"]);
return {
  unnamed: Array.from(document.querySelectorAll("button, a[href], [role=button], [role=link]"))
    .filter(el => !named(el)).map(cssPath),
  clickable: Array.from(document.querySelectorAll("[onclick]"))
    .filter(el => !native.has(el.tagName) && !el.hasAttribute("role") && !el.hasAttribute("tabindex"))
    .map(cssPath)
};`)

type interactiveState struct {
	Unnamed   []string `json:"unnamed"`
	Clickable []string `json:"clickable"`
}

// InteractiveElements checks that controls are named and that click handlers
// sit on elements assistive technology can reach.
type InteractiveElements struct{ base }

func NewInteractiveElements() *InteractiveElements {
	return &InteractiveElements{base{name: "interactive_elements", category: CategoryInteraction}}
}

func (i *InteractiveElements) Run(ctx context.Context, s *audit.Session) error {
	var st interactiveState
	if err := evaluate(ctx, s, interactiveScript, &st); err != nil {
		return err
	}

	const names = "Accessible Names"
	if n := len(st.Unnamed); n == 0 {
		s.AddFinding(finding(CategoryInteraction, names, schemas.StatusPass, 10, "All buttons and links have an accessible name."))
	} else {
		specs := make([]evidence.Spec, 0, n)
		for _, sel := range st.Unnamed {
			specs = append(specs, evidence.Spec{
				Selector:       sel,
				Description:    "Control has no accessible name",
				Severity:       schemas.SeverityHigh,
				Recommendation: "Give the control visible text or an aria-label.",
			})
		}
		out := finding(CategoryInteraction, names, schemas.StatusFail, penalty(n, 2, 0),
			fmt.Sprintf("%s without an accessible name.", plural(n, "control", "controls")),
			"Screen readers announce unnamed controls as just \"button\" or \"link\"; name every control.")
		out.Elements = recordAll(ctx, s, CategoryInteraction, names, specs)
		s.AddFinding(out)
	}

	const clickable = "Clickable Non-Interactive Elements"
	if n := len(st.Clickable); n == 0 {
		s.AddFinding(finding(CategoryInteraction, clickable, schemas.StatusPass, 10, "No click handlers on non-interactive elements."))
	} else {
		specs := make([]evidence.Spec, 0, n)
		for _, sel := range st.Clickable {
			specs = append(specs, evidence.Spec{
				Selector:       sel,
				Description:    "Element has a click handler but no role or tabindex",
				Severity:       schemas.SeverityMedium,
				Recommendation: "Use a <button>, or add role=\"button\" and tabindex=\"0\".",
			})
		}
		out := finding(CategoryInteraction, clickable, schemas.StatusWarning, penalty(n, 1, 4),
			fmt.Sprintf("%s handle clicks without being focusable.", plural(n, "element", "elements")),
			"Use native interactive elements for anything clickable.")
		out.Elements = recordAll(ctx, s, CategoryInteraction, clickable, specs)
		s.AddFinding(out)
	}
	return nil
}
