package probes

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
	"github.com/xkilldash9x/uxprobe/internal/evidence"
)

const defaultFocusSteps = 20

// focusResetScript moves the sequential focus starting point to the top of the
// document. Blurring alone leaves Chrome's starting point on the last element.
const focusResetScript = `(() => {
  const body = document.body;
  if (body) {
    const prev = body.getAttribute("tabindex");
    body.setAttribute("tabindex", "-1");
    body.focus({preventScroll: true});
    if (prev === null) body.removeAttribute("tabindex"); else body.setAttribute("tabindex", prev);
  } else if (document.activeElement) {
    document.activeElement.blur();
  }
  window.scrollTo(0, 0);
  return true;
})()`

var focusableCountScript = script(`
return Array.from(document.querySelectorAll(
  "a[href], button:not([disabled]), input:not([disabled]):not([type=hidden]), select:not([disabled]), textarea:not([disabled]), [tabindex]:not([tabindex='-1'])"
)).filter(isVisible).length;`)

var focusStateScript = script(`
const el = document.activeElement;
if (!el || el === document.body || el === document.documentElement) return {focused: false};
const st = getComputedStyle(el);
const outline = st.outlineStyle !== "none" && parseFloat(st.outlineWidth) > 0;
const shadow = !!st.boxShadow && st.boxShadow !== "none";
return {focused: true, selector: cssPath(el), indicator: outline || shadow, tabIndex: el.tabIndex};`)

// focusStop is where focus landed after one Tab press.
type focusStop struct {
	Focused   bool   `json:"focused"`
	Selector  string `json:"selector"`
	Indicator bool   `json:"indicator"`
	TabIndex  int    `json:"tabIndex"`
}

func focusSteps(s *audit.Session) int {
	if s.Config != nil {
		if n := s.Config.Accessibility().FocusSteps; n > 0 {
			return n
		}
	}
	return defaultFocusSteps
}

// traverseFocus presses Tab steps times from the top of the document and
// returns the distinct elements that received focus, in order.
func traverseFocus(ctx context.Context, s *audit.Session, steps int) ([]focusStop, error) {
	if err := evaluate(ctx, s, focusResetScript, nil); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var stops []focusStop
	for i := 0; i < steps; i++ {
		if err := s.Page.PressKey(ctx, schemas.KeyTab); err != nil {
			return nil, fmt.Errorf("failed to press Tab: %w", err)
		}
		var stop focusStop
		if err := evaluate(ctx, s, focusStateScript, &stop); err != nil {
			return nil, err
		}
		if !stop.Focused || seen[stop.Selector] {
			continue
		}
		seen[stop.Selector] = true
		stops = append(stops, stop)
	}
	return stops, nil
}

// KeyboardNavigation walks the page with Tab and checks that focus lands
// somewhere and is visible when it does.
type KeyboardNavigation struct{ base }

func NewKeyboardNavigation() *KeyboardNavigation {
	return &KeyboardNavigation{base{name: "keyboard_navigation", category: CategoryAccessibility}}
}

func (k *KeyboardNavigation) Run(ctx context.Context, s *audit.Session) error {
	var focusable int
	if err := evaluate(ctx, s, focusableCountScript, &focusable); err != nil {
		return err
	}
	steps := focusSteps(s)
	stops, err := traverseFocus(ctx, s, steps)
	if err != nil {
		return err
	}

	const reach = "Keyboard Reachability"
	if focusable > 0 && len(stops) == 0 {
		s.AddFinding(finding(CategoryAccessibility, reach, schemas.StatusFail, 2,
			fmt.Sprintf("None of %s received focus in %d Tab presses.", plural(focusable, "interactive element", "interactive elements"), steps),
			"Make sure interactive elements are reachable with the Tab key."))
		return nil
	}
	s.AddFinding(finding(CategoryAccessibility, reach, schemas.StatusPass, 10,
		fmt.Sprintf("%s reached in %d Tab presses.", plural(len(stops), "element", "elements"), steps)))
	if len(stops) == 0 {
		return nil
	}

	const visibility = "Focus Visibility"
	var hidden []evidence.Spec
	for _, stop := range stops {
		if !stop.Indicator {
			hidden = append(hidden, evidence.Spec{
				Selector:       stop.Selector,
				Description:    "Element shows no visible focus indicator",
				Severity:       schemas.SeverityMedium,
				Recommendation: "Add a :focus-visible outline.",
			})
		}
	}
	share := float64(len(stops)-len(hidden)) / float64(len(stops))
	details := fmt.Sprintf("%d of %d focused elements show a visible indicator.", len(stops)-len(hidden), len(stops))
	var out schemas.Finding
	switch {
	case share >= 0.9:
		out = finding(CategoryAccessibility, visibility, schemas.StatusPass, 10, details)
	case share >= 0.5:
		out = finding(CategoryAccessibility, visibility, schemas.StatusWarning, 6, details,
			"Never remove the focus outline without providing a replacement.")
	default:
		out = finding(CategoryAccessibility, visibility, schemas.StatusFail, 3, details,
			"Never remove the focus outline without providing a replacement.")
	}
	if out.Status != schemas.StatusPass {
		out.Elements = recordAll(ctx, s, CategoryAccessibility, visibility, hidden)
	}
	s.AddFinding(out)
	return nil
}
