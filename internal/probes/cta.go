package probes

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
	"github.com/xkilldash9x/uxprobe/internal/evidence"
)

// CTAKeywords marks an interactive element as a call to action when its text
// contains one of them.
var CTAKeywords = []string{
	"subscribe", "contact", "get started", "learn more", "download",
	"buy", "register", "sign up", "join", "submit",
}

// Minimum comfortable call-to-action size in CSS pixels.
const (
	ctaMinWidth  = 80
	ctaMinHeight = 40
)

var ctaScript = script(fmt.Sprintf(`
const keywords = %s;
const candidates = document.querySelectorAll("a, button, input[type=submit], input[type=button], [role=button]");
const ctas = [];
candidates.forEach(el => {
  const text = textOf(el).toLowerCase();
  if (!text || !keywords.some(k => text.includes(k))) return;
  const r = el.getBoundingClientRect();
  ctas.push({selector: cssPath(el), text: textOf(el), top: r.top, bottom: r.bottom, width: r.width, height: r.height});
});
return {viewportHeight: window.innerHeight, ctas: ctas};`, mustJSON(CTAKeywords)))

func mustJSON(v interface{}) string {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

type ctaElement struct {
	Selector string  `json:"selector"`
	Text     string  `json:"text"`
	Top      float64 `json:"top"`
	Bottom   float64 `json:"bottom"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

func (c ctaElement) small() bool {
	return c.Width < ctaMinWidth || c.Height < ctaMinHeight
}

func (c ctaElement) belowFold(viewportHeight float64) bool {
	return c.Top >= viewportHeight || c.Bottom <= 0
}

type ctaState struct {
	ViewportHeight float64      `json:"viewportHeight"`
	CTAs           []ctaElement `json:"ctas"`
}

// CTA checks that calls to action are present, large enough and visible
// without scrolling.
type CTA struct{ base }

func NewCTA() *CTA {
	return &CTA{base{name: "cta", category: CategoryConversion}}
}

func (c *CTA) Run(ctx context.Context, s *audit.Session) error {
	const test = "Call To Action"
	var st ctaState
	if err := evaluate(ctx, s, ctaScript, &st); err != nil {
		return err
	}

	if len(st.CTAs) == 0 {
		f := finding(CategoryConversion, test, schemas.StatusWarning, 5, "No call-to-action elements found.",
			"Add a clear primary call to action above the fold.")
		f.Severity = schemas.SeverityLow
		s.AddFinding(f)
		return nil
	}

	small, hidden := 0, 0
	var specs []evidence.Spec
	for _, el := range st.CTAs {
		var problems []string
		if el.small() {
			small++
			problems = append(problems, fmt.Sprintf("is %.0fx%.0fpx, smaller than %dx%dpx", el.Width, el.Height, ctaMinWidth, ctaMinHeight))
		}
		if el.belowFold(st.ViewportHeight) {
			hidden++
			problems = append(problems, "is not visible above the fold")
		}
		if len(problems) > 0 {
			specs = append(specs, evidence.Spec{
				Selector:       el.Selector,
				Description:    fmt.Sprintf("CTA %q %s", el.Text, strings.Join(problems, " and ")),
				Severity:       schemas.SeverityMedium,
				Recommendation: fmt.Sprintf("Make the CTA at least %dx%dpx and place it above the fold.", ctaMinWidth, ctaMinHeight),
			})
		}
	}

	score := 10 - 2*float64(small) - float64(hidden)
	if score < 0 {
		score = 0
	}
	details := fmt.Sprintf("Found %s; %d too small, %d below the fold.",
		plural(len(st.CTAs), "call to action", "calls to action"), small, hidden)
	if len(specs) == 0 {
		s.AddFinding(finding(CategoryConversion, test, schemas.StatusPass, score, details))
		return nil
	}
	f := finding(CategoryConversion, test, schemas.StatusWarning, score, details,
		"Make primary actions large, high-contrast and visible without scrolling.")
	f.Elements = recordAll(ctx, s, CategoryConversion, test, specs)
	s.AddFinding(f)
	return nil
}
