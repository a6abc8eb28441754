package probes

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
	"github.com/xkilldash9x/uxprobe/internal/evidence"
	"github.com/xkilldash9x/uxprobe/internal/wcag"
)

const (
	contrastSampleSize = 100
	// contrastWarnShare is the largest share of low-contrast samples still
	// graded as a warning.
	contrastWarnShare = 0.10
)

// contrastScript samples visible elements that own text. Backgrounds are
// listed from the element outwards so they can be composited in order.
var contrastScript = script(fmt.Sprintf(`
const out = [];
for (const el of document.querySelectorAll("body *")) {
  if (out.length >= %d) break;
  const own = Array.from(el.childNodes).some(n => n.nodeType === 3 && n.textContent.trim());
  if (!own || !isVisible(el)) continue;
  const backgrounds = [];
  for (let cur = el; cur && cur.nodeType === 1; cur = cur.parentElement) {
    backgrounds.push(getComputedStyle(cur).backgroundColor);
  }
  out.push({selector: cssPath(el), color: getComputedStyle(el).color, backgrounds: backgrounds});
}
return out;`, contrastSampleSize))

type contrastSample struct {
	Selector    string   `json:"selector"`
	Color       string   `json:"color"`
	Backgrounds []string `json:"backgrounds"`
}

// ColorContrast measures text contrast against its effective background.
type ColorContrast struct{ base }

func NewColorContrast() *ColorContrast {
	return &ColorContrast{base{name: "color_contrast", category: CategoryAccessibility}}
}

// effectiveBackground composites the listed backgrounds (innermost first)
// over a white canvas.
func effectiveBackground(layers []string) wcag.Color {
	bg := wcag.White
	for i := len(layers) - 1; i >= 0; i-- {
		c, err := wcag.ParseColor(layers[i])
		if err != nil || c.Transparent() {
			continue
		}
		bg = c.Over(bg)
	}
	return bg
}

func (c *ColorContrast) Run(ctx context.Context, s *audit.Session) error {
	const test = "Color Contrast"
	var samples []contrastSample
	if err := evaluate(ctx, s, contrastScript, &samples); err != nil {
		return err
	}

	total := 0
	var low []evidence.Spec
	for _, sample := range samples {
		fg, err := wcag.ParseColor(sample.Color)
		if err != nil {
			s.Logger.Debug("Skipping unparseable text color.", zap.String("color", sample.Color), zap.Error(err))
			continue
		}
		total++
		ratio := wcag.TextContrast(fg, effectiveBackground(sample.Backgrounds))
		if ratio < wcag.MinContrastAA {
			low = append(low, evidence.Spec{
				Selector:       sample.Selector,
				Description:    fmt.Sprintf("Contrast ratio %.2f:1 is below %.1f:1", wcag.Round2(ratio), wcag.MinContrastAA),
				Severity:       schemas.SeverityMedium,
				Recommendation: "Darken the text or lighten the background to reach 4.5:1.",
			})
		}
	}

	if total == 0 {
		s.AddFinding(finding(CategoryAccessibility, test, schemas.StatusPass, 10, "No text elements to sample."))
		return nil
	}
	if len(low) == 0 {
		s.AddFinding(finding(CategoryAccessibility, test, schemas.StatusPass, 10,
			fmt.Sprintf("All %d sampled text elements meet 4.5:1.", total)))
		return nil
	}

	score := math.Round(100*float64(total-len(low))/float64(total)) / 10
	status := schemas.StatusFail
	if float64(len(low))/float64(total) <= contrastWarnShare {
		status = schemas.StatusWarning
	}
	f := finding(CategoryAccessibility, test, status, score,
		fmt.Sprintf("%d of %d sampled text elements have contrast below 4.5:1.", len(low), total),
		"Raise text contrast to at least 4.5:1 (3:1 for large text).")
	f.Elements = recordAll(ctx, s, CategoryAccessibility, test, low)
	s.AddFinding(f)
	return nil
}
