package probes

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
	"github.com/xkilldash9x/uxprobe/internal/evidence"
)

const (
	maxParagraphWords = 150
	// normalLineHeight is what browsers use for line-height: normal.
	normalLineHeight = 1.2
)

// readabilityScript reports lineHeight 0 for "normal".
var readabilityScript = script(fmt.Sprintf(`
const sample = document.querySelector("main p, article p, p") || document.body;
const st = getComputedStyle(sample);
const body = getComputedStyle(document.body);
return {
  bodyFontSize: parseFloat(body.fontSize) || 0,
  fontSize: parseFloat(st.fontSize) || 0,
  lineHeight: st.lineHeight === "normal" ? 0 : (parseFloat(st.lineHeight) || 0),
  longParagraphs: Array.from(document.querySelectorAll("p"))
    .filter(p => textOf(p).split(" ").filter(Boolean).length > %d)
    .map(cssPath)
};`, maxParagraphWords))

type readabilityState struct {
	BodyFontSize   float64  `json:"bodyFontSize"`
	FontSize       float64  `json:"fontSize"`
	LineHeight     float64  `json:"lineHeight"`
	LongParagraphs []string `json:"longParagraphs"`
}

// Readability checks type size, leading and paragraph length.
type Readability struct{ base }

func NewReadability() *Readability {
	return &Readability{base{name: "readability", category: CategoryContent}}
}

func (r *Readability) Run(ctx context.Context, s *audit.Session) error {
	var st readabilityState
	if err := evaluate(ctx, s, readabilityScript, &st); err != nil {
		return err
	}

	s.AddFinding(gradeFontSize(st.BodyFontSize))
	s.AddFinding(gradeLineHeight(lineHeightRatio(st.LineHeight, st.FontSize)))

	const test = "Paragraph Length"
	n := len(st.LongParagraphs)
	if n == 0 {
		s.AddFinding(finding(CategoryContent, test, schemas.StatusPass, 10,
			fmt.Sprintf("No paragraph exceeds %d words.", maxParagraphWords)))
		return nil
	}
	specs := make([]evidence.Spec, 0, n)
	for _, sel := range st.LongParagraphs {
		specs = append(specs, evidence.Spec{
			Selector:       sel,
			Description:    fmt.Sprintf("Paragraph is longer than %d words", maxParagraphWords),
			Severity:       schemas.SeverityLow,
			Recommendation: "Split long paragraphs or add subheadings.",
		})
	}
	f := finding(CategoryContent, test, schemas.StatusWarning, penalty(n, 1, 4),
		fmt.Sprintf("%s exceed %d words.", plural(n, "paragraph", "paragraphs"), maxParagraphWords),
		"Keep paragraphs short and scannable.")
	f.Elements = recordAll(ctx, s, CategoryContent, test, specs)
	s.AddFinding(f)
	return nil
}

func lineHeightRatio(lineHeight, fontSize float64) float64 {
	if lineHeight <= 0 || fontSize <= 0 {
		return normalLineHeight
	}
	return lineHeight / fontSize
}

func gradeFontSize(px float64) schemas.Finding {
	const test = "Body Font Size"
	details := fmt.Sprintf("Body text is %.0fpx.", px)
	switch {
	case px >= 16:
		return finding(CategoryContent, test, schemas.StatusPass, 10, details)
	case px >= 14:
		return finding(CategoryContent, test, schemas.StatusWarning, 7, details, "Use at least 16px for body text.")
	default:
		return finding(CategoryContent, test, schemas.StatusFail, 4, details, "Use at least 16px for body text.")
	}
}

func gradeLineHeight(ratio float64) schemas.Finding {
	const test = "Line Height"
	details := fmt.Sprintf("Line height is %.2f times the font size.", ratio)
	switch {
	case ratio >= 1.4:
		return finding(CategoryContent, test, schemas.StatusPass, 10, details)
	case ratio >= 1.2:
		return finding(CategoryContent, test, schemas.StatusWarning, 7, details, "Set line-height to 1.5 for body text.")
	default:
		return finding(CategoryContent, test, schemas.StatusFail, 4, details, "Set line-height to 1.5 for body text.")
	}
}
