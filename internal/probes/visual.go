package probes

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
	"github.com/xkilldash9x/uxprobe/internal/evidence"
)

var visualScript = script(`
const headings = Array.from(document.querySelectorAll("h1, h2, h3, h4, h5, h6"));
const images = Array.from(document.images);
const families = new Set();
document.querySelectorAll("body, body *").forEach(el => {
  if (!el.childNodes.length) return;
  const hasText = Array.from(el.childNodes).some(n => n.nodeType === 3 && n.textContent.trim());
  if (!hasText) return;
  const family = getComputedStyle(el).fontFamily.split(",")[0].replace(/["']/g, "").trim().toLowerCase();
  if (family) families.add(family);
});
return {
  h1Count: document.querySelectorAll("h1").length,
  headingLevels: headings.map(h => parseInt(h.tagName.substring(1), 10)),
  imageCount: images.length,
  missingAlt: images.filter(img => !img.hasAttribute("alt")).map(cssPath),
  fontFamilies: Array.from(families)
};`)

type visualState struct {
	H1Count       int      `json:"h1Count"`
	HeadingLevels []int    `json:"headingLevels"`
	ImageCount    int      `json:"imageCount"`
	MissingAlt    []string `json:"missingAlt"`
	FontFamilies  []string `json:"fontFamilies"`
}

// VisualHierarchy checks heading structure, image alternatives and typography.
type VisualHierarchy struct{ base }

func NewVisualHierarchy() *VisualHierarchy {
	return &VisualHierarchy{base{name: "visual_hierarchy", category: CategoryVisual}}
}

func (v *VisualHierarchy) Run(ctx context.Context, s *audit.Session) error {
	var st visualState
	if err := evaluate(ctx, s, visualScript, &st); err != nil {
		return err
	}

	s.AddFinding(gradeH1(st.H1Count))
	s.AddFinding(gradeHeadingOrder(st.HeadingLevels))
	s.AddFinding(v.imageAlt(ctx, s, st))
	s.AddFinding(gradeFontVariety(st.FontFamilies))
	return nil
}

func gradeH1(n int) schemas.Finding {
	const test = "H1 Usage"
	switch {
	case n == 1:
		return finding(CategoryVisual, test, schemas.StatusPass, 10, "Page has exactly one H1 heading.")
	case n == 0:
		return finding(CategoryVisual, test, schemas.StatusFail, 3, "Page has no H1 heading.",
			"Add a single H1 that states the page's main topic.")
	default:
		return finding(CategoryVisual, test, schemas.StatusWarning, 6,
			fmt.Sprintf("Page has %d H1 headings.", n),
			"Keep one H1 per page and demote the others to H2.")
	}
}

// skippedLevels counts places where a heading is more than one level deeper
// than the heading before it.
func skippedLevels(levels []int) int {
	skips := 0
	for i := 1; i < len(levels); i++ {
		if levels[i] > levels[i-1]+1 {
			skips++
		}
	}
	return skips
}

func gradeHeadingOrder(levels []int) schemas.Finding {
	const test = "Heading Hierarchy"
	n := skippedLevels(levels)
	if n == 0 {
		return finding(CategoryVisual, test, schemas.StatusPass, 10,
			fmt.Sprintf("%s in a consistent order.", plural(len(levels), "heading", "headings")))
	}
	return finding(CategoryVisual, test, schemas.StatusWarning, penalty(n, 2, 2),
		fmt.Sprintf("Heading levels are skipped %s.", plural(n, "time", "times")),
		"Nest headings one level at a time (H1, then H2, then H3).")
}

func (v *VisualHierarchy) imageAlt(ctx context.Context, s *audit.Session, st visualState) schemas.Finding {
	const test = "Image Alt Text"
	n := len(st.MissingAlt)
	if n == 0 {
		return finding(CategoryVisual, test, schemas.StatusPass, 10,
			fmt.Sprintf("All %s have alt text.", plural(st.ImageCount, "image", "images")))
	}

	specs := make([]evidence.Spec, 0, n)
	for _, sel := range st.MissingAlt {
		specs = append(specs, evidence.Spec{
			Selector:       sel,
			Description:    "Image has no alt attribute",
			Severity:       schemas.SeverityMedium,
			Recommendation: `Describe the image in an alt attribute, or use alt="" if it is decorative.`,
		})
	}

	f := finding(CategoryVisual, test, schemas.StatusFail, penalty(n, 2, 0),
		fmt.Sprintf("%d of %s lack alt text.", n, plural(st.ImageCount, "image", "images")),
		"Add descriptive alt text to every informative image.")
	f.Severity = schemas.SeverityMedium
	f.Elements = recordAll(ctx, s, CategoryVisual, test, specs)
	return f
}

func gradeFontVariety(families []string) schemas.Finding {
	const test = "Font Variety"
	n := len(families)
	details := fmt.Sprintf("%s in use", plural(n, "font family", "font families"))
	if n > 0 {
		details += ": " + strings.Join(families, ", ")
	}
	details += "."
	switch {
	case n <= 3:
		return finding(CategoryVisual, test, schemas.StatusPass, 10, details)
	case n <= 5:
		return finding(CategoryVisual, test, schemas.StatusWarning, 7, details,
			"Limit the design to two or three font families.")
	default:
		return finding(CategoryVisual, test, schemas.StatusFail, 4, details,
			"Limit the design to two or three font families.")
	}
}
