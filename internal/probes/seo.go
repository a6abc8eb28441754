package probes

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
)

const seoScript = `(() => {
  const meta = (sel) => {
    const el = document.querySelector(sel);
    return el ? (el.getAttribute("content") || "").trim() : null;
  };
  return {
    title: document.title || "",
    description: meta("meta[name='description']"),
    viewport: !!document.querySelector("meta[name='viewport']"),
    canonical: !!document.querySelector("link[rel='canonical'][href]"),
    ogTitle: !!meta("meta[property='og:title']"),
    ogDescription: !!meta("meta[property='og:description']")
  };
})()`

type seoState struct {
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	Viewport      bool    `json:"viewport"`
	Canonical     bool    `json:"canonical"`
	OGTitle       bool    `json:"ogTitle"`
	OGDescription bool    `json:"ogDescription"`
}

// SEO checks the document head for the tags search engines and link
// previews rely on.
type SEO struct{ base }

func NewSEO() *SEO {
	return &SEO{base{name: "seo", category: CategorySEO}}
}

func (p *SEO) Run(ctx context.Context, s *audit.Session) error {
	var st seoState
	if err := evaluate(ctx, s, seoScript, &st); err != nil {
		return err
	}

	s.AddFinding(gradeTitle(st.Title))
	s.AddFinding(gradeDescription(st.Description))

	if st.Viewport {
		s.AddFinding(finding(CategorySEO, "Viewport Meta", schemas.StatusPass, 10, "Viewport meta tag present."))
	} else {
		s.AddFinding(finding(CategorySEO, "Viewport Meta", schemas.StatusFail, 3, "Viewport meta tag is missing.",
			`Add <meta name="viewport" content="width=device-width, initial-scale=1">.`))
	}

	if st.Canonical {
		s.AddFinding(finding(CategorySEO, "Canonical URL", schemas.StatusPass, 10, "Canonical link present."))
	} else {
		f := finding(CategorySEO, "Canonical URL", schemas.StatusWarning, 7, "Canonical link is missing.",
			`Add <link rel="canonical"> to avoid duplicate-content issues.`)
		f.Severity = schemas.SeverityLow
		s.AddFinding(f)
	}

	var missing []string
	if !st.OGTitle {
		missing = append(missing, "og:title")
	}
	if !st.OGDescription {
		missing = append(missing, "og:description")
	}
	if len(missing) == 0 {
		s.AddFinding(finding(CategorySEO, "Open Graph Tags", schemas.StatusPass, 10, "Open Graph title and description present."))
	} else {
		f := finding(CategorySEO, "Open Graph Tags", schemas.StatusWarning, 7,
			fmt.Sprintf("Missing Open Graph tags: %s.", strings.Join(missing, ", ")),
			"Add Open Graph tags so shared links render a rich preview.")
		f.Severity = schemas.SeverityLow
		s.AddFinding(f)
	}
	return nil
}

func gradeTitle(title string) schemas.Finding {
	const test = "Page Title"
	title = strings.TrimSpace(title)
	n := utf8.RuneCountInString(title)
	switch {
	case n == 0:
		return finding(CategorySEO, test, schemas.StatusFail, 2, "Page has no title.",
			"Add a descriptive <title> of 30 to 60 characters.")
	case n >= 30 && n <= 60:
		return finding(CategorySEO, test, schemas.StatusPass, 10, fmt.Sprintf("Title is %d characters.", n))
	default:
		return finding(CategorySEO, test, schemas.StatusWarning, 7,
			fmt.Sprintf("Title is %d characters; 30 to 60 is recommended.", n),
			"Keep the title between 30 and 60 characters.")
	}
}

func gradeDescription(desc *string) schemas.Finding {
	const test = "Meta Description"
	if desc == nil || strings.TrimSpace(*desc) == "" {
		f := finding(CategorySEO, test, schemas.StatusFail, 3, "Meta description is missing.",
			"Add a meta description of 120 to 160 characters.")
		f.Severity = schemas.SeverityMedium
		return f
	}
	n := utf8.RuneCountInString(strings.TrimSpace(*desc))
	if n >= 120 && n <= 160 {
		return finding(CategorySEO, test, schemas.StatusPass, 10, fmt.Sprintf("Meta description is %d characters.", n))
	}
	return finding(CategorySEO, test, schemas.StatusWarning, 7,
		fmt.Sprintf("Meta description is %d characters; 120 to 160 is recommended.", n),
		"Keep the meta description between 120 and 160 characters.")
}
