package probes

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
	"github.com/xkilldash9x/uxprobe/internal/evidence"
)

// maxNavLinks is the most links a navigation region carries before it is
// considered crowded.
const maxNavLinks = 12

var navigationScript = script(`
const vague = new Set(["click here", "here", "read more", "more", "link"]);
const navs = Array.from(document.querySelectorAll("nav, [role=navigation]"));
const navLinks = new Set();
navs.forEach(n => n.querySelectorAll("a[href]").forEach(a => navLinks.add(a)));
return {
  hasNav: navs.length > 0,
  navLinks: navLinks.size,
  vagueLinks: Array.from(document.querySelectorAll("a[href]"))
    .filter(a => vague.has(textOf(a).toLowerCase()))
    .map(a => ({selector: cssPath(a), text: textOf(a)}))
};`)

type navigationState struct {
	HasNav     bool `json:"hasNav"`
	NavLinks   int  `json:"navLinks"`
	VagueLinks []struct {
		Selector string `json:"selector"`
		Text     string `json:"text"`
	} `json:"vagueLinks"`
}

// Navigation checks for a navigation region and descriptive link text.
type Navigation struct{ base }

func NewNavigation() *Navigation {
	return &Navigation{base{name: "navigation", category: CategoryNavigation}}
}

func (n *Navigation) Run(ctx context.Context, s *audit.Session) error {
	var st navigationState
	if err := evaluate(ctx, s, navigationScript, &st); err != nil {
		return err
	}
	s.AddFinding(gradeNavStructure(st.HasNav, st.NavLinks))

	const test = "Link Text Quality"
	if len(st.VagueLinks) == 0 {
		s.AddFinding(finding(CategoryNavigation, test, schemas.StatusPass, 10, "All links have descriptive text."))
		return nil
	}
	specs := make([]evidence.Spec, 0, len(st.VagueLinks))
	for _, l := range st.VagueLinks {
		specs = append(specs, evidence.Spec{
			Selector:       l.Selector,
			Description:    fmt.Sprintf("Link text %q does not describe its destination", l.Text),
			Severity:       schemas.SeverityMedium,
			Recommendation: "Use link text that makes sense out of context.",
		})
	}
	f := finding(CategoryNavigation, test, schemas.StatusWarning, penalty(len(st.VagueLinks), 1, 4),
		fmt.Sprintf("%s use vague text such as %q.", plural(len(st.VagueLinks), "link", "links"), st.VagueLinks[0].Text),
		"Replace generic link text with a description of the destination.")
	f.Elements = recordAll(ctx, s, CategoryNavigation, test, specs)
	s.AddFinding(f)
	return nil
}

func gradeNavStructure(hasNav bool, links int) schemas.Finding {
	const test = "Navigation Structure"
	switch {
	case !hasNav:
		return finding(CategoryNavigation, test, schemas.StatusFail, 3, "No navigation region found.",
			"Wrap the primary menu in a <nav> element.")
	case links == 0:
		return finding(CategoryNavigation, test, schemas.StatusWarning, 5, "Navigation region contains no links.",
			"Put the primary navigation links inside the <nav> element.")
	case links > maxNavLinks:
		f := finding(CategoryNavigation, test, schemas.StatusWarning, 7,
			fmt.Sprintf("Navigation contains %d links.", links),
			fmt.Sprintf("Group or trim navigation to at most %d top-level links.", maxNavLinks))
		f.Severity = schemas.SeverityLow
		return f
	default:
		return finding(CategoryNavigation, test, schemas.StatusPass, 10,
			fmt.Sprintf("Navigation contains %s.", plural(links, "link", "links")))
	}
}
