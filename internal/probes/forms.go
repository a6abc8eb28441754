package probes

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
	"github.com/xkilldash9x/uxprobe/internal/evidence"
)

var formsScript = script(`
const forms = Array.from(document.forms);
const labelled = (f) => {
  if (f.getAttribute("aria-label") || f.getAttribute("aria-labelledby") || f.getAttribute("title")) return true;
  if (f.id && document.querySelector("label[for='" + CSS.escape(f.id) + "']")) return true;
  return !!f.closest("label");
};
const fields = [];
forms.forEach(form => form.querySelectorAll("input, select, textarea").forEach(f => {
  const type = (f.getAttribute("type") || "").toLowerCase();
  if (["hidden", "submit", "button", "image", "reset"].includes(type)) return;
  fields.push(f);
}));
return {
  forms: forms.length,
  unlabeled: fields.filter(f => !labelled(f)).map(cssPath),
  missingSubmit: forms
    .filter(f => !f.querySelector("button:not([type]), button[type=submit], input[type=submit], input[type=image]"))
    .map(cssPath)
};`)

type formsState struct {
	Forms         int      `json:"forms"`
	Unlabeled     []string `json:"unlabeled"`
	MissingSubmit []string `json:"missingSubmit"`
}

// Forms checks labels and submit controls. A page without forms passes.
type Forms struct{ base }

func NewForms() *Forms {
	return &Forms{base{name: "forms", category: CategoryForms}}
}

func (f *Forms) Run(ctx context.Context, s *audit.Session) error {
	var st formsState
	if err := evaluate(ctx, s, formsScript, &st); err != nil {
		return err
	}
	if st.Forms == 0 {
		s.AddFinding(finding(CategoryForms, "Form Labels", schemas.StatusPass, 10, "No forms on the page."))
		return nil
	}

	const labels = "Form Labels"
	if n := len(st.Unlabeled); n == 0 {
		s.AddFinding(finding(CategoryForms, labels, schemas.StatusPass, 10, "Every form field has a label."))
	} else {
		specs := make([]evidence.Spec, 0, n)
		for _, sel := range st.Unlabeled {
			specs = append(specs, evidence.Spec{
				Selector:       sel,
				Description:    "Form field has no associated label",
				Severity:       schemas.SeverityHigh,
				Recommendation: "Associate a <label> with the field or give it an aria-label.",
			})
		}
		out := finding(CategoryForms, labels, schemas.StatusFail, penalty(n, 2, 0),
			fmt.Sprintf("%s without a label.", plural(n, "field", "fields")),
			"Label every form field; placeholders are not labels.")
		out.Elements = recordAll(ctx, s, CategoryForms, labels, specs)
		s.AddFinding(out)
	}

	const submit = "Submit Controls"
	if n := len(st.MissingSubmit); n == 0 {
		s.AddFinding(finding(CategoryForms, submit, schemas.StatusPass, 10, "Every form has a submit control."))
	} else {
		specs := make([]evidence.Spec, 0, n)
		for _, sel := range st.MissingSubmit {
			specs = append(specs, evidence.Spec{
				Selector:       sel,
				Description:    "Form has no submit control",
				Severity:       schemas.SeverityMedium,
				Recommendation: "Add a visible submit button.",
			})
		}
		out := finding(CategoryForms, submit, schemas.StatusWarning, penalty(n, 2, 4),
			fmt.Sprintf("%s without a submit control.", plural(n, "form", "forms")),
			"Give every form an explicit submit button.")
		out.Elements = recordAll(ctx, s, CategoryForms, submit, specs)
		s.AddFinding(out)
	}
	return nil
}
