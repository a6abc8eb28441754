package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/uxprobe/api/schemas"
)

const junitTimeLayout = "2006-01-02T15:04:05"

// JUnitReporter writes one testsuite per category and one testcase per
// finding. Failed findings carry a <failure>; warnings are reported as passing
// cases with the details in <system-out>.
type JUnitReporter struct {
	single
	writer io.WriteCloser
}

func NewJUnitReporter(writer io.WriteCloser) *JUnitReporter {
	return &JUnitReporter{writer: writer}
}

func (r *JUnitReporter) Write(report *schemas.Report) error {
	return r.set(report)
}

func (r *JUnitReporter) Close() error {
	return finish(r.writer, r.report, func(w io.Writer, report *schemas.Report) error {
		doc := junitDocument(report)
		if _, err := doc.WriteTo(w); err != nil {
			return fmt.Errorf("failed to write JUnit report: %w", err)
		}
		return nil
	})
}

func junitDocument(report *schemas.Report) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suites := doc.CreateElement("testsuites")
	suites.CreateAttr("name", "uxprobe")

	var order []string
	byCategory := map[string][]schemas.Finding{}
	for _, f := range report.Findings {
		if _, ok := byCategory[f.Category]; !ok {
			order = append(order, f.Category)
		}
		byCategory[f.Category] = append(byCategory[f.Category], f)
	}

	timestamp := report.TestDate.UTC().Format(junitTimeLayout)
	total, failures := 0, 0
	for i, category := range order {
		findings := byCategory[category]
		suite := suites.CreateElement("testsuite")
		suite.CreateAttr("id", strconv.Itoa(i))
		suite.CreateAttr("name", category)
		suite.CreateAttr("timestamp", timestamp)

		props := suite.CreateElement("properties")
		addProperty(props, "url", report.URL)
		addProperty(props, "runId", report.RunID)

		failed := 0
		for _, f := range findings {
			tc := suite.CreateElement("testcase")
			tc.CreateAttr("classname", "uxprobe."+classToken(category))
			tc.CreateAttr("name", f.Test)
			tc.CreateAttr("time", "0")

			switch f.Status {
			case schemas.StatusFail:
				failed++
				failure := tc.CreateElement("failure")
				failure.CreateAttr("message", f.Details)
				failure.CreateAttr("type", string(f.Severity))
				failure.SetText(caseBody(f))
			case schemas.StatusWarning:
				tc.CreateElement("system-out").SetText("warning: " + caseBody(f))
			}
		}
		suite.CreateAttr("tests", strconv.Itoa(len(findings)))
		suite.CreateAttr("failures", strconv.Itoa(failed))
		suite.CreateAttr("errors", "0")

		total += len(findings)
		failures += failed
	}

	suites.CreateAttr("tests", strconv.Itoa(total))
	suites.CreateAttr("failures", strconv.Itoa(failures))
	doc.Indent(2)
	return doc
}

func addProperty(props *etree.Element, name, value string) {
	p := props.CreateElement("property")
	p.CreateAttr("name", name)
	p.CreateAttr("value", value)
}

func caseBody(f schemas.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (score %.1f/10, severity %s)", f.Details, f.Score, f.Severity)
	for _, el := range f.Elements {
		fmt.Fprintf(&b, "\n%s: %s", el.Selector, el.Description)
	}
	for _, rec := range f.Recommendations {
		fmt.Fprintf(&b, "\n- %s", rec)
	}
	return b.String()
}

// classToken turns "Visual Design" into "visual_design".
func classToken(category string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(category)), " ", "_")
}
