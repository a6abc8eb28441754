package reporting

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/xkilldash9x/uxprobe/api/schemas"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var htmlTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"ms":   func(v float64) string { return fmt.Sprintf("%.0f ms", v) },
	"kib":  func(v float64) string { return fmt.Sprintf("%.1f KiB", v/1024) },
	"join": strings.Join,
}).ParseFS(templateFS, "templates/report.html.tmpl"))

type categoryView struct {
	Name     string
	Score    float64
	Findings []schemas.Finding
}

type htmlView struct {
	Report     *schemas.Report
	Version    string
	Categories []categoryView
	Passed     int
	Warnings   int
	Failed     int
}

// HTMLReporter renders a standalone HTML page.
type HTMLReporter struct {
	single
	writer  io.WriteCloser
	version string
}

func NewHTMLReporter(writer io.WriteCloser) *HTMLReporter {
	return &HTMLReporter{writer: writer}
}

// WithVersion stamps the tool version into the page header.
func (r *HTMLReporter) WithVersion(v string) *HTMLReporter {
	r.version = v
	return r
}

func (r *HTMLReporter) Write(report *schemas.Report) error {
	return r.set(report)
}

func (r *HTMLReporter) Close() error {
	return finish(r.writer, r.report, func(w io.Writer, report *schemas.Report) error {
		if err := htmlTemplate.Execute(w, newHTMLView(report, r.version)); err != nil {
			return fmt.Errorf("failed to render HTML report: %w", err)
		}
		return nil
	})
}

// newHTMLView groups findings by category in first-seen order and averages
// each category's score.
func newHTMLView(report *schemas.Report, version string) htmlView {
	view := htmlView{Report: report, Version: version}
	index := map[string]int{}
	for _, f := range report.Findings {
		i, ok := index[f.Category]
		if !ok {
			i = len(view.Categories)
			index[f.Category] = i
			view.Categories = append(view.Categories, categoryView{Name: f.Category})
		}
		view.Categories[i].Findings = append(view.Categories[i].Findings, f)

		switch f.Status {
		case schemas.StatusPass:
			view.Passed++
		case schemas.StatusWarning:
			view.Warnings++
		case schemas.StatusFail:
			view.Failed++
		}
	}
	for i := range view.Categories {
		c := &view.Categories[i]
		sum := 0.0
		for _, f := range c.Findings {
			sum += schemas.ClampScore(f.Score)
		}
		c.Score = sum / float64(len(c.Findings))
	}
	return view
}
