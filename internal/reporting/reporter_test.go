package reporting_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/reporting"
)

const testToolVersion = "v1.0.0-test"

// MockWriteCloser allows capturing output and simulating I/O errors.
type MockWriteCloser struct {
	Buffer    *bytes.Buffer
	FailWrite bool
	FailClose bool
	Closed    bool
}

func newMockWriter() *MockWriteCloser {
	return &MockWriteCloser{Buffer: new(bytes.Buffer)}
}

func (m *MockWriteCloser) Write(p []byte) (n int, err error) {
	if m.FailWrite {
		return 0, errors.New("simulated write error")
	}
	return m.Buffer.Write(p)
}

func (m *MockWriteCloser) Close() error {
	m.Closed = true
	if m.FailClose {
		return errors.New("simulated close error")
	}
	return nil
}

func sampleReport() *schemas.Report {
	return &schemas.Report{
		RunID:        "4b0c1c3e-8a1d-4c53-9d8e-1f0a2b3c4d5e",
		URL:          "https://example.com",
		TestDate:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		OverallScore: 72,
		Findings: []schemas.Finding{
			{Category: "Visual Design", Test: "H1 Usage", Status: schemas.StatusPass, Score: 10, Severity: schemas.SeverityLow, Details: "Page has exactly one H1 heading."},
			{
				Category: "Visual Design", Test: "Image Alt Text", Status: schemas.StatusFail, Score: 8, Severity: schemas.SeverityMedium,
				Details: "1 image is missing alt text.",
				Elements: []schemas.ElementIssue{
					{Selector: "img.hero", Description: "Image has no alt attribute"},
				},
				Recommendations: []string{"Add alt text to informative images."},
			},
			{Category: "SEO", Test: "Page Title", Status: schemas.StatusFail, Score: 2, Severity: schemas.SeverityHigh, Details: "Page has no <title>."},
			{Category: "Conversion", Test: "Call to Action", Status: schemas.StatusWarning, Score: 8, Severity: schemas.SeverityMedium, Details: "Found 1 CTA; 1 too small, 0 below the fold."},
		},
		Performance: schemas.PerformanceMetrics{LoadTime: 1834, LargestContentfulPaint: 1200, TotalTransferSize: 20480, RequestCount: 12},
		AccessibilityIssues: []schemas.AccessibilityIssue{
			{Type: "color-contrast", Severity: schemas.ImpactSerious, Element: "p.muted", Description: "Elements must meet minimum color contrast ratio thresholds", WCAGLevel: []string{"wcag2aa", "wcag143"}, Help: "Ensure sufficient contrast"},
			{Type: "color-contrast", Severity: schemas.ImpactSerious, Element: "span.tag", Description: "Elements must meet minimum color contrast ratio thresholds", WCAGLevel: []string{"wcag2aa"}, Help: "Ensure sufficient contrast"},
		},
		ResponsiveResults: []schemas.ResponsiveResult{
			{Device: "Mobile", ViewportWidth: 375, ViewportHeight: 667, Issues: []string{"Horizontal overflow: content is 412px wide in a 375px viewport"}},
			{Device: "Desktop", ViewportWidth: 1920, ViewportHeight: 1080, Issues: []string{}},
		},
		ProblemAreas: []schemas.ProblemArea{
			{Category: "Visual Design", Test: "Image Alt Text", Elements: []schemas.ElementIssue{{Selector: "img.hero", Description: "Image has no alt attribute"}}},
		},
		Recommendations: []string{"Critical: Page Title (SEO): Page has no <title>."},
		Summary: schemas.Summary{
			Total:    4,
			ByStatus: map[schemas.Status]int{schemas.StatusPass: 1, schemas.StatusFail: 2, schemas.StatusWarning: 1},
		},
	}
}

func TestNew_Formats(t *testing.T) {
	for _, format := range reporting.Formats {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), reporting.FileName(format))
			r, err := reporting.New(format, path, testToolVersion)
			require.NoError(t, err)
			require.NoError(t, r.Write(sampleReport()))
			require.NoError(t, r.Close())

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.NotZero(t, info.Size())
		})
	}
}

func TestNew_Failure_UnsupportedFormat(t *testing.T) {
	r, err := reporting.New("invalid-format", "stdout", testToolVersion)
	assert.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "unsupported output format: invalid-format")

	tmpFile := filepath.Join(t.TempDir(), "output.txt")
	r, err = reporting.New("invalid-format", tmpFile, testToolVersion)
	assert.Error(t, err)
	assert.Nil(t, r)

	info, err := os.Stat(tmpFile)
	require.NoError(t, err, "File should still exist after failure")
	assert.Equal(t, int64(0), info.Size())
}

func TestNew_Failure_FileCreation(t *testing.T) {
	r, err := reporting.New("json", t.TempDir(), testToolVersion)
	assert.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "failed to create output file")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "report.json", reporting.FileName("json"))
	assert.Equal(t, "report.html", reporting.FileName("html"))
	assert.Equal(t, "report.sarif", reporting.FileName("sarif"))
	assert.Equal(t, "report.junit.xml", reporting.FileName("junit"))
}

func TestWriteAllAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	report := sampleReport()

	paths, err := reporting.WriteAll(dir, []string{"json", "junit"}, report, testToolVersion)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "report.json"), filepath.Join(dir, "report.junit.xml")}, paths)

	loaded, err := reporting.Load(paths[0])
	require.NoError(t, err)
	assert.Equal(t, report.RunID, loaded.RunID)
	assert.Equal(t, report.OverallScore, loaded.OverallScore)
	assert.True(t, report.TestDate.Equal(loaded.TestDate))
	assert.Equal(t, report.Findings, loaded.Findings)
}

func TestWriteAllStopsAtUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	paths, err := reporting.WriteAll(dir, []string{"json", "pdf", "html"}, sampleReport(), testToolVersion)
	assert.Error(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "report.json")}, paths)
	_, statErr := os.Stat(filepath.Join(dir, "report.html"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadErrors(t *testing.T) {
	_, err := reporting.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read report")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = reporting.Load(bad)
	assert.ErrorContains(t, err, "failed to parse report")
}

func TestSingleReportReporters(t *testing.T) {
	w := newMockWriter()
	r := reporting.NewJSONReporter(w)

	assert.Error(t, r.Write(nil))
	require.NoError(t, r.Write(sampleReport()))
	assert.Error(t, r.Write(sampleReport()), "a second report is rejected")
	require.NoError(t, r.Close())
	assert.True(t, w.Closed)
}

func TestCloseWithoutReport(t *testing.T) {
	w := newMockWriter()
	err := reporting.NewJUnitReporter(w).Close()
	assert.ErrorContains(t, err, "no report")
	assert.True(t, w.Closed, "the writer is closed even when nothing was rendered")
}

func TestCloseErrors(t *testing.T) {
	w := newMockWriter()
	w.FailClose = true
	r := reporting.NewJSONReporter(w)
	require.NoError(t, r.Write(sampleReport()))
	assert.ErrorContains(t, r.Close(), "failed to close output writer")

	w = newMockWriter()
	w.FailWrite = true
	r = reporting.NewJSONReporter(w)
	require.NoError(t, r.Write(sampleReport()))
	assert.ErrorContains(t, r.Close(), "failed to encode JSON report")
	assert.True(t, w.Closed)
}
