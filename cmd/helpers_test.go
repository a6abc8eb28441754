package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/config"
	"github.com/xkilldash9x/uxprobe/internal/mocks"
	"github.com/xkilldash9x/uxprobe/internal/observability"
	"github.com/xkilldash9x/uxprobe/internal/reporting"
)

// quietLogger pins the global logger to a discarded sink before a command
// gets the chance to initialize it.
func quietLogger(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	observability.Initialize(config.LoggerConfig{Level: "error", Format: "console"}, zapcore.AddSync(io.Discard))
	t.Cleanup(observability.ResetForTest)
}

// fakeBrowser wires a mock launcher to scripted pages. The main page and
// every configured device get a page of their own.
type fakeBrowser struct {
	launcher *mocks.MockLauncher
	browser  *mocks.MockBrowser
	page     *mocks.FakePage
	devices  map[string]*mocks.FakePage
}

func newFakeBrowser() *fakeBrowser {
	fb := &fakeBrowser{
		launcher: new(mocks.MockLauncher),
		browser:  new(mocks.MockBrowser),
		page:     mocks.NewFakePage(),
		devices:  make(map[string]*mocks.FakePage, len(config.DefaultDevices)),
	}
	fb.launcher.On("Launch", mock.Anything).Return(fb.browser, nil)
	fb.browser.On("NewPage", mock.Anything, deviceNamed("Main")).Return(fb.page, nil)
	for _, d := range config.DefaultDevices {
		page := mocks.NewFakePage()
		fb.devices[d.Name] = page
		fb.browser.On("NewPage", mock.Anything, deviceNamed(d.Name)).Return(page, nil)
	}
	fb.browser.On("Close", mock.Anything).Return(nil)
	return fb
}

func deviceNamed(name string) interface{} {
	return mock.MatchedBy(func(d schemas.Device) bool { return d.Name == name })
}

func (fb *fakeBrowser) factory() launcherFactory {
	return func(config.Interface, *zap.Logger) schemas.Launcher { return fb.launcher }
}

// executeCommand runs a fresh command tree and returns what it wrote to stdout.
func executeCommand(t *testing.T, newLauncher launcherFactory, args ...string) (string, error) {
	t.Helper()
	if newLauncher == nil {
		newLauncher = func(config.Interface, *zap.Logger) schemas.Launcher {
			t.Fatal("unexpected browser launch")
			return nil
		}
	}
	root := newRootCommand(newLauncher)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig writes a YAML config file into dir and returns its path.
func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "uxprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// savedReport writes report as JSON into dir and returns the file path.
func savedReport(t *testing.T, dir string, report *schemas.Report) string {
	t.Helper()
	written, err := reporting.WriteAll(dir, []string{reporting.FormatJSON}, report, "test")
	require.NoError(t, err)
	require.Len(t, written, 1)
	return written[0]
}

func sampleReport() *schemas.Report {
	return &schemas.Report{
		RunID:        "run-1",
		URL:          "https://example.com/pricing",
		OverallScore: 64,
		Findings: []schemas.Finding{
			{Category: "SEO", Test: "Page Title", Status: schemas.StatusFail, Severity: schemas.SeverityHigh, Score: 2, Details: "Page has no <title>."},
			{Category: "Visual Design", Test: "Image Alt Text", Status: schemas.StatusPass, Severity: schemas.SeverityLow, Score: 10},
		},
		Performance: schemas.PerformanceMetrics{LoadTime: 1200, LargestContentfulPaint: 900},
		AccessibilityIssues: []schemas.AccessibilityIssue{
			{Type: "color-contrast", Severity: schemas.ImpactSerious},
		},
		Summary: schemas.Summary{Total: 2},
	}
}
