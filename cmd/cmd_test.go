package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/uxprobe/internal/config"
	"github.com/xkilldash9x/uxprobe/internal/reporting"
)

func TestVersion(t *testing.T) {
	quietLogger(t)

	out, err := executeCommand(t, nil, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)

	out, err = executeCommand(t, nil, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "uxprobe "+Version+" ("), out)
}

func TestAudit(t *testing.T) {
	quietLogger(t)
	dir := t.TempDir()
	engine := filepath.Join(dir, "axe.min.js")
	require.NoError(t, os.WriteFile(engine, []byte("window.axe = {};"), 0o644))
	cfgPath := writeConfig(t, dir, fmt.Sprintf(`
output:
  dir: %q
  screenshot_dir: %q
  screenshots: false
thresholds:
  min_overall_score: 99
`, dir, filepath.Join(dir, "shots")))

	t.Run("writes reports", func(t *testing.T) {
		fb := newFakeBrowser()
		out, err := executeCommand(t, fb.factory(),
			"--config", cfgPath, "audit", "https://example.com",
			"--format", "json,junit", "--engine-path", engine)
		require.NoError(t, err)

		assert.Contains(t, out, "Audit of https://example.com")
		assert.Contains(t, out, "Overall score:")
		assert.Contains(t, out, "Report written: "+filepath.Join(dir, "report.json"))
		assert.Contains(t, out, "Report written: "+filepath.Join(dir, "report.junit.xml"))
		assert.NotContains(t, out, "Quality gate")

		report, err := reporting.Load(filepath.Join(dir, "report.json"))
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", report.URL)
		assert.NotEmpty(t, report.Findings)
		assert.Equal(t, []string{"https://example.com"}, fb.page.Navigated)
		require.Len(t, fb.devices, len(config.DefaultDevices))
		for name, page := range fb.devices {
			assert.Equal(t, []string{"https://example.com"}, page.Navigated, name)
			assert.Equal(t, 1, page.Closed, name)
		}
		fb.browser.AssertNumberOfCalls(t, "NewPage", 1+len(config.DefaultDevices))
		fb.browser.AssertNumberOfCalls(t, "Close", 1)
	})

	t.Run("fails the gate with exit status 2", func(t *testing.T) {
		fb := newFakeBrowser()
		// Probes degrade against an unscripted page, well below 99.
		out, err := executeCommand(t, fb.factory(),
			"--config", cfgPath, "audit", "https://example.com",
			"--format", "json", "--engine-path", engine, "--fail-on-threshold")
		require.Error(t, err)

		var exitErr *ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, 2, exitErr.Code)
		assert.Contains(t, out, "Quality gate: FAILED")
	})
}

func TestAuditRequiresURL(t *testing.T) {
	quietLogger(t)
	cfgPath := writeConfig(t, t.TempDir(), "{}\n")

	_, err := executeCommand(t, nil, "--config", cfgPath, "audit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit.url is required")
}

func TestAuditRejectsBadTarget(t *testing.T) {
	quietLogger(t)

	_, err := executeCommand(t, nil, "--config", writeConfig(t, t.TempDir(), "{}\n"), "audit", "ftp://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http, https or file")
}

func TestInvalidConfig(t *testing.T) {
	quietLogger(t)
	cfgPath := writeConfig(t, t.TempDir(), "output:\n  formats: [pdf]\n")

	_, err := executeCommand(t, nil, "--config", cfgPath, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format: pdf")
}

func TestReport(t *testing.T) {
	quietLogger(t)
	dir := t.TempDir()
	src := savedReport(t, filepath.Join(dir, "in"), sampleReport())
	outDir := filepath.Join(dir, "out")

	out, err := executeCommand(t, nil, "--config", writeConfig(t, dir, "{}\n"),
		"report", src, "--format", "html,sarif", "--output-dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Report written: "+filepath.Join(outDir, "report.html"))
	assert.FileExists(t, filepath.Join(outDir, "report.html"))
	assert.FileExists(t, filepath.Join(outDir, "report.sarif"))

	_, err = executeCommand(t, nil, "--config", writeConfig(t, dir, "{}\n"), "report", filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read report")

	_, err = executeCommand(t, nil, "--config", writeConfig(t, dir, "{}\n"), "report", src, "--stdout", "--format", "json,html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one --format")
}

func TestGate(t *testing.T) {
	quietLogger(t)
	dir := t.TempDir()
	src := savedReport(t, dir, sampleReport())
	cfgPath := writeConfig(t, dir, "{}\n")

	out, err := executeCommand(t, nil, "--config", cfgPath, "gate", src, "--min-score", "60")
	require.NoError(t, err)
	assert.Contains(t, out, "Quality gate: PASSED")

	out, err = executeCommand(t, nil, "--config", cfgPath, "gate", src, "--min-score", "90")
	require.Error(t, err)
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, out, "Quality gate: FAILED")
	assert.Contains(t, out, "overall score 64 is below 90")
}

func TestIssues(t *testing.T) {
	quietLogger(t)
	dir := t.TempDir()
	src := savedReport(t, dir, sampleReport())
	cfgPath := writeConfig(t, dir, "{}\n")

	out, err := executeCommand(t, nil, "--config", cfgPath, "issues", src, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "1 issue(s) would be filed:")
	assert.Contains(t, out, "[uxprobe] SEO: Page Title on example.com")

	_, err = executeCommand(t, nil, "--config", cfgPath, "issues", src)
	require.Error(t, err, "filing without owner and repo must fail")
}

func TestConfigInitAndShow(t *testing.T) {
	quietLogger(t)
	t.Setenv("UXPROBE_GITHUB_TOKEN", "ghp_secret")
	dir := t.TempDir()
	path := filepath.Join(dir, "uxprobe.yaml")

	out, err := executeCommand(t, nil, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default configuration to "+path)

	_, err = executeCommand(t, nil, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = executeCommand(t, nil, "config", "init", path, "--force")
	require.NoError(t, err)

	out, err = executeCommand(t, nil, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "ghp_secret")

	var shown map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &shown))
	assert.Contains(t, shown, "audit")
	assert.Contains(t, shown, "thresholds")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	quietLogger(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "thresholds:\n  min_overall_score: 50\n")
	t.Setenv("UXPROBE_THRESHOLDS_MIN_OVERALL_SCORE", "80")

	out, err := executeCommand(t, nil, "--config", cfgPath, "gate", savedReport(t, dir, sampleReport()))
	require.Error(t, err)
	assert.Contains(t, out, "overall score 64 is below 80")
}
