// Package a11y loads a script-based accessibility rule engine into a page and
// translates its violations into AccessibilityIssues.
package a11y

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/config"
	"github.com/xkilldash9x/uxprobe/internal/network"
)

// ErrEngineUnavailable is returned when the engine script could be loaded
// from neither the local asset nor the remote fallback.
var ErrEngineUnavailable = errors.New("accessibility engine unavailable")

const (
	defaultLoadTimeout = 15 * time.Second
	maxScriptSize      = 8 << 20
)

// The engine must install itself as window.axe with a promise-returning run().
const (
	presenceScript = `typeof window.axe !== "undefined" && typeof window.axe.run === "function"`
	runScript      = `window.axe.run(document, {resultTypes: ["violations"]}).then(r => ({
  violations: r.violations.map(v => ({
    id: v.id,
    impact: v.impact || "minor",
    description: v.description,
    help: v.help,
    tags: v.tags,
    nodes: v.nodes.map(n => ({target: n.target}))
  }))
}))`
)

// ScriptEngine is a schemas.RuleEngine backed by an in-page script. The
// source is read once and reused for every page.
type ScriptEngine struct {
	path    string
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger

	once   sync.Once
	source string
	err    error
}

var _ schemas.RuleEngine = (*ScriptEngine)(nil)

// NewScriptEngine builds an engine from the accessibility configuration.
func NewScriptEngine(cfg config.AccessibilityConfig, logger *zap.Logger) *ScriptEngine {
	timeout := cfg.LoadTimeout
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	return &ScriptEngine{
		path:    cfg.EnginePath,
		url:     cfg.EngineURL,
		timeout: timeout,
		client:  newClient(timeout, logger),
		logger:  logger.Named("a11y"),
	}
}

func newClient(timeout time.Duration, logger *zap.Logger) *http.Client {
	cfg := network.NewDefaultClientConfig()
	cfg.RequestTimeout = timeout
	cfg.Logger = logger
	return network.NewClient(cfg)
}

// Source returns the engine script, loading it on first use: the local asset
// first, then the remote URL.
func (e *ScriptEngine) Source(ctx context.Context) (string, error) {
	e.once.Do(func() {
		e.source, e.err = e.load(ctx)
	})
	return e.source, e.err
}

func (e *ScriptEngine) load(ctx context.Context) (string, error) {
	var errs []error

	if e.path != "" {
		data, err := os.ReadFile(e.path)
		if err == nil && len(strings.TrimSpace(string(data))) > 0 {
			e.logger.Debug("Loaded accessibility engine from local asset.", zap.String("path", e.path))
			return string(data), nil
		}
		if err == nil {
			err = fmt.Errorf("%s is empty", e.path)
		}
		e.logger.Debug("Local accessibility engine not usable, trying remote.", zap.Error(err))
		errs = append(errs, err)
	}

	if e.url != "" {
		src, err := e.fetch(ctx)
		if err == nil {
			e.logger.Info("Loaded accessibility engine from remote URL.", zap.String("url", e.url))
			return src, nil
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no engine path or URL configured"))
	}
	return "", fmt.Errorf("%w: %w", ErrEngineUnavailable, errors.Join(errs...))
}

func (e *ScriptEngine) fetch(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", e.url, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", e.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s returned status %d", e.url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptSize))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", e.url, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", fmt.Errorf("%s returned an empty script", e.url)
	}
	return string(body), nil
}

// Run injects the engine into page unless it is already present, then runs it.
func (e *ScriptEngine) Run(ctx context.Context, page schemas.PageContext) (*schemas.AuditResults, error) {
	var present bool
	if err := page.Evaluate(ctx, presenceScript, &present); err != nil {
		return nil, fmt.Errorf("failed to probe for accessibility engine: %w", err)
	}

	if !present {
		src, err := e.Source(ctx)
		if err != nil {
			return nil, err
		}
		// Wrapping keeps a trailing expression in the bundle from becoming the result.
		if err := page.Evaluate(ctx, "(() => {\n"+src+"\n;return true;})()", nil); err != nil {
			return nil, fmt.Errorf("failed to inject accessibility engine: %w", err)
		}
	}

	var results schemas.AuditResults
	if err := page.Evaluate(ctx, runScript, &results); err != nil {
		return nil, fmt.Errorf("accessibility engine run failed: %w", err)
	}
	return &results, nil
}

// Issues flattens violations into one AccessibilityIssue per offending node.
func Issues(results *schemas.AuditResults) []schemas.AccessibilityIssue {
	if results == nil {
		return nil
	}
	var issues []schemas.AccessibilityIssue
	for _, v := range results.Violations {
		impact := v.Impact
		if impact == "" {
			impact = schemas.ImpactMinor
		}
		levels := wcagTags(v.Tags)
		for _, n := range v.Nodes {
			issues = append(issues, schemas.AccessibilityIssue{
				Type:        v.ID,
				Severity:    impact,
				Element:     n.Selector(),
				Description: v.Description,
				WCAGLevel:   levels,
				Help:        v.Help,
			})
		}
	}
	return issues
}

func wcagTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if strings.HasPrefix(t, "wcag") || strings.HasPrefix(t, "best-practice") || strings.HasPrefix(t, "section508") {
			out = append(out, t)
		}
	}
	return out
}
