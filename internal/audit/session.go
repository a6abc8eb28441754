// Package audit holds the state one audit run owns and the contract every
// probe implements.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/config"
	"github.com/xkilldash9x/uxprobe/internal/evidence"
)

// DegradedScore is the score given to a check that could not be evaluated.
const DegradedScore = 5.0

// Probe is one independently runnable check against the audited page.
type Probe interface {
	// Name is the config key that toggles the probe (tests.<name>).
	Name() string
	// Category is used for the degraded finding if Run fails.
	Category() string
	Run(ctx context.Context, s *Session) error
}

// Session is the state of a single audit run. Probes receive it by reference
// and append to it; the orchestrator turns it into a Report at the end.
type Session struct {
	URL      string
	Page     schemas.PageContext
	Browser  schemas.Browser
	Config   config.Interface
	Evidence *evidence.Recorder
	Engine   schemas.RuleEngine
	Logger   *zap.Logger

	now func() time.Time

	mu          sync.Mutex
	findings    []schemas.Finding
	performance schemas.PerformanceMetrics
	a11yIssues  []schemas.AccessibilityIssue
	responsive  []schemas.ResponsiveResult
}

// NewSession wires a session around an open page.
func NewSession(url string, page schemas.PageContext, browser schemas.Browser, cfg config.Interface, engine schemas.RuleEngine, logger *zap.Logger) *Session {
	return &Session{
		URL:      url,
		Page:     page,
		Browser:  browser,
		Config:   cfg,
		Engine:   engine,
		Evidence: evidence.NewRecorder(page, screenshotDir(cfg), logger),
		Logger:   logger,
		now:      time.Now,
	}
}

func screenshotDir(cfg config.Interface) string {
	if cfg == nil || !cfg.Output().Screenshots {
		return ""
	}
	return cfg.Output().ScreenshotDir
}

// SetClock overrides the timestamp source.
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
}

// Now returns the session clock's current time.
func (s *Session) Now() time.Time {
	return s.now()
}

// AddFinding appends f, clamping its score into [0,10] and stamping it if it
// carries no timestamp.
func (s *Session) AddFinding(f schemas.Finding) {
	f.Score = schemas.ClampScore(f.Score)
	if f.Timestamp.IsZero() {
		f.Timestamp = s.now()
	}
	f.Elements = append([]schemas.ElementIssue(nil), f.Elements...)
	f.Recommendations = append([]string(nil), f.Recommendations...)

	s.mu.Lock()
	s.findings = append(s.findings, f)
	s.mu.Unlock()

	s.Logger.Debug("Finding recorded.",
		zap.String("category", f.Category),
		zap.String("test", f.Test),
		zap.String("status", string(f.Status)),
		zap.Float64("score", f.Score),
	)
}

// AddDegraded records that test could not be evaluated.
func (s *Session) AddDegraded(category, test string, err error) {
	s.AddFinding(Degraded(category, test, err))
}

// Degraded builds the finding that stands in for a check that failed to run.
func Degraded(category, test string, err error) schemas.Finding {
	return schemas.Finding{
		Category: category,
		Test:     test,
		Status:   schemas.StatusWarning,
		Score:    DegradedScore,
		Severity: schemas.SeverityLow,
		Details:  fmt.Sprintf("%s could not be completed: %v", test, err),
		Recommendations: []string{
			"Re-run the audit; if the problem persists, check that the page loads without script errors.",
		},
	}
}

// Findings returns a copy of the findings in insertion order.
func (s *Session) Findings() []schemas.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schemas.Finding(nil), s.findings...)
}

// SetPerformance stores the page's performance snapshot.
func (s *Session) SetPerformance(m schemas.PerformanceMetrics) {
	s.mu.Lock()
	s.performance = m
	s.mu.Unlock()
}

func (s *Session) Performance() schemas.PerformanceMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.performance
}

// AddAccessibilityIssues appends engine violations.
func (s *Session) AddAccessibilityIssues(issues ...schemas.AccessibilityIssue) {
	s.mu.Lock()
	s.a11yIssues = append(s.a11yIssues, issues...)
	s.mu.Unlock()
}

func (s *Session) AccessibilityIssues() []schemas.AccessibilityIssue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schemas.AccessibilityIssue(nil), s.a11yIssues...)
}

// AddResponsiveResult appends the outcome for one device.
func (s *Session) AddResponsiveResult(r schemas.ResponsiveResult) {
	s.mu.Lock()
	s.responsive = append(s.responsive, r)
	s.mu.Unlock()
}

func (s *Session) ResponsiveResults() []schemas.ResponsiveResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schemas.ResponsiveResult(nil), s.responsive...)
}
