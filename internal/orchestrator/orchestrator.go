// Package orchestrator owns the browser for one audit run: it launches it,
// runs every enabled probe against the target page, and always releases it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
	"github.com/xkilldash9x/uxprobe/internal/browser"
	"github.com/xkilldash9x/uxprobe/internal/config"
	"github.com/xkilldash9x/uxprobe/internal/probes"
	"github.com/xkilldash9x/uxprobe/internal/results"
)

const (
	navigationCategory = "Navigation"
	navigationTest     = "Page Load"
	cleanupTimeout     = 15 * time.Second
)

// BrowserLaunchError is fatal: without a browser there is nothing to audit.
type BrowserLaunchError struct {
	Err error
}

func (e *BrowserLaunchError) Error() string {
	return fmt.Sprintf("failed to launch browser: %v", e.Err)
}

func (e *BrowserLaunchError) Unwrap() error {
	return e.Err
}

// Orchestrator runs a single audit session.
type Orchestrator struct {
	cfg      config.Interface
	logger   *zap.Logger
	launcher schemas.Launcher
	engine   schemas.RuleEngine
	probes   []audit.Probe

	mu      sync.Mutex
	browser schemas.Browser
	page    schemas.Page
	session *audit.Session
	cleaned bool
}

// New creates an orchestrator. engine may be nil, in which case the
// accessibility probe reports that automated rules were skipped. A nil probe
// list selects the full built-in sequence.
func New(cfg config.Interface, logger *zap.Logger, launcher schemas.Launcher, engine schemas.RuleEngine, probeList []audit.Probe) (*Orchestrator, error) {
	if cfg == nil || logger == nil || launcher == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	if probeList == nil {
		probeList = probes.All()
	}
	return &Orchestrator{
		cfg:      cfg,
		logger:   logger.Named("orchestrator"),
		launcher: launcher,
		engine:   engine,
		probes:   probeList,
	}, nil
}

// Session returns the current session, or nil before Initialize.
func (o *Orchestrator) Session() *audit.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Initialize launches the browser and opens the main page at the configured
// desktop viewport.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.logger.Info("Launching browser.", zap.Bool("headless", o.cfg.Browser().Headless))
	b, err := o.launcher.Launch(ctx)
	if err != nil {
		return &BrowserLaunchError{Err: err}
	}

	vp := o.cfg.Browser().Viewport
	device := schemas.Device{Name: "Main", Width: vp.Width, Height: vp.Height}
	page, err := b.NewPage(ctx, device)
	if err != nil {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if cerr := b.Close(closeCtx); cerr != nil {
			o.logger.Warn("Failed to close browser after page creation failure.", zap.Error(cerr))
		}
		return &BrowserLaunchError{Err: fmt.Errorf("could not open main page: %w", err)}
	}

	url := o.cfg.Audit().URL
	o.mu.Lock()
	o.browser = b
	o.page = page
	o.session = audit.NewSession(url, page, b, o.cfg, o.engine, o.logger)
	o.mu.Unlock()
	return nil
}

// RunAllTests navigates to the target and runs the enabled probes in order.
// Probe failures become degraded findings; only cancellation is returned.
func (o *Orchestrator) RunAllTests(ctx context.Context) error {
	s := o.Session()
	if s == nil {
		return errors.New("orchestrator is not initialized")
	}

	o.logger.Info("Navigating to target.", zap.String("url", s.URL))
	if err := o.page.Navigate(ctx, s.URL); err != nil {
		var navErr *browser.NavigationError
		if errors.As(err, &navErr) && navErr.Idle {
			o.logger.Warn("Network did not settle, auditing the page as loaded.", zap.Error(err))
			s.AddDegraded(navigationCategory, navigationTest, err)
		} else {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			o.logger.Error("Navigation failed, skipping probes.", zap.Error(err))
			s.AddDegraded(navigationCategory, navigationTest, err)
			return nil
		}
	}

	for _, p := range o.probes {
		if err := ctx.Err(); err != nil {
			o.logger.Warn("Audit interrupted.", zap.Error(err))
			return err
		}
		if !o.cfg.Tests().Enabled(p.Name()) {
			o.logger.Info("Probe disabled by configuration.", zap.String("probe", p.Name()))
			continue
		}
		o.runProbe(ctx, s, p)
	}
	return nil
}

// runProbe runs p and converts an error or panic into exactly one degraded
// finding.
func (o *Orchestrator) runProbe(ctx context.Context, s *audit.Session, p audit.Probe) {
	title := probeTitle(p.Name())
	logger := o.logger.With(zap.String("probe", p.Name()))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Probe panicked.", zap.Any("panic", r), zap.Stack("stack"))
			s.AddDegraded(p.Category(), title, fmt.Errorf("panic: %v", r))
		}
	}()

	logger.Debug("Running probe.")
	if err := p.Run(ctx, s); err != nil {
		logger.Warn("Probe failed, recording degraded result.", zap.Error(err))
		s.AddDegraded(p.Category(), title, err)
		return
	}
	logger.Debug("Probe finished.", zap.Duration("duration", time.Since(start)))
}

var acronyms = map[string]string{"cta": "CTA", "seo": "SEO"}

// probeTitle turns a probe key such as "keyboard_navigation" into
// "Keyboard Navigation".
func probeTitle(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if a, ok := acronyms[w]; ok {
			words[i] = a
			continue
		}
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Cleanup closes the page and the browser. It is safe to call more than once
// and still runs when ctx is already cancelled.
func (o *Orchestrator) Cleanup(ctx context.Context) error {
	o.mu.Lock()
	if o.cleaned {
		o.mu.Unlock()
		return nil
	}
	o.cleaned = true
	page, b := o.page, o.browser
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	var errs []error
	if page != nil {
		if err := page.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page: %w", err))
		}
	}
	if b != nil {
		if err := b.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	o.logger.Debug("Browser session released.")
	return errors.Join(errs...)
}

// Run performs a full audit and returns its Report. The browser is released
// on every path.
func (o *Orchestrator) Run(ctx context.Context) (report *schemas.Report, err error) {
	defer func() {
		if cerr := o.Cleanup(ctx); cerr != nil {
			o.logger.Warn("Cleanup reported errors.", zap.Error(cerr))
		}
	}()

	if err := o.Initialize(ctx); err != nil {
		return nil, err
	}
	if err := o.RunAllTests(ctx); err != nil {
		return nil, err
	}

	report = results.BuildReport(o.Session())
	o.logger.Info("Audit complete.",
		zap.Int("overall_score", report.OverallScore),
		zap.Int("findings", len(report.Findings)),
	)
	return report, nil
}
