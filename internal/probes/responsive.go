package probes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
	"github.com/xkilldash9x/uxprobe/internal/browser"
	"github.com/xkilldash9x/uxprobe/internal/evidence"
)

const (
	minReadableFontPx = 12
	minTouchTargetPx  = 44
	pageCloseTimeout  = 10 * time.Second
)

var responsiveScript = script(fmt.Sprintf(`
const doc = document.documentElement;
let smallFonts = 0;
document.querySelectorAll("body *").forEach(el => {
  const own = Array.from(el.childNodes).some(n => n.nodeType === 3 && n.textContent.trim());
  if (own && isVisible(el) && parseFloat(getComputedStyle(el).fontSize) < %d) smallFonts++;
});
const smallTargets = Array.from(document.querySelectorAll(
  "a[href], button, input:not([type=hidden]), select, textarea, [role=button], [onclick]"
)).filter(isVisible).filter(el => {
  const r = el.getBoundingClientRect();
  return r.width < %d || r.height < %d;
}).length;
return {
  viewportWidth: window.innerWidth,
  scrollWidth: Math.max(doc.scrollWidth, document.body ? document.body.scrollWidth : 0),
  smallFonts: smallFonts,
  smallTargets: smallTargets
};`, minReadableFontPx, minTouchTargetPx, minTouchTargetPx))

type layoutMetrics struct {
	ViewportWidth int `json:"viewportWidth"`
	ScrollWidth   int `json:"scrollWidth"`
	SmallFonts    int `json:"smallFonts"`
	SmallTargets  int `json:"smallTargets"`
}

type deviceOutcome struct {
	result  schemas.ResponsiveResult
	finding schemas.Finding
}

// Responsive renders the page in a fresh, isolated context per configured
// device and checks the layout at that viewport.
type Responsive struct{ base }

func NewResponsive() *Responsive {
	return &Responsive{base{name: "responsive", category: CategoryResponsive}}
}

func (r *Responsive) Run(ctx context.Context, s *audit.Session) error {
	if s.Browser == nil {
		return errors.New("no browser available to open device contexts")
	}
	devices := s.Config.Devices()
	if len(devices) == 0 {
		s.Logger.Info("No devices configured, skipping responsive checks.")
		return nil
	}

	limit := s.Config.Responsive().Concurrency
	if limit < 1 {
		limit = 1
	}

	outcomes := make([]deviceOutcome, len(devices))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, d := range devices {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					outcomes[i] = failedDevice(d, fmt.Errorf("panic: %v", p))
				}
			}()
			outcomes[i] = r.evaluateDevice(ctx, s, d)
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outcomes {
		s.AddResponsiveResult(out.result)
		s.AddFinding(out.finding)
	}
	return nil
}

func deviceTest(d schemas.Device) string {
	return "Responsive: " + d.Name
}

func failedDevice(d schemas.Device, err error) deviceOutcome {
	return deviceOutcome{
		result: schemas.ResponsiveResult{
			Device:         d.Name,
			ViewportWidth:  d.Width,
			ViewportHeight: d.Height,
			Issues:         []string{err.Error()},
		},
		finding: audit.Degraded(CategoryResponsive, deviceTest(d), err),
	}
}

func (r *Responsive) evaluateDevice(ctx context.Context, s *audit.Session, d schemas.Device) deviceOutcome {
	logger := s.Logger.With(zap.String("device", d.Name))
	m, shot, err := r.measure(ctx, s, d, logger)
	if err != nil {
		logger.Warn("Responsive check failed for device.", zap.Error(err))
		return failedDevice(d, err)
	}

	issues, score := gradeLayout(d, m)
	result := schemas.ResponsiveResult{
		Device:         d.Name,
		ViewportWidth:  d.Width,
		ViewportHeight: d.Height,
		Issues:         issues,
		Screenshot:     shot,
	}

	var status schemas.Status
	switch {
	case len(issues) == 0:
		status = schemas.StatusPass
	case score >= 6:
		status = schemas.StatusWarning
	default:
		status = schemas.StatusFail
	}
	details := fmt.Sprintf("No layout problems at %dx%d.", d.Width, d.Height)
	var recs []string
	if len(issues) > 0 {
		details = fmt.Sprintf("%s at %dx%d.", plural(len(issues), "layout problem", "layout problems"), d.Width, d.Height)
		recs = []string{fmt.Sprintf("Fix the %s layout: %s.", d.Name, issues[0])}
	}
	return deviceOutcome{
		result:  result,
		finding: finding(CategoryResponsive, deviceTest(d), status, score, details, recs...),
	}
}

// measure opens an isolated page for d. The page is closed on every path.
func (r *Responsive) measure(ctx context.Context, s *audit.Session, d schemas.Device, logger *zap.Logger) (layoutMetrics, string, error) {
	var m layoutMetrics
	page, err := s.Browser.NewPage(ctx, d)
	if err != nil {
		return m, "", fmt.Errorf("failed to open %s context: %w", d.Name, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pageCloseTimeout)
		defer cancel()
		if err := page.Close(closeCtx); err != nil {
			logger.Debug("Failed to close device page.", zap.Error(err))
		}
	}()

	if err := page.Navigate(ctx, s.URL); err != nil {
		var navErr *browser.NavigationError
		if !errors.As(err, &navErr) || !navErr.Idle {
			return m, "", err
		}
		logger.Debug("Device page loaded without network idle.", zap.Error(err))
	}

	if err := page.Evaluate(ctx, responsiveScript, &m); err != nil {
		return m, "", fmt.Errorf("failed to measure layout: %w", err)
	}

	var shot string
	if dir := screenshotDir(s); dir != "" {
		path := filepath.Join(dir, fmt.Sprintf("responsive_%s.png", evidence.Slug(d.Name)))
		if err := page.Screenshot(ctx, "", path); err != nil {
			logger.Debug("Device screenshot failed.", zap.Error(err))
		} else {
			shot = path
		}
	}
	return m, shot, nil
}

// gradeLayout lists the layout problems found at d and scores them. Touch
// targets only count on mobile viewports.
func gradeLayout(d schemas.Device, m layoutMetrics) ([]string, float64) {
	issues := []string{}
	score := 10.0

	viewport := m.ViewportWidth
	if viewport <= 0 {
		viewport = d.Width
	}
	if m.ScrollWidth > viewport {
		score -= 4
		issues = append(issues, fmt.Sprintf("horizontal overflow (%dpx content in a %dpx viewport)", m.ScrollWidth, viewport))
	}
	if m.SmallFonts > 0 {
		score -= math.Min(3, math.Ceil(float64(m.SmallFonts)/10))
		issues = append(issues, fmt.Sprintf("%s with text below %dpx", plural(m.SmallFonts, "element", "elements"), minReadableFontPx))
	}
	if d.IsMobile() && m.SmallTargets > 0 {
		score -= math.Min(3, math.Ceil(float64(m.SmallTargets)/5))
		issues = append(issues, fmt.Sprintf("%s smaller than %dx%dpx", plural(m.SmallTargets, "touch target", "touch targets"), minTouchTargetPx, minTouchTargetPx))
	}
	return issues, score
}

func screenshotDir(s *audit.Session) string {
	if s.Config == nil || !s.Config.Output().Screenshots {
		return ""
	}
	return s.Config.Output().ScreenshotDir
}
