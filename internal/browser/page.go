// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uxprobe/api/schemas"
)

const (
	screenshotTimeout = 10 * time.Second
	closeTimeout      = 10 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Page is one chromedp target inside its own browser context.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc

	browserContextID cdp.BrowserContextID
	device           schemas.Device
	browser          *Browser
	opts             Options
	logger           *zap.Logger
	net              *networkTracker

	mu     sync.Mutex
	closed bool
}

var _ schemas.Page = (*Page)(nil)

func newPage(ctx context.Context, cancel context.CancelFunc, id cdp.BrowserContextID, device schemas.Device, b *Browser) *Page {
	logger := b.logger.With(zap.String("device", device.Name))
	p := &Page{
		ctx:              ctx,
		cancel:           cancel,
		browserContextID: id,
		device:           device,
		browser:          b,
		opts:             b.opts,
		logger:           logger,
		net:              newNetworkTracker(logger),
	}
	chromedp.ListenTarget(ctx, p.net.handle)
	return p
}

// setup attaches to the target, enables network events and applies the
// device metrics.
func (p *Page) setup(ctx context.Context) error {
	actions := chromedp.Tasks{
		network.Enable(),
		emulation.SetDeviceMetricsOverride(int64(p.device.Width), int64(p.device.Height), 1, p.device.IsMobile()),
	}
	if p.device.IsMobile() {
		actions = append(actions, emulation.SetTouchEmulationEnabled(true).WithMaxTouchPoints(5))
	}
	if p.opts.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(p.opts.UserAgent))
	}
	return p.run(ctx, actions)
}

// run executes actions on the page target bounded by ctx, then applies the
// configured slow-motion pause.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return sleepContext(ctx, p.opts.SlowMo)
}

// Navigate loads url and waits for the network to settle, all within the
// navigation timeout. A *NavigationError with Idle set means the document is
// loaded and usable.
func (p *Page) Navigate(ctx context.Context, url string) error {
	navCtx := ctx
	if p.opts.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, p.opts.NavigationTimeout)
		defer cancel()
	}

	p.logger.Debug("Navigating.", zap.String("url", url))
	if err := p.run(navCtx, chromedp.Navigate(url)); err != nil {
		return &NavigationError{URL: url, Err: err}
	}

	if err := p.net.WaitIdle(navCtx, p.opts.NetworkIdle); err != nil {
		if ctx.Err() != nil {
			return &NavigationError{URL: url, Err: ctx.Err()}
		}
		return &NavigationError{URL: url, Idle: true, Err: err}
	}
	p.logger.Debug("Navigation settled.", zap.Int("requests", p.net.Total()))
	return nil
}

func awaitPromise(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
	return ep.WithAwaitPromise(true)
}

// Evaluate runs script and decodes its awaited result into res.
func (p *Page) Evaluate(ctx context.Context, script string, res interface{}) error {
	return p.run(ctx, chromedp.Evaluate(script, res, awaitPromise))
}

const locateScript = `(() => {
  const el = document.querySelector(%s);
  if (!el) return {found: false};
  const r = el.getBoundingClientRect();
  return {found: true, x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height};
})()`

type locateResult struct {
	Found bool `json:"found"`
	schemas.BoundingBox
}

// Locate returns the bounding box of the first element matching selector, or
// nil when nothing matches.
func (p *Page) Locate(ctx context.Context, selector string) (*schemas.BoundingBox, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return nil, err
	}
	var res locateResult
	if err := p.Evaluate(ctx, fmt.Sprintf(locateScript, quoted), &res); err != nil {
		return nil, fmt.Errorf("failed to locate %q: %w", selector, err)
	}
	if !res.Found {
		return nil, nil
	}
	box := res.BoundingBox
	return &box, nil
}

// Screenshot captures the element matched by selector, or the full page when
// selector is empty, as a PNG at path.
func (p *Page) Screenshot(ctx context.Context, selector, path string) error {
	shotCtx, cancel := context.WithTimeout(ctx, screenshotTimeout)
	defer cancel()

	var buf []byte
	var action chromedp.Action
	if selector == "" {
		action = chromedp.FullScreenshot(&buf, 100)
	} else {
		action = chromedp.Screenshot(selector, &buf, chromedp.ByQuery)
	}
	if err := p.run(shotCtx, action); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	return os.WriteFile(path, buf, 0o644)
}

// PressKey sends a single key press to the focused element.
func (p *Page) PressKey(ctx context.Context, key string) error {
	switch key {
	case schemas.KeyTab:
		key = kb.Tab
	case schemas.KeyEnter:
		key = kb.Enter
	}
	return p.run(ctx, chromedp.KeyEvent(key))
}

// Close tears down the target and its browser context. It is safe to call
// more than once.
func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.browser.disposeBrowserContext(p.browserContextID)
	p.browser.forget(p)

	select {
	case <-p.ctx.Done():
	case <-ctx.Done():
		p.logger.Warn("Context cancelled while waiting for page close.", zap.Error(ctx.Err()))
	case <-time.After(closeTimeout):
		p.logger.Warn("Timeout waiting for page to close.")
	}
	return nil
}
