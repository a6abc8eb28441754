// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/config"
)

const (
	launchTimeout  = 30 * time.Second
	disposeTimeout = 10 * time.Second
)

// Options tunes how the browser is launched and how its pages behave.
type Options struct {
	Headless        bool
	IgnoreTLSErrors bool
	ExecPath        string
	UserAgent       string
	Args            []string

	NavigationTimeout time.Duration
	NetworkIdle       time.Duration
	// SlowMo is slept after every page action.
	SlowMo time.Duration
}

// OptionsFromConfig maps the application configuration onto browser options.
func OptionsFromConfig(cfg config.Interface) Options {
	b := cfg.Browser()
	a := cfg.Audit()
	return Options{
		Headless:          b.Headless,
		IgnoreTLSErrors:   b.IgnoreTLSErrors,
		ExecPath:          b.ExecPath,
		UserAgent:         b.UserAgent,
		Args:              b.Args,
		NavigationTimeout: a.NavigationTimeout,
		NetworkIdle:       a.NetworkIdle,
		SlowMo:            a.SlowMo,
	}
}

// chromeFlag is one command line switch passed to Chrome.
type chromeFlag struct {
	name  string
	value interface{}
}

// chromeFlags lists the switches layered over chromedp's defaults.
func chromeFlags(o Options) []chromeFlag {
	flags := []chromeFlag{
		{"headless", o.Headless},
		{"hide-scrollbars", o.Headless},
		{"mute-audio", true},
		{"disable-extensions", true},
		{"disable-gpu", o.Headless},
	}
	if o.IgnoreTLSErrors {
		flags = append(flags,
			chromeFlag{"ignore-certificate-errors", true},
			chromeFlag{"allow-insecure-localhost", true},
		)
	}

	for _, arg := range o.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags = append(flags, chromeFlag{name, parts[1]})
		} else {
			flags = append(flags, chromeFlag{name, true})
		}
	}

	// Containers rarely provide a usable sandbox or a large /dev/shm.
	if runtime.GOOS == "linux" {
		flags = append(flags,
			chromeFlag{"no-sandbox", true},
			chromeFlag{"disable-dev-shm-usage", true},
			chromeFlag{"disable-setuid-sandbox", true},
		)
	}
	return flags
}

// AllocatorOptions assembles the Chrome command line.
func AllocatorOptions(o Options) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range chromeFlags(o) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	if o.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(o.UserAgent))
	}
	return opts
}

// Launcher starts local Chrome processes through chromedp.
type Launcher struct {
	opts   Options
	logger *zap.Logger
}

var _ schemas.Launcher = (*Launcher)(nil)

func NewLauncher(opts Options, logger *zap.Logger) *Launcher {
	return &Launcher{opts: opts, logger: logger.Named("browser")}
}

// Launch starts the browser process and confirms it responds. The process
// lives until Close is called or ctx is canceled.
func (l *Launcher) Launch(ctx context.Context) (schemas.Browser, error) {
	l.logger.Info("Launching browser.", zap.Bool("headless", l.opts.Headless))

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, AllocatorOptions(l.opts)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(l.logger.Sugar().Debugf),
	)

	// The first Run allocates the browser; it must not carry a deadline.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	liveCtx, liveCancel := context.WithTimeout(browserCtx, launchTimeout)
	defer liveCancel()
	if err := chromedp.Run(liveCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed to respond: %w", err)
	}

	l.logger.Info("Browser launched and responsive.")
	return &Browser{
		opts:          l.opts,
		logger:        l.logger,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		pages:         make(map[*Page]struct{}),
	}, nil
}

// Browser is a running Chrome process. Every page it opens lives in its own
// browser context.
type Browser struct {
	opts   Options
	logger *zap.Logger

	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	mu     sync.Mutex
	closed bool
	pages  map[*Page]struct{}
}

var _ schemas.Browser = (*Browser)(nil)

// executorContext returns a context whose CDP commands go to the browser
// endpoint rather than a page target.
func (b *Browser) executorContext() context.Context {
	c := chromedp.FromContext(b.browserCtx)
	return cdp.WithExecutor(b.browserCtx, c.Browser)
}

// NewPage creates an isolated browser context with one target emulating device.
func (b *Browser) NewPage(ctx context.Context, device schemas.Device) (schemas.Page, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("browser is closed")
	}
	b.mu.Unlock()

	opCtx, cancel := CombineContext(b.executorContext(), ctx)
	defer cancel()

	browserContextID, err := target.CreateBrowserContext().Do(opCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	targetID, err := target.CreateTarget("about:blank").
		WithBrowserContextID(browserContextID).
		Do(opCtx)
	if err != nil {
		b.disposeBrowserContext(browserContextID)
		return nil, fmt.Errorf("failed to create target: %w", err)
	}

	pageCtx, pageCancel := chromedp.NewContext(b.browserCtx, chromedp.WithTargetID(targetID))
	p := newPage(pageCtx, pageCancel, browserContextID, device, b)

	if err := p.setup(ctx); err != nil {
		_ = p.Close(ctx)
		return nil, fmt.Errorf("failed to prepare page for %s: %w", device.Name, err)
	}

	b.mu.Lock()
	b.pages[p] = struct{}{}
	b.mu.Unlock()
	return p, nil
}

// disposeBrowserContext removes a browser context and every target in it.
func (b *Browser) disposeBrowserContext(id cdp.BrowserContextID) {
	if b.browserCtx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(b.executorContext(), disposeTimeout)
	defer cancel()
	if err := target.DisposeBrowserContext(id).Do(ctx); err != nil {
		b.logger.Warn("Failed to dispose of browser context. It may be orphaned.",
			zap.String("browser_context_id", string(id)), zap.Error(err))
		return
	}
	b.logger.Debug("Disposed browser context.", zap.String("browser_context_id", string(id)))
}

func (b *Browser) forget(p *Page) {
	b.mu.Lock()
	delete(b.pages, p)
	b.mu.Unlock()
}

// Close closes any page still open and terminates the browser process.
func (b *Browser) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	open := make([]*Page, 0, len(b.pages))
	for p := range b.pages {
		open = append(open, p)
	}
	b.mu.Unlock()

	for _, p := range open {
		_ = p.Close(ctx)
	}

	b.logger.Info("Shutting down browser process.")
	b.browserCancel()
	b.allocCancel()
	return nil
}
