package schemas

import (
	"context"
)

// -- Browser Capability Schemas --

// MobileMaxWidth is the widest viewport still treated as a mobile device.
const MobileMaxWidth = 768

// Device is a named viewport the page is rendered at.
type Device struct {
	Name   string `json:"name" mapstructure:"name" yaml:"name"`
	Width  int    `json:"width" mapstructure:"width" yaml:"width"`
	Height int    `json:"height" mapstructure:"height" yaml:"height"`
}

// IsMobile classifies the device by viewport width.
func (d Device) IsMobile() bool {
	return d.Width > 0 && d.Width <= MobileMaxWidth
}

// BoundingBox is an element's layout rectangle in document coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Key names accepted by PageContext.PressKey.
const (
	KeyTab   = "Tab"
	KeyEnter = "Enter"
)

// PageContext is the capability a probe needs from a live page. Implementations
// bind it to a concrete automation API; probes stay oblivious to that binding.
type PageContext interface {
	// Evaluate runs script in the page and decodes its (awaited) result into res.
	// res may be nil when no result is needed.
	Evaluate(ctx context.Context, script string, res interface{}) error
	// Locate resolves selector to the first matching element's bounding box.
	// It returns nil and no error when nothing matches.
	Locate(ctx context.Context, selector string) (*BoundingBox, error)
	// Screenshot writes a PNG of the element matched by selector, or of the
	// whole page when selector is empty, to path.
	Screenshot(ctx context.Context, selector, path string) error
	// PressKey dispatches a single key press to the focused element.
	PressKey(ctx context.Context, key string) error
}

// Page is a PageContext with its own navigation and lifetime.
type Page interface {
	PageContext
	Navigate(ctx context.Context, url string) error
	Close(ctx context.Context) error
}

// Browser opens isolated pages. Each page lives in its own browsing context so
// that cookies, storage and viewport never leak between pages.
type Browser interface {
	NewPage(ctx context.Context, device Device) (Page, error)
	Close(ctx context.Context) error
}

// Launcher starts a browser process.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}
