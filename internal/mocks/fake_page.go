package mocks

import (
	"context"
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/uxprobe/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FakePage is a scripted schemas.Page. Evaluate answers from Results keyed
// by the exact script text, round-tripping the value through JSON the way a
// real browser would.
type FakePage struct {
	mu sync.Mutex

	Results map[string]interface{}
	Errors  map[string]error
	// Dynamic, when set, is consulted before Results.
	Dynamic func(script string) (interface{}, bool)

	Boxes         map[string]*schemas.BoundingBox
	LocateErr     error
	ScreenshotErr error
	NavigateErr   error
	// OnKey runs for every PressKey call.
	OnKey func(key string)
	// OnClose runs for every Close call with the context Close received.
	OnClose func(ctx context.Context)

	Navigated   []string
	Screenshots []string
	Keys        []string
	Evaluated   []string
	Closed      int
}

var _ schemas.Page = (*FakePage)(nil)

// NewFakePage returns an empty fake page.
func NewFakePage() *FakePage {
	return &FakePage{
		Results: make(map[string]interface{}),
		Errors:  make(map[string]error),
		Boxes:   make(map[string]*schemas.BoundingBox),
	}
}

// On registers the value returned for script.
func (p *FakePage) On(script string, value interface{}) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Results[script] = value
	return p
}

// Fail makes script evaluation return err.
func (p *FakePage) Fail(script string, err error) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Errors[script] = err
	return p
}

// Box registers the bounding box Locate returns for selector.
func (p *FakePage) Box(selector string, x, y, w, h float64) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Boxes[selector] = &schemas.BoundingBox{X: x, Y: y, Width: w, Height: h}
	return p
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigated = append(p.Navigated, url)
	return p.NavigateErr
}

func (p *FakePage) Evaluate(ctx context.Context, script string, res interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.Evaluated = append(p.Evaluated, script)
	dynamic := p.Dynamic
	err, failed := p.Errors[script]
	value, ok := p.Results[script]
	p.mu.Unlock()

	if failed {
		return err
	}
	if dynamic != nil {
		if v, handled := dynamic(script); handled {
			value, ok = v, true
		}
	}
	if !ok {
		return fmt.Errorf("fake page: no result registered for script %.60q", script)
	}
	if res == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, res)
}

func (p *FakePage) Locate(ctx context.Context, selector string) (*schemas.BoundingBox, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.LocateErr != nil {
		return nil, p.LocateErr
	}
	box, ok := p.Boxes[selector]
	if !ok {
		return nil, nil
	}
	copied := *box
	return &copied, nil
}

func (p *FakePage) Screenshot(ctx context.Context, selector, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ScreenshotErr != nil {
		return p.ScreenshotErr
	}
	p.Screenshots = append(p.Screenshots, path)
	return nil
}

func (p *FakePage) PressKey(ctx context.Context, key string) error {
	p.mu.Lock()
	p.Keys = append(p.Keys, key)
	onKey := p.OnKey
	p.mu.Unlock()
	if onKey != nil {
		onKey(key)
	}
	return nil
}

func (p *FakePage) Close(ctx context.Context) error {
	p.mu.Lock()
	p.Closed++
	onClose := p.OnClose
	p.mu.Unlock()
	if onClose != nil {
		onClose(ctx)
	}
	return nil
}

// EvaluatedScripts returns a copy of every script evaluated so far.
func (p *FakePage) EvaluatedScripts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Evaluated...)
}
