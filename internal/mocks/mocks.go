// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/uxprobe/api/schemas"
)

// -- Browser Mocks --

// MockLauncher mocks schemas.Launcher.
type MockLauncher struct {
	mock.Mock
}

func (m *MockLauncher) Launch(ctx context.Context) (schemas.Browser, error) {
	args := m.Called(ctx)
	if b := args.Get(0); b != nil {
		return b.(schemas.Browser), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockBrowser mocks schemas.Browser.
type MockBrowser struct {
	mock.Mock
}

func (m *MockBrowser) NewPage(ctx context.Context, device schemas.Device) (schemas.Page, error) {
	args := m.Called(ctx, device)
	if p := args.Get(0); p != nil {
		return p.(schemas.Page), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBrowser) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockPage mocks schemas.Page.
type MockPage struct {
	mock.Mock
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) Evaluate(ctx context.Context, script string, res interface{}) error {
	return m.Called(ctx, script, res).Error(0)
}

func (m *MockPage) Locate(ctx context.Context, selector string) (*schemas.BoundingBox, error) {
	args := m.Called(ctx, selector)
	if b := args.Get(0); b != nil {
		return b.(*schemas.BoundingBox), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPage) Screenshot(ctx context.Context, selector, path string) error {
	return m.Called(ctx, selector, path).Error(0)
}

func (m *MockPage) PressKey(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockPage) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// -- Rule Engine Mock --

// MockRuleEngine mocks schemas.RuleEngine.
type MockRuleEngine struct {
	mock.Mock
}

func (m *MockRuleEngine) Run(ctx context.Context, page schemas.PageContext) (*schemas.AuditResults, error) {
	args := m.Called(ctx, page)
	if r := args.Get(0); r != nil {
		return r.(*schemas.AuditResults), args.Error(1)
	}
	return nil, args.Error(1)
}

var (
	_ schemas.Launcher   = (*MockLauncher)(nil)
	_ schemas.Browser    = (*MockBrowser)(nil)
	_ schemas.Page       = (*MockPage)(nil)
	_ schemas.RuleEngine = (*MockRuleEngine)(nil)
)
