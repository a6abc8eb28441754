package probes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
	"github.com/xkilldash9x/uxprobe/internal/config"
	"github.com/xkilldash9x/uxprobe/internal/mocks"
)

func newTestSession(t *testing.T, page *mocks.FakePage) *audit.Session {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.OutputCfg.ScreenshotDir = t.TempDir()
	return audit.NewSession("https://example.com", page, nil, cfg, nil, zaptest.NewLogger(t))
}

func findTest(t *testing.T, s *audit.Session, test string) schemas.Finding {
	t.Helper()
	for _, f := range s.Findings() {
		if f.Test == test {
			return f
		}
	}
	require.Failf(t, "finding not recorded", "no finding for test %q", test)
	return schemas.Finding{}
}

func TestAllProbesRunInFixedOrder(t *testing.T) {
	var names []string
	for _, p := range All() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{
		"performance", "visual_hierarchy", "color_contrast", "navigation", "readability", "cta",
		"forms", "interactive_elements", "keyboard_navigation", "seo", "responsive", "accessibility",
	}, names)

	for _, p := range All() {
		assert.NotEmpty(t, p.Category(), p.Name())
	}
}

func TestPenalty(t *testing.T) {
	assert.Equal(t, 10.0, penalty(0, 2, 0))
	assert.Equal(t, 8.0, penalty(1, 2, 0))
	assert.Equal(t, 0.0, penalty(7, 2, 0))
	assert.Equal(t, 4.0, penalty(9, 1, 4))
}

// The canonical fixture: one <h1>, two images with one missing alt, a <nav>
// with three links and a 60x30 "Get Started" button.
func fixturePage() *mocks.FakePage {
	return mocks.NewFakePage().
		On(visualScript, map[string]interface{}{
			"h1Count":       1,
			"headingLevels": []int{1},
			"imageCount":    2,
			"missingAlt":    []string{"body > img:nth-of-type(2)"},
			"fontFamilies":  []string{"arial"},
		}).
		On(navigationScript, map[string]interface{}{
			"hasNav":     true,
			"navLinks":   3,
			"vagueLinks": []interface{}{},
		}).
		On(ctaScript, map[string]interface{}{
			"viewportHeight": 800,
			"ctas": []map[string]interface{}{{
				"selector": "#get-started", "text": "Get Started",
				"top": 200, "bottom": 230, "width": 60, "height": 30,
			}},
		}).
		Box("body > img:nth-of-type(2)", 0, 300, 200, 100).
		Box("#get-started", 20, 200, 60, 30)
}

func TestFixtureScenario(t *testing.T) {
	ctx := context.Background()
	page := fixturePage()
	s := newTestSession(t, page)

	for _, p := range []audit.Probe{NewVisualHierarchy(), NewNavigation(), NewCTA()} {
		require.NoError(t, p.Run(ctx, s), p.Name())
	}

	h1 := findTest(t, s, "H1 Usage")
	assert.Equal(t, schemas.StatusPass, h1.Status)
	assert.Equal(t, 10.0, h1.Score)

	alt := findTest(t, s, "Image Alt Text")
	assert.Equal(t, schemas.StatusFail, alt.Status)
	assert.Equal(t, 8.0, alt.Score)
	require.Len(t, alt.Elements, 1)
	assert.Equal(t, "body > img:nth-of-type(2)", alt.Elements[0].Selector)

	nav := findTest(t, s, "Navigation Structure")
	assert.Equal(t, schemas.StatusPass, nav.Status)

	cta := findTest(t, s, "Call To Action")
	assert.Equal(t, schemas.StatusWarning, cta.Status)
	assert.Equal(t, 8.0, cta.Score)
	assert.Contains(t, cta.Details, "1 too small")
	require.Len(t, cta.Elements, 1)
	assert.Equal(t, "#get-started", cta.Elements[0].Selector)
	assert.Contains(t, cta.Elements[0].Description, "60x30px")
	assert.NotEmpty(t, cta.Elements[0].Screenshot)

	areas := s.Evidence.ProblemAreas()
	require.Len(t, areas, 2)
	assert.Equal(t, "Image Alt Text", areas[0].Test)
	assert.Equal(t, "Call To Action", areas[1].Test)
}

func TestProbeEvaluationErrorsSurface(t *testing.T) {
	page := mocks.NewFakePage()
	s := newTestSession(t, page)
	for _, p := range []audit.Probe{
		NewPerformance(), NewVisualHierarchy(), NewColorContrast(), NewNavigation(), NewReadability(),
		NewCTA(), NewForms(), NewInteractiveElements(), NewKeyboardNavigation(), NewSEO(),
	} {
		assert.Error(t, p.Run(context.Background(), s), p.Name())
	}
	assert.Empty(t, s.Findings())
}
