// Package wcag implements the color arithmetic of WCAG 2.x: CSS color
// parsing, relative luminance and contrast ratio.
package wcag

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Contrast thresholds for text.
const (
	MinContrastAA      = 4.5
	MinContrastAALarge = 3.0
	MinContrastAAA     = 7.0
)

// Color is an sRGB color with channels in [0,255] and alpha in [0,1].
type Color struct {
	R, G, B float64
	A       float64
}

var (
	Black = Color{0, 0, 0, 1}
	White = Color{255, 255, 255, 1}
)

// ParseColor accepts the forms a browser's getComputedStyle emits (rgb(),
// rgba(), both comma and space separated) plus hex notation and the
// keyword "transparent".
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return Color{}, fmt.Errorf("empty color")
	case s == "transparent":
		return Color{}, nil
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgba(") || strings.HasPrefix(s, "rgb("):
		open := strings.IndexByte(s, '(')
		if !strings.HasSuffix(s, ")") {
			return Color{}, fmt.Errorf("unterminated color %q", s)
		}
		return parseFunctional(s[open+1 : len(s)-1])
	}
	return Color{}, fmt.Errorf("unsupported color %q", s)
}

func parseHex(h string) (Color, error) {
	switch len(h) {
	case 3, 4:
		expanded := make([]byte, 0, len(h)*2)
		for i := 0; i < len(h); i++ {
			expanded = append(expanded, h[i], h[i])
		}
		h = string(expanded)
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("invalid hex color #%s", h)
	}

	v, err := strconv.ParseUint(h, 16, 64)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color #%s: %w", h, err)
	}
	c := Color{A: 1}
	if len(h) == 8 {
		c.A = float64(v&0xff) / 255
		v >>= 8
	}
	c.R = float64((v >> 16) & 0xff)
	c.G = float64((v >> 8) & 0xff)
	c.B = float64(v & 0xff)
	return c, nil
}

func parseFunctional(body string) (Color, error) {
	body = strings.ReplaceAll(body, "/", " ")
	body = strings.ReplaceAll(body, ",", " ")
	fields := strings.Fields(body)
	if len(fields) != 3 && len(fields) != 4 {
		return Color{}, fmt.Errorf("expected 3 or 4 components, got %d", len(fields))
	}

	var ch [3]float64
	for i := 0; i < 3; i++ {
		v, err := parseComponent(fields[i], 255)
		if err != nil {
			return Color{}, err
		}
		ch[i] = clamp(v, 0, 255)
	}

	alpha := 1.0
	if len(fields) == 4 {
		v, err := parseComponent(fields[3], 1)
		if err != nil {
			return Color{}, err
		}
		alpha = clamp(v, 0, 1)
	}
	return Color{R: ch[0], G: ch[1], B: ch[2], A: alpha}, nil
}

// parseComponent reads a number or a percentage of scale.
func parseComponent(f string, scale float64) (float64, error) {
	if strings.HasSuffix(f, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(f, "%"), 64)
		if err != nil || math.IsNaN(v) {
			return 0, fmt.Errorf("invalid color component %q", f)
		}
		return v / 100 * scale, nil
	}
	v, err := strconv.ParseFloat(f, 64)
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("invalid color component %q", f)
	}
	return v, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Over composites c on top of an opaque backdrop.
func (c Color) Over(backdrop Color) Color {
	a := clamp(c.A, 0, 1)
	return Color{
		R: c.R*a + backdrop.R*(1-a),
		G: c.G*a + backdrop.G*(1-a),
		B: c.B*a + backdrop.B*(1-a),
		A: 1,
	}
}

// Transparent reports whether the color paints nothing.
func (c Color) Transparent() bool {
	return c.A == 0
}

func (c Color) String() string {
	if c.A < 1 {
		return fmt.Sprintf("rgba(%g, %g, %g, %g)", c.R, c.G, c.B, c.A)
	}
	return fmt.Sprintf("rgb(%g, %g, %g)", c.R, c.G, c.B)
}

func linearize(channel float64) float64 {
	s := channel / 255
	if s <= 0.03928 {
		return s / 12.92
	}
	return math.Pow((s+0.055)/1.055, 2.4)
}

// RelativeLuminance is the WCAG relative luminance of an opaque color, in [0,1].
func RelativeLuminance(c Color) float64 {
	return 0.2126*linearize(c.R) + 0.7152*linearize(c.G) + 0.0722*linearize(c.B)
}

// ContrastRatio is (L1 + 0.05) / (L2 + 0.05) with L1 the lighter color. The
// result lies in [1,21] and does not depend on argument order.
func ContrastRatio(a, b Color) float64 {
	la, lb := RelativeLuminance(a), RelativeLuminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// TextContrast resolves partially transparent colors before comparing:
// the background is flattened onto white and the text onto that background.
func TextContrast(fg, bg Color) float64 {
	background := bg.Over(White)
	return ContrastRatio(fg.Over(background), background)
}

// Round2 rounds to two decimals, the precision contrast ratios are reported at.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
