// Package evidence pins findings to concrete DOM elements: geometry, an
// optional screenshot, and remediation advice grouped by category and test.
package evidence

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uxprobe/api/schemas"
)

// Spec describes the element a probe wants recorded.
type Spec struct {
	Selector       string
	Description    string
	Severity       schemas.Severity
	Recommendation string
}

type areaKey struct {
	category string
	test     string
}

// Recorder accumulates ElementIssues for one session. It is safe for
// concurrent use.
type Recorder struct {
	page          schemas.PageContext
	screenshotDir string
	logger        *zap.Logger

	mu    sync.Mutex
	order []areaKey
	areas map[areaKey][]schemas.ElementIssue
	shots int
}

// NewRecorder creates a recorder bound to page. An empty screenshotDir
// disables screenshot capture.
func NewRecorder(page schemas.PageContext, screenshotDir string, logger *zap.Logger) *Recorder {
	return &Recorder{
		page:          page,
		screenshotDir: screenshotDir,
		logger:        logger.Named("evidence"),
		areas:         make(map[areaKey][]schemas.ElementIssue),
	}
}

// RecordProblemArea resolves spec.Selector on the page and stores an
// ElementIssue under (category, test). It returns nil, and records nothing,
// when the selector matches no element or cannot be resolved.
func (r *Recorder) RecordProblemArea(ctx context.Context, category, test string, spec Spec, capture bool) *schemas.ElementIssue {
	box, err := r.page.Locate(ctx, spec.Selector)
	if err != nil {
		r.logger.Debug("Could not resolve selector.", zap.String("selector", spec.Selector), zap.Error(err))
		return nil
	}
	if box == nil {
		return nil
	}

	issue := schemas.ElementIssue{
		Selector:       spec.Selector,
		Position:       schemas.Position{X: box.X, Y: box.Y},
		Size:           schemas.Size{Width: box.Width, Height: box.Height},
		Description:    spec.Description,
		Severity:       spec.Severity,
		Recommendation: spec.Recommendation,
	}

	if capture && r.screenshotDir != "" {
		path := r.nextScreenshotPath(category, test)
		if err := r.page.Screenshot(ctx, spec.Selector, path); err != nil {
			r.logger.Debug("Screenshot capture failed.", zap.String("selector", spec.Selector), zap.Error(err))
		} else {
			issue.Screenshot = path
		}
	}

	key := areaKey{category: category, test: test}
	r.mu.Lock()
	if _, ok := r.areas[key]; !ok {
		r.order = append(r.order, key)
	}
	r.areas[key] = append(r.areas[key], issue)
	r.mu.Unlock()

	return &issue
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns s into a lowercase, file-name safe token.
func Slug(s string) string {
	return strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func (r *Recorder) nextScreenshotPath(category, test string) string {
	r.mu.Lock()
	r.shots++
	n := r.shots
	r.mu.Unlock()
	return filepath.Join(r.screenshotDir, fmt.Sprintf("%s_%s_%03d.png", Slug(category), Slug(test), n))
}

// ProblemAreas returns the recorded evidence grouped by (category, test) in
// first-seen order.
func (r *Recorder) ProblemAreas() []schemas.ProblemArea {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]schemas.ProblemArea, 0, len(r.order))
	for _, key := range r.order {
		elements := append([]schemas.ElementIssue(nil), r.areas[key]...)
		out = append(out, schemas.ProblemArea{Category: key.category, Test: key.test, Elements: elements})
	}
	return out
}

// Count returns the number of recorded elements across all problem areas.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, elems := range r.areas {
		n += len(elems)
	}
	return n
}
