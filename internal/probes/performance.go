package probes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/audit"
)

const (
	// paintTimeout bounds how long the page is given to report paint timings.
	paintTimeout = 5 * time.Second

	compressionMinSize = 10 * 1024
	compressionSavings = 0.20

	megabyte = 1024 * 1024
)

var timingScript = script(`
const nav = performance.getEntriesByType("navigation")[0];
const resources = performance.getEntriesByType("resource");
let transfer = nav ? (nav.transferSize || 0) : 0;
resources.forEach(r => { transfer += r.transferSize || 0; });
return {
  loadTime: nav ? Math.max(0, nav.loadEventEnd - nav.startTime) : 0,
  domContentLoaded: nav ? Math.max(0, nav.domContentLoadedEventEnd - nav.startTime) : 0,
  totalTransferSize: transfer,
  requestCount: resources.length + (nav ? 1 : 0),
  documentEncodedSize: nav ? (nav.encodedBodySize || 0) : 0,
  documentDecodedSize: nav ? (nav.decodedBodySize || 0) : 0
};`)

// paintScript resolves with zeroes if the observers have not delivered within
// paintTimeout.
var paintScript = asyncScript(fmt.Sprintf(`
const empty = {firstPaint: 0, firstContentfulPaint: 0, largestContentfulPaint: 0, lcpEntry: null};
const capture = new Promise(resolve => {
  const out = Object.assign({}, empty);
  performance.getEntriesByType("paint").forEach(p => {
    if (p.name === "first-paint") out.firstPaint = p.startTime;
    if (p.name === "first-contentful-paint") out.firstContentfulPaint = p.startTime;
  });
  try {
    new PerformanceObserver(list => {
      const entries = list.getEntries();
      const last = entries[entries.length - 1];
      if (!last) return;
      out.largestContentfulPaint = last.renderTime || last.loadTime || last.startTime;
      out.lcpEntry = {
        element: last.element ? cssPath(last.element) : "",
        url: last.url || "",
        size: last.size || 0,
        startTime: last.startTime
      };
    }).observe({type: "largest-contentful-paint", buffered: true});
  } catch (e) {}
  setTimeout(() => resolve(out), 250);
});
const timeout = new Promise(resolve => setTimeout(() => resolve(empty), %d));
return await Promise.race([capture, timeout]);`, paintTimeout.Milliseconds()))

const documentScript = `document.documentElement.outerHTML`

type paintTimings struct {
	FirstPaint             float64           `json:"firstPaint"`
	FirstContentfulPaint   float64           `json:"firstContentfulPaint"`
	LargestContentfulPaint float64           `json:"largestContentfulPaint"`
	LCPEntry               *schemas.LCPEntry `json:"lcpEntry"`
}

// Performance captures navigation and paint timings and grades them.
type Performance struct{ base }

func NewPerformance() *Performance {
	return &Performance{base{name: "performance", category: CategoryPerformance}}
}

func (p *Performance) Run(ctx context.Context, s *audit.Session) error {
	var m schemas.PerformanceMetrics
	if err := evaluate(ctx, s, timingScript, &m); err != nil {
		return err
	}

	paint, err := capturePaint(ctx, s)
	if err != nil {
		return err
	}
	m.FirstPaint = paint.FirstPaint
	m.FirstContentfulPaint = paint.FirstContentfulPaint
	m.LargestContentfulPaint = paint.LargestContentfulPaint
	m.LCPEntry = paint.LCPEntry
	s.SetPerformance(m)

	s.AddFinding(gradeLoadTime(m.LoadTime))
	s.AddFinding(gradeLCP(m.LargestContentfulPaint, m.LCPEntry))
	s.AddFinding(gradeFCP(m.FirstContentfulPaint))
	s.AddFinding(gradePageWeight(m.TotalTransferSize))
	s.AddFinding(gradeRequestCount(m.RequestCount))
	s.AddFinding(p.textCompression(ctx, s, m))
	return nil
}

// capturePaint treats a page that never answers within paintTimeout as having
// reported nothing.
func capturePaint(ctx context.Context, s *audit.Session) (paintTimings, error) {
	var paint paintTimings
	pctx, cancel := context.WithTimeout(ctx, paintTimeout+time.Second)
	defer cancel()

	err := evaluate(pctx, s, paintScript, &paint)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		s.Logger.Debug("Paint timing capture timed out, using zero values.")
		return paintTimings{}, nil
	}
	return paint, err
}

// ClassifyLoadTime grades a page load time in milliseconds.
func ClassifyLoadTime(ms float64) (schemas.Status, float64) {
	switch {
	case ms < 3000:
		return schemas.StatusPass, 10
	case ms < 5000:
		return schemas.StatusWarning, 7
	case ms < 8000:
		return schemas.StatusFail, 4
	default:
		return schemas.StatusFail, 1
	}
}

func gradeLoadTime(ms float64) schemas.Finding {
	status, score := ClassifyLoadTime(ms)
	f := finding(CategoryPerformance, "Page Load Time", status, score,
		fmt.Sprintf("Page loaded in %.0fms.", ms))
	if status != schemas.StatusPass {
		f.Recommendations = []string{
			"Reduce render-blocking scripts and stylesheets.",
			"Serve static assets from a CDN with long cache lifetimes.",
		}
	}
	return f
}

func gradeLCP(ms float64, entry *schemas.LCPEntry) schemas.Finding {
	const test = "Largest Contentful Paint"
	if ms == 0 {
		f := finding(CategoryPerformance, test, schemas.StatusWarning, 5,
			"Largest Contentful Paint was not reported by the browser.")
		f.Severity = schemas.SeverityLow
		return f
	}

	var status schemas.Status
	var score float64
	switch {
	case ms <= 2500:
		status, score = schemas.StatusPass, 10
	case ms <= 4000:
		status, score = schemas.StatusWarning, 6
	default:
		status, score = schemas.StatusFail, 3
	}
	details := fmt.Sprintf("Largest Contentful Paint at %.0fms.", ms)
	if entry != nil && entry.Element != "" {
		details += fmt.Sprintf(" LCP element: %s.", entry.Element)
	}
	f := finding(CategoryPerformance, test, status, score, details)
	if status != schemas.StatusPass {
		rec := "Optimize the largest above-the-fold element (compress images, preload the hero resource)."
		if entry != nil && entry.URL != "" {
			rec = fmt.Sprintf("Optimize or preload the LCP resource %s.", entry.URL)
		}
		f.Recommendations = []string{rec}
	}
	return f
}

func gradeFCP(ms float64) schemas.Finding {
	var status schemas.Status
	var score float64
	switch {
	case ms <= 1800:
		status, score = schemas.StatusPass, 10
	case ms <= 3000:
		status, score = schemas.StatusWarning, 6
	default:
		status, score = schemas.StatusFail, 3
	}
	f := finding(CategoryPerformance, "First Contentful Paint", status, score,
		fmt.Sprintf("First Contentful Paint at %.0fms.", ms))
	if status != schemas.StatusPass {
		f.Recommendations = []string{"Inline critical CSS and defer non-essential scripts."}
	}
	return f
}

func gradePageWeight(size float64) schemas.Finding {
	var status schemas.Status
	var score float64
	switch {
	case size <= 1.5*megabyte:
		status, score = schemas.StatusPass, 10
	case size <= 3*megabyte:
		status, score = schemas.StatusWarning, 6
	default:
		status, score = schemas.StatusFail, 3
	}
	f := finding(CategoryPerformance, "Page Weight", status, score,
		fmt.Sprintf("Transferred %.2f MB.", size/megabyte))
	if status != schemas.StatusPass {
		f.Recommendations = []string{"Compress images and remove unused JavaScript and CSS."}
	}
	return f
}

func gradeRequestCount(n int) schemas.Finding {
	var status schemas.Status
	var score float64
	switch {
	case n <= 50:
		status, score = schemas.StatusPass, 10
	case n <= 100:
		status, score = schemas.StatusWarning, 6
	default:
		status, score = schemas.StatusFail, 3
	}
	f := finding(CategoryPerformance, "Request Count", status, score,
		fmt.Sprintf("Page made %s.", plural(n, "request", "requests")))
	if status != schemas.StatusPass {
		f.Recommendations = []string{"Bundle assets and lazy-load below-the-fold resources."}
	}
	return f
}

// textCompression flags a large document that was served without content
// encoding when brotli would shrink it noticeably.
func (p *Performance) textCompression(ctx context.Context, s *audit.Session, m schemas.PerformanceMetrics) schemas.Finding {
	const test = "Text Compression"
	if m.DocumentDecodedSize <= compressionMinSize || m.DocumentEncodedSize != m.DocumentDecodedSize {
		return finding(CategoryPerformance, test, schemas.StatusPass, 10,
			"Document is compressed or small enough not to matter.")
	}

	var html string
	if err := evaluate(ctx, s, documentScript, &html); err != nil {
		s.Logger.Debug("Could not read document for compression estimate.", zap.Error(err))
		return finding(CategoryPerformance, test, schemas.StatusPass, 10,
			"Document is served uncompressed; savings could not be estimated.")
	}

	savings, compressed := EstimateBrotliSavings([]byte(html))
	if savings <= compressionSavings {
		return finding(CategoryPerformance, test, schemas.StatusPass, 10,
			fmt.Sprintf("Document is served uncompressed but brotli would only save %.0f%%.", savings*100))
	}
	return finding(CategoryPerformance, test, schemas.StatusWarning, 6,
		fmt.Sprintf("Document is served uncompressed; brotli would save about %.0f%% (%d of %d bytes).",
			savings*100, len(html)-compressed, len(html)),
		"Enable brotli or gzip compression for HTML, CSS and JavaScript responses.")
}

var brotliWriterPool = sync.Pool{
	New: func() interface{} {
		return brotli.NewWriterLevel(nil, brotli.DefaultCompression)
	},
}

// EstimateBrotliSavings returns the fraction of data brotli removes and the
// compressed size.
func EstimateBrotliSavings(data []byte) (float64, int) {
	if len(data) == 0 {
		return 0, 0
	}
	var buf bytes.Buffer
	w := brotliWriterPool.Get().(*brotli.Writer)
	w.Reset(&buf)
	defer func() {
		w.Reset(nil)
		brotliWriterPool.Put(w)
	}()

	if _, err := w.Write(data); err != nil {
		return 0, len(data)
	}
	if err := w.Close(); err != nil {
		return 0, len(data)
	}
	compressed := buf.Len()
	return 1 - float64(compressed)/float64(len(data)), compressed
}
