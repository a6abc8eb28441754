// Package reporting renders a finished Report into the output formats a CI
// pipeline or a person consumes.
package reporting

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/uxprobe/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Supported output formats.
const (
	FormatJSON  = "json"
	FormatHTML  = "html"
	FormatSARIF = "sarif"
	FormatJUnit = "junit"
)

// Formats lists every supported format.
var Formats = []string{FormatJSON, FormatHTML, FormatSARIF, FormatJUnit}

var errNoReport = errors.New("no report was written")

// Reporter writes a report to an output.
type Reporter interface {
	// Write hands the report to the reporter. A reporter accepts one report.
	Write(report *schemas.Report) error
	// Close renders the report and closes the underlying writer.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// FileName is the artifact name a format is written to inside the output
// directory.
func FileName(format string) string {
	switch format {
	case FormatJUnit:
		return "report.junit.xml"
	default:
		return "report." + format
	}
}

// New creates a new reporter based on the specified format and output path.
func New(format, outputPath, toolVersion string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case FormatJSON:
		return NewJSONReporter(writer), nil
	case FormatHTML:
		return NewHTMLReporter(writer).WithVersion(toolVersion), nil
	case FormatSARIF:
		return NewSARIFReporter(writer, toolVersion), nil
	case FormatJUnit:
		return NewJUnitReporter(writer), nil
	default:
		if !isStdOut {
			writer.Close()
		}
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteAll renders report once per format into dir and returns the paths
// written. It stops at the first failure.
func WriteAll(dir string, formats []string, report *schemas.Report, toolVersion string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	var written []string
	for _, format := range formats {
		path := filepath.Join(dir, FileName(format))
		r, err := New(format, path, toolVersion)
		if err != nil {
			return written, err
		}
		if err := r.Write(report); err != nil {
			r.Close()
			return written, fmt.Errorf("failed to write %s report: %w", format, err)
		}
		if err := r.Close(); err != nil {
			return written, fmt.Errorf("failed to finalize %s report: %w", format, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// Load reads a JSON report previously written by the json reporter.
func Load(path string) (*schemas.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}
	var report schemas.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &report, nil
}

// single holds the one report a reporter renders.
type single struct {
	report *schemas.Report
}

func (s *single) set(report *schemas.Report) error {
	if report == nil {
		return errors.New("report is nil")
	}
	if s.report != nil {
		return errors.New("reporter already holds a report")
	}
	s.report = report
	return nil
}

// finish runs render when a report was written and always closes w. The
// render error takes priority over the close error.
func finish(w io.WriteCloser, report *schemas.Report, render func(io.Writer, *schemas.Report) error) error {
	var renderErr error
	if report == nil {
		renderErr = errNoReport
	} else {
		renderErr = render(w, report)
	}
	closeErr := w.Close()
	if renderErr != nil {
		return renderErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
