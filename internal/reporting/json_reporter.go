package reporting

import (
	"fmt"
	"io"

	"github.com/xkilldash9x/uxprobe/api/schemas"
)

// JSONReporter writes the report as indented JSON.
type JSONReporter struct {
	single
	writer io.WriteCloser
}

func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: writer}
}

func (r *JSONReporter) Write(report *schemas.Report) error {
	return r.set(report)
}

func (r *JSONReporter) Close() error {
	return finish(r.writer, r.report, func(w io.Writer, report *schemas.Report) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("failed to encode JSON report: %w", err)
		}
		return nil
	})
}
