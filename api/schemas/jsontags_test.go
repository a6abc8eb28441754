package schemas_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/uxprobe/api/schemas"
)

// TestStructJSONTags uses reflection to pin the json tags of the report
// model. The JSON report is read back by `report`, `gate` and `issues`, and by
// whatever CI tooling consumes it.
func TestStructJSONTags(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name         string
		structRef    interface{}
		expectedTags map[string]string
	}{
		{
			name:      "Finding",
			structRef: schemas.Finding{},
			expectedTags: map[string]string{
				"Category":        "category",
				"Test":            "test",
				"Status":          "status",
				"Score":           "score",
				"Details":         "details",
				"Severity":        "severity",
				"Timestamp":       "timestamp",
				"Elements":        "elements,omitempty",
				"Recommendations": "recommendations,omitempty",
			},
		},
		{
			name:      "ElementIssue",
			structRef: schemas.ElementIssue{},
			expectedTags: map[string]string{
				"Selector":       "selector",
				"Position":       "position",
				"Size":           "size",
				"Description":    "description",
				"Severity":       "severity",
				"Recommendation": "recommendation",
				"Screenshot":     "screenshot,omitempty",
			},
		},
		{
			name:      "AccessibilityIssue",
			structRef: schemas.AccessibilityIssue{},
			expectedTags: map[string]string{
				"Type":        "type",
				"Severity":    "severity",
				"Element":     "element",
				"Description": "description",
				"WCAGLevel":   "wcagLevel",
				"Help":        "help,omitempty",
			},
		},
		{
			name:      "PerformanceMetrics",
			structRef: schemas.PerformanceMetrics{},
			expectedTags: map[string]string{
				"LoadTime":               "loadTime",
				"DOMContentLoaded":       "domContentLoaded",
				"FirstPaint":             "firstPaint",
				"FirstContentfulPaint":   "firstContentfulPaint",
				"LargestContentfulPaint": "largestContentfulPaint",
				"LCPEntry":               "lcpEntry,omitempty",
				"TotalTransferSize":      "totalTransferSize",
				"RequestCount":           "requestCount",
				"DocumentEncodedSize":    "documentEncodedSize,omitempty",
				"DocumentDecodedSize":    "documentDecodedSize,omitempty",
			},
		},
		{
			name:      "ResponsiveResult",
			structRef: schemas.ResponsiveResult{},
			expectedTags: map[string]string{
				"Device":         "device",
				"ViewportWidth":  "viewportWidth",
				"ViewportHeight": "viewportHeight",
				"Issues":         "issues",
				"Screenshot":     "screenshot,omitempty",
			},
		},
		{
			name:      "Report",
			structRef: schemas.Report{},
			expectedTags: map[string]string{
				"RunID":               "runId",
				"URL":                 "url",
				"TestDate":            "testDate",
				"OverallScore":        "overallScore",
				"Findings":            "findings",
				"Performance":         "performance",
				"AccessibilityIssues": "accessibilityIssues",
				"ResponsiveResults":   "responsiveResults",
				"ProblemAreas":        "problemAreas,omitempty",
				"Recommendations":     "recommendations",
				"Summary":             "summary",
			},
		},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			structType := reflect.TypeOf(tt.structRef)
			actualTags := make(map[string]string)
			for i := 0; i < structType.NumField(); i++ {
				field := structType.Field(i)
				if jsonTag := field.Tag.Get("json"); jsonTag != "" {
					actualTags[field.Name] = jsonTag
				}
			}
			assert.Equal(t, tt.expectedTags, actualTags, "JSON tags for struct %s do not match expectations", tt.name)
		})
	}
}
