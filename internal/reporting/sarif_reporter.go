package reporting

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/observability"
	"github.com/xkilldash9x/uxprobe/internal/reporting/sarif"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "uxprobe"
	ToolInfoURI  = "https://github.com/xkilldash9x/uxprobe"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

// ruleIDSanitizer keeps alphanumerics, underscore and dot. Every other run of
// characters collapses into one hyphen.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

// RuleFingerprint identifies a rule by the content that defines it.
type RuleFingerprint string

func calculateFingerprint(kind, category, name string) RuleFingerprint {
	h := sha1.New()
	_ = json.NewEncoder(h).Encode([]string{kind, category, name})
	return RuleFingerprint(hex.EncodeToString(h.Sum(nil)))
}

// SARIFReporter maps findings that did not pass, and engine accessibility
// violations, to SARIF 2.1.0 results. It is safe for concurrent use.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Log
	// mu protects the log structure and the maps.
	mu                 sync.Mutex
	rulesByFingerprint map[RuleFingerprint]string
	ruleIDUsage        map[string]int
}

// NewSARIFReporter creates a new reporter that writes SARIF output.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string) *SARIFReporter {
	logger := observability.GetLogger().Named("sarif_reporter")
	log := &sarif.Log{
		Version: SARIFVersion,
		Schema:  SARIFSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           ToolName,
						Version:        pString(toolVersion),
						InformationURI: pString(ToolInfoURI),
						Rules:          []*sarif.ReportingDescriptor{},
					},
				},
				Results: []*sarif.Result{},
			},
		},
	}

	return &SARIFReporter{
		writer:             writer,
		logger:             logger,
		log:                log,
		rulesByFingerprint: make(map[RuleFingerprint]string),
		ruleIDUsage:        make(map[string]int),
	}
}

// Write adds the report's results to the log. Unlike the other reporters it
// may be called for several reports; their results accumulate in one run.
func (r *SARIFReporter) Write(report *schemas.Report) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	run.Properties = &sarif.PropertyBag{
		"url":          report.URL,
		"runId":        report.RunID,
		"overallScore": report.OverallScore,
	}
	count := 0

	for _, finding := range report.Findings {
		if finding.Status == schemas.StatusPass {
			continue
		}
		ruleID := r.ensureFindingRule(finding)
		run.Results = append(run.Results, &sarif.Result{
			RuleID:    ruleID,
			Message:   &sarif.Message{Text: pString(findingMessage(finding))},
			Level:     findingLevel(finding),
			Locations: findingLocations(report.URL, finding),
			Properties: &sarif.PropertyBag{
				"category": finding.Category,
				"score":    finding.Score,
				"status":   string(finding.Status),
			},
		})
		count++
	}

	for _, issue := range report.AccessibilityIssues {
		ruleID := r.ensureAccessibilityRule(issue)
		run.Results = append(run.Results, &sarif.Result{
			RuleID:  ruleID,
			Message: &sarif.Message{Text: pString(issue.Description)},
			Level:   impactLevel(issue.Severity),
			Locations: []*sarif.Location{
				location(report.URL, issue.Element),
			},
		})
		count++
	}

	if count > 0 {
		r.logger.Debug("Wrote results to SARIF buffer",
			zap.Int("results_count", count),
			zap.Duration("duration_ms", time.Since(startTime)),
		)
	}
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	r.logger.Info("Finalizing SARIF report",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
	)

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(r.log)
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log to JSON", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}

func sanitizeRuleName(name string) string {
	if name == "" {
		return "UNNAMED-CHECK"
	}
	sanitized := strings.ToUpper(name)
	sanitized = ruleIDSanitizer.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")
	if sanitized == "" {
		return "UNKNOWN-CHECK"
	}
	return sanitized
}

// ensureFindingRule registers one rule per (category, test) pair.
// Must be called while holding the mutex.
func (r *SARIFReporter) ensureFindingRule(f schemas.Finding) string {
	fp := calculateFingerprint("finding", f.Category, f.Test)
	if id, ok := r.rulesByFingerprint[fp]; ok {
		return id
	}
	id := r.registerID(fp, "UX-"+sanitizeRuleName(f.Category+" "+f.Test))

	help := strings.Join(f.Recommendations, "\n")
	markdown := fmt.Sprintf("**Check:** %s\n\n**Category:** %s", f.Test, f.Category)
	if len(f.Recommendations) > 0 {
		markdown += "\n\n**Recommendations:**\n- " + strings.Join(f.Recommendations, "\n- ")
	}

	r.addRule(&sarif.ReportingDescriptor{
		ID:               id,
		Name:             pString(f.Test),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(f.Test)},
		FullDescription:  &sarif.MultiformatMessageString{Text: pString(fmt.Sprintf("%s check in the %s category.", f.Test, f.Category))},
		Help: &sarif.MultiformatMessageString{
			Text:     pString(help),
			Markdown: pString(markdown),
		},
		Properties: &sarif.PropertyBag{
			"tags":     []string{"ux", strings.ToLower(f.Category)},
			"category": f.Category,
		},
	})
	return id
}

// ensureAccessibilityRule registers one rule per engine rule id.
// Must be called while holding the mutex.
func (r *SARIFReporter) ensureAccessibilityRule(issue schemas.AccessibilityIssue) string {
	fp := calculateFingerprint("a11y", "", issue.Type)
	if id, ok := r.rulesByFingerprint[fp]; ok {
		return id
	}
	id := r.registerID(fp, "A11Y-"+sanitizeRuleName(issue.Type))

	tags := append([]string{"accessibility"}, issue.WCAGLevel...)
	r.addRule(&sarif.ReportingDescriptor{
		ID:               id,
		Name:             pString(issue.Type),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(issue.Help)},
		FullDescription:  &sarif.MultiformatMessageString{Text: pString(issue.Description)},
		Help:             &sarif.MultiformatMessageString{Text: pString(issue.Help)},
		Properties:       &sarif.PropertyBag{"tags": tags},
	})
	return id
}

// registerID returns base, or base with a numeric suffix when a different
// rule already claimed it.
func (r *SARIFReporter) registerID(fp RuleFingerprint, base string) string {
	usage := r.ruleIDUsage[base]
	r.ruleIDUsage[base] = usage + 1

	id := base
	if usage > 0 {
		id = fmt.Sprintf("%s-%d", base, usage)
		r.logger.Debug("Rule ID collision detected, generated new ID with suffix",
			zap.String("base_id", base),
			zap.String("final_id", id),
		)
	}
	r.rulesByFingerprint[fp] = id
	return id
}

func (r *SARIFReporter) addRule(rule *sarif.ReportingDescriptor) {
	r.logger.Debug("Registering new SARIF rule definition", zap.String("rule_id", rule.ID))
	driver := r.log.Runs[0].Tool.Driver
	driver.Rules = append(driver.Rules, rule)
}

func findingMessage(f schemas.Finding) string {
	if f.Details != "" {
		return f.Details
	}
	return fmt.Sprintf("%s: %s", f.Test, f.Status)
}

// findingLocations points at the page, once per offending element when the
// finding names any.
func findingLocations(url string, f schemas.Finding) []*sarif.Location {
	if len(f.Elements) == 0 {
		return []*sarif.Location{location(url, "")}
	}
	locs := make([]*sarif.Location, 0, len(f.Elements))
	for _, el := range f.Elements {
		text := el.Selector
		if el.Description != "" {
			text += ": " + el.Description
		}
		locs = append(locs, location(url, text))
	}
	return locs
}

func location(url, text string) *sarif.Location {
	loc := &sarif.Location{
		PhysicalLocation: &sarif.PhysicalLocation{
			ArtifactLocation: &sarif.ArtifactLocation{URI: pString(url)},
		},
	}
	if text != "" {
		loc.Message = &sarif.Message{Text: pString(text)}
	}
	return loc
}

// findingLevel maps a high-severity failure to error, other failures and
// medium warnings to warning, and everything else to note.
func findingLevel(f schemas.Finding) sarif.Level {
	switch {
	case f.Status == schemas.StatusFail && f.Severity == schemas.SeverityHigh:
		return sarif.LevelError
	case f.Status == schemas.StatusFail, f.Severity == schemas.SeverityMedium:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

func impactLevel(impact schemas.Impact) sarif.Level {
	switch impact {
	case schemas.ImpactCritical, schemas.ImpactSerious:
		return sarif.LevelError
	case schemas.ImpactModerate:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

// pString returns a pointer to the given string value. Helper for optional SARIF fields.
func pString(s string) *string {
	return &s
}
