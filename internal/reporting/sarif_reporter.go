// internal/reporting/sarif_reporter.go
package reporting

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/a11y"
	"github.com/xkilldash9x/uiprobe/internal/audit"
	"github.com/xkilldash9x/uiprobe/internal/reporting/sarif"
)

const (
	ToolName    = "uiprobe"
	ToolInfoURI = "https://github.com/xkilldash9x/uiprobe"
	rulePrefix  = "UIPROBE-"
)

// ruleIDSanitizer collapses everything but alphanumerics, underscore and dot
// into a single hyphen.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

// RuleFingerprint identifies a rule definition by its content.
type RuleFingerprint string

func calculateFingerprint(is a11y.Issue) RuleFingerprint {
	data := struct {
		ID             string
		Criterion      string
		Level          a11y.Level
		Recommendation string
	}{is.ID, is.Criterion.Code, is.Level, is.Recommendation}

	h := sha1.New()
	_ = json.NewEncoder(h).Encode(data)
	return RuleFingerprint(hex.EncodeToString(h.Sum(nil)))
}

// SARIFRenderer exports accessibility issues as a SARIF 2.1.0 log.
type SARIFRenderer struct {
	logger  *zap.Logger
	version string
}

func NewSARIFRenderer(logger *zap.Logger, version string) *SARIFRenderer {
	return &SARIFRenderer{logger: logger.Named("sarif"), version: version}
}

func (r *SARIFRenderer) Format() string { return "sarif" }
func (r *SARIFRenderer) Path() string   { return "accessibility.sarif" }

// sarifBuilder holds the per-render rule registry.
type sarifBuilder struct {
	logger             *zap.Logger
	run                *sarif.Run
	rulesByFingerprint map[RuleFingerprint]int
	ruleIDUsage        map[string]int
}

// Render builds the log. Rules are registered once per distinct definition;
// an id reused with different content gets a numeric suffix.
func (r *SARIFRenderer) Render(m *MasterReport) ([]byte, error) {
	run := &sarif.Run{
		Tool: &sarif.Tool{
			Driver: &sarif.ToolComponent{
				Name:           ToolName,
				Version:        pString(r.version),
				InformationURI: pString(ToolInfoURI),
				Rules:          []*sarif.ReportingDescriptor{},
			},
		},
		Invocations: []*sarif.Invocation{{
			ExecutionSuccessful: len(m.Coverage.Errored) == 0,
			StartTimeUTC:        pString(m.StartedAt.UTC().Format("2006-01-02T15:04:05Z")),
			EndTimeUTC:          pString(m.FinishedAt.UTC().Format("2006-01-02T15:04:05Z")),
		}},
		Results: []*sarif.Result{},
	}
	b := &sarifBuilder{
		logger:             r.logger,
		run:                run,
		rulesByFingerprint: make(map[RuleFingerprint]int),
		ruleIDUsage:        make(map[string]int),
	}
	for _, rep := range m.Audits {
		for _, is := range rep.Issues {
			b.add(rep, is)
		}
	}

	r.logger.Debug("Rendered SARIF log",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
	)
	out, err := json.MarshalIndent(&sarif.Log{Version: sarif.Version, Schema: sarif.Schema, Runs: []*sarif.Run{run}}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode SARIF output: %w", err)
	}
	return out, nil
}

func (b *sarifBuilder) add(rep *audit.Report, is a11y.Issue) {
	idx := b.ensureRule(is)
	rule := b.run.Tool.Driver.Rules[idx]

	loc := &sarif.Location{
		PhysicalLocation: &sarif.PhysicalLocation{
			ArtifactLocation: &sarif.ArtifactLocation{URI: pString(rep.URL)},
		},
		LogicalLocations: []*sarif.LogicalLocation{{
			FullyQualifiedName: pString(is.Target.Selector),
			Kind:               pString("element"),
		}},
		Message: &sarif.Message{Text: pString(fmt.Sprintf("Element %s on %s", is.Target.Selector, rep.Key()))},
	}
	if is.Target.Snippet != "" {
		loc.PhysicalLocation.Region = &sarif.Region{Snippet: &sarif.ArtifactContent{Text: pString(is.Target.Snippet)}}
	}

	b.run.Results = append(b.run.Results, &sarif.Result{
		RuleID:    rule.ID,
		RuleIndex: idx,
		Message:   &sarif.Message{Text: pString(is.Description)},
		Level:     mapImpactToSARIFLevel(is.Impact),
		Locations: []*sarif.Location{loc},
		Properties: sarif.PropertyBag{
			"route":    rep.Route,
			"viewport": rep.Viewport,
			"impact":   string(is.Impact),
			"fixable":  is.Fixable,
		},
	})
}

func sanitizeRuleName(name string) string {
	s := strings.ToUpper(name)
	s = ruleIDSanitizer.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "UNNAMED-RULE"
	}
	return s
}

// ensureRule returns the index of the rule describing is, registering it
// when new.
func (b *sarifBuilder) ensureRule(is a11y.Issue) int {
	fingerprint := calculateFingerprint(is)
	if idx, ok := b.rulesByFingerprint[fingerprint]; ok {
		return idx
	}

	baseRuleID := rulePrefix + sanitizeRuleName(is.ID)
	usage := b.ruleIDUsage[baseRuleID]
	b.ruleIDUsage[baseRuleID] = usage + 1
	ruleID := baseRuleID
	if usage > 0 {
		ruleID = fmt.Sprintf("%s-%d", baseRuleID, usage)
		b.logger.Debug("Rule ID collision detected, generated new ID with suffix",
			zap.String("base_id", baseRuleID), zap.String("final_id", ruleID))
	}

	markdownHelp := fmt.Sprintf("**Rule:** %s\n\n**WCAG:** %s (level %s)\n\n**Recommendation:**\n%s",
		is.ID, is.Criterion, is.Level, is.Recommendation)
	driver := b.run.Tool.Driver
	driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
		ID:               ruleID,
		Name:             pString(is.ID),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(is.Criterion.String())},
		FullDescription:  &sarif.MultiformatMessageString{Text: pString(is.Description)},
		Help: &sarif.MultiformatMessageString{
			Text:     pString(is.Recommendation),
			Markdown: pString(markdownHelp),
		},
		HelpURI:              pString(wcagURL(is.Criterion.Code)),
		DefaultConfiguration: &sarif.Configuration{Level: mapImpactToSARIFLevel(is.Impact)},
		Properties: sarif.PropertyBag{
			"tags":     []string{"accessibility", "wcag" + strings.ToLower(string(is.Level)), string(is.Category)},
			"category": string(is.Category),
			"wcag":     is.Criterion.Code,
		},
	})
	idx := len(driver.Rules) - 1
	b.rulesByFingerprint[fingerprint] = idx
	return idx
}

func wcagURL(code string) string {
	return "https://www.w3.org/WAI/WCAG21/quickref/#" + strings.ReplaceAll(code, ".", "")
}

func mapImpactToSARIFLevel(impact a11y.Impact) sarif.Level {
	switch impact {
	case a11y.ImpactCritical, a11y.ImpactSerious:
		return sarif.LevelError
	case a11y.ImpactModerate:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

func pString(s string) *string {
	return &s
}
