// internal/reporting/markdown.go
package reporting

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownRenderer writes the human-readable report.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Format() string { return "markdown" }
func (MarkdownRenderer) Path() string   { return "REPORT.md" }

func (MarkdownRenderer) Render(m *MasterReport) ([]byte, error) {
	return []byte(renderMarkdown(m)), nil
}

func renderMarkdown(m *MasterReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# UI Quality Report\n\n")
	fmt.Fprintf(&b, "- **Target:** %s\n", m.Target)
	fmt.Fprintf(&b, "- **Mode:** %s\n", m.Mode)
	fmt.Fprintf(&b, "- **Run:** `%s`\n", m.RunID)
	fmt.Fprintf(&b, "- **Started:** %s\n", m.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Duration:** %s\n", m.FinishedAt.Sub(m.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(&b, "- **Health score:** %.1f / 100 (grade %s)\n\n", m.HealthScore, grade(m.HealthScore))

	s := m.Summary
	b.WriteString("## Summary\n\n| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Audited units | %d |\n", s.Units)
	fmt.Fprintf(&b, "| Average accessibility score | %.1f |\n", s.AverageScore)
	fmt.Fprintf(&b, "| Accessibility issues | %d (critical %d, serious %d, moderate %d, minor %d) |\n",
		s.Issues.Total, s.Issues.Critical, s.Issues.Serious, s.Issues.Moderate, s.Issues.Minor)
	fmt.Fprintf(&b, "| Fixes applied | %d |\n", s.FixesApplied)
	fmt.Fprintf(&b, "| Runtime errors | %d |\n", s.RuntimeErrors)
	fmt.Fprintf(&b, "| Navigation defects | %d critical, %d other |\n", s.CriticalDefects, s.OtherDefects)
	fmt.Fprintf(&b, "| UI findings | %d |\n", s.UIFindings)
	fmt.Fprintf(&b, "| Reference designs | %d (average score %.1f) |\n\n", s.DesignSources, s.AverageDesignScore)

	writePhases(&b, m)
	writeCoverage(&b, m)
	writeRecommendations(&b, "## Recommendations", m.Recommendations)
	writeAudits(&b, m)
	writeRuntime(&b, m)
	writeNavigation(&b, m)
	writeUI(&b, m)
	writeDesigns(&b, m)
	return b.String()
}

func writePhases(b *strings.Builder, m *MasterReport) {
	if len(m.Phases) == 0 {
		return
	}
	b.WriteString("## Phases\n\n| Phase | Status | Duration | Error |\n|---|---|---|---|\n")
	for _, p := range m.Phases {
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n", p.Name, p.Status, p.Duration.Round(time.Millisecond), cell(p.Error))
	}
	b.WriteString("\n")
}

func writeCoverage(b *strings.Builder, m *MasterReport) {
	c := m.Coverage
	b.WriteString("## Coverage\n\n")
	fmt.Fprintf(b, "- Units: %d of %d completed\n", c.CompletedUnits, c.ConfiguredUnits)
	fmt.Fprintf(b, "- Reference sources: %d of %d analyzed\n", c.CompletedSources, c.ConfiguredSources)
	if len(c.Truncated) > 0 {
		fmt.Fprintf(b, "- Partial snapshots (element cap reached): %s\n", strings.Join(c.Truncated, ", "))
	}
	b.WriteString("\n")
	if len(c.Errored) == 0 {
		return
	}
	b.WriteString("| Phase | Unit | Error |\n|---|---|---|\n")
	for _, u := range c.Errored {
		fmt.Fprintf(b, "| %s | %s | %s |\n", u.Phase, cell(u.Unit), cell(u.Error))
	}
	b.WriteString("\n")
}

func writeRecommendations(b *strings.Builder, heading string, r Recommendations) {
	b.WriteString(heading + "\n\n")
	buckets := []struct {
		name  string
		items []Recommendation
	}{
		{"Immediate", r.Immediate},
		{"Short term", r.ShortTerm},
		{"Long term", r.LongTerm},
	}
	for _, bucket := range buckets {
		fmt.Fprintf(b, "### %s\n\n", bucket.name)
		if len(bucket.items) == 0 {
			b.WriteString("Nothing to do.\n\n")
			continue
		}
		for _, it := range bucket.items {
			b.WriteString("- " + recommendationLine(it) + "\n")
		}
		b.WriteString("\n")
	}
}

func recommendationLine(r Recommendation) string {
	line := fmt.Sprintf("**[%s]** %s", r.Source, r.Title)
	if r.Count > 1 {
		line += fmt.Sprintf(" (%d occurrences)", r.Count)
	}
	if r.Detail != "" {
		line += ": " + oneLine(r.Detail)
	}
	return line
}

func writeAudits(b *strings.Builder, m *MasterReport) {
	if len(m.Audits) == 0 {
		return
	}
	b.WriteString("## Accessibility\n\n| Route | Viewport | Score | Grade | A | AA | AAA | Issues | Fixes |\n|---|---|---|---|---|---|---|---|---|\n")
	for _, r := range m.Audits {
		fmt.Fprintf(b, "| %s | %s | %.1f | %s | %.1f | %.1f | %.1f | %d | %d |\n",
			cell(r.Route), cell(r.Viewport), r.Score, r.Grade,
			r.LevelScores["A"], r.LevelScores["AA"], r.LevelScores["AAA"],
			r.Summary.Total, r.FixesApplied())
	}
	b.WriteString("\n")
	for _, r := range m.Audits {
		if len(r.Issues) == 0 {
			continue
		}
		fmt.Fprintf(b, "### %s @ %s\n\n", r.Route, r.Viewport)
		if r.Remediation != nil && r.Remediation.Score != nil {
			fmt.Fprintf(b, "Score after remediation: %.1f\n\n", *r.Remediation.Score)
		}
		b.WriteString("| Impact | Rule | WCAG | Element | Description |\n|---|---|---|---|---|\n")
		for _, is := range r.Issues {
			fmt.Fprintf(b, "| %s | %s | %s (%s) | `%s` | %s |\n",
				is.Impact, is.ID, is.Criterion.Code, is.Level, cell(is.Target.Selector), cell(is.Description))
		}
		b.WriteString("\n")
	}
}

func writeRuntime(b *strings.Builder, m *MasterReport) {
	if len(m.Runtime) == 0 {
		return
	}
	b.WriteString("## Runtime errors\n\n")
	for _, r := range m.Runtime {
		fmt.Fprintf(b, "### %s\n\n- URL: %s\n- Status: %d\n- Errors: %d\n\n", r.Route, r.URL, r.Status, r.ErrorCount())
		for _, c := range r.Console {
			if c.IsError() {
				fmt.Fprintf(b, "- `%s` %s\n", c.Source, oneLine(c.Text))
			}
		}
		for _, f := range r.FailedRequests {
			reason := f.ErrorText
			if reason == "" {
				reason = fmt.Sprintf("HTTP %d", f.Status)
			}
			fmt.Fprintf(b, "- `%s %s` %s\n", f.Method, f.URL, reason)
		}
		b.WriteString("\n")
	}
}

func writeNavigation(b *strings.Builder, m *MasterReport) {
	if len(m.Navigation) == 0 {
		return
	}
	b.WriteString("## Navigation\n\n| Route | Interactions | Links found | Links checked | Defects |\n|---|---|---|---|---|\n")
	for _, r := range m.Navigation {
		fmt.Fprintf(b, "| %s | %d | %d | %d | %d |\n", cell(r.Route), r.Interactions, r.LinksFound, r.LinksChecked, len(r.Defects))
	}
	b.WriteString("\n")
	defects := m.Defects()
	if len(defects) == 0 {
		return
	}
	b.WriteString("| Severity | Kind | Route | URL | Detail |\n|---|---|---|---|---|\n")
	for _, d := range defects {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n", d.Severity, d.Kind, cell(d.Route), cell(d.URL), cell(d.Detail))
	}
	b.WriteString("\n")
}

func writeUI(b *strings.Builder, m *MasterReport) {
	if len(m.UI) == 0 {
		return
	}
	b.WriteString("## UI analysis\n\n| Route | Viewport | Size | Findings | Screenshot |\n|---|---|---|---|---|\n")
	for _, r := range m.UI {
		shot := "-"
		if r.Screenshot != "" {
			shot = fmt.Sprintf("[png](%s)", r.Screenshot)
		}
		fmt.Fprintf(b, "| %s | %s | %dx%d | %d | %s |\n", cell(r.Route), cell(r.Viewport), r.Width, r.Height, len(r.Findings), shot)
	}
	b.WriteString("\n")
}

func writeDesigns(b *strings.Builder, m *MasterReport) {
	if len(m.Designs) == 0 {
		return
	}
	b.WriteString("## Reference designs\n\n| Source | Category | Score | Layout | Colours | Motifs |\n|---|---|---|---|---|---|\n")
	for _, d := range m.Designs {
		motifs := make([]string, 0, len(d.Motifs))
		for _, mo := range d.Motifs {
			motifs = append(motifs, mo.Name)
		}
		fmt.Fprintf(b, "| [%s](%s) | %s | %.0f | %s | %d | %s |\n",
			cell(d.Name), d.URL, d.Category, d.Score, d.Layout.Kind, len(d.Palette), cell(strings.Join(motifs, ", ")))
	}
	b.WriteString("\n")
}

// cell escapes a value for a Markdown table cell.
func cell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
