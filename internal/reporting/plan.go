// internal/reporting/plan.go
package reporting

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/uiprobe/internal/a11y"
)

// PlanRenderer writes the improvement plan: the recommendation buckets as a
// checklist, followed by the issues a mechanical fix exists for.
type PlanRenderer struct{}

func (PlanRenderer) Format() string { return "plan" }
func (PlanRenderer) Path() string   { return "IMPROVEMENT_PLAN.md" }

func (PlanRenderer) Render(m *MasterReport) ([]byte, error) {
	var b strings.Builder
	b.WriteString("# Improvement Plan\n\n")
	fmt.Fprintf(&b, "Target: %s. Current health score %.1f (grade %s).\n\n", m.Target, m.HealthScore, grade(m.HealthScore))

	phases := []struct {
		title string
		items []Recommendation
	}{
		{"Phase 1: immediate", m.Recommendations.Immediate},
		{"Phase 2: short term", m.Recommendations.ShortTerm},
		{"Phase 3: long term", m.Recommendations.LongTerm},
	}
	for _, p := range phases {
		fmt.Fprintf(&b, "## %s\n\n", p.title)
		if len(p.items) == 0 {
			b.WriteString("Nothing scheduled.\n\n")
			continue
		}
		for _, it := range p.items {
			b.WriteString("- [ ] " + recommendationLine(it) + "\n")
		}
		b.WriteString("\n")
	}

	fixable := fixableIssues(m)
	if len(fixable) > 0 {
		b.WriteString("## Mechanical fixes\n\nThese edits were validated against the rendered page and can be ported to source.\n\n")
		b.WriteString("| Unit | Rule | Element | Fix |\n|---|---|---|---|\n")
		for _, f := range fixable {
			fmt.Fprintf(&b, "| %s | %s | `%s` | %s |\n", f.unit, f.issue.ID, cell(f.issue.Target.Selector), cell(describeFix(f.issue.Fix)))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Targets\n\n")
	for _, r := range m.Audits {
		target := r.Score + (100-r.Score)/2
		fmt.Fprintf(&b, "- %s: raise accessibility score from %.1f to at least %.1f\n", r.Key(), r.Score, target)
	}
	if len(m.Audits) == 0 {
		b.WriteString("- No accessibility audits ran.\n")
	}
	return []byte(b.String()), nil
}

type unitIssue struct {
	unit  string
	issue a11y.Issue
}

func fixableIssues(m *MasterReport) []unitIssue {
	var out []unitIssue
	for _, r := range m.Audits {
		for _, is := range r.Issues {
			if is.Fixable && is.Fix != nil {
				out = append(out, unitIssue{unit: r.Key(), issue: is})
			}
		}
	}
	return out
}

func describeFix(f *a11y.Fix) string {
	parts := make([]string, 0, len(f.Changes))
	for _, c := range f.Changes {
		parts = append(parts, fmt.Sprintf("%s=%q", c.Name, c.Value))
	}
	return fmt.Sprintf("%s %s", f.Kind, strings.Join(parts, " "))
}
