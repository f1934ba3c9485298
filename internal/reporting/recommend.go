// internal/reporting/recommend.go
package reporting

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/uiprobe/internal/a11y"
	"github.com/xkilldash9x/uiprobe/internal/scoring"
)

// failingUnitScore is the overall score under which a unit needs immediate work.
const failingUnitScore = 50.0

// Recommendation sources.
const (
	SourceAccessibility = "accessibility"
	SourceNavigation    = "navigation"
	SourceRuntime       = "runtime"
	SourceUI            = "ui"
	SourceCoverage      = "coverage"
	SourceDesign        = "design"
)

// Recommend sorts the run's findings into urgency buckets. Items keep the
// order in which their first occurrence appears in the report.
func Recommend(m *MasterReport) Recommendations {
	recs := Recommendations{
		Immediate: []Recommendation{},
		ShortTerm: []Recommendation{},
		LongTerm:  []Recommendation{},
	}

	for _, d := range m.Defects() {
		r := Recommendation{
			Source: SourceNavigation,
			Title:  fmt.Sprintf("Fix %s on %s", d.Kind, d.URL),
			Detail: d.Detail,
		}
		if d.Critical() {
			recs.Immediate = append(recs.Immediate, r)
		} else {
			recs.ShortTerm = append(recs.ShortTerm, r)
		}
	}

	for _, rt := range m.Runtime {
		if n := rt.ErrorCount(); n > 0 {
			recs.Immediate = append(recs.Immediate, Recommendation{
				Source: SourceRuntime,
				Title:  fmt.Sprintf("Resolve runtime errors on route %q", rt.Route),
				Detail: firstRuntimeError(rt),
				Count:  n,
			})
		}
	}

	for _, r := range m.Audits {
		if r.Score < failingUnitScore {
			recs.Immediate = append(recs.Immediate, Recommendation{
				Source: SourceAccessibility,
				Title:  fmt.Sprintf("Raise the accessibility score of %s", r.Key()),
				Detail: fmt.Sprintf("Score %.1f (grade %s) with %d issues.", r.Score, r.Grade, r.Summary.Total),
			})
		}
	}

	for _, g := range groupIssues(m) {
		r := Recommendation{
			Source: SourceAccessibility,
			Title:  g.issue.Recommendation,
			Detail: fmt.Sprintf("%s (WCAG %s, level %s): %s", g.issue.ID, g.issue.Criterion, g.issue.Level, g.issue.Description),
			Count:  g.count,
		}
		switch g.issue.Impact {
		case a11y.ImpactCritical:
			recs.Immediate = append(recs.Immediate, r)
		case a11y.ImpactSerious:
			recs.ShortTerm = append(recs.ShortTerm, r)
		default:
			recs.LongTerm = append(recs.LongTerm, r)
		}
	}

	for _, g := range groupFindings(m) {
		recs.ShortTerm = append(recs.ShortTerm, Recommendation{
			Source: SourceUI,
			Title:  fmt.Sprintf("Fix %s layout findings", g.rule),
			Detail: g.example,
			Count:  g.count,
		})
	}

	for _, p := range m.Phases {
		if p.Status == StatusFailed {
			recs.ShortTerm = append(recs.ShortTerm, Recommendation{
				Source: SourceCoverage,
				Title:  fmt.Sprintf("Investigate the failed %s phase", p.Name),
				Detail: p.Error,
			})
		}
	}
	for _, u := range m.Coverage.Errored {
		recs.ShortTerm = append(recs.ShortTerm, Recommendation{
			Source: SourceCoverage,
			Title:  fmt.Sprintf("Restore coverage of %s (%s)", u.Unit, u.Phase),
			Detail: u.Error,
		})
	}
	if n := len(m.Coverage.Truncated); n > 0 {
		recs.ShortTerm = append(recs.ShortTerm, Recommendation{
			Source: SourceCoverage,
			Title:  fmt.Sprintf("Re-check %d unit(s) audited from a partial snapshot", n),
			Detail: strings.Join(m.Coverage.Truncated, ", "),
			Count:  n,
		})
	}

	if m.Benchmark != nil {
		for _, s := range m.Benchmark.Suggestions() {
			recs.LongTerm = append(recs.LongTerm, Recommendation{Source: SourceDesign, Title: s})
		}
	}
	return recs
}

type issueGroup struct {
	issue a11y.Issue
	count int
}

// groupIssues groups issues by rule id. The group takes the most severe
// impact seen for the rule.
func groupIssues(m *MasterReport) []*issueGroup {
	var order []*issueGroup
	byID := map[string]*issueGroup{}
	for _, r := range m.Audits {
		for _, is := range r.Issues {
			g, ok := byID[is.ID]
			if !ok {
				g = &issueGroup{issue: is}
				byID[is.ID] = g
				order = append(order, g)
			}
			if is.Impact.Rank() > g.issue.Impact.Rank() {
				g.issue.Impact = is.Impact
			}
			g.count++
		}
	}
	return order
}

type findingGroup struct {
	rule    string
	example string
	count   int
}

func groupFindings(m *MasterReport) []*findingGroup {
	var order []*findingGroup
	byRule := map[string]*findingGroup{}
	for _, r := range m.UI {
		for _, f := range r.Findings {
			g, ok := byRule[f.Rule]
			if !ok {
				g = &findingGroup{rule: f.Rule, example: fmt.Sprintf("%s@%s: %s", r.Route, r.Viewport, f.Description)}
				byRule[f.Rule] = g
				order = append(order, g)
			}
			g.count++
		}
	}
	return order
}

func firstRuntimeError(r *RuntimeReport) string {
	for _, c := range r.Console {
		if c.IsError() {
			return c.Text
		}
	}
	if len(r.FailedRequests) > 0 {
		f := r.FailedRequests[0]
		if f.ErrorText != "" {
			return fmt.Sprintf("%s %s: %s", f.Method, f.URL, f.ErrorText)
		}
		return fmt.Sprintf("%s %s: HTTP %d", f.Method, f.URL, f.Status)
	}
	if r.Status >= 400 {
		return fmt.Sprintf("document answered HTTP %d", r.Status)
	}
	return ""
}

// grade is the letter grade of the health score.
func grade(score float64) string {
	return scoring.Grade(score)
}
