// internal/reporting/reporting_test.go
package reporting

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiprobe/internal/a11y"
	"github.com/xkilldash9x/uiprobe/internal/audit"
	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/design"
	"github.com/xkilldash9x/uiprobe/internal/explore"
	"github.com/xkilldash9x/uiprobe/internal/uicheck"
)

var (
	started  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	finished = started.Add(90 * time.Second)
)

func testIssue(id string, cat a11y.Category, impact a11y.Impact, selector string) a11y.Issue {
	return a11y.Issue{
		ID:             id,
		Category:       cat,
		Impact:         impact,
		Level:          a11y.LevelA,
		Criterion:      a11y.Criterion{Code: "1.1.1", Title: "Non-text Content"},
		Description:    "problem with " + id,
		Target:         a11y.Target{Selector: selector, Snippet: "<img src=\"x.png\">"},
		Recommendation: "Fix " + id,
	}
}

func testAudit(route, viewport string, score float64, issues ...a11y.Issue) *audit.Report {
	if issues == nil {
		issues = []a11y.Issue{}
	}
	return &audit.Report{
		Timestamp:   started,
		Route:       route,
		Viewport:    viewport,
		URL:         "https://example.test/" + route,
		Score:       score,
		Grade:       "B",
		LevelScores: map[a11y.Level]float64{a11y.LevelA: score, a11y.LevelAA: score, a11y.LevelAAA: score},
		Issues:      issues,
		Summary:     a11y.Count(issues),
	}
}

// fixtureReport has a bit of everything.
func fixtureReport() *MasterReport {
	m := NewMasterReport("full", "https://example.test", started)
	m.Audits = []*audit.Report{
		testAudit("home", "desktop", 80,
			testIssue("image-alt", a11y.CategoryAltText, a11y.ImpactCritical, "img.hero"),
			testIssue("image-alt", a11y.CategoryAltText, a11y.ImpactCritical, "img.logo"),
			testIssue("label", a11y.CategoryForms, a11y.ImpactSerious, "#email"),
		),
		testAudit("about", "desktop", 85,
			testIssue("image-alt", a11y.CategoryAltText, a11y.ImpactCritical, "img.team"),
			testIssue("heading-order", a11y.CategoryHeadings, a11y.ImpactModerate, "h4"),
		),
	}
	m.Runtime = []*RuntimeReport{
		{Route: "home", URL: "https://example.test/home", Status: 200, Console: []browser.ConsoleEntry{
			{Level: browser.LevelError, Source: browser.SourceException, Text: "TypeError: x is undefined", Timestamp: started},
			{Level: browser.LevelWarning, Source: browser.SourceConsole, Text: "deprecated", Timestamp: started},
		}},
		{Route: "about", URL: "https://example.test/about", Status: 200},
	}
	m.Navigation = []*explore.Report{{
		Timestamp: started, Route: "home", URL: "https://example.test/home", LinksFound: 3, LinksChecked: 3,
		Defects: []explore.Defect{
			{Kind: explore.KindServerError, Severity: explore.SeverityCritical, Route: "home", URL: "https://example.test/api", Status: 500, Detail: "HTTP 500"},
			{Kind: explore.KindBrokenLink, Severity: explore.SeverityMajor, Route: "home", URL: "https://example.test/gone", Status: 404, Detail: "HTTP 404"},
		},
	}}
	m.UI = []*uicheck.Report{{
		Timestamp: started, Route: "home", Viewport: "mobile", Width: 375, Height: 667,
		Findings: []uicheck.Finding{{Rule: uicheck.RuleSmallTapTarget, Selector: "a.tiny", Description: "too small"}},
		Counts:   map[string]int{uicheck.RuleSmallTapTarget: 1},
	}}
	m.Coverage = Coverage{ConfiguredUnits: 3, CompletedUnits: 2, ConfiguredSources: 1}
	m.Errored("accessibility", "pricing@desktop", errors.New("navigation to https://example.test/pricing failed"))
	m.Phases = []PhaseStatus{{Name: "accessibility", Status: StatusOK, Duration: time.Second}}
	m.Synthesize(finished)
	return m
}

func TestHealthScore(t *testing.T) {
	assert.Equal(t, 100.0, HealthScore(HealthInputs{}))
	assert.Equal(t, 63.0, HealthScore(HealthInputs{
		RuntimeErrors: 2, CriticalDefects: 1, OtherDefects: 2, TotalIssues: 10, FixesApplied: 4,
	}))
	// Fixes beyond the issue count earn nothing extra.
	assert.Equal(t, 98.5, HealthScore(HealthInputs{TotalIssues: 3, FixesApplied: 10}))
	assert.Equal(t, 0.0, HealthScore(HealthInputs{CriticalDefects: 10}))
}

func TestSynthesizeSummary(t *testing.T) {
	m := fixtureReport()
	s := m.Summary

	assert.Equal(t, 2, s.Units)
	assert.Equal(t, 5, s.Issues.Total)
	assert.Equal(t, 3, s.Issues.Critical)
	assert.Equal(t, 82.5, s.AverageScore)
	assert.Equal(t, 1, s.RuntimeErrors, "warnings are not runtime errors")
	assert.Equal(t, 1, s.CriticalDefects)
	assert.Equal(t, 1, s.OtherDefects)
	assert.Equal(t, 1, s.UIFindings)
	assert.Equal(t, finished, m.FinishedAt)
	assert.Nil(t, m.Benchmark)

	// 100 - 2*1 - 15*1 - 5*1 - 5 unresolved
	assert.Equal(t, 73.0, m.HealthScore)
}

func TestRecommendBuckets(t *testing.T) {
	m := fixtureReport()
	recs := m.Recommendations

	require.Len(t, recs.Immediate, 3)
	assert.Equal(t, SourceNavigation, recs.Immediate[0].Source)
	assert.Contains(t, recs.Immediate[0].Title, "https://example.test/api")
	assert.Equal(t, SourceRuntime, recs.Immediate[1].Source)
	assert.Equal(t, "TypeError: x is undefined", recs.Immediate[1].Detail)
	assert.Equal(t, SourceAccessibility, recs.Immediate[2].Source)
	assert.Equal(t, "Fix image-alt", recs.Immediate[2].Title)
	assert.Equal(t, 3, recs.Immediate[2].Count, "issues are grouped by rule across units")

	var shortSources []string
	for _, r := range recs.ShortTerm {
		shortSources = append(shortSources, r.Source)
	}
	assert.Equal(t, []string{SourceNavigation, SourceAccessibility, SourceUI, SourceCoverage}, shortSources)

	require.Len(t, recs.LongTerm, 1)
	assert.Equal(t, "Fix heading-order", recs.LongTerm[0].Title)
}

func TestRecommendFailingUnitIsImmediate(t *testing.T) {
	m := NewMasterReport("quick", "https://example.test", started)
	m.Audits = []*audit.Report{testAudit("home", "desktop", 42,
		testIssue("color-contrast", a11y.CategoryContrast, a11y.ImpactSerious, "p"))}
	m.Synthesize(finished)

	require.Len(t, m.Recommendations.Immediate, 1)
	assert.Contains(t, m.Recommendations.Immediate[0].Title, "home-desktop")
}

func TestScenarioCleanSite(t *testing.T) {
	m := NewMasterReport("full", "https://example.test", started)
	m.Audits = []*audit.Report{testAudit("home", "desktop", 100), testAudit("home", "mobile", 100)}
	m.Runtime = []*RuntimeReport{{Route: "home", URL: "https://example.test/", Status: 200}}
	m.Navigation = []*explore.Report{{Route: "home", URL: "https://example.test/", LinksFound: 2, LinksChecked: 2, Defects: []explore.Defect{}}}
	m.UI = []*uicheck.Report{{Route: "home", Viewport: "desktop", Findings: []uicheck.Finding{}}}
	m.Designs = []*design.Analysis{{
		Reference: design.Reference{Name: "Stripe", URL: "https://stripe.com", Category: "fintech", Priority: "high"},
		Score:     72,
		Layout:    design.Layout{Kind: "grid"},
	}}
	m.Synthesize(finished)

	assert.Equal(t, 100.0, m.HealthScore)
	assert.NotNil(t, m.Recommendations.Immediate)
	assert.Empty(t, m.Recommendations.Immediate)
	require.NotNil(t, m.Benchmark)
	assert.Equal(t, 1, m.Benchmark.Sources)
	assert.Equal(t, 72.0, m.Summary.AverageDesignScore)
}

func TestMasterReportJSONRoundTrip(t *testing.T) {
	m := fixtureReport()

	data, err := JSONRenderer{}.Render(m)
	require.NoError(t, err)
	decoded, err := DecodeMasterReport(data)
	require.NoError(t, err)

	if diff := cmp.Diff(m.Summary, decoded.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.Coverage, decoded.Coverage); diff != "" {
		t.Errorf("coverage mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.Recommendations, decoded.Recommendations); diff != "" {
		t.Errorf("recommendations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.Audits, decoded.Audits); diff != "" {
		t.Errorf("audits mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, m.RunID, decoded.RunID)
	assert.Equal(t, m.HealthScore, decoded.HealthScore)
	assert.True(t, m.StartedAt.Equal(decoded.StartedAt))
}

func TestDecodeMasterReportRejectsGarbage(t *testing.T) {
	_, err := DecodeMasterReport([]byte("{not json"))
	assert.Error(t, err)
}

func TestSynthesize_ReportsPartialSnapshots(t *testing.T) {
	m := NewMasterReport("quick", "https://shop.test", started)
	m.Audits = []*audit.Report{
		{Route: "home", Viewport: "desktop", Score: 100, Truncated: true, Elements: 5000, DocumentElements: 8200},
		{Route: "about", Viewport: "desktop", Score: 100, Elements: 300},
	}

	m.Synthesize(finished)
	m.Synthesize(finished)

	assert.Equal(t, []string{"home-desktop"}, m.Coverage.Truncated)
	require.Len(t, m.Recommendations.ShortTerm, 1)
	rec := m.Recommendations.ShortTerm[0]
	assert.Equal(t, SourceCoverage, rec.Source)
	assert.Equal(t, 1, rec.Count)
	assert.Equal(t, "home-desktop", rec.Detail)

	data, err := MarkdownRenderer{}.Render(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), "- Partial snapshots (element cap reached): home-desktop")
}
