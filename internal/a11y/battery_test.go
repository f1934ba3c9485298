// File: internal/a11y/battery_test.go
package a11y

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uiprobe/internal/dom"
)

// cleanPage passes every detector; %s is spliced into <main>.
const cleanPage = `<!DOCTYPE html>
<html lang="en">
<head><title>Clean</title></head>
<body>
  <a href="#main">Skip to main content</a>
  <header><nav><a href="/">Home</a> <a href="/pricing">Pricing</a></nav></header>
  <main id="main">
    <h1>Welcome</h1>
    <p>Plain readable text.</p>
    %s
  </main>
  <footer><p>Contact us</p></footer>
</body>
</html>`

func snapshotOf(t *testing.T, markup string) *dom.Snapshot {
	t.Helper()
	snap, err := dom.FromHTML(strings.NewReader(markup), "https://app.test/")
	require.NoError(t, err)
	return snap
}

func cleanWith(t *testing.T, fragment string) *dom.Snapshot {
	t.Helper()
	return snapshotOf(t, fmt.Sprintf(cleanPage, fragment))
}

func runBattery(t *testing.T, snap *dom.Snapshot) []Issue {
	t.Helper()
	issues, errs := NewBattery(zaptest.NewLogger(t)).Run(snap)
	require.Empty(t, errs)
	return issues
}

func TestBattery_CleanPageHasNoIssues(t *testing.T) {
	issues := runBattery(t, cleanWith(t, ""))
	assert.Empty(t, issues)
}

func TestBattery_ScenarioMissingAlt(t *testing.T) {
	issues := runBattery(t, cleanWith(t, `<img src="/assets/hero-banner.png">`))

	require.Len(t, issues, 1)
	is := issues[0]
	assert.Equal(t, "missing-alt", is.ID)
	assert.Equal(t, ImpactSerious, is.Impact)
	assert.Equal(t, LevelA, is.Level)
	assert.True(t, is.Fixable)
	require.NotNil(t, is.Fix)
	assert.Equal(t, FixAddAttribute, is.Fix.Kind)
	assert.Equal(t, []Change{{Name: "alt", Value: "Hero banner"}}, is.Fix.Changes)
	assert.Equal(t, is.Target.Selector, is.Fix.Target)
}

func TestBattery_ScenarioMultipleH1(t *testing.T) {
	issues := runBattery(t, cleanWith(t, `<h1>Another title</h1>`))

	require.Len(t, issues, 1)
	assert.Equal(t, "multiple-h1", issues[0].ID)
	assert.Equal(t, ImpactCritical, issues[0].Impact)
}

func TestBattery_ScenarioUnlabelledInput(t *testing.T) {
	issues := runBattery(t, cleanWith(t, `<input>`))

	require.Len(t, issues, 1)
	assert.Equal(t, "missing-label", issues[0].ID)
	assert.Equal(t, ImpactSerious, issues[0].Impact)
	assert.True(t, issues[0].Fixable)
	assert.Equal(t, "Text input", issues[0].Fix.Changes[0].Value)
}

func TestBattery_IsIdempotent(t *testing.T) {
	snap := cleanWith(t, `<img src="a.png"><h3></h3><input placeholder="Email"><div role="bogus">x</div>`)
	first := runBattery(t, snap)
	second := runBattery(t, snap)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestBattery_FixImpliesFixable(t *testing.T) {
	snap := snapshotOf(t, `<html><body><img src="x.png"><h2 aria-label=""></h2><input placeholder="q">
		<div role="button" onclick="go()">Go</div><p style="color:#aaa">faint</p></body></html>`)
	for _, is := range runBattery(t, snap) {
		if is.Fix != nil {
			assert.True(t, is.Fixable, is.ID)
		}
		if !is.Fixable {
			assert.Nil(t, is.Fix, is.ID)
		}
		assert.NotEmpty(t, is.Impact, is.ID)
		assert.NotEmpty(t, is.Level, is.ID)
	}
}

type panickingDetector struct{}

func (panickingDetector) Name() string { return "exploding" }

func (panickingDetector) Detect(*dom.Snapshot) []Issue {
	panic("boom")
}

func TestBattery_IsolatesDetectorPanics(t *testing.T) {
	snap := cleanWith(t, `<img src="a.png">`)
	battery := NewBattery(zaptest.NewLogger(t), panickingDetector{}, AltTextDetector{})

	issues, errs := battery.Run(snap)

	require.Len(t, errs, 1)
	var detErr *DetectorError
	require.True(t, errors.As(errs[0], &detErr))
	assert.Equal(t, "exploding", detErr.Detector)
	assert.Contains(t, detErr.Error(), "boom")
	assert.NotEmpty(t, detErr.Stack)

	require.Len(t, issues, 1, "later detectors still run")
	assert.Equal(t, "missing-alt", issues[0].ID)
}

func TestCountAndSort(t *testing.T) {
	issues := []Issue{
		{ID: "a", Impact: ImpactMinor},
		{ID: "b", Impact: ImpactCritical, Fixable: true},
		{ID: "c", Impact: ImpactSerious},
		{ID: "d", Impact: ImpactCritical},
	}
	c := Count(issues)
	assert.Equal(t, Counts{Total: 4, Critical: 2, Serious: 1, Minor: 1, Fixable: 1}, c)

	SortByImpact(issues)
	var ids []string
	for _, is := range issues {
		ids = append(ids, is.ID)
	}
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids)
}
