// internal/audit/audit.go

// Package audit produces the accessibility report for one unit of work:
// detector battery, scoring, category sub-reports and, on live pages,
// remediation followed by an optional re-audit.
package audit

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/a11y"
	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/dom"
	"github.com/xkilldash9x/uiprobe/internal/remediation"
	"github.com/xkilldash9x/uiprobe/internal/scoring"
)

const (
	maxFocusOrder   = 50
	maxHeadingText  = 80
	maxContrastRows = 100
)

// Auditor runs the accessibility audit.
type Auditor struct {
	logger     *zap.Logger
	battery    *a11y.Battery
	remediator *remediation.Engine
	cfg        config.AccessibilityConfig
	now        func() time.Time
}

// NewAuditor creates an auditor. A nil remediator disables remediation.
func NewAuditor(logger *zap.Logger, battery *a11y.Battery, remediator *remediation.Engine, cfg config.AccessibilityConfig) *Auditor {
	return &Auditor{
		logger:     logger.Named("audit"),
		battery:    battery,
		remediator: remediator,
		cfg:        cfg,
		now:        time.Now,
	}
}

// AuditSnapshot audits a snapshot without touching any page.
func (a *Auditor) AuditSnapshot(snap *dom.Snapshot, route, viewport string) *Report {
	issues, errs := a.battery.Run(snap)
	a11y.SortByImpact(issues)

	score := scoring.Overall(issues)
	r := &Report{
		Timestamp:   a.now().UTC(),
		Route:       route,
		Viewport:    viewport,
		URL:         snap.URL,
		Title:       snap.Title,
		Static:      snap.Static,
		Score:       score,
		Grade:       scoring.Grade(score),
		LevelScores: scoring.LevelScores(issues),
		Issues:      issues,
		Summary:     a11y.Count(issues),
		ByCategory:  byCategory(issues),
		Contrast:    contrastReport(snap),
		Keyboard:    keyboardReport(snap, issues),
		Screen:      screenReaderReport(snap, issues),

		Truncated:        snap.Truncated,
		Elements:         len(snap.Elements),
		DocumentElements: snap.DocumentElements,
	}
	if r.Issues == nil {
		r.Issues = []a11y.Issue{}
	}
	for _, err := range errs {
		r.DetectorErrors = append(r.DetectorErrors, err.Error())
	}
	return r
}

// AuditPage collects the live document, audits it and, when enabled,
// remediates fixable issues and re-audits the result.
func (a *Auditor) AuditPage(ctx context.Context, page browser.Page, route, viewport string) (*Report, error) {
	snap, err := dom.Collect(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("audit %s@%s: %w", route, viewport, err)
	}
	r := a.AuditSnapshot(snap, route, viewport)
	if r.Truncated {
		a.logger.Warn("Snapshot truncated; absence rules skipped.",
			zap.String("route", route),
			zap.String("viewport", viewport),
			zap.Int("collected", r.Elements),
			zap.Int("document", r.DocumentElements))
	}
	a.logger.Info("Accessibility audit complete.",
		zap.String("route", route),
		zap.String("viewport", viewport),
		zap.Float64("score", r.Score),
		zap.Int("issues", r.Summary.Total))

	if !a.cfg.Remediate || a.remediator == nil || r.Summary.Fixable == 0 {
		return r, nil
	}

	outcome := a.remediator.ApplyAll(ctx, page, r.Issues)
	rem := &RemediationReport{Attempted: outcome.Attempted, Applied: outcome.Applied}
	for _, f := range outcome.Failures {
		rem.Failed = append(rem.Failed, f.Error())
	}
	r.Remediation = rem

	if a.cfg.Reaudit && outcome.Applied > 0 {
		after, err := dom.Collect(ctx, page)
		if err != nil {
			a.logger.Warn("Re-audit after remediation failed.", zap.String("route", route), zap.Error(err))
			return r, nil
		}
		issues, _ := a.battery.Run(after)
		score := scoring.Overall(issues)
		counts := a11y.Count(issues)
		rem.Score = &score
		rem.Summary = &counts
		a.logger.Info("Re-audit after remediation.",
			zap.String("route", route),
			zap.Float64("before", r.Score),
			zap.Float64("after", score))
	}
	return r, nil
}

func byCategory(issues []a11y.Issue) map[a11y.Category]int {
	out := make(map[a11y.Category]int, len(a11y.Categories))
	for _, c := range a11y.Categories {
		out[c] = 0
	}
	for _, is := range issues {
		out[is.Category]++
	}
	return out
}

func countIDs(issues []a11y.Issue, id string) int {
	n := 0
	for _, is := range issues {
		if is.ID == id {
			n++
		}
	}
	return n
}

func contrastReport(snap *dom.Snapshot) ContrastReport {
	var rep ContrastReport
	for _, res := range a11y.EvaluateContrast(snap) {
		rep.Checked++
		failAA := res.Ratio < res.RequiredAA()
		failAAA := res.Ratio < res.RequiredAAA()
		if failAA {
			rep.FailingAA++
		}
		if failAAA {
			rep.FailingAAA++
		}
		if failAAA && len(rep.Failures) < maxContrastRows {
			rep.Failures = append(rep.Failures, ContrastFailure{
				Selector:    res.Element.Selector,
				Foreground:  res.Foreground.Hex(),
				Background:  res.Background.Hex(),
				Ratio:       res.Ratio,
				RequiredAA:  res.RequiredAA(),
				RequiredAAA: res.RequiredAAA(),
				Large:       res.Large,
			})
		}
	}
	return rep
}

func keyboardReport(snap *dom.Snapshot, issues []a11y.Issue) KeyboardReport {
	rep := KeyboardReport{
		Unreachable:      countIDs(issues, "keyboard-unreachable"),
		MissingIndicator: countIDs(issues, "focus-indicator-missing"),
		SkipLink:         countIDs(issues, "skip-link-missing") == 0,
	}
	for i := range snap.Elements {
		e := &snap.Elements[i]
		if !e.Visible {
			continue
		}
		if snap.Interactive(e) {
			rep.Interactive++
		}
	}
	order := snap.FocusOrder()
	rep.Focusable = len(order)
	for _, e := range order {
		if len(rep.FocusOrder) == maxFocusOrder {
			break
		}
		rep.FocusOrder = append(rep.FocusOrder, e.Selector)
	}
	return rep
}

var landmarkTags = map[string]string{
	"main":   "main",
	"nav":    "navigation",
	"aside":  "complementary",
	"header": "banner",
	"footer": "contentinfo",
	"search": "search",
}

func screenReaderReport(snap *dom.Snapshot, issues []a11y.Issue) ScreenReaderReport {
	rep := ScreenReaderReport{
		Lang:              snap.Lang,
		Title:             snap.Title,
		Landmarks:         map[string]int{},
		ImagesWithoutAlt:  countIDs(issues, "missing-alt"),
		UnlabeledControls: countIDs(issues, "missing-label"),
	}
	for _, is := range issues {
		if is.Category == a11y.CategoryARIA {
			rep.AriaIssues++
		}
	}
	for i := range snap.Elements {
		e := &snap.Elements[i]
		if role := e.Role(); role != "" {
			switch role {
			case "main", "navigation", "complementary", "banner", "contentinfo", "search", "region", "form":
				rep.Landmarks[role]++
				continue
			}
		}
		if lm, ok := landmarkTags[e.Tag]; ok {
			if (e.Tag == "header" || e.Tag == "footer") && snap.ClosestTag(e, "article", "aside", "main", "nav", "section") != nil {
				continue
			}
			rep.Landmarks[lm]++
		}
		if lvl := e.HeadingLevel(); lvl > 0 && e.Visible {
			rep.Headings = append(rep.Headings, Heading{Level: lvl, Text: clip(e.Text, maxHeadingText)})
		}
	}
	return rep
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
