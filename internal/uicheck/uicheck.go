// internal/uicheck/uicheck.go

// Package uicheck runs the responsive layout checks of the UI analysis phase
// and captures a screenshot of every route at every viewport.
package uicheck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/dom"
	"github.com/xkilldash9x/uiprobe/internal/sink"
)

// Rule ids.
const (
	RuleHorizontalOverflow = "horizontal-overflow"
	RuleSmallTapTarget     = "small-tap-target"
	RuleSmallText          = "small-text"
)

const (
	MinTapTarget = 44.0
	MinTextSize  = 12.0
	// TouchViewportWidth is the width below which tap-target sizes are checked.
	TouchViewportWidth = 768
	// maxFindingsPerRule bounds the findings listed per rule; Counts stays exact.
	maxFindingsPerRule = 20
	overflowTolerance  = 1.0
)

// Finding is one layout problem.
type Finding struct {
	Rule        string `json:"rule"`
	Selector    string `json:"selector,omitempty"`
	Description string `json:"description"`
}

// Report is the UI analysis of one route at one viewport.
type Report struct {
	Timestamp  time.Time      `json:"timestamp"`
	Route      string         `json:"route"`
	Viewport   string         `json:"viewport"`
	URL        string         `json:"url"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Screenshot string         `json:"screenshot,omitempty"`
	Findings   []Finding      `json:"findings"`
	Counts     map[string]int `json:"counts"`
}

// Checker runs the UI analysis.
type Checker struct {
	logger *zap.Logger
	out    sink.Sink
	now    func() time.Time
}

// NewChecker creates a checker writing screenshots to out.
func NewChecker(logger *zap.Logger, out sink.Sink) *Checker {
	return &Checker{logger: logger.Named("uicheck"), out: out, now: time.Now}
}

// Analyze captures the page and checks its layout.
func (c *Checker) Analyze(ctx context.Context, page browser.Page, route string, vp config.Viewport) (*Report, error) {
	snap, err := dom.Collect(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("ui analysis %s@%s: %w", route, vp.Name, err)
	}
	r := c.Check(snap, route, vp)

	png, err := page.Screenshot(ctx, true)
	if err != nil {
		c.logger.Warn("Failed to capture screenshot.", zap.String("route", route), zap.String("viewport", vp.Name), zap.Error(err))
		return r, nil
	}
	path := ScreenshotPath(route, vp.Name)
	if err := c.out.Write(path, png); err != nil {
		c.logger.Warn("Failed to store screenshot.", zap.String("path", path), zap.Error(err))
		return r, nil
	}
	r.Screenshot = path
	return r, nil
}

// ScreenshotPath is the artifact path of a route/viewport screenshot.
func ScreenshotPath(route, viewport string) string {
	return fmt.Sprintf("screenshots/%s-%s.png", sink.SafeName(route), sink.SafeName(viewport))
}

// Check runs the layout rules against a snapshot.
func (c *Checker) Check(snap *dom.Snapshot, route string, vp config.Viewport) *Report {
	r := &Report{
		Timestamp: c.now().UTC(),
		Route:     route,
		Viewport:  vp.Name,
		URL:       snap.URL,
		Width:     vp.Width,
		Height:    vp.Height,
		Findings:  []Finding{},
		Counts:    map[string]int{},
	}
	add := func(f Finding) {
		r.Counts[f.Rule]++
		if r.Counts[f.Rule] <= maxFindingsPerRule {
			r.Findings = append(r.Findings, f)
		}
	}

	viewportWidth := snap.Viewport.Width
	if viewportWidth <= 0 {
		viewportWidth = float64(vp.Width)
	}
	if !snap.Static && snap.ScrollWidth > viewportWidth+overflowTolerance {
		add(Finding{
			Rule:        RuleHorizontalOverflow,
			Description: fmt.Sprintf("Document is %.0fpx wide at a %.0fpx viewport and scrolls horizontally.", snap.ScrollWidth, viewportWidth),
		})
	}

	checkTargets := !snap.Static && vp.Width < TouchViewportWidth
	for i := range snap.Elements {
		e := &snap.Elements[i]
		if !e.Visible {
			continue
		}
		if checkTargets && snap.Interactive(e) && e.Rect.Width > 0 && e.Rect.Height > 0 &&
			(e.Rect.Width < MinTapTarget || e.Rect.Height < MinTapTarget) {
			add(Finding{
				Rule:        RuleSmallTapTarget,
				Selector:    e.Selector,
				Description: fmt.Sprintf("Tap target is %.0fx%.0fpx; at least %.0fx%.0fpx is recommended.", e.Rect.Width, e.Rect.Height, MinTapTarget, MinTapTarget),
			})
		}
		if strings.TrimSpace(e.OwnText) != "" && e.Style.FontSize > 0 && e.Style.FontSize < MinTextSize {
			add(Finding{
				Rule:        RuleSmallText,
				Selector:    e.Selector,
				Description: fmt.Sprintf("Text is rendered at %.1fpx, below the %.0fpx minimum.", e.Style.FontSize, MinTextSize),
			})
		}
	}

	c.logger.Debug("Layout checks finished.",
		zap.String("route", route), zap.String("viewport", vp.Name), zap.Int("findings", len(r.Findings)))
	return r
}
