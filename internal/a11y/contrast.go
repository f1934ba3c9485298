// File: internal/a11y/contrast.go
package a11y

import (
	"fmt"

	"github.com/xkilldash9x/uiprobe/internal/dom"
)

var (
	criterionContrastMinimum  = Criterion{Code: "1.4.3", Title: "Contrast (Minimum)"}
	criterionContrastEnhanced = Criterion{Code: "1.4.6", Title: "Contrast (Enhanced)"}
)

// Contrast thresholds.
const (
	RatioLargeAA   = 3.0
	RatioNormalAA  = 4.5
	RatioLargeAAA  = 4.5
	RatioNormalAAA = 7.0
)

// ContrastDetector checks text contrast against the resolved background.
// AA and AAA thresholds are evaluated and reported independently.
type ContrastDetector struct{}

func (ContrastDetector) Name() string { return "contrast" }

// ContrastResult is the outcome of evaluating one text node.
type ContrastResult struct {
	Element    *dom.Element
	Foreground dom.Color
	Background dom.Color
	Ratio      float64
	Large      bool
}

// RequiredAA returns the AA threshold for this text size.
func (r ContrastResult) RequiredAA() float64 {
	if r.Large {
		return RatioLargeAA
	}
	return RatioNormalAA
}

// RequiredAAA returns the AAA threshold for this text size.
func (r ContrastResult) RequiredAAA() float64 {
	if r.Large {
		return RatioLargeAAA
	}
	return RatioNormalAAA
}

func (ContrastDetector) Detect(snap *dom.Snapshot) []Issue {
	var issues []Issue
	for _, res := range EvaluateContrast(snap) {
		if res.Ratio < res.RequiredAA() {
			issues = append(issues, contrastIssue(res, "color-contrast", ImpactSerious, LevelAA, criterionContrastMinimum, res.RequiredAA()))
		}
		if res.Ratio < res.RequiredAAA() {
			issues = append(issues, contrastIssue(res, "color-contrast-enhanced", ImpactModerate, LevelAAA, criterionContrastEnhanced, res.RequiredAAA()))
		}
	}
	return issues
}

func contrastIssue(res ContrastResult, id string, impact Impact, level Level, crit Criterion, required float64) Issue {
	return Issue{
		ID:        id,
		Category:  CategoryContrast,
		Impact:    impact,
		Level:     level,
		Criterion: crit,
		Description: fmt.Sprintf("Text contrast %.2f:1 (%s on %s) is below the required %.1f:1.",
			res.Ratio, res.Foreground.Hex(), res.Background.Hex(), required),
		Target:         targetOf(res.Element),
		Recommendation: fmt.Sprintf("Darken the text or lighten the background until the ratio reaches at least %.1f:1.", required),
	}
}

// EvaluateContrast computes the contrast of every visible element carrying
// its own text. Elements whose colours cannot be resolved are skipped.
func EvaluateContrast(snap *dom.Snapshot) []ContrastResult {
	var out []ContrastResult
	for i := range snap.Elements {
		e := &snap.Elements[i]
		if !e.Visible || e.OwnText == "" || e.Style.FontSize <= 0 {
			continue
		}
		fg, ok := dom.ParseColor(e.Style.Color)
		if !ok || fg.Transparent() {
			continue
		}
		bg, ok := ResolveBackground(snap, e)
		if !ok {
			continue
		}
		fg = fg.Over(bg)
		out = append(out, ContrastResult{
			Element:    e,
			Foreground: fg,
			Background: bg,
			Ratio:      dom.ContrastRatio(fg, bg),
			Large:      isLargeText(e),
		})
	}
	return out
}

// ResolveBackground walks from e towards the root until it finds an opaque
// background colour, blending translucent layers on the way. A background
// image anywhere on that path makes the result unknown. Reaching the root
// resolves to white.
func ResolveBackground(snap *dom.Snapshot, e *dom.Element) (dom.Color, bool) {
	var layers []dom.Color
	base := dom.White
	for cur := e; cur != nil; cur = snap.Element(cur.Parent) {
		if img := cur.Style.BackgroundImage; img != "" && img != "none" {
			return dom.Color{}, false
		}
		c, ok := dom.ParseColor(cur.Style.BackgroundColor)
		if !ok || c.Transparent() {
			continue
		}
		if c.Opaque() {
			base = c
			break
		}
		layers = append(layers, c)
	}
	for i := len(layers) - 1; i >= 0; i-- {
		base = layers[i].Over(base)
	}
	return base, true
}

func isLargeText(e *dom.Element) bool {
	return e.Style.FontSize >= 18 || (e.Style.FontSize >= 14 && e.IsBold())
}
