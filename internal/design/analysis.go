// internal/design/analysis.go

// Package design benchmarks the product's visual language against external
// reference sites. Each reference is rendered in its own session and reduced
// to a profile: palette, typography, layout, component samples and motifs.
package design

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xkilldash9x/uiprobe/internal/dom"
)

const (
	maxPalette    = 24
	maxComponents = 5
	// restrainedSpacing is the largest spacing scale that still counts as a system.
	restrainedSpacing = 8
)

// Breakpoints is the assumed responsive breakpoint set.
var Breakpoints = []int{640, 768, 1024, 1280, 1536}

// Analysis is the design profile of one reference source.
type Analysis struct {
	Reference
	AnalyzedAt time.Time   `json:"analyzedAt"`
	Title      string      `json:"title,omitempty"`
	Palette    []Swatch    `json:"palette"`
	Typography Typography  `json:"typography"`
	Layout     Layout      `json:"layout"`
	Components []Component `json:"components"`
	Motifs     []Motif     `json:"motifs"`
	Score      float64     `json:"score"`
	Breakdown  Breakdown   `json:"breakdown"`
	Screenshot string      `json:"screenshot,omitempty"`
}

// Swatch is a palette colour and how often it was sampled.
type Swatch struct {
	Color string `json:"color"`
	Count int    `json:"count"`
}

// Typography is the type profile.
type Typography struct {
	Families        []string  `json:"families"`
	HeadingFamilies []string  `json:"headingFamilies"`
	Sizes           []float64 `json:"sizes"`
	LineHeights     []float64 `json:"lineHeights"`
}

// Layout is the layout profile.
type Layout struct {
	Kind            string         `json:"kind"`
	GridContainers  int            `json:"gridContainers"`
	FlexContainers  int            `json:"flexContainers"`
	Spacing         map[string]int `json:"spacing"`
	Breakpoints     []int          `json:"breakpoints"`
	MaxContentWidth float64        `json:"maxContentWidth"`
}

// Layout classifications.
const (
	LayoutGrid = "grid"
	LayoutFlex = "flex"
	LayoutFlow = "flow"
)

// Component is a sampled UI component.
type Component struct {
	Type     string    `json:"type"`
	Selector string    `json:"selector"`
	Style    dom.Style `json:"style"`
	Rect     dom.Rect  `json:"rect"`
}

// Motif is a named stylistic pattern and its prevalence on the page.
type Motif struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Confidence float64 `json:"confidence"`
}

// Motif names.
const (
	MotifGlassmorphism = "glassmorphism"
	MotifNeumorphism   = "neumorphism"
	MotifGradient      = "gradient"
	MotifRounded       = "rounded"
)

// Breakdown holds the design score components.
type Breakdown struct {
	Palette    float64 `json:"palette"`
	Typography float64 `json:"typography"`
	Layout     float64 `json:"layout"`
	Components float64 `json:"components"`
}

// Analyze derives a design profile from a snapshot.
func Analyze(ref Reference, snap *dom.Snapshot) *Analysis {
	a := &Analysis{
		Reference:  ref,
		Title:      snap.Title,
		Palette:    palette(snap),
		Typography: typography(snap),
		Layout:     layout(snap),
		Components: components(snap),
		Motifs:     motifs(snap),
	}
	a.Breakdown = breakdown(a)
	a.Score = Score(a.Breakdown)
	return a
}

func visibleElements(snap *dom.Snapshot) []*dom.Element {
	var out []*dom.Element
	for i := range snap.Elements {
		e := &snap.Elements[i]
		if e.Visible {
			out = append(out, e)
		}
	}
	return out
}

func palette(snap *dom.Snapshot) []Swatch {
	counts := map[string]int{}
	for _, e := range visibleElements(snap) {
		for _, v := range []string{e.Style.Color, e.Style.BackgroundColor, e.Style.BorderColor, e.Style.Fill, e.Style.Stroke} {
			c, ok := dom.ParseColor(v)
			if !ok || c.Transparent() {
				continue
			}
			counts[c.String()]++
		}
	}
	out := make([]Swatch, 0, len(counts))
	for c, n := range counts {
		out = append(out, Swatch{Color: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Color < out[j].Color
	})
	if len(out) > maxPalette {
		out = out[:maxPalette]
	}
	return out
}

// primaryFamily returns the first family of a font-family list.
func primaryFamily(list string) string {
	first, _, _ := strings.Cut(list, ",")
	return strings.Trim(strings.TrimSpace(first), `"'`)
}

func typography(snap *dom.Snapshot) Typography {
	var (
		t           Typography
		families    = map[string]int{}
		headings    = map[string]bool{}
		sizes       = map[float64]bool{}
		lineHeights = map[float64]bool{}
	)
	for _, e := range visibleElements(snap) {
		if strings.TrimSpace(e.OwnText) == "" {
			continue
		}
		if f := primaryFamily(e.Style.FontFamily); f != "" {
			families[f]++
			if e.HeadingLevel() > 0 && !headings[f] {
				headings[f] = true
				t.HeadingFamilies = append(t.HeadingFamilies, f)
			}
		}
		if e.Style.FontSize > 0 {
			sizes[round2(e.Style.FontSize)] = true
		}
		if lh, ok := pxValue(e.Style.LineHeight); ok && lh > 0 {
			lineHeights[round2(lh)] = true
		}
	}
	for f := range families {
		t.Families = append(t.Families, f)
	}
	sort.Slice(t.Families, func(i, j int) bool {
		fi, fj := t.Families[i], t.Families[j]
		if families[fi] != families[fj] {
			return families[fi] > families[fj]
		}
		return fi < fj
	})
	t.Sizes = sortedKeys(sizes)
	t.LineHeights = sortedKeys(lineHeights)
	return t
}

func layout(snap *dom.Snapshot) Layout {
	l := Layout{Spacing: map[string]int{}, Breakpoints: append([]int(nil), Breakpoints...)}
	for _, e := range visibleElements(snap) {
		switch e.Style.Display {
		case "grid", "inline-grid":
			l.GridContainers++
		case "flex", "inline-flex":
			l.FlexContainers++
		}
		for _, v := range []string{e.Style.Margin, e.Style.Padding, e.Style.Gap} {
			for _, tok := range strings.Fields(v) {
				px, ok := pxValue(tok)
				if !ok || px <= 0 {
					continue
				}
				l.Spacing[strconv.FormatFloat(math.Round(px), 'f', -1, 64)]++
			}
		}
		if mw, ok := pxValue(e.Style.MaxWidth); ok && mw > l.MaxContentWidth {
			l.MaxContentWidth = mw
		}
	}
	switch {
	case l.GridContainers > 0 && l.GridContainers >= l.FlexContainers:
		l.Kind = LayoutGrid
	case l.FlexContainers > 0:
		l.Kind = LayoutFlex
	default:
		l.Kind = LayoutFlow
	}
	return l
}

func componentType(e *dom.Element) string {
	switch {
	case e.Tag == "button" || e.Role() == "button":
		return "button"
	case e.Tag == "input" && (e.Attrs["type"] == "submit" || e.Attrs["type"] == "button"):
		return "button"
	case e.Tag == "nav" || e.Role() == "navigation":
		return "navigation"
	case strings.Contains(strings.ToLower(e.Attrs["class"]), "card"):
		return "card"
	case e.Tag == "article" && ((e.Style.BoxShadow != "" && e.Style.BoxShadow != "none") || radius(e) > 0):
		return "card"
	}
	return ""
}

// components samples at most one of each type, then fills up to the limit.
func components(snap *dom.Snapshot) []Component {
	var (
		first []Component
		rest  []Component
		seen  = map[string]bool{}
	)
	for _, e := range visibleElements(snap) {
		typ := componentType(e)
		if typ == "" {
			continue
		}
		c := Component{Type: typ, Selector: e.Selector, Style: e.Style, Rect: e.Rect}
		if !seen[typ] {
			seen[typ] = true
			first = append(first, c)
			continue
		}
		rest = append(rest, c)
	}
	out := append(first, rest...)
	if len(out) > maxComponents {
		out = out[:maxComponents]
	}
	return out
}

func radius(e *dom.Element) float64 {
	fields := strings.Fields(e.Style.BorderRadius)
	if len(fields) == 0 {
		return 0
	}
	px, _ := pxValue(fields[0])
	return px
}

func motifs(snap *dom.Snapshot) []Motif {
	counts := map[string]int{}
	for _, e := range visibleElements(snap) {
		st := e.Style
		if strings.Contains(st.BackdropFilter, "blur") {
			if bg, ok := dom.ParseColor(st.BackgroundColor); ok && bg.A > 0 && bg.A < 1 {
				counts[MotifGlassmorphism]++
			}
		}
		if strings.Contains(st.BoxShadow, "inset") {
			counts[MotifNeumorphism]++
		}
		if strings.Contains(st.BackgroundImage, "gradient") {
			counts[MotifGradient]++
		}
		if radius(e) >= 8 {
			counts[MotifRounded]++
		}
	}
	var out []Motif
	for _, name := range []string{MotifGlassmorphism, MotifNeumorphism, MotifGradient, MotifRounded} {
		if n := counts[name]; n > 0 {
			out = append(out, Motif{Name: name, Count: n, Confidence: math.Min(1, float64(n)/10)})
		}
	}
	return out
}

func breakdown(a *Analysis) Breakdown {
	var b Breakdown
	b.Palette = math.Min(2*float64(len(a.Palette)), 25)

	extra := len(a.Typography.HeadingFamilies) - 1
	if extra < 0 {
		extra = 0
	}
	b.Typography = math.Max(0, 25-5*float64(min(extra, 2))-2*float64(max(extra-2, 0)))

	if a.Layout.GridContainers > 0 {
		b.Layout += 10
	}
	if a.Layout.FlexContainers > 0 {
		b.Layout += 10
	}
	if len(a.Layout.Spacing) <= restrainedSpacing {
		b.Layout += 5
	}
	b.Layout = math.Min(b.Layout, 25)

	b.Components = math.Min(5*float64(len(a.Components)), 25)
	return b
}

// Score sums a breakdown into a design score in [0, 100].
func Score(b Breakdown) float64 {
	return math.Max(0, math.Min(100, b.Palette+b.Typography+b.Layout+b.Components))
}

// pxValue parses a pixel length such as "16px" or a bare number.
func pxValue(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func sortedKeys(m map[float64]bool) []float64 {
	out := make([]float64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Float64s(out)
	return out
}
