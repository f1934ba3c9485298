// internal/design/benchmark.go
package design

import (
	"fmt"
	"sort"
)

// prevalentMotif is the share of references a motif needs to be suggested.
const prevalentMotif = 0.5

// Benchmark aggregates design analyses across reference sources.
type Benchmark struct {
	Sources                int                `json:"sources"`
	AverageScore           float64            `json:"averageScore"`
	AveragePalette         float64            `json:"averagePalette"`
	AverageHeadingFamilies float64            `json:"averageHeadingFamilies"`
	LayoutKinds            map[string]int     `json:"layoutKinds"`
	MotifPrevalence        map[string]float64 `json:"motifPrevalence"`
}

// Summarize averages a set of analyses. Nil entries are ignored.
func Summarize(analyses []*Analysis) Benchmark {
	b := Benchmark{LayoutKinds: map[string]int{}, MotifPrevalence: map[string]float64{}}
	for _, a := range analyses {
		if a == nil {
			continue
		}
		b.Sources++
		b.AverageScore += a.Score
		b.AveragePalette += float64(len(a.Palette))
		b.AverageHeadingFamilies += float64(len(a.Typography.HeadingFamilies))
		b.LayoutKinds[a.Layout.Kind]++
		for _, m := range a.Motifs {
			b.MotifPrevalence[m.Name]++
		}
	}
	if b.Sources == 0 {
		return b
	}
	n := float64(b.Sources)
	b.AverageScore /= n
	b.AveragePalette /= n
	b.AverageHeadingFamilies /= n
	for k := range b.MotifPrevalence {
		b.MotifPrevalence[k] /= n
	}
	return b
}

// Suggestions turns the benchmark into long-term design recommendations.
func (b Benchmark) Suggestions() []string {
	if b.Sources == 0 {
		return nil
	}
	var out []string

	motifs := make([]string, 0, len(b.MotifPrevalence))
	for m, share := range b.MotifPrevalence {
		if share >= prevalentMotif {
			motifs = append(motifs, m)
		}
	}
	sort.Strings(motifs)
	for _, m := range motifs {
		out = append(out, fmt.Sprintf("Consider %s styling: it appears in %.0f%% of the reference designs.", m, 100*b.MotifPrevalence[m]))
	}

	if b.AverageHeadingFamilies <= 1.5 {
		out = append(out, fmt.Sprintf("Keep headings to a single font family; reference designs average %.1f heading families.", b.AverageHeadingFamilies))
	}
	out = append(out, fmt.Sprintf("Aim for a restrained palette of about %.0f colours, in line with the reference designs.", b.AveragePalette))

	var dominant string
	for _, kind := range []string{LayoutGrid, LayoutFlex, LayoutFlow} {
		if b.LayoutKinds[kind] > b.LayoutKinds[dominant] {
			dominant = kind
		}
	}
	if dominant == LayoutGrid || dominant == LayoutFlex {
		out = append(out, fmt.Sprintf("Most reference designs organize page layout with CSS %s.", dominant))
	}
	return out
}
