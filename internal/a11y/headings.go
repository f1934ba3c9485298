// File: internal/a11y/headings.go
package a11y

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xkilldash9x/uiprobe/internal/dom"
)

var criterionHeadings = Criterion{Code: "2.4.6", Title: "Headings and Labels"}

// HeadingDetector checks the document outline: exactly one h1, no skipped
// levels, no empty headings.
type HeadingDetector struct{}

func (HeadingDetector) Name() string { return "headings" }

type heading struct {
	el    *dom.Element
	level int
}

func (HeadingDetector) Detect(snap *dom.Snapshot) []Issue {
	headings := collectHeadings(snap)

	var issues []Issue
	var h1s []*dom.Element
	for _, h := range headings {
		if h.level == 1 {
			h1s = append(h1s, h.el)
		}
	}

	switch {
	case len(h1s) == 0 && !snap.Truncated:
		issues = append(issues, Issue{
			ID:             "missing-h1",
			Category:       CategoryHeadings,
			Impact:         ImpactSerious,
			Level:          LevelAA,
			Criterion:      criterionHeadings,
			Description:    "Page has no level-one heading describing its purpose.",
			Target:         bodyTarget(snap),
			Recommendation: "Add a single <h1> that names the page.",
		})
	case len(h1s) > 1:
		issues = append(issues, Issue{
			ID:             "multiple-h1",
			Category:       CategoryHeadings,
			Impact:         ImpactCritical,
			Level:          LevelAA,
			Criterion:      criterionHeadings,
			Description:    fmt.Sprintf("Page has %d level-one headings; the outline has no single root.", len(h1s)),
			Target:         targetOf(h1s[1]),
			Recommendation: "Keep one <h1> for the page title and demote the others to <h2> or lower.",
		})
	}

	for i := 1; i < len(headings); i++ {
		prev, cur := headings[i-1], headings[i]
		if cur.level > prev.level+1 {
			issues = append(issues, Issue{
				ID:          "heading-order",
				Category:    CategoryHeadings,
				Impact:      ImpactSerious,
				Level:       LevelAA,
				Criterion:   criterionHeadings,
				Description: fmt.Sprintf("Heading level jumps from h%d to h%d.", prev.level, cur.level),
				Target:      targetOf(cur.el),
				Recommendation: fmt.Sprintf("Use an h%d here, or restyle it with CSS instead of skipping levels.",
					prev.level+1),
			})
		}
	}

	for _, h := range headings {
		if !emptyHeading(snap, h.el) {
			continue
		}
		issue := Issue{
			ID:             "empty-heading",
			Category:       CategoryHeadings,
			Impact:         ImpactSerious,
			Level:          LevelAA,
			Criterion:      criterionHeadings,
			Description:    "Heading has no text content, so it is announced as an empty heading.",
			Target:         targetOf(h.el),
			Recommendation: "Give the heading meaningful text or remove the element.",
		}
		issues = append(issues, issue.withFix(FixInsertElement,
			Change{Name: "position", Value: "beforeend"},
			Change{Name: "text", Value: fmt.Sprintf("Section heading (level %d)", h.level)},
		))
	}
	return issues
}

func collectHeadings(snap *dom.Snapshot) []heading {
	var out []heading
	for i := range snap.Elements {
		e := &snap.Elements[i]
		// Empty headings have no box, so box visibility would hide them.
		if !(e.Visible || e.Rendered) || hiddenFromAT(snap, e) {
			continue
		}
		if lvl := e.HeadingLevel(); lvl > 0 {
			out = append(out, heading{el: e, level: lvl})
			continue
		}
		if e.Role() == "heading" {
			lvl, err := strconv.Atoi(strings.TrimSpace(e.Attrs["aria-level"]))
			if err != nil || lvl < 1 {
				lvl = 2
			}
			out = append(out, heading{el: e, level: lvl})
		}
	}
	return out
}

func emptyHeading(snap *dom.Snapshot, e *dom.Element) bool {
	if e.Text != "" || hasAccessibleNameAttr(snap, e) {
		return false
	}
	for _, d := range snap.Descendants(e) {
		if d.Tag == "img" && strings.TrimSpace(d.Attrs["alt"]) != "" {
			return false
		}
	}
	return true
}
