// File: internal/a11y/semantics.go
package a11y

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/uiprobe/internal/dom"
)

const (
	genericRatioThreshold = 5.0
	genericMinCount       = 10
	listRunThreshold      = 3
)

var semanticTags = map[string]bool{
	"header": true, "nav": true, "main": true, "footer": true, "article": true, "section": true,
	"aside": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "ul": true, "ol": true, "li": true, "dl": true, "table": true, "form": true,
	"figure": true, "figcaption": true, "button": true, "a": true, "label": true,
	"blockquote": true, "time": true, "address": true,
}

// Containers whose children are already structured.
var structuredParents = map[string]bool{
	"ul": true, "ol": true, "menu": true, "dl": true, "table": true, "thead": true,
	"tbody": true, "tfoot": true, "tr": true, "select": true, "datalist": true, "optgroup": true,
}

var structuredParentRoles = map[string]bool{
	"list": true, "listbox": true, "grid": true, "table": true, "menu": true, "menubar": true,
	"tablist": true, "radiogroup": true, "tree": true, "feed": true, "rowgroup": true, "row": true,
}

// Children that never form an accidental list.
var ignoredRunTags = map[string]bool{
	"li": true, "tr": true, "td": true, "th": true, "option": true, "dt": true, "dd": true,
	"br": true, "hr": true, "input": true, "img": true, "source": true, "track": true,
}

// SemanticDetector flags div soup and list-like content without list markup.
type SemanticDetector struct{}

func (SemanticDetector) Name() string { return "semantics" }

func (SemanticDetector) Detect(snap *dom.Snapshot) []Issue {
	var issues []Issue

	generic, semantic := 0, 0
	for i := range snap.Elements {
		switch tag := snap.Elements[i].Tag; {
		case tag == "div" || tag == "span":
			generic++
		case semanticTags[tag]:
			semantic++
		}
	}
	ratio := float64(generic) / float64(max(semantic, 1))
	if generic >= genericMinCount && ratio > genericRatioThreshold {
		issues = append(issues, Issue{
			ID:        "generic-container-ratio",
			Category:  CategorySemantics,
			Impact:    ImpactMinor,
			Level:     LevelAA,
			Criterion: criterionInfoRelationships,
			Description: fmt.Sprintf("Page uses %d generic <div>/<span> elements for %d semantic elements (ratio %.1f).",
				generic, semantic, ratio),
			Target:         bodyTarget(snap),
			Recommendation: "Replace generic containers with semantic elements (section, article, nav, ul, button) where they carry meaning.",
		})
	}

	for i := range snap.Elements {
		parent := &snap.Elements[i]
		if structuredParents[parent.Tag] || structuredParentRoles[parent.Role()] {
			continue
		}
		for _, run := range siblingRuns(snap.Children(parent)) {
			first := run[0]
			issues = append(issues, Issue{
				ID:        "list-markup-missing",
				Category:  CategorySemantics,
				Impact:    ImpactMinor,
				Level:     LevelAA,
				Criterion: criterionInfoRelationships,
				Description: fmt.Sprintf("%d consecutive <%s class=%q> siblings look like a list but are not marked up as one.",
					len(run), first.Tag, first.Attrs["class"]),
				Target:         targetOf(parent),
				Recommendation: "Mark repeated items up as <ul>/<li> (or role=\"list\"/\"listitem\") so their count is announced.",
			})
		}
	}
	return issues
}

// siblingRuns returns maximal runs of consecutive siblings sharing tag and a
// non-empty class attribute, keeping runs of at least listRunThreshold.
func siblingRuns(children []*dom.Element) [][]*dom.Element {
	var runs [][]*dom.Element
	var cur []*dom.Element
	flush := func() {
		if len(cur) >= listRunThreshold {
			runs = append(runs, cur)
		}
		cur = nil
	}
	for _, c := range children {
		class := strings.TrimSpace(c.Attrs["class"])
		if class == "" || ignoredRunTags[c.Tag] || c.Role() == "listitem" {
			flush()
			continue
		}
		if len(cur) > 0 && (cur[0].Tag != c.Tag || strings.TrimSpace(cur[0].Attrs["class"]) != class) {
			flush()
		}
		cur = append(cur, c)
	}
	flush()
	return runs
}
