// Package a11y holds the accessibility detector battery. Detectors read a
// dom.Snapshot and emit Issues sharing one envelope; they never touch the
// browser and never mutate the snapshot.
package a11y

import (
	"fmt"
	"sort"
)

// Category groups issues by the detector family that produced them.
type Category string

const (
	CategoryAltText   Category = "alt-text"
	CategoryHeadings  Category = "headings"
	CategoryForms     Category = "forms"
	CategoryKeyboard  Category = "keyboard"
	CategoryContrast  Category = "contrast"
	CategoryARIA      Category = "aria"
	CategoryLandmarks Category = "landmarks"
	CategorySemantics Category = "semantics"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	CategoryAltText, CategoryHeadings, CategoryForms, CategoryKeyboard,
	CategoryContrast, CategoryARIA, CategoryLandmarks, CategorySemantics,
}

// Impact is the user-facing severity of an issue.
type Impact string

const (
	ImpactCritical Impact = "critical" // Blocks access for some users.
	ImpactSerious  Impact = "serious"
	ImpactModerate Impact = "moderate"
	ImpactMinor    Impact = "minor"
)

// Rank orders impacts from most (4) to least (1) severe; unknown is 0.
func (i Impact) Rank() int {
	switch i {
	case ImpactCritical:
		return 4
	case ImpactSerious:
		return 3
	case ImpactModerate:
		return 2
	case ImpactMinor:
		return 1
	}
	return 0
}

// Level is a WCAG conformance tier.
type Level string

const (
	LevelA   Level = "A"
	LevelAA  Level = "AA"
	LevelAAA Level = "AAA"
)

// Levels lists the tiers from least to most strict.
var Levels = []Level{LevelA, LevelAA, LevelAAA}

// Criterion references a WCAG success criterion.
type Criterion struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

func (c Criterion) String() string {
	return fmt.Sprintf("%s %s", c.Code, c.Title)
}

// Target locates the offending element.
type Target struct {
	Selector string `json:"selector"`
	Snippet  string `json:"snippet,omitempty"`
}

// FixKind is the closed set of DOM edits the remediation engine knows.
type FixKind string

const (
	FixAddAttribute    FixKind = "add-attribute"
	FixModifyAttribute FixKind = "modify-attribute"
	FixRemoveAttribute FixKind = "remove-attribute"
	FixInsertElement   FixKind = "insert-element"
	FixInsertStyle     FixKind = "insert-style"
)

// Change is one ordered name/value pair of a Fix. For attribute fixes the
// name is the attribute; for insertions it names a parameter (position,
// html, text, css, anchor-selector, anchor-id).
type Change struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Fix is a mechanical remediation for a fixable issue.
type Fix struct {
	Kind    FixKind  `json:"kind"`
	Target  string   `json:"target"`
	Changes []Change `json:"changes"`
}

// Issue is a single detected accessibility defect.
type Issue struct {
	ID             string    `json:"id"`
	Category       Category  `json:"category"`
	Impact         Impact    `json:"impact"`
	Level          Level     `json:"level"`
	Criterion      Criterion `json:"criterion"`
	Description    string    `json:"description"`
	Target         Target    `json:"target"`
	Recommendation string    `json:"recommendation"`
	Fixable        bool      `json:"fixable"`
	Fix            *Fix      `json:"fix,omitempty"`
}

// withFix attaches a fix and marks the issue fixable. It is the only way a
// detector attaches a Fix, so Fix != nil implies Fixable.
func (i Issue) withFix(kind FixKind, changes ...Change) Issue {
	i.Fixable = true
	i.Fix = &Fix{Kind: kind, Target: i.Target.Selector, Changes: changes}
	return i
}

// Counts tallies issues by impact.
type Counts struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Serious  int `json:"serious"`
	Moderate int `json:"moderate"`
	Minor    int `json:"minor"`
	Fixable  int `json:"fixable"`
}

// Count summarizes a slice of issues.
func Count(issues []Issue) Counts {
	var c Counts
	for _, is := range issues {
		c.Total++
		switch is.Impact {
		case ImpactCritical:
			c.Critical++
		case ImpactSerious:
			c.Serious++
		case ImpactModerate:
			c.Moderate++
		case ImpactMinor:
			c.Minor++
		}
		if is.Fixable {
			c.Fixable++
		}
	}
	return c
}

// SortByImpact orders issues most severe first, keeping detection order
// among equals.
func SortByImpact(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Impact.Rank() > issues[j].Impact.Rank()
	})
}
