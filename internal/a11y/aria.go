// File: internal/a11y/aria.go
package a11y

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/uiprobe/internal/dom"
)

var criterionInfoRelationships = Criterion{Code: "1.3.1", Title: "Info and Relationships"}

// Concrete WAI-ARIA 1.2 roles; abstract roles are absent.
var validRoles = map[string]bool{}

func init() {
	for _, r := range strings.Fields(`alert alertdialog application article banner blockquote button caption
		cell checkbox code columnheader combobox comment complementary contentinfo definition deletion
		dialog directory document emphasis feed figure form generic grid gridcell group heading img
		insertion link list listbox listitem log main marquee math menu menubar menuitem
		menuitemcheckbox menuitemradio meter navigation none note option paragraph presentation
		progressbar radio radiogroup region row rowgroup rowheader scrollbar search searchbox
		separator slider spinbutton status strong subscript superscript switch tab table tablist
		tabpanel term textbox time timer toolbar tooltip tree treegrid treeitem`) {
		validRoles[r] = true
	}
}

var idrefAttributes = []string{
	"aria-labelledby", "aria-describedby", "aria-controls", "aria-owns",
	"aria-activedescendant", "aria-details", "aria-errormessage", "aria-flowto",
}

// ARIADetector validates role values, empty labels and ID references.
type ARIADetector struct{}

func (ARIADetector) Name() string { return "aria" }

func (ARIADetector) Detect(snap *dom.Snapshot) []Issue {
	var issues []Issue
	for i := range snap.Elements {
		e := &snap.Elements[i]

		if raw, ok := e.Attr("role"); ok && strings.TrimSpace(raw) != "" && !anyValidRole(raw) {
			issues = append(issues, Issue{
				ID:             "aria-invalid-role",
				Category:       CategoryARIA,
				Impact:         ImpactSerious,
				Level:          LevelA,
				Criterion:      criterionNameRoleValue,
				Description:    fmt.Sprintf("Role %q is not a valid WAI-ARIA role; assistive technology ignores it.", raw),
				Target:         targetOf(e),
				Recommendation: "Use a concrete ARIA role, or prefer the native element with that semantics.",
			})
		}

		if label, ok := e.Attr("aria-label"); ok && strings.TrimSpace(label) == "" {
			issue := Issue{
				ID:             "aria-empty-label",
				Category:       CategoryARIA,
				Impact:         ImpactModerate,
				Level:          LevelA,
				Criterion:      criterionNameRoleValue,
				Description:    "aria-label is present but empty, which overrides any other accessible name.",
				Target:         targetOf(e),
				Recommendation: "Remove the empty aria-label or give it a meaningful value.",
			}
			if e.Text != "" {
				issue = issue.withFix(FixRemoveAttribute, Change{Name: "aria-label"})
			} else {
				issue = issue.withFix(FixModifyAttribute, Change{Name: "aria-label", Value: capitalize(roleOrTag(e))})
			}
			issues = append(issues, issue)
		}

		for _, attr := range idrefAttributes {
			missing := brokenReferences(snap, e, attr)
			if len(missing) == 0 {
				continue
			}
			issues = append(issues, Issue{
				ID:        "aria-broken-reference",
				Category:  CategoryARIA,
				Impact:    ImpactSerious,
				Level:     LevelA,
				Criterion: criterionInfoRelationships,
				Description: fmt.Sprintf("%s references id(s) %s that do not exist in the document.",
					attr, strings.Join(missing, ", ")),
				Target:         targetOf(e),
				Recommendation: fmt.Sprintf("Point %s at existing element ids or remove the attribute.", attr),
			})
		}
	}
	return issues
}

func anyValidRole(raw string) bool {
	for _, r := range strings.Fields(strings.ToLower(raw)) {
		if validRoles[r] {
			return true
		}
	}
	return false
}

func brokenReferences(snap *dom.Snapshot, e *dom.Element, attr string) []string {
	var missing []string
	for _, id := range strings.Fields(e.Attrs[attr]) {
		if !snap.HasID(id) {
			missing = append(missing, id)
		}
	}
	return missing
}

func roleOrTag(e *dom.Element) string {
	if r := e.Role(); r != "" {
		return r
	}
	return e.Tag
}
