// File: internal/a11y/forms.go
package a11y

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/uiprobe/internal/dom"
)

var (
	criterionNameRoleValue = Criterion{Code: "4.1.2", Title: "Name, Role, Value"}
	criterionLabels        = Criterion{Code: "3.3.2", Title: "Labels or Instructions"}
)

// Input types that carry their own visible name or are not user-editable.
var selfLabelledInputs = map[string]bool{
	"hidden": true, "submit": true, "reset": true, "button": true, "image": true,
}

// FormLabelDetector flags form controls without a programmatic label.
type FormLabelDetector struct{}

func (FormLabelDetector) Name() string { return "forms" }

func (FormLabelDetector) Detect(snap *dom.Snapshot) []Issue {
	labelFor := make(map[string]bool)
	for _, l := range snap.ByTag("label") {
		if f := l.Attrs["for"]; f != "" && l.Text != "" {
			labelFor[f] = true
		}
	}

	var issues []Issue
	for _, c := range snap.ByTag("input", "select", "textarea") {
		if c.Tag == "input" && selfLabelledInputs[strings.ToLower(c.Attrs["type"])] {
			continue
		}
		if !c.Visible || hiddenFromAT(snap, c) || labelled(snap, c, labelFor) {
			continue
		}

		placeholder := strings.TrimSpace(c.Attrs["placeholder"])
		issue := Issue{
			ID:             "missing-label",
			Category:       CategoryForms,
			Impact:         ImpactSerious,
			Level:          LevelA,
			Criterion:      criterionNameRoleValue,
			Description:    fmt.Sprintf("Form control <%s> has no associated label, so its purpose is not announced.", c.Tag),
			Target:         targetOf(c),
			Recommendation: `Associate a visible <label for="..."> with the control, or wrap the control in a <label>.`,
		}
		issues = append(issues, issue.withFix(FixAddAttribute, Change{Name: "aria-label", Value: controlLabel(c, placeholder)}))

		if placeholder != "" {
			issues = append(issues, Issue{
				ID:             "placeholder-as-label",
				Category:       CategoryForms,
				Impact:         ImpactSerious,
				Level:          LevelA,
				Criterion:      criterionLabels,
				Description:    fmt.Sprintf("Control relies on placeholder text %q as its only label; it disappears once the user types.", placeholder),
				Target:         targetOf(c),
				Recommendation: "Keep the placeholder as a hint only and add a persistent visible label.",
			})
		}
	}
	return issues
}

func labelled(snap *dom.Snapshot, c *dom.Element, labelFor map[string]bool) bool {
	if hasAccessibleNameAttr(snap, c) {
		return true
	}
	if id := c.Attrs["id"]; id != "" && labelFor[id] {
		return true
	}
	if l := snap.ClosestTag(c, "label"); l != nil && l.Text != "" {
		return true
	}
	return false
}

func controlLabel(c *dom.Element, placeholder string) string {
	if placeholder != "" {
		return placeholder
	}
	if name := humanize(c.Attrs["name"]); name != "" {
		return capitalize(name)
	}
	if c.Tag != "input" {
		return capitalize(c.Tag)
	}
	kind := strings.ToLower(c.Attrs["type"])
	if kind == "" {
		kind = "text"
	}
	return capitalize(kind) + " input"
}
