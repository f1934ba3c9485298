// File: internal/a11y/keyboard.go
package a11y

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/uiprobe/internal/dom"
)

var (
	criterionKeyboard     = Criterion{Code: "2.1.1", Title: "Keyboard"}
	criterionFocusVisible = Criterion{Code: "2.4.7", Title: "Focus Visible"}
	criterionBypassBlocks = Criterion{Code: "2.4.1", Title: "Bypass Blocks"}
	criterionFocusLook    = Criterion{Code: "2.4.13", Title: "Focus Appearance"}
)

const (
	focusOutlineCSS = "%s:focus-visible, %s:focus { outline: 3px solid #1a5fb4; outline-offset: 2px; }"
	skipLinkHTML    = `<a href="#%s" class="uiprobe-skip-link" style="position:absolute;left:-9999px;top:0" ` +
		`onfocus="this.style.left='8px'" onblur="this.style.left='-9999px'">Skip to main content</a>`
	fallbackMainID = "main-content"
)

// KeyboardDetector checks that interactive elements are reachable and
// visibly focused with the keyboard, and that repeated blocks can be skipped.
type KeyboardDetector struct{}

func (KeyboardDetector) Name() string { return "keyboard" }

func (KeyboardDetector) Detect(snap *dom.Snapshot) []Issue {
	var issues []Issue

	for i := range snap.Elements {
		e := &snap.Elements[i]
		if !e.Visible || e.Disabled || !snap.Interactive(e) || snap.Focusable(e) {
			continue
		}
		issues = append(issues, Issue{
			ID:             "keyboard-unreachable",
			Category:       CategoryKeyboard,
			Impact:         ImpactSerious,
			Level:          LevelAA,
			Criterion:      criterionKeyboard,
			Description:    fmt.Sprintf("Interactive <%s> cannot be reached with the Tab key.", e.Tag),
			Target:         targetOf(e),
			Recommendation: `Use a native <button> or <a href>, or add tabindex="0" together with key handlers.`,
		})
	}

	for _, e := range snap.FocusOrder() {
		var issue Issue
		switch focusIndicatorOf(e) {
		case focusNone:
			issue = Issue{
				ID:             "focus-indicator-missing",
				Category:       CategoryKeyboard,
				Impact:         ImpactModerate,
				Level:          LevelAA,
				Criterion:      criterionFocusVisible,
				Description:    "Element shows no outline or shadow change when it receives keyboard focus.",
				Target:         targetOf(e),
				Recommendation: "Restore a visible :focus-visible style; never remove outlines without a replacement.",
			}
		case focusBrowserDefault:
			issue = Issue{
				ID:             "focus-indicator-default",
				Category:       CategoryKeyboard,
				Impact:         ImpactMinor,
				Level:          LevelAAA,
				Criterion:      criterionFocusLook,
				Description:    "Element relies on the browser's default focus ring, whose size and contrast vary by browser.",
				Target:         targetOf(e),
				Recommendation: "Declare a :focus-visible outline of at least 2px with 3:1 contrast against adjacent colours.",
			}
		default:
			continue
		}
		issues = append(issues, issue.withFix(FixInsertStyle,
			Change{Name: "css", Value: fmt.Sprintf(focusOutlineCSS, e.Selector, e.Selector)}))
	}

	if issue, ok := skipLinkIssue(snap); ok {
		issues = append(issues, issue)
	}
	return issues
}

type focusIndicator int

const (
	focusUnknown focusIndicator = iota
	focusNone
	focusBrowserDefault
	focusAuthored
)

// focusIndicatorOf classifies the rendering an element gains on focus. An
// outline the element already wears unfocused does not count.
func focusIndicatorOf(e *dom.Element) focusIndicator {
	f := e.Focus
	if f == nil {
		return focusUnknown
	}
	outline := f.OutlineStyle != "" && f.OutlineStyle != "none" && f.OutlineWidth > 0 &&
		(f.OutlineStyle != e.Style.OutlineStyle || f.OutlineWidth != e.Style.OutlineWidth)
	shadowChanged := f.BoxShadow != e.Style.BoxShadow && f.BoxShadow != "" && f.BoxShadow != "none"
	switch {
	case shadowChanged:
		return focusAuthored
	case !outline:
		return focusNone
	case f.OutlineStyle == "auto":
		return focusBrowserDefault
	}
	return focusAuthored
}

// mainLandmark returns the first main landmark, or nil.
func mainLandmark(snap *dom.Snapshot) *dom.Element {
	for i := range snap.Elements {
		e := &snap.Elements[i]
		if e.Tag == "main" || e.Role() == "main" {
			return e
		}
	}
	return nil
}

func skipLinkIssue(snap *dom.Snapshot) (Issue, bool) {
	main := mainLandmark(snap)
	if main == nil {
		return Issue{}, false
	}
	var before []*dom.Element
	for _, e := range snap.FocusOrder() {
		if e.Index < main.Index && !snap.IsAncestor(main, e) {
			before = append(before, e)
		}
	}
	if len(before) == 0 {
		return Issue{}, false
	}
	if isSkipLink(snap, before[0], main) {
		return Issue{}, false
	}

	mainID := main.Attrs["id"]
	changes := []Change{{Name: "position", Value: "afterbegin"}}
	if mainID == "" {
		mainID = fallbackMainID
		changes = append(changes,
			Change{Name: "anchor-selector", Value: main.Selector},
			Change{Name: "anchor-id", Value: mainID})
	}
	changes = append(changes, Change{Name: "html", Value: fmt.Sprintf(skipLinkHTML, mainID)})

	issue := Issue{
		ID:          "skip-link-missing",
		Category:    CategoryKeyboard,
		Impact:      ImpactModerate,
		Level:       LevelAA,
		Criterion:   criterionBypassBlocks,
		Description: fmt.Sprintf("%d focusable element(s) precede the main content and there is no skip link.", len(before)),
		Target:      bodyTarget(snap),
		Recommendation: "Make the first focusable element a link to the main landmark " +
			`(e.g. <a href="#main">Skip to main content</a>).`,
	}
	return issue.withFix(FixInsertElement, changes...), true
}

func isSkipLink(snap *dom.Snapshot, e, main *dom.Element) bool {
	if e.Tag != "a" {
		return false
	}
	href := e.Attrs["href"]
	if !strings.HasPrefix(href, "#") || len(href) < 2 {
		return false
	}
	if strings.Contains(strings.ToLower(e.Text), "skip") {
		return true
	}
	target := snap.ByID(href[1:])
	return target != nil && (target.Index == main.Index || snap.IsAncestor(main, target))
}
