// File: internal/a11y/alttext.go
package a11y

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/uiprobe/internal/dom"
)

var criterionNonText = Criterion{Code: "1.1.1", Title: "Non-text Content"}

var genericAltWords = map[string]bool{
	"image": true, "picture": true, "photo": true, "graphic": true, "img": true,
}

// AltTextDetector flags images without alternative text and images whose
// alternative text is a generic placeholder word.
type AltTextDetector struct{}

func (AltTextDetector) Name() string { return "alt-text" }

func (AltTextDetector) Detect(snap *dom.Snapshot) []Issue {
	var issues []Issue
	for _, img := range snap.ByTag("img") {
		if decorative(snap, img) {
			continue
		}
		alt, ok := img.Attr("alt")
		if !ok {
			placeholder := altFromSource(img.Attrs["src"])
			issue := Issue{
				ID:             "missing-alt",
				Category:       CategoryAltText,
				Impact:         ImpactSerious,
				Level:          LevelA,
				Criterion:      criterionNonText,
				Description:    "Image has no alt attribute, so screen readers announce the file name or nothing at all.",
				Target:         targetOf(img),
				Recommendation: `Add an alt attribute describing the image, or alt="" if it is purely decorative.`,
			}
			issues = append(issues, issue.withFix(FixAddAttribute, Change{Name: "alt", Value: placeholder}))
			continue
		}
		if word := genericAltWord(alt); word != "" {
			issues = append(issues, Issue{
				ID:             "generic-alt",
				Category:       CategoryAltText,
				Impact:         ImpactModerate,
				Level:          LevelA,
				Criterion:      criterionNonText,
				Description:    fmt.Sprintf("Image alt text %q uses the generic word %q instead of describing the content.", alt, word),
				Target:         targetOf(img),
				Recommendation: "Describe what the image shows or why it is there; the screen reader already announces that it is an image.",
			})
		}
	}
	return issues
}

func genericAltWord(alt string) string {
	for _, w := range words(alt) {
		if genericAltWords[w] {
			return w
		}
	}
	return ""
}

func decorative(snap *dom.Snapshot, img *dom.Element) bool {
	switch img.Role() {
	case "presentation", "none":
		return true
	}
	return hiddenFromAT(snap, img) || strings.TrimSpace(img.Attrs["aria-label"]) != ""
}
