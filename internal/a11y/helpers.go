// File: internal/a11y/helpers.go
package a11y

import (
	"path"
	"strings"
	"unicode"

	"github.com/xkilldash9x/uiprobe/internal/dom"
)

func targetOf(e *dom.Element) Target {
	return Target{Selector: e.Selector, Snippet: e.Snippet}
}

func bodyTarget(snap *dom.Snapshot) Target {
	if b := snap.Body(); b != nil {
		return Target{Selector: b.Selector}
	}
	return Target{Selector: "body"}
}

// humanize turns "hero_banner-v2" into "hero banner v2".
func humanize(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || r == '.' {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// altFromSource derives a placeholder alt text from an image URL.
func altFromSource(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	base := path.Base(src)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" || strings.HasPrefix(src, "data:") {
		return "Image"
	}
	h := humanize(base)
	if h == "" {
		return "Image"
	}
	return capitalize(h)
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// words splits text into lowercase letter runs.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return !unicode.IsLetter(r) })
}

// hasAccessibleNameAttr reports a non-empty aria-label, a resolvable
// aria-labelledby, or a title.
func hasAccessibleNameAttr(snap *dom.Snapshot, e *dom.Element) bool {
	if strings.TrimSpace(e.Attrs["aria-label"]) != "" {
		return true
	}
	if ids := strings.Fields(e.Attrs["aria-labelledby"]); len(ids) > 0 {
		for _, id := range ids {
			ref := snap.ByID(id)
			if ref != nil && ref.Text != "" {
				return true
			}
			// Referenced text past a truncated prefix is unknown; assume it names.
			if ref == nil && snap.HasID(id) {
				return true
			}
		}
	}
	return strings.TrimSpace(e.Attrs["title"]) != ""
}

// hiddenFromAT reports elements removed from the accessibility tree.
func hiddenFromAT(snap *dom.Snapshot, e *dom.Element) bool {
	if strings.EqualFold(e.Attrs["aria-hidden"], "true") {
		return true
	}
	for _, a := range snap.Ancestors(e) {
		if strings.EqualFold(a.Attrs["aria-hidden"], "true") {
			return true
		}
	}
	return false
}
