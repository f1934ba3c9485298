// File: internal/a11y/detectors_test.go
package a11y

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiprobe/internal/dom"
)

func ids(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.ID)
	}
	return out
}

func body(t *testing.T, inner string) *dom.Snapshot {
	t.Helper()
	return snapshotOf(t, "<html><body>"+inner+"</body></html>")
}

func TestAltTextDetector(t *testing.T) {
	testCases := []struct {
		name   string
		markup string
		want   []string
	}{
		{"missing alt", `<img src="cat.jpg">`, []string{"missing-alt"}},
		{"descriptive alt", `<img src="cat.jpg" alt="A tabby cat asleep">`, []string{}},
		{"decorative empty alt", `<img src="rule.png" alt="">`, []string{}},
		{"generic word", `<img src="x.png" alt="Photo of the team">`, []string{"generic-alt"}},
		{"generic word is whole-word only", `<img src="x.png" alt="Imagination lab">`, []string{}},
		{"presentation role", `<img src="x.png" role="presentation">`, []string{}},
		{"aria hidden ancestor", `<div aria-hidden="true"><img src="x.png"></div>`, []string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := AltTextDetector{}.Detect(body(t, tc.markup))
			assert.Equal(t, tc.want, ids(got))
		})
	}

	t.Run("placeholder from file name", func(t *testing.T) {
		assert.Equal(t, "Team photo 2024", altFromSource("https://cdn.test/img/team_photo-2024.webp?w=200"))
		assert.Equal(t, "Image", altFromSource("data:image/png;base64,AAAA"))
		assert.Equal(t, "Image", altFromSource(""))
	})
}

func TestHeadingDetector(t *testing.T) {
	testCases := []struct {
		name   string
		markup string
		want   []string
	}{
		{"no headings", `<p>text</p>`, []string{"missing-h1"}},
		{"two h1", `<h1>A</h1><h1>B</h1><h1>C</h1>`, []string{"multiple-h1"}},
		{"skipped level", `<h1>A</h1><h3>B</h3>`, []string{"heading-order"}},
		{"going back up is fine", `<h1>A</h1><h2>B</h2><h3>C</h3><h2>D</h2>`, []string{}},
		{"empty heading", `<h1>A</h1><h2> </h2>`, []string{"empty-heading"}},
		{"heading with image alt is not empty", `<h1><img src="logo.png" alt="Acme"></h1>`, []string{}},
		{"aria heading", `<div role="heading" aria-level="1">Title</div>`, []string{}},
		{"hidden headings ignored", `<h1>A</h1><h1 hidden>B</h1>`, []string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := HeadingDetector{}.Detect(body(t, tc.markup))
			assert.Equal(t, tc.want, ids(got))
		})
	}

	t.Run("multiple h1 targets the second", func(t *testing.T) {
		got := HeadingDetector{}.Detect(body(t, `<h1 id="a">A</h1><h1 id="b">B</h1>`))
		require.Len(t, got, 1)
		assert.Equal(t, "#b", got[0].Target.Selector)
		assert.Contains(t, got[0].Description, "2 level-one headings")
	})

	t.Run("empty heading fix inserts text", func(t *testing.T) {
		got := HeadingDetector{}.Detect(body(t, `<h1>A</h1><h2 id="e"></h2>`))
		require.Len(t, got, 1)
		require.NotNil(t, got[0].Fix)
		assert.Equal(t, FixInsertElement, got[0].Fix.Kind)
		assert.Equal(t, "#e", got[0].Fix.Target)
		assert.Equal(t, Change{Name: "position", Value: "beforeend"}, got[0].Fix.Changes[0])
		assert.Equal(t, "text", got[0].Fix.Changes[1].Name)
	})
}

// liveHeading turns the static snapshot into what the collect script
// reports for a heading of the given rendering: an empty heading has no box
// but is still rendered.
func liveHeading(t *testing.T, markup, selector string, rendered bool) *dom.Snapshot {
	t.Helper()
	snap := body(t, markup)
	snap.Static = false
	for i := range snap.Elements {
		e := &snap.Elements[i]
		e.Rect = dom.Rect{Width: 800, Height: 40}
		if e.Selector == selector {
			e.Rect.Height = 0
			e.Visible = false
			e.Rendered = rendered
		}
	}
	return snap
}

func TestHeadingDetector_LiveEmptyHeading(t *testing.T) {
	t.Run("zero-height empty heading is reported", func(t *testing.T) {
		snap := liveHeading(t, `<h1>Title</h1><h2 id="gap"></h2>`, "#gap", true)
		got := HeadingDetector{}.Detect(snap)
		assert.Equal(t, []string{"empty-heading"}, ids(got))
		require.NotNil(t, got[0].Fix)
		assert.Equal(t, "#gap", got[0].Fix.Target)
	})

	t.Run("display none heading is ignored", func(t *testing.T) {
		snap := liveHeading(t, `<h1>Title</h1><h2 id="gap"></h2>`, "#gap", false)
		assert.Empty(t, HeadingDetector{}.Detect(snap))
	})
}

func TestFormLabelDetector(t *testing.T) {
	testCases := []struct {
		name   string
		markup string
		want   []string
	}{
		{"label for", `<label for="q">Search</label><input id="q">`, []string{}},
		{"wrapping label", `<label>Name <input></label>`, []string{}},
		{"aria-label", `<input aria-label="Search">`, []string{}},
		{"aria-labelledby", `<span id="l">Email</span><input aria-labelledby="l">`, []string{}},
		{"broken labelledby", `<input aria-labelledby="nope">`, []string{"missing-label"}},
		{"empty label for", `<label for="q"></label><input id="q">`, []string{"missing-label"}},
		{"placeholder only", `<input placeholder="Email address">`, []string{"missing-label", "placeholder-as-label"}},
		{"submit button", `<input type="submit" value="Go">`, []string{}},
		{"hidden field", `<input type="hidden" name="csrf">`, []string{}},
		{"select and textarea", `<select></select><textarea></textarea>`, []string{"missing-label", "missing-label"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := FormLabelDetector{}.Detect(body(t, tc.markup))
			assert.Equal(t, tc.want, ids(got))
		})
	}

	t.Run("fix label prefers placeholder then name", func(t *testing.T) {
		got := FormLabelDetector{}.Detect(body(t, `<input placeholder="Email address"><input name="billing_zip"><select></select>`))
		var labels []string
		for _, is := range got {
			if is.Fix != nil {
				labels = append(labels, is.Fix.Changes[0].Value)
			}
		}
		assert.Equal(t, []string{"Email address", "Billing zip", "Select"}, labels)
	})
}

func TestKeyboardDetector(t *testing.T) {
	t.Run("click handler without focus", func(t *testing.T) {
		got := KeyboardDetector{}.Detect(body(t, `<div role="button" onclick="go()">Go</div><div role="button" tabindex="0">Ok</div>`))
		assert.Equal(t, []string{"keyboard-unreachable"}, ids(got))
	})

	t.Run("skip link missing", func(t *testing.T) {
		got := KeyboardDetector{}.Detect(body(t, `<nav><a href="/">Home</a></nav><main><h1>x</h1></main>`))
		require.Equal(t, []string{"skip-link-missing"}, ids(got))
		fix := got[0].Fix
		require.NotNil(t, fix)
		assert.Equal(t, FixInsertElement, fix.Kind)
		assert.Equal(t, "body", fix.Target)

		params := map[string]string{}
		for _, c := range fix.Changes {
			params[c.Name] = c.Value
		}
		assert.Equal(t, "afterbegin", params["position"])
		assert.Equal(t, "body > main", params["anchor-selector"])
		assert.Equal(t, fallbackMainID, params["anchor-id"])
		assert.Contains(t, params["html"], `href="#main-content"`)
	})

	t.Run("skip link present or not needed", func(t *testing.T) {
		assert.Empty(t, KeyboardDetector{}.Detect(body(t, `<a href="#c">Jump</a><nav><a href="/">Home</a></nav><main id="c"></main>`)))
		assert.Empty(t, KeyboardDetector{}.Detect(body(t, `<main><a href="/">Home</a></main>`)))
		assert.Empty(t, KeyboardDetector{}.Detect(body(t, `<nav><a href="/">Home</a></nav>`)), "no main landmark, nothing to skip to")
	})

	t.Run("focus indicator from live snapshot", func(t *testing.T) {
		snap := body(t, `<main><button id="plain">A</button><button id="ringed">B</button><button id="shadow">C</button></main>`)
		for i := range snap.Elements {
			e := &snap.Elements[i]
			switch e.Attrs["id"] {
			case "plain":
				e.Focus = &dom.FocusStyle{OutlineStyle: "none", BoxShadow: "none"}
			case "ringed":
				e.Focus = &dom.FocusStyle{OutlineStyle: "solid", OutlineWidth: 2, BoxShadow: "none"}
			case "shadow":
				e.Focus = &dom.FocusStyle{OutlineStyle: "none", BoxShadow: "0 0 0 3px blue"}
			}
		}
		got := KeyboardDetector{}.Detect(snap)
		require.Equal(t, []string{"focus-indicator-missing"}, ids(got))
		assert.Equal(t, "#plain", got[0].Target.Selector)
		require.NotNil(t, got[0].Fix)
		assert.Equal(t, FixInsertStyle, got[0].Fix.Kind)
		assert.Contains(t, got[0].Fix.Changes[0].Value, "#plain:focus-visible")
	})

	t.Run("browser default ring and unchanged outline", func(t *testing.T) {
		snap := body(t, `<main><button id="native">A</button><button id="framed" style="outline:1px solid gray">B</button><button id="own">C</button></main>`)
		for i := range snap.Elements {
			e := &snap.Elements[i]
			switch e.Attrs["id"] {
			case "native":
				e.Focus = &dom.FocusStyle{OutlineStyle: "auto", OutlineWidth: 1, BoxShadow: "none"}
			case "framed":
				e.Style.OutlineStyle, e.Style.OutlineWidth = "solid", 1
				e.Focus = &dom.FocusStyle{OutlineStyle: "solid", OutlineWidth: 1, BoxShadow: "none"}
			case "own":
				e.Focus = &dom.FocusStyle{OutlineStyle: "solid", OutlineWidth: 3, BoxShadow: "none"}
			}
		}
		got := KeyboardDetector{}.Detect(snap)
		require.Equal(t, []string{"focus-indicator-default", "focus-indicator-missing"}, ids(got))
		assert.Equal(t, "#native", got[0].Target.Selector)
		assert.Equal(t, LevelAAA, got[0].Level)
		assert.Equal(t, ImpactMinor, got[0].Impact)
		assert.Equal(t, "2.4.13", got[0].Criterion.Code)
		require.NotNil(t, got[0].Fix)
		assert.Contains(t, got[0].Fix.Changes[0].Value, "#native:focus-visible")
		assert.Equal(t, "#framed", got[1].Target.Selector)
	})
}

func TestContrastDetector(t *testing.T) {
	testCases := []struct {
		name   string
		markup string
		want   []string
	}{
		{"black on white", `<p>ok</p>`, []string{}},
		{"fails both", `<p style="color:#aaaaaa">faint</p>`, []string{"color-contrast", "color-contrast-enhanced"}},
		{"passes AA only", `<p style="color:#767676">grey</p>`, []string{"color-contrast-enhanced"}},
		{"large text relaxes AA", `<p style="color:#888888; font-size:24px">big</p>`, []string{"color-contrast-enhanced"}},
		{"bold 14px counts as large", `<p style="color:#888888; font-size:14px; font-weight:bold">bold</p>`, []string{"color-contrast-enhanced"}},
		{"normal text same colour", `<p style="color:#888888">small</p>`, []string{"color-contrast", "color-contrast-enhanced"}},
		{"background image skipped", `<div style="background-image:url(hero.jpg)"><p style="color:#aaa">x</p></div>`, []string{}},
		{"hidden text skipped", `<p style="color:#aaa; display:none">x</p>`, []string{}},
		{"white on dark", `<div style="background-color:#222"><p style="color:#fff">x</p></div>`, []string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ContrastDetector{}.Detect(body(t, tc.markup))
			assert.Equal(t, tc.want, ids(got))
		})
	}

	t.Run("translucent layers are blended", func(t *testing.T) {
		snap := body(t, `<div style="background-color: rgba(0, 0, 0, 0.5)"><p style="color:#fff">x</p></div>`)
		p := snap.ByTag("p")[0]
		bg, ok := ResolveBackground(snap, p)
		require.True(t, ok)
		assert.Equal(t, "#808080", bg.Hex())

		results := EvaluateContrast(snap)
		require.Len(t, results, 1)
		assert.InDelta(t, 3.95, results[0].Ratio, 0.02)
		assert.False(t, results[0].Large)
	})

	t.Run("description carries the ratio", func(t *testing.T) {
		got := ContrastDetector{}.Detect(body(t, `<p style="color:#aaaaaa">faint</p>`))
		require.NotEmpty(t, got)
		assert.True(t, strings.HasPrefix(got[0].Description, "Text contrast 2.32:1"), got[0].Description)
		assert.Equal(t, LevelAA, got[0].Level)
		assert.Equal(t, LevelAAA, got[1].Level)
	})
}

func TestARIADetector(t *testing.T) {
	testCases := []struct {
		name   string
		markup string
		want   []string
	}{
		{"valid role", `<div role="navigation">x</div>`, []string{}},
		{"invalid role", `<div role="sidebar">x</div>`, []string{"aria-invalid-role"}},
		{"fallback roles", `<div role="sidebar complementary">x</div>`, []string{}},
		{"abstract role", `<div role="widget">x</div>`, []string{"aria-invalid-role"}},
		{"empty label", `<button aria-label="">Save</button>`, []string{"aria-empty-label"}},
		{"broken reference", `<button aria-describedby="hint missing">Save</button><p id="hint">h</p>`, []string{"aria-broken-reference"}},
		{"valid reference", `<button aria-controls="menu">Open</button><ul id="menu"></ul>`, []string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ARIADetector{}.Detect(body(t, tc.markup))
			assert.Equal(t, tc.want, ids(got))
		})
	}

	t.Run("empty label fix depends on text", func(t *testing.T) {
		got := ARIADetector{}.Detect(body(t, `<button aria-label="">Save</button><div role="button" aria-label=""></div>`))
		require.Len(t, got, 2)
		assert.Equal(t, FixRemoveAttribute, got[0].Fix.Kind)
		assert.Equal(t, FixModifyAttribute, got[1].Fix.Kind)
		assert.Equal(t, "Button", got[1].Fix.Changes[0].Value)
	})

	t.Run("broken reference lists missing ids", func(t *testing.T) {
		got := ARIADetector{}.Detect(body(t, `<button aria-describedby="hint missing">Save</button><p id="hint">h</p>`))
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Description, "missing")
		assert.NotContains(t, got[0].Description, "hint,")
	})
}

func TestLandmarkDetector(t *testing.T) {
	got := LandmarkDetector{}.Detect(body(t, `<p>bare</p>`))
	assert.Equal(t, []string{
		"landmark-main-missing", "landmark-navigation-missing",
		"landmark-banner-missing", "landmark-contentinfo-missing",
	}, ids(got))
	for _, is := range got {
		assert.Equal(t, ImpactModerate, is.Impact)
		assert.Equal(t, LevelAA, is.Level)
		assert.False(t, is.Fixable)
	}

	got = LandmarkDetector{}.Detect(body(t, `<header></header><nav></nav><main></main><main></main><footer></footer>`))
	assert.Equal(t, []string{"landmark-main-duplicate"}, ids(got))

	got = LandmarkDetector{}.Detect(body(t, `<div role="banner"></div><div role="navigation"></div><div role="main"><article><header></header><footer></footer></article></div><div role="contentinfo"></div>`))
	assert.Empty(t, got, "explicit roles count as landmarks")

	got = LandmarkDetector{}.Detect(body(t, `<nav></nav><main><header>h</header><footer>f</footer></main>`))
	assert.Equal(t, []string{"landmark-banner-missing", "landmark-contentinfo-missing"}, ids(got),
		"header and footer inside sectioning content are not page landmarks")
}

func TestAbsenceRulesOnTruncatedSnapshot(t *testing.T) {
	const markup = `<div aria-labelledby="later">Menu</div>`

	full := body(t, markup)
	assert.Contains(t, ids(LandmarkDetector{}.Detect(full)), "landmark-contentinfo-missing")
	assert.Equal(t, []string{"missing-h1"}, ids(HeadingDetector{}.Detect(full)))
	assert.Equal(t, []string{"aria-broken-reference"}, ids(ARIADetector{}.Detect(full)))

	// The footer, the h1 and the #later element all sit past the element cap.
	partial := body(t, markup)
	partial.Truncated = true
	partial.DocumentIDs = []string{"later"}
	assert.Empty(t, LandmarkDetector{}.Detect(partial))
	assert.Empty(t, HeadingDetector{}.Detect(partial))
	assert.Empty(t, ARIADetector{}.Detect(partial))

	t.Run("duplicates are still reported", func(t *testing.T) {
		snap := body(t, `<h1>A</h1><h1>B</h1><main>x</main><main>y</main>`)
		snap.Truncated = true
		assert.Equal(t, []string{"multiple-h1"}, ids(HeadingDetector{}.Detect(snap)))
		assert.Equal(t, []string{"landmark-main-duplicate"}, ids(LandmarkDetector{}.Detect(snap)))
	})
}

func TestSemanticDetector(t *testing.T) {
	t.Run("div soup", func(t *testing.T) {
		got := SemanticDetector{}.Detect(body(t, strings.Repeat("<div>x</div>", 12)+"<p>one</p>"))
		assert.Equal(t, []string{"generic-container-ratio"}, ids(got))
		assert.Equal(t, ImpactMinor, got[0].Impact)
	})

	t.Run("few generic elements are fine", func(t *testing.T) {
		got := SemanticDetector{}.Detect(body(t, strings.Repeat("<div>x</div>", 9)))
		assert.Empty(t, got)
	})

	t.Run("card run without list markup", func(t *testing.T) {
		cards := strings.Repeat(`<div class="card">c</div>`, 3)
		got := SemanticDetector{}.Detect(body(t, `<section id="s">`+cards+`</section>`))
		require.Equal(t, []string{"list-markup-missing"}, ids(got))
		assert.Equal(t, "#s", got[0].Target.Selector)
	})

	t.Run("runs need equal class and length three", func(t *testing.T) {
		assert.Empty(t, SemanticDetector{}.Detect(body(t, `<section><div class="a">1</div><div class="b">2</div><div class="a">3</div></section>`)))
		assert.Empty(t, SemanticDetector{}.Detect(body(t, `<section><div class="a">1</div><div class="a">2</div></section>`)))
		assert.Empty(t, SemanticDetector{}.Detect(body(t, `<ul><li class="i">1</li><li class="i">2</li><li class="i">3</li></ul>`)))
		assert.Empty(t, SemanticDetector{}.Detect(body(t, `<div role="list"><div class="i">1</div><div class="i">2</div><div class="i">3</div></div>`)))
	})
}
