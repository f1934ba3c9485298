// Package dom defines the serializable page snapshot that every detector and
// layout check reads from. A snapshot is either collected from a live browser
// page with a single query (Collect) or built from static HTML (FromHTML).
package dom

import (
	"strconv"
	"strings"
)

// Snapshot is the serialized state of one rendered document.
type Snapshot struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Lang        string    `json:"lang"`
	Viewport    Size      `json:"viewport"`
	ScrollWidth float64   `json:"scrollWidth"`
	Elements    []Element `json:"elements"`
	// Static is true when the snapshot came from markup alone; layout,
	// cascaded stylesheet values and focus rendering are then unknown.
	Static bool `json:"static"`
	// Truncated is set when the document had more elements than one query
	// collects; Elements then holds a prefix in document order.
	Truncated        bool `json:"truncated,omitempty"`
	DocumentElements int  `json:"documentElements,omitempty"`
	// DocumentIDs lists every id in the document when Truncated is set.
	DocumentIDs []string `json:"documentIds,omitempty"`

	ids map[string]int
}

// Size is a width/height pair in CSS pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an element's bounding box in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is one element node in document order. Index 0 is <html>, index 1
// is <body>; Parent is -1 for the root.
type Element struct {
	Index    int               `json:"index"`
	Parent   int               `json:"parent"`
	Tag      string            `json:"tag"`
	Selector string            `json:"selector"`
	Snippet  string            `json:"snippet"`
	Attrs    map[string]string `json:"attrs"`
	Text     string            `json:"text"`
	OwnText  string            `json:"ownText"`
	Visible  bool              `json:"visible"`
	// Rendered ignores box size: display and visibility only. Empty
	// elements collapse to a zero box but are still exposed to assistive
	// technology.
	Rendered bool  `json:"rendered"`
	Disabled bool  `json:"disabled"`
	Rect     Rect  `json:"rect"`
	Style    Style `json:"style"`
	// Focus holds the outline/box-shadow rendered while the element has
	// focus. Nil when unknown (static snapshots, unfocusable elements).
	Focus *FocusStyle `json:"focus,omitempty"`
}

// Style is the subset of computed style the checks need.
type Style struct {
	Color           string  `json:"color"`
	BackgroundColor string  `json:"backgroundColor"`
	BackgroundImage string  `json:"backgroundImage"`
	FontSize        float64 `json:"fontSize"`
	FontWeight      int     `json:"fontWeight"`
	FontFamily      string  `json:"fontFamily"`
	LineHeight      string  `json:"lineHeight"`
	Display         string  `json:"display"`
	Visibility      string  `json:"visibility"`
	Position        string  `json:"position"`
	BorderColor     string  `json:"borderColor"`
	BorderRadius    string  `json:"borderRadius"`
	BoxShadow       string  `json:"boxShadow"`
	BackdropFilter  string  `json:"backdropFilter"`
	OutlineStyle    string  `json:"outlineStyle"`
	OutlineWidth    float64 `json:"outlineWidth"`
	Margin          string  `json:"margin"`
	Padding         string  `json:"padding"`
	Gap             string  `json:"gap"`
	MaxWidth        string  `json:"maxWidth"`
	Fill            string  `json:"fill"`
	Stroke          string  `json:"stroke"`
}

// FocusStyle is the focus rendering of an element.
type FocusStyle struct {
	OutlineStyle string  `json:"outlineStyle"`
	OutlineWidth float64 `json:"outlineWidth"`
	BoxShadow    string  `json:"boxShadow"`
}

// Attr returns an attribute value and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// HasAttr reports whether the attribute is present, even when empty.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attrs[name]
	return ok
}

// Role returns the first token of the explicit role attribute, lowercased.
func (e *Element) Role() string {
	role := strings.Fields(strings.ToLower(e.Attrs["role"]))
	if len(role) == 0 {
		return ""
	}
	return role[0]
}

// HeadingLevel returns 1..6 for h1..h6 and 0 otherwise.
func (e *Element) HeadingLevel() int {
	if len(e.Tag) == 2 && e.Tag[0] == 'h' && e.Tag[1] >= '1' && e.Tag[1] <= '6' {
		return int(e.Tag[1] - '0')
	}
	return 0
}

// IsBold reports a font weight of 700 or more.
func (e *Element) IsBold() bool {
	return e.Style.FontWeight >= 700
}

// Element returns the element at index i, or nil when out of range.
func (s *Snapshot) Element(i int) *Element {
	if i < 0 || i >= len(s.Elements) {
		return nil
	}
	return &s.Elements[i]
}

// Body returns the <body> element, or nil.
func (s *Snapshot) Body() *Element {
	for i := range s.Elements {
		if s.Elements[i].Tag == "body" {
			return &s.Elements[i]
		}
	}
	return nil
}

// ByTag returns elements with any of the given tag names in document order.
func (s *Snapshot) ByTag(tags ...string) []*Element {
	var out []*Element
	for i := range s.Elements {
		for _, t := range tags {
			if s.Elements[i].Tag == t {
				out = append(out, &s.Elements[i])
				break
			}
		}
	}
	return out
}

// ByID looks up an element by its id attribute.
func (s *Snapshot) ByID(id string) *Element {
	if s.ids == nil {
		s.ids = make(map[string]int, len(s.Elements))
		for i := range s.Elements {
			if v, ok := s.Elements[i].Attrs["id"]; ok && v != "" {
				if _, dup := s.ids[v]; !dup {
					s.ids[v] = i
				}
			}
		}
	}
	i, ok := s.ids[id]
	if !ok {
		return nil
	}
	return &s.Elements[i]
}

// HasID reports whether any element in the document carries id, including
// elements past the collected prefix of a truncated snapshot.
func (s *Snapshot) HasID(id string) bool {
	if s.ByID(id) != nil {
		return true
	}
	for _, v := range s.DocumentIDs {
		if v == id {
			return true
		}
	}
	return false
}

// Ancestors returns the chain of ancestors of e, nearest first.
func (s *Snapshot) Ancestors(e *Element) []*Element {
	var out []*Element
	for p := s.Element(e.Parent); p != nil; p = s.Element(p.Parent) {
		out = append(out, p)
	}
	return out
}

// Children returns the direct element children of e in document order.
func (s *Snapshot) Children(e *Element) []*Element {
	var out []*Element
	for i := e.Index + 1; i < len(s.Elements); i++ {
		if s.Elements[i].Parent == e.Index {
			out = append(out, &s.Elements[i])
		}
	}
	return out
}

// Descendants returns every element below e in document order.
func (s *Snapshot) Descendants(e *Element) []*Element {
	var out []*Element
	for i := e.Index + 1; i < len(s.Elements); i++ {
		if s.IsAncestor(e, &s.Elements[i]) {
			out = append(out, &s.Elements[i])
		}
	}
	return out
}

// IsAncestor reports whether a is a proper ancestor of b.
func (s *Snapshot) IsAncestor(a, b *Element) bool {
	for p := s.Element(b.Parent); p != nil; p = s.Element(p.Parent) {
		if p.Index == a.Index {
			return true
		}
	}
	return false
}

// ClosestTag returns the nearest ancestor of e with one of the given tags.
func (s *Snapshot) ClosestTag(e *Element, tags ...string) *Element {
	for _, a := range s.Ancestors(e) {
		for _, t := range tags {
			if a.Tag == t {
				return a
			}
		}
	}
	return nil
}

var nativelyFocusable = map[string]bool{
	"button": true, "select": true, "textarea": true, "iframe": true, "summary": true,
}

// Focusable reports whether the element takes part in sequential (Tab) focus
// navigation: visible, enabled, and either natively focusable or given a
// non-negative tabindex.
func (s *Snapshot) Focusable(e *Element) bool {
	if !e.Visible || e.Disabled {
		return false
	}
	if v, ok := e.Attrs["tabindex"]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			return n >= 0
		}
	}
	switch {
	case nativelyFocusable[e.Tag]:
		return true
	case e.Tag == "a" || e.Tag == "area":
		return e.HasAttr("href")
	case e.Tag == "input":
		return !strings.EqualFold(e.Attrs["type"], "hidden")
	case e.Tag == "audio" || e.Tag == "video":
		return e.HasAttr("controls")
	}
	ce, ok := e.Attrs["contenteditable"]
	return ok && !strings.EqualFold(ce, "false")
}

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "checkbox": true, "radio": true, "switch": true,
	"tab": true, "menuitem": true, "menuitemcheckbox": true, "menuitemradio": true,
	"option": true, "textbox": true, "combobox": true, "slider": true,
	"spinbutton": true, "searchbox": true, "treeitem": true,
}

// Interactive reports whether the element is something a user is expected to
// operate: links, buttons, form controls, or elements with an interactive role.
func (s *Snapshot) Interactive(e *Element) bool {
	switch e.Tag {
	case "a":
		return e.HasAttr("href")
	case "button", "select", "textarea", "summary":
		return true
	case "input":
		return !strings.EqualFold(e.Attrs["type"], "hidden")
	}
	if interactiveRoles[e.Role()] {
		return true
	}
	if v, ok := e.Attrs["onclick"]; ok && v != "" {
		return true
	}
	return false
}

// FocusOrder returns the sequentially focusable elements in Tab order:
// positive tabindex values first (ascending, stable), then document order.
func (s *Snapshot) FocusOrder() []*Element {
	var positive, natural []*Element
	for i := range s.Elements {
		e := &s.Elements[i]
		if !s.Focusable(e) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(e.Attrs["tabindex"])); err == nil && n > 0 {
			positive = append(positive, e)
			continue
		}
		natural = append(natural, e)
	}
	for i := 1; i < len(positive); i++ {
		for j := i; j > 0 && tabIndexOf(positive[j]) < tabIndexOf(positive[j-1]); j-- {
			positive[j], positive[j-1] = positive[j-1], positive[j]
		}
	}
	return append(positive, natural...)
}

func tabIndexOf(e *Element) int {
	n, _ := strconv.Atoi(strings.TrimSpace(e.Attrs["tabindex"]))
	return n
}
