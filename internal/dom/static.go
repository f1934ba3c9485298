// File: internal/dom/static.go
package dom

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

const (
	maxTextLen    = 200
	maxSnippetLen = 250
)

var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "head": true,
}

var boldTags = map[string]bool{
	"b": true, "strong": true, "th": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

var emSizes = map[string]float64{
	"h1": 2, "h2": 1.5, "h3": 1.17, "h4": 1, "h5": 0.83, "h6": 0.67, "small": 0.83,
}

var blockTags = map[string]bool{
	"html": true, "body": true, "div": true, "p": true, "section": true, "article": true,
	"main": true, "nav": true, "header": true, "footer": true, "aside": true, "form": true,
	"ul": true, "ol": true, "li": true, "table": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "fieldset": true, "figure": true, "blockquote": true,
	"pre": true, "dl": true, "dd": true, "dt": true, "hr": true, "address": true,
}

var disableable = map[string]bool{
	"button": true, "input": true, "select": true, "textarea": true, "option": true, "fieldset": true,
}

// FromHTML builds a static snapshot from markup. Styles come from inline
// style attributes and user-agent defaults (black text on a white canvas);
// geometry is unknown and Focus is always nil.
func FromHTML(r io.Reader, pageURL string) (*Snapshot, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	root := findElement(doc, "html")
	if root == nil {
		return nil, errors.New("document has no html element")
	}

	snap := &Snapshot{URL: pageURL, Static: true}
	for _, a := range root.Attr {
		if a.Key == "lang" {
			snap.Lang = a.Val
		}
	}
	if title := findElement(root, "title"); title != nil {
		snap.Title = collapse(textOf(title))
	}

	b := &staticBuilder{snap: snap, idCounts: countIDs(root)}
	b.visit(root, -1)
	return snap, nil
}

type staticBuilder struct {
	snap     *Snapshot
	idCounts map[string]int
}

func (b *staticBuilder) visit(n *html.Node, parent int) {
	if n.Type != html.ElementNode || skippedTags[n.Data] {
		return
	}

	el := Element{
		Index:   len(b.snap.Elements),
		Parent:  parent,
		Tag:     n.Data,
		Attrs:   make(map[string]string, len(n.Attr)),
		Text:    truncate(collapse(textOf(n)), maxTextLen),
		OwnText: truncate(collapse(ownText(n)), maxTextLen),
		Snippet: snippet(n),
	}
	for _, a := range n.Attr {
		if a.Namespace == "" {
			el.Attrs[a.Key] = a.Val
		}
	}

	var parentEl *Element
	if parent >= 0 {
		parentEl = &b.snap.Elements[parent]
	}
	el.Style = inheritStyle(parentEl, n.Data)
	applyInlineStyle(&el.Style, el.Attrs["style"], parentEl)
	el.Visible = staticVisible(&el, parentEl)
	el.Rendered = el.Visible
	el.Disabled = disableable[el.Tag] && el.HasAttr("disabled")
	el.Selector = b.selector(n, &el, parentEl)

	b.snap.Elements = append(b.snap.Elements, el)
	index := el.Index
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.visit(c, index)
	}
}

func (b *staticBuilder) selector(n *html.Node, el *Element, parent *Element) string {
	if id := el.Attrs["id"]; id != "" && b.idCounts[id] == 1 {
		return IDSelector(id)
	}
	if parent == nil {
		return el.Tag
	}
	if el.Tag == "body" {
		return "body"
	}
	seg := el.Tag
	pos, total := 0, 0
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			total++
			if s == n {
				pos = total
			}
		}
	}
	if total > 1 {
		seg = fmt.Sprintf("%s:nth-of-type(%d)", el.Tag, pos)
	}
	return parent.Selector + " > " + seg
}

var plainID = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// IDSelector returns a CSS selector matching the given id.
func IDSelector(id string) string {
	if plainID.MatchString(id) {
		return "#" + id
	}
	return `[id="` + strings.ReplaceAll(id, `"`, `\"`) + `"]`
}

func inheritStyle(parent *Element, tag string) Style {
	st := Style{
		Color:           "rgb(0, 0, 0)",
		BackgroundColor: "rgba(0, 0, 0, 0)",
		BackgroundImage: "none",
		FontSize:        16,
		FontWeight:      400,
		FontFamily:      "serif",
		LineHeight:      "normal",
		Visibility:      "visible",
		Position:        "static",
		OutlineStyle:    "none",
		BoxShadow:       "none",
		BackdropFilter:  "none",
	}
	if parent != nil {
		st.Color = parent.Style.Color
		st.FontSize = parent.Style.FontSize
		st.FontWeight = parent.Style.FontWeight
		st.FontFamily = parent.Style.FontFamily
		st.LineHeight = parent.Style.LineHeight
		st.Visibility = parent.Style.Visibility
	}
	if tag == "html" {
		// The canvas behind the root element.
		st.BackgroundColor = "rgb(255, 255, 255)"
	}
	if em, ok := emSizes[tag]; ok {
		st.FontSize *= em
	}
	if boldTags[tag] {
		st.FontWeight = 700
	}
	st.Display = "inline"
	if blockTags[tag] {
		st.Display = "block"
	}
	return st
}

func applyInlineStyle(st *Style, decl string, parent *Element) {
	if strings.TrimSpace(decl) == "" {
		return
	}
	decls, err := parser.ParseDeclarations(decl)
	if err != nil {
		return
	}
	parentSize := 16.0
	if parent != nil {
		parentSize = parent.Style.FontSize
	}
	for _, d := range decls {
		value := strings.TrimSpace(d.Value)
		switch strings.ToLower(d.Property) {
		case "color":
			st.Color = value
		case "background-color":
			st.BackgroundColor = value
		case "background":
			if c, ok := ParseColor(value); ok {
				st.BackgroundColor = c.String()
			} else if strings.Contains(value, "url(") || strings.Contains(value, "gradient(") {
				st.BackgroundImage = value
			}
		case "background-image":
			st.BackgroundImage = value
		case "font-size":
			if px, ok := parseLength(value, parentSize); ok {
				st.FontSize = px
			}
		case "font-weight":
			st.FontWeight = parseWeight(value, st.FontWeight)
		case "font-family":
			st.FontFamily = value
		case "line-height":
			st.LineHeight = value
		case "display":
			st.Display = value
		case "visibility":
			st.Visibility = value
		case "position":
			st.Position = value
		case "border-color":
			st.BorderColor = value
		case "border-radius":
			st.BorderRadius = value
		case "box-shadow":
			st.BoxShadow = value
		case "backdrop-filter", "-webkit-backdrop-filter":
			st.BackdropFilter = value
		case "outline-style":
			st.OutlineStyle = value
		case "outline":
			if value == "none" || value == "0" {
				st.OutlineStyle, st.OutlineWidth = "none", 0
			}
		case "margin":
			st.Margin = value
		case "padding":
			st.Padding = value
		case "gap":
			st.Gap = value
		case "max-width":
			st.MaxWidth = value
		case "fill":
			st.Fill = value
		case "stroke":
			st.Stroke = value
		}
	}
}

func parseLength(v string, parentPx float64) (float64, bool) {
	units := []struct {
		suffix string
		scale  float64
	}{
		{"rem", 16}, {"em", parentPx}, {"px", 1}, {"pt", 4.0 / 3.0}, {"%", parentPx / 100},
	}
	for _, u := range units {
		if strings.HasSuffix(v, u.suffix) {
			f, err := strconv.ParseFloat(strings.TrimSuffix(v, u.suffix), 64)
			if err != nil {
				return 0, false
			}
			return f * u.scale, true
		}
	}
	return 0, false
}

func parseWeight(v string, current int) int {
	switch v {
	case "bold", "bolder":
		return 700
	case "normal", "lighter":
		return 400
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return current
}

func staticVisible(el, parent *Element) bool {
	if parent != nil && !parent.Visible {
		return false
	}
	if el.HasAttr("hidden") || el.Style.Display == "none" || el.Style.Visibility == "hidden" {
		return false
	}
	if el.Tag == "input" && strings.EqualFold(el.Attrs["type"], "hidden") {
		return false
	}
	return true
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func countIDs(n *html.Node) map[string]int {
	counts := make(map[string]int)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "id" && a.Val != "" {
					counts[a.Val]++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return counts
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var errSnippetFull = errors.New("snippet full")

type limitWriter struct {
	buf   []byte
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	room := w.limit - len(w.buf)
	if room <= 0 {
		return 0, errSnippetFull
	}
	if len(p) > room {
		w.buf = append(w.buf, p[:room]...)
		return room, errSnippetFull
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func snippet(n *html.Node) string {
	w := &limitWriter{limit: maxSnippetLen}
	// Render stops at the first write error once the limit is reached.
	_ = html.Render(w, n)
	return string(w.buf)
}
