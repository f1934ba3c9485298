// File: internal/dom/color.go
package dom

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Color is an sRGB colour with straight (non-premultiplied) alpha.
type Color struct {
	R, G, B uint8
	A       float64
}

var (
	White = Color{255, 255, 255, 1}
	Black = Color{0, 0, 0, 1}
)

var namedColors = map[string]Color{
	"black":   {0, 0, 0, 1},
	"white":   {255, 255, 255, 1},
	"red":     {255, 0, 0, 1},
	"green":   {0, 128, 0, 1},
	"blue":    {0, 0, 255, 1},
	"yellow":  {255, 255, 0, 1},
	"orange":  {255, 165, 0, 1},
	"purple":  {128, 0, 128, 1},
	"gray":    {128, 128, 128, 1},
	"grey":    {128, 128, 128, 1},
	"silver":  {192, 192, 192, 1},
	"maroon":  {128, 0, 0, 1},
	"navy":    {0, 0, 128, 1},
	"teal":    {0, 128, 128, 1},
	"olive":   {128, 128, 0, 1},
	"lime":    {0, 255, 0, 1},
	"aqua":    {0, 255, 255, 1},
	"cyan":    {0, 255, 255, 1},
	"fuchsia": {255, 0, 255, 1},
	"magenta": {255, 0, 255, 1},

	"lightgray":   {211, 211, 211, 1},
	"lightgrey":   {211, 211, 211, 1},
	"darkgray":    {169, 169, 169, 1},
	"darkgrey":    {169, 169, 169, 1},
	"gainsboro":   {220, 220, 220, 1},
	"whitesmoke":  {245, 245, 245, 1},
	"transparent": {0, 0, 0, 0},
}

// ParseColor parses the CSS colour forms a computed style or inline
// declaration may contain: rgb()/rgba() (comma or space separated, with
// optional "/ alpha"), #rgb, #rgba, #rrggbb, #rrggbbaa and common keywords.
func ParseColor(s string) (Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Color{}, false
	}
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}
	if strings.HasPrefix(s, "rgb") {
		open := strings.IndexByte(s, '(')
		closing := strings.LastIndexByte(s, ')')
		if open < 0 || closing < open {
			return Color{}, false
		}
		return parseRGBArgs(s[open+1 : closing])
	}
	return Color{}, false
}

func parseHex(h string) (Color, bool) {
	expand := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		return b.String()
	}
	switch len(h) {
	case 3, 4:
		h = expand(h)
	case 6, 8:
	default:
		return Color{}, false
	}
	v, err := strconv.ParseUint(h, 16, 64)
	if err != nil {
		return Color{}, false
	}
	if len(h) == 6 {
		return Color{uint8(v >> 16), uint8(v >> 8), uint8(v), 1}, true
	}
	return Color{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), float64(uint8(v)) / 255}, true
}

func parseRGBArgs(args string) (Color, bool) {
	alpha := 1.0
	if slash := strings.IndexByte(args, '/'); slash >= 0 {
		a, ok := parseAlpha(strings.TrimSpace(args[slash+1:]))
		if !ok {
			return Color{}, false
		}
		alpha = a
		args = args[:slash]
	}
	parts := strings.FieldsFunc(args, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, false
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		v, ok := parseChannel(parts[i])
		if !ok {
			return Color{}, false
		}
		ch[i] = v
	}
	if len(parts) == 4 {
		a, ok := parseAlpha(parts[3])
		if !ok {
			return Color{}, false
		}
		alpha = a
	}
	return Color{ch[0], ch[1], ch[2], alpha}, true
}

func parseChannel(s string) (uint8, bool) {
	pct := strings.HasSuffix(s, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	if pct {
		f = f * 255 / 100
	}
	return uint8(math.Round(clamp(f, 0, 255))), true
}

func parseAlpha(s string) (float64, bool) {
	pct := strings.HasSuffix(s, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	if pct {
		f /= 100
	}
	return clamp(f, 0, 1), true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Opaque reports whether the colour has full alpha.
func (c Color) Opaque() bool { return c.A >= 1 }

// Transparent reports whether the colour has zero alpha.
func (c Color) Transparent() bool { return c.A <= 0 }

// Over composites c on top of an opaque backdrop.
func (c Color) Over(backdrop Color) Color {
	if c.Opaque() {
		return c
	}
	mix := func(fg, bg uint8) uint8 {
		return uint8(math.Round(float64(fg)*c.A + float64(bg)*(1-c.A)))
	}
	return Color{mix(c.R, backdrop.R), mix(c.G, backdrop.G), mix(c.B, backdrop.B), 1}
}

// Hex returns #rrggbb, dropping alpha.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) String() string {
	if c.Opaque() {
		return c.Hex()
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %g)", c.R, c.G, c.B, c.A)
}

// Luminance is the WCAG relative luminance of the colour, ignoring alpha.
func (c Color) Luminance() float64 {
	lin := func(v uint8) float64 {
		s := float64(v) / 255
		if s <= 0.03928 {
			return s / 12.92
		}
		return math.Pow((s+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.R) + 0.7152*lin(c.G) + 0.0722*lin(c.B)
}

// ContrastRatio returns the WCAG contrast ratio between two colours, in [1, 21].
func ContrastRatio(a, b Color) float64 {
	la, lb := a.Luminance(), b.Luminance()
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}
