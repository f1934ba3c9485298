// File: internal/dom/color_test.go
package dom

import (
	"math"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	testCases := []struct {
		input string
		want  Color
		ok    bool
	}{
		{"rgb(255, 0, 0)", Color{255, 0, 0, 1}, true},
		{"rgba(0, 0, 0, 0.5)", Color{0, 0, 0, 0.5}, true},
		{"rgb(10 20 30 / 25%)", Color{10, 20, 30, 0.25}, true},
		{"rgb(100%, 0%, 50%)", Color{255, 0, 128, 1}, true},
		{"#fff", White, true},
		{"#000000", Black, true},
		{"#11223380", Color{0x11, 0x22, 0x33, float64(0x80) / 255}, true},
		{"  White ", White, true},
		{"transparent", Color{0, 0, 0, 0}, true},
		{"#12", Color{}, false},
		{"#zzzzzz", Color{}, false},
		{"rgb(1, 2)", Color{}, false},
		{"hsl(0, 100%, 50%)", Color{}, false},
		{"", Color{}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := ParseColor(tc.input)
			require.Equal(t, tc.ok, ok)
			if !tc.ok {
				return
			}
			assert.Equal(t, tc.want.R, got.R)
			assert.Equal(t, tc.want.G, got.G)
			assert.Equal(t, tc.want.B, got.B)
			assert.InDelta(t, tc.want.A, got.A, 0.001)
		})
	}
}

func TestContrastRatio(t *testing.T) {
	assert.InDelta(t, 21.0, ContrastRatio(Black, White), 0.001)
	assert.InDelta(t, 21.0, ContrastRatio(White, Black), 0.001, "ratio is symmetric")
	assert.InDelta(t, 1.0, ContrastRatio(White, White), 0.001)

	grey, _ := ParseColor("#767676")
	assert.InDelta(t, 4.54, ContrastRatio(grey, White), 0.01, "#767676 is the lightest grey passing AA on white")

	light, _ := ParseColor("#777777")
	assert.Less(t, ContrastRatio(light, White), 4.5)
}

func TestOver(t *testing.T) {
	half := Color{0, 0, 0, 0.5}
	got := half.Over(White)
	assert.Equal(t, Color{128, 128, 128, 1}, got)
	assert.Equal(t, Black, Black.Over(White), "opaque colours are unchanged")
	assert.Equal(t, White, Color{0, 0, 0, 0}.Over(White))
}

// FuzzParseColor checks the parser never panics and always yields a valid
// alpha channel for accepted input.
func FuzzParseColor(f *testing.F) {
	f.Add([]byte("rgb(1, 2, 3)"))
	f.Add([]byte("#abcdef"))
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		input, err := consumer.GetString()
		if err != nil {
			return
		}
		c, ok := ParseColor(input)
		if !ok {
			return
		}
		if c.A < 0 || c.A > 1 || math.IsNaN(c.A) {
			t.Fatalf("alpha out of range for %q: %v", input, c.A)
		}
		ratio := ContrastRatio(c, White)
		if ratio < 1 || ratio > 21.0001 {
			t.Fatalf("contrast ratio out of range for %q: %v", input, ratio)
		}
	})
}
