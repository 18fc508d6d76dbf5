package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionText_ReadingOrder(t *testing.T) {
	page := &fakePage{number: 1, bounds: a4, words: []Word{
		word("Total", 10, 30, 40, 40),
		word("No", 55, 10, 70, 20),
		word("Invoice", 10, 10, 50, 20),
		word("1,234.00", 120, 31, 168, 41),
	}}

	txt, err := RegionText(page, a4, SegmentConfig{})
	require.NoError(t, err)
	assert.Equal(t, "Invoice No\nTotal"+"        "+"1,234.00\n", txt)
}

func TestRegionText_ClipAndImages(t *testing.T) {
	page := &fakePage{number: 1, bounds: a4,
		words: []Word{
			word("left", 10, 10, 30, 20),
			word("right", 400, 10, 430, 20),
			word("logo", 12, 100, 40, 110),
		},
		images: []Rect{{X0: 0, Y0: 90, X1: 100, Y1: 120}},
	}

	txt, err := RegionText(page, Rect{X0: 0, Y0: 0, X1: 300, Y1: 800}, SegmentConfig{NoImageText: true})
	require.NoError(t, err)
	assert.Equal(t, "left\n", txt)

	txt, err = RegionText(page, Rect{X0: 0, Y0: 0, X1: 300, Y1: 800}, SegmentConfig{})
	require.NoError(t, err)
	assert.Equal(t, "left\nlogo\n", txt)
}

func TestRegionText_Empty(t *testing.T) {
	txt, err := RegionText(&fakePage{bounds: a4}, a4, SegmentConfig{})
	require.NoError(t, err)
	assert.Empty(t, txt)
}

func TestGapSpaces(t *testing.T) {
	prev := word("abcd", 0, 0, 20, 10) // 5pt per glyph
	tests := []struct {
		name string
		x0   float64
		want int
	}{
		{"adjacent", 21, 1},
		{"just under two glyphs", 29, 1},
		{"two glyphs", 30, 2},
		{"wide", 60, 8},
		{"capped", 400, maxGapSpaces},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gapSpaces(prev, word("x", tt.x0, 0, tt.x0+5, 10)))
		})
	}
}
