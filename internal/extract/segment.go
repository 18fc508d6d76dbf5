package extract

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// SegmentConfig controls page segmentation.
type SegmentConfig struct {
	FooterMargin float64 // height of the bottom band ignored by column detection
	NoImageText  bool    // drop words that sit on placed images
}

// Segmenter returns the ordered regions of a page to extract text from.
type Segmenter func(page Page, cfg SegmentConfig) ([]Rect, error)

// FullPage is the degenerate segmenter: one region covering the whole page.
func FullPage(page Page, _ SegmentConfig) ([]Rect, error) {
	return []Rect{page.Bounds()}, nil
}

// minGutter is the narrowest empty vertical strip treated as a column gutter, in points.
const minGutter = 12.0

// ColumnBoxes splits the page body (page minus the footer band) into columns separated by
// vertical gutters that no word crosses. Columns are returned left to right. A page without
// gutters yields the body rectangle.
func ColumnBoxes(page Page, cfg SegmentConfig) ([]Rect, error) {
	b := page.Bounds()
	body := Rect{X0: b.X0, Y0: b.Y0, X1: b.X1, Y1: b.Y1 - cfg.FooterMargin}
	if body.Empty() {
		body = b
	}

	words, err := page.Words()
	if err != nil {
		return nil, err
	}
	var images []Rect
	if cfg.NoImageText {
		images = page.ImageBoxes()
	}

	type span struct{ x0, x1 float64 }
	var spans []span
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		cx, cy := w.Box.Center()
		if !body.Contains(cx, cy) || insideAny(images, cx, cy) {
			continue
		}
		spans = append(spans, span{w.Box.X0, w.Box.X1})
	}
	if len(spans) == 0 {
		return []Rect{body}, nil
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].x0 < spans[j].x0 })
	gutter := math.Max(minGutter, 0.03*body.Width())

	var cuts []float64
	covered := spans[0].x1
	for _, s := range spans[1:] {
		if s.x0-covered >= gutter {
			cuts = append(cuts, (covered+s.x0)/2)
		}
		covered = math.Max(covered, s.x1)
	}
	if len(cuts) == 0 {
		return []Rect{body}, nil
	}

	regions := make([]Rect, 0, len(cuts)+1)
	left := body.X0
	for _, c := range cuts {
		regions = append(regions, Rect{X0: left, Y0: body.Y0, X1: c, Y1: body.Y1})
		left = c
	}
	regions = append(regions, Rect{X0: left, Y0: body.Y0, X1: body.X1, Y1: body.Y1})
	return regions, nil
}

// SegmenterByName resolves "columns" or "page".
func SegmenterByName(name string) (Segmenter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "columns":
		return ColumnBoxes, nil
	case "page":
		return FullPage, nil
	default:
		return nil, fmt.Errorf("unknown segmenter %q (want columns | page)", name)
	}
}
