package extract

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// maxGapSpaces caps the number of spaces rendered for a wide horizontal gap.
const maxGapSpaces = 8

// RegionText returns the text of the words whose centre falls inside clip, in reading order:
// lines top to bottom, words left to right, every line terminated by "\n".
func RegionText(page Page, clip Rect, cfg SegmentConfig) (string, error) {
	words, err := page.Words()
	if err != nil {
		return "", err
	}
	var images []Rect
	if cfg.NoImageText {
		images = page.ImageBoxes()
	}

	in := make([]Word, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		cx, cy := w.Box.Center()
		if !clip.Contains(cx, cy) || insideAny(images, cx, cy) {
			continue
		}
		in = append(in, w)
	}
	return renderLines(groupLines(in)), nil
}

// groupLines sorts words top-down and clusters them into visual lines by vertical overlap.
func groupLines(words []Word) [][]Word {
	sorted := make([]Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Box.Y0 != sorted[j].Box.Y0 {
			return sorted[i].Box.Y0 < sorted[j].Box.Y0
		}
		return sorted[i].Box.X0 < sorted[j].Box.X0
	})

	var lines [][]Word
	var band Rect
	for _, w := range sorted {
		_, cy := w.Box.Center()
		if n := len(lines); n > 0 && cy >= band.Y0 && cy <= band.Y1 {
			lines[n-1] = append(lines[n-1], w)
			band.Y0 = math.Min(band.Y0, w.Box.Y0)
			band.Y1 = math.Max(band.Y1, w.Box.Y1)
			continue
		}
		lines = append(lines, []Word{w})
		band = w.Box
	}
	for _, ln := range lines {
		sort.SliceStable(ln, func(i, j int) bool { return ln[i].Box.X0 < ln[j].Box.X0 })
	}
	return lines
}

func renderLines(lines [][]Word) string {
	var b strings.Builder
	for _, ln := range lines {
		for i, w := range ln {
			if i > 0 {
				b.WriteString(strings.Repeat(" ", gapSpaces(ln[i-1], w)))
			}
			b.WriteString(w.Text)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// gapSpaces renders a horizontal gap as one space, or as several when it spans two glyphs or more.
func gapSpaces(prev, next Word) int {
	n := utf8.RuneCountInString(prev.Text)
	if n == 0 || prev.Box.Width() <= 0 {
		return 1
	}
	charW := prev.Box.Width() / float64(n)
	gap := next.Box.X0 - prev.Box.X1
	if gap < 2*charW {
		return 1
	}
	spaces := int(math.Round(gap / charW))
	if spaces > maxGapSpaces {
		spaces = maxGapSpaces
	}
	return spaces
}

func insideAny(boxes []Rect, x, y float64) bool {
	for _, b := range boxes {
		if b.Contains(x, y) {
			return true
		}
	}
	return false
}
