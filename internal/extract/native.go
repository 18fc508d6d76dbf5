package extract

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// BackendNative names the pure-Go backend built on github.com/ledongthuc/pdf.
const BackendNative = "native"

// letter is used when a page carries no MediaBox anywhere in its inheritance chain.
var letter = [4]float64{0, 0, 612, 792}

// OpenNative opens path with the pure-Go PDF reader. Decoder panics on malformed files are
// returned as errors.
func OpenNative(_ context.Context, path string) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("open %s: %w", path, common.RecoverError(r))
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &nativeDocument{file: f, reader: r}, nil
}

type nativeDocument struct {
	file   *os.File
	reader *pdf.Reader
}

func (d *nativeDocument) NumPages() int { return d.reader.NumPage() }

func (d *nativeDocument) Page(n int) (p Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("page %d: %w", n, common.RecoverError(r))
		}
	}()
	if n < 1 || n > d.NumPages() {
		return nil, fmt.Errorf("page %d out of range 1..%d", n, d.NumPages())
	}
	pg := d.reader.Page(n)
	if pg.V.IsNull() {
		return nil, fmt.Errorf("page %d: missing page object", n)
	}
	return &nativePage{number: n, page: pg, box: mediaBox(pg.V)}, nil
}

func (d *nativeDocument) Close() error { return d.file.Close() }

type nativePage struct {
	number int
	page   pdf.Page
	box    [4]float64 // llx, lly, urx, ury in PDF space

	words  []Word
	loaded bool
}

func (p *nativePage) Number() int { return p.number }

func (p *nativePage) Bounds() Rect {
	return Rect{X0: 0, Y0: 0, X1: p.box[2] - p.box[0], Y1: p.box[3] - p.box[1]}
}

// ImageBoxes is nil: the reader exposes image XObjects but not where they are placed.
func (p *nativePage) ImageBoxes() []Rect { return nil }

func (p *nativePage) Words() (words []Word, err error) {
	if p.loaded {
		return p.words, nil
	}
	defer func() {
		if r := recover(); r != nil {
			words, err = nil, fmt.Errorf("page %d content: %w", p.number, common.RecoverError(r))
		}
	}()
	content := p.page.Content()
	p.words = glyphsToWords(content.Text, p.box)
	p.loaded = true
	return p.words, nil
}

// glyphsToWords merges consecutive glyphs on one baseline into words and flips them into
// top-left page space.
func glyphsToWords(glyphs []pdf.Text, box [4]float64) []Word {
	var (
		words []Word
		cur   strings.Builder
		rect  Rect
		prev  pdf.Text
		open  bool
	)
	flush := func() {
		if open && strings.TrimSpace(cur.String()) != "" {
			words = append(words, Word{Text: cur.String(), Box: rect})
		}
		cur.Reset()
		open = false
	}

	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}
		size := math.Max(g.FontSize, 1)
		width := g.W
		if width <= 0 {
			width = 0.5 * size * float64(len([]rune(g.S)))
		}
		gr := Rect{
			X0: g.X - box[0],
			Y0: box[3] - g.Y - 0.8*size,
			X1: g.X - box[0] + width,
			Y1: box[3] - g.Y + 0.2*size,
		}
		if open {
			prevEnd := prev.X + prev.W
			sameLine := math.Abs(g.Y-prev.Y) <= 0.3*size
			adjacent := g.X >= prevEnd-0.5*size && g.X-prevEnd <= 0.25*size
			if !sameLine || !adjacent {
				flush()
			}
		}
		if !open {
			rect = gr
			open = true
		} else {
			rect.X0 = math.Min(rect.X0, gr.X0)
			rect.Y0 = math.Min(rect.Y0, gr.Y0)
			rect.X1 = math.Max(rect.X1, gr.X1)
			rect.Y1 = math.Max(rect.Y1, gr.Y1)
		}
		cur.WriteString(g.S)
		prev = g
	}
	flush()
	return words
}

// mediaBox walks the page and its ancestors for an inherited MediaBox.
func mediaBox(v pdf.Value) [4]float64 {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		mb := v.Key("MediaBox")
		if mb.Len() == 4 {
			box := [4]float64{mb.Index(0).Float64(), mb.Index(1).Float64(), mb.Index(2).Float64(), mb.Index(3).Float64()}
			if box[2] > box[0] && box[3] > box[1] {
				return box
			}
		}
		v = v.Key("Parent")
	}
	return letter
}
