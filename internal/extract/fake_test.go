package extract

import (
	"context"
	"errors"
)

type fakePage struct {
	number int
	bounds Rect
	words  []Word
	images []Rect
	err    error
	panics bool
}

func (p *fakePage) Number() int  { return p.number }
func (p *fakePage) Bounds() Rect { return p.bounds }
func (p *fakePage) Words() ([]Word, error) {
	if p.panics {
		panic("broken content stream")
	}
	return p.words, p.err
}
func (p *fakePage) ImageBoxes() []Rect { return p.images }

type fakeDocument struct {
	pages  []*fakePage
	closed bool
}

func (d *fakeDocument) NumPages() int { return len(d.pages) }
func (d *fakeDocument) Page(n int) (Page, error) {
	if n < 1 || n > len(d.pages) {
		return nil, errors.New("out of range")
	}
	return d.pages[n-1], nil
}
func (d *fakeDocument) Close() error { d.closed = true; return nil }

func openerFor(doc *fakeDocument) Opener {
	return func(context.Context, string) (Document, error) { return doc, nil }
}

func word(text string, x0, y0, x1, y1 float64) Word {
	return Word{Text: text, Box: Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}}
}

var a4 = Rect{X1: 600, Y1: 800}
