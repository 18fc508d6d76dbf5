package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// BackendPdftotext names the backend that shells out to poppler's pdftotext.
const BackendPdftotext = "pdftotext"

// NewPdftotextOpener returns an Opener that runs `pdftotext -bbox` once per document and
// serves pages from the parsed word boxes. A nil runner executes the real binary and logs
// through logger.
func NewPdftotextOpener(binary string, runner Runner, logger *slog.Logger) Opener {
	if binary == "" {
		binary = "pdftotext"
	}
	if runner == nil {
		runner = NewExecRunner(logger)
	}
	return func(ctx context.Context, path string) (Document, error) {
		// pdftotext -bbox -enc UTF-8 <path> -
		out, errb, err := runner.Run(ctx, binary, "-bbox", "-enc", "UTF-8", path, "-")
		if err != nil {
			return nil, fmt.Errorf("pdftotext %s: %w: %s", path, err, truncate(strings.TrimSpace(string(errb)), 512))
		}
		pages, err := parseBBox(bytes.NewReader(out))
		if err != nil {
			return nil, fmt.Errorf("pdftotext %s: %w", path, err)
		}
		return &bboxDocument{pages: pages}, nil
	}
}

// parseBBox reads the XHTML emitted by `pdftotext -bbox`. Attributes may come in any order
// and a word's text may span several lines; entities are decoded by the tokenizer.
func parseBBox(r io.Reader) ([]*bboxPage, error) {
	var (
		pages []*bboxPage
		page  *bboxPage
		word  *Word
		text  strings.Builder
	)
	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("read bbox output: %w", err)
			}
			if len(pages) == 0 {
				return nil, fmt.Errorf("no pages in bbox output")
			}
			return pages, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "page":
				attrs := numericAttrs(tok.Attr)
				page = &bboxPage{number: len(pages) + 1, bounds: Rect{X1: attrs["width"], Y1: attrs["height"]}}
				pages = append(pages, page)
			case "word":
				if page == nil {
					return nil, fmt.Errorf("word outside of a page")
				}
				attrs := numericAttrs(tok.Attr)
				word = &Word{Box: Rect{X0: attrs["xmin"], Y0: attrs["ymin"], X1: attrs["xmax"], Y1: attrs["ymax"]}}
				text.Reset()
			}

		case html.TextToken:
			if word != nil {
				text.Write(z.Text())
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "word":
				if word != nil {
					word.Text = strings.Join(strings.Fields(text.String()), " ")
					if word.Text != "" {
						page.words = append(page.words, *word)
					}
					word = nil
				}
			case "page":
				page, word = nil, nil
			}
		}
	}
}

// numericAttrs parses every attribute that holds a number. The tokenizer lower-cases
// attribute names, so xMin arrives as xmin.
func numericAttrs(attrs []html.Attribute) map[string]float64 {
	out := make(map[string]float64, len(attrs))
	for _, a := range attrs {
		if v, err := strconv.ParseFloat(strings.TrimSpace(a.Val), 64); err == nil {
			out[strings.ToLower(a.Key)] = v
		}
	}
	return out
}

type bboxDocument struct {
	pages []*bboxPage
}

func (d *bboxDocument) NumPages() int { return len(d.pages) }

func (d *bboxDocument) Page(n int) (Page, error) {
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range 1..%d", n, len(d.pages))
	}
	return d.pages[n-1], nil
}

func (d *bboxDocument) Close() error { return nil }

type bboxPage struct {
	number int
	bounds Rect
	words  []Word
}

func (p *bboxPage) Number() int            { return p.number }
func (p *bboxPage) Bounds() Rect           { return p.bounds }
func (p *bboxPage) Words() ([]Word, error) { return p.words, nil }
func (p *bboxPage) ImageBoxes() []Rect     { return nil }
