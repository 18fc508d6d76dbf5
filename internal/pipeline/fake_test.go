package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/profiles"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

// fakeHeader marks a file the fake backend can open; its remaining lines are laid out one
// glyph per column so that extraction renders them back verbatim.
const fakeHeader = "%FAKE-PDF\n"

const (
	glyphW     = 6.0
	linePitch  = 14.0
	lineHeight = 10.0
)

var fakeBounds = extract.Rect{X1: 4000, Y1: 4000}

type textPage struct{ words []extract.Word }

func (p *textPage) Number() int                    { return 1 }
func (p *textPage) Bounds() extract.Rect           { return fakeBounds }
func (p *textPage) Words() ([]extract.Word, error) { return p.words, nil }
func (p *textPage) ImageBoxes() []extract.Rect     { return nil }

type textDocument struct{ page *textPage }

func (d *textDocument) NumPages() int { return 1 }
func (d *textDocument) Page(n int) (extract.Page, error) {
	if n != 1 {
		return nil, errors.New("out of range")
	}
	return d.page, nil
}
func (d *textDocument) Close() error { return nil }

func openFake(_ context.Context, path string) (extract.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	body, ok := strings.CutPrefix(string(data), fakeHeader)
	if !ok {
		return nil, errors.New("malformed PDF: missing header")
	}
	return &textDocument{page: &textPage{words: layout(body)}}, nil
}

// layout places every whitespace-separated word of text at its character column.
func layout(text string) []extract.Word {
	var words []extract.Word
	for i, line := range strings.Split(text, "\n") {
		y0 := float64(i) * linePitch
		col, start := 0, -1
		var cur strings.Builder
		flush := func() {
			if start < 0 {
				return
			}
			n := utf8.RuneCountInString(cur.String())
			words = append(words, extract.Word{
				Text: cur.String(),
				Box:  extract.Rect{X0: float64(start) * glyphW, Y0: y0, X1: float64(start+n) * glyphW, Y1: y0 + lineHeight},
			})
			cur.Reset()
			start = -1
		}
		for _, r := range line {
			if unicode.IsSpace(r) {
				flush()
			} else {
				if start < 0 {
					start = col
				}
				cur.WriteRune(r)
			}
			col++
		}
		flush()
	}
	return words
}

func writeFakePDF(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(fakeHeader+text), 0o644))
	return path
}

func newTestProcessor(t *testing.T, outDir, vendor string, ledger *repository.Ledger) *Processor {
	t.Helper()
	reg, err := profiles.Load("", nil)
	require.NoError(t, err)
	x := extract.NewExtractor(extract.Config{}, openFake, extract.FullPage, nil)
	return NewProcessor(nil, NewTextStage(x, nil), NewParseStage(reg, vendor, nil), ledger, outDir)
}

const nuText = `TAX INVOICE Nu Express Couriers
12 Market Road Chennai
PAN : AAAPN1234F
GSTIN No : 33AAAPN1234F1Z5
STATE - TAMILNADU
MONTH - MARCH 2024
NAME : Acme Traders
45 Industrial Estate Guindy
GSTIN NO: 33AACCA9999K1Z2
INVOICE NUMBER : 1042
DATE : 31/03/2024
01.03.2024 123456 MUMBAI DOX 500gms 1 150.00
02.03.2024 123457 DELHI DOX 2kg 1 320.00
SAC CODE : 996812
TAXABLE AMOUNT 470.00
CGST AMOUNT 9% 42.30
SGST AMOUNT 9% 42.30
TOTAL AMOUNT 554.60
Total Consignment : 2
`
