package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pdfLine struct {
	x, y float64
	text string
}

// writeTestPDF writes a one-page letter PDF. Every glyph of its font is 500 units wide, so
// each character advances 5pt at size 10.
func writeTestPDF(t *testing.T, lines []pdfLine) string {
	t.Helper()

	var content strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&content, "BT /F1 10 Tf %g %g Td (%s) Tj ET\n", l.x, l.y, l.text)
	}
	widths := strings.TrimSpace(strings.Repeat("500 ", 95))
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// twoColumnInvoice has seller and buyer blocks side by side and a footer line.
var twoColumnInvoice = []pdfLine{
	{50, 700, "Seller Acme"},
	{350, 700, "Buyer Globex"},
	{50, 680, "Pune"},
	{350, 680, "Bangalore"},
	{280, 30, "Page 1"},
}

func TestOpenNative_Words(t *testing.T) {
	doc, err := OpenNative(context.Background(), writeTestPDF(t, twoColumnInvoice))
	require.NoError(t, err)
	defer doc.Close()
	require.Equal(t, 1, doc.NumPages())

	page, err := doc.Page(1)
	require.NoError(t, err)
	assert.Equal(t, Rect{X1: 612, Y1: 792}, page.Bounds())

	words, err := page.Words()
	require.NoError(t, err)
	var texts []string
	for _, w := range words {
		texts = append(texts, w.Text)
	}
	assert.Equal(t, []string{"Seller", "Acme", "Buyer", "Globex", "Pune", "Bangalore", "Page", "1"}, texts)

	// y=700 baseline at size 10 lands 84..94 from the top of a 792pt page.
	assert.InDelta(t, 50, words[0].Box.X0, 1e-6)
	assert.InDelta(t, 80, words[0].Box.X1, 1e-6)
	assert.InDelta(t, 84, words[0].Box.Y0, 1e-6)
	assert.InDelta(t, 94, words[0].Box.Y1, 1e-6)

	_, err = doc.Page(2)
	require.Error(t, err)
}

func TestNativeExtract_Segmenters(t *testing.T) {
	pdfPath := writeTestPDF(t, twoColumnInvoice)
	dir := t.TempDir()
	cfg := Config{Backend: BackendNative, FooterMargin: 50}

	full, err := NewExtractor(cfg, nil, FullPage, nil).Extract(context.Background(), pdfPath, filepath.Join(dir, "page.txt"))
	require.NoError(t, err)
	assert.Equal(t, 1, full.Regions)
	assert.Equal(t, "Seller Acme        Buyer Globex\nPune        Bangalore\nPage 1\n\n\n", full.Text)

	cols, err := NewExtractor(cfg, nil, ColumnBoxes, nil).Extract(context.Background(), pdfPath, filepath.Join(dir, "columns.txt"))
	require.NoError(t, err)
	assert.Equal(t, 2, cols.Regions)
	assert.Equal(t, "Seller Acme\nPune\n\n\nBuyer Globex\nBangalore\n\n\n", cols.Text)
	assert.Empty(t, cols.Warnings)
}

func TestColumnBoxes_NativePageSplit(t *testing.T) {
	doc, err := OpenNative(context.Background(), writeTestPDF(t, twoColumnInvoice))
	require.NoError(t, err)
	defer doc.Close()
	page, err := doc.Page(1)
	require.NoError(t, err)

	regions, err := ColumnBoxes(page, SegmentConfig{FooterMargin: 50})
	require.NoError(t, err)
	require.Len(t, regions, 2)
	// The gutter runs from the end of "Acme" (105) to the start of "Buyer" (350).
	assert.InDelta(t, 227.5, regions[0].X1, 1e-6)
	assert.InDelta(t, 227.5, regions[1].X0, 1e-6)
	assert.InDelta(t, 742, regions[0].Y1, 1e-6)
	assert.InDelta(t, 612, regions[1].X1, 1e-6)
}
