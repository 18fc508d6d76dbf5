package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	out  string
	err  error
	args []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.args = append([]string{name}, args...)
	return []byte(s.out), []byte("stderr"), s.err
}

const bboxHTML = `<!DOCTYPE html>
<html><body>
<doc>
  <page width="595.000000" height="842.000000">
    <word xMin="56.000000" yMin="70.000000" xMax="110.000000" yMax="82.000000">Invoice</word>
    <word xMin="114.000000" yMin="70.000000" xMax="130.000000" yMax="82.000000">No</word>
  </page>
  <page width="595.000000" height="842.000000">
    <word xMin="56.000000" yMin="70.000000" xMax="110.000000" yMax="82.000000">A&amp;B</word>
  </page>
</doc>
</body></html>`

func TestPdftotextOpener(t *testing.T) {
	r := &stubRunner{out: bboxHTML}
	doc, err := NewPdftotextOpener("", r, nil)(context.Background(), "in.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"pdftotext", "-bbox", "-enc", "UTF-8", "in.pdf", "-"}, r.args)
	require.Equal(t, 2, doc.NumPages())

	p1, err := doc.Page(1)
	require.NoError(t, err)
	assert.Equal(t, Rect{X1: 595, Y1: 842}, p1.Bounds())
	txt, err := RegionText(p1, p1.Bounds(), SegmentConfig{})
	require.NoError(t, err)
	assert.Equal(t, "Invoice No\n", txt)

	p2, err := doc.Page(2)
	require.NoError(t, err)
	words, err := p2.Words()
	require.NoError(t, err)
	assert.Equal(t, "A&B", words[0].Text)

	_, err = doc.Page(3)
	require.Error(t, err)
}

func TestPdftotextOpener_Errors(t *testing.T) {
	_, err := NewPdftotextOpener("", &stubRunner{err: errors.New("exit 1")}, nil)(context.Background(), "in.pdf")
	require.Error(t, err)

	_, err = NewPdftotextOpener("", &stubRunner{out: "<html></html>"}, nil)(context.Background(), "in.pdf")
	require.Error(t, err)
}

func TestParseBBox_AttributeOrderAndWrappedText(t *testing.T) {
	doc := `<doc>
  <page height="842" width="595">
    <word yMax="82" xMax="110" yMin="70" xMin="56">Tax
      Invoice</word>
    <word xMin="114" yMin="70" xMax="130" yMax="82">  </word>
    <word xMax="160" xMin="134" yMax="82" yMin="70">&lt;B&gt;</word>
  </page>
</doc>`

	pages, err := parseBBox(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, Rect{X1: 595, Y1: 842}, pages[0].Bounds())

	words, err := pages[0].Words()
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, Word{Text: "Tax Invoice", Box: Rect{X0: 56, Y0: 70, X1: 110, Y1: 82}}, words[0])
	assert.Equal(t, "<B>", words[1].Text)
	assert.Equal(t, Rect{X0: 134, Y0: 70, X1: 160, Y1: 82}, words[1].Box)
}

func TestExecRunner_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, _, err := NewExecRunner(logger).Run(context.Background(), "pdftotext-missing-binary", "-bbox", "-enc", "UTF-8", "in.pdf", "-")
	require.Error(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "pdftotext failed", rec["msg"])
	assert.Equal(t, "pdftotext-missing-binary", rec["binary"])
	assert.Equal(t, "in.pdf", rec["input"])
	assert.EqualValues(t, -1, rec["exit_code"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...(truncated)", truncate("abcdef", 3))
	// "é" is two bytes; the cut backs off to the rune start.
	assert.Equal(t, "a...(truncated)", truncate("aéb", 2))
}

func TestGlyphsToWords(t *testing.T) {
	glyphs := []pdf.Text{
		{FontSize: 10, X: 10, Y: 700, W: 6, S: "A"},
		{FontSize: 10, X: 16, Y: 700, W: 6, S: "B"},
		{FontSize: 10, X: 22, Y: 700, W: 3, S: " "},
		{FontSize: 10, X: 40, Y: 700, W: 6, S: "C"},
		{FontSize: 10, X: 10, Y: 680, W: 6, S: "D"},
	}

	words := glyphsToWords(glyphs, [4]float64{0, 0, 612, 792})
	require.Len(t, words, 3)
	assert.Equal(t, "AB", words[0].Text)
	assert.InDelta(t, 10, words[0].Box.X0, 1e-9)
	assert.InDelta(t, 84, words[0].Box.Y0, 1e-9)
	assert.InDelta(t, 22, words[0].Box.X1, 1e-9)
	assert.InDelta(t, 94, words[0].Box.Y1, 1e-9)
	assert.Equal(t, "C", words[1].Text)
	assert.Equal(t, "D", words[2].Text)
	assert.Less(t, words[0].Box.Y0, words[2].Box.Y0)
}
