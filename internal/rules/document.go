package rules

import "strings"

// Document is the extracted text of one PDF with its two line views.
type Document struct {
	Text string
	// Lines holds every line of Text, trimmed, blanks included.
	Lines []string
	// Compact holds the non-blank lines of Text, trimmed.
	Compact []string
}

func NewDocument(text string) *Document {
	raw := SplitLines(text)
	doc := &Document{
		Text:    text,
		Lines:   make([]string, 0, len(raw)),
		Compact: make([]string, 0, len(raw)),
	}
	for _, ln := range raw {
		ln = strings.TrimSpace(ln)
		doc.Lines = append(doc.Lines, ln)
		if ln != "" {
			doc.Compact = append(doc.Compact, ln)
		}
	}
	return doc
}

// View returns Compact when skipBlank is set, otherwise Lines.
func (d *Document) View(skipBlank bool) []string {
	if skipBlank {
		return d.Compact
	}
	return d.Lines
}

// SplitLines breaks s at line boundaries (\n, \r\n, \r, \v, \f, FS, GS, RS, NEL, LS, PS).
// A trailing boundary does not produce an empty final line.
func SplitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); {
		r, size := rune(s[i]), 1
		if r >= 0x80 {
			r, size = decodeRune(s[i:])
		}
		if !isLineBreak(r) {
			i += size
			continue
		}
		lines = append(lines, s[start:i])
		i += size
		if r == '\r' && i < len(s) && s[i] == '\n' {
			i++
		}
		start = i
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}
