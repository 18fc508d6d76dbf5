package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/record"
)

// NotFoundHeader separates the full listing from the entries that were not found.
const NotFoundHeader = "--- NOT FOUND VALUES ---"

// Report is the outcome of one validation, entries in walk order.
type Report struct {
	Entries []Entry
}

func (r Report) Lines() []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Line()
	}
	return out
}

func (r Report) NotFound() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if !e.Found() {
			out = append(out, e)
		}
	}
	return out
}

// Counts returns the number of checked leaves and how many were missing.
func (r Report) Counts() (total, missing int) {
	return len(r.Entries), len(r.NotFound())
}

// String is the report file body: every line, then the missing ones again under NotFoundHeader.
func (r Report) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(r.Lines(), "\n"))
	if missing := r.NotFound(); len(missing) > 0 {
		b.WriteString("\n\n" + NotFoundHeader + "\n")
		lines := make([]string, len(missing))
		for i, e := range missing {
			lines[i] = e.Line()
		}
		b.WriteString(strings.Join(lines, "\n"))
	}
	return b.String()
}

// WriteReport writes r to dir/<base>.txt, creating dir, and returns the path.
func WriteReport(dir, base string, r Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, base+constants.ExtText)
	if err := os.WriteFile(path, []byte(r.String()), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Check walks rec against text and collects the result.
func Check(rec *record.Record, text string) Report {
	return Report{Entries: Walk(rec, text)}
}
