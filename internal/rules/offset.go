package rules

import (
	"errors"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/record"
)

// FixedOffset reads lines by position: lines[Start] alone, or lines[Start:End] joined with Join.
// With an Anchor the positions count from the anchor line and a missing anchor yields "".
//
// Positional reads assume a stable layout (for example "the first line is the supplier name")
// and silently return the wrong text when a vendor changes its template. Prefer a regex or
// label rule where the layout offers one.
type FixedOffset struct {
	Anchor    Anchor
	Start     int
	End       int
	Join      string
	SkipBlank bool
	// CutAt truncates each line of a range before the earliest of these keywords; lines left
	// empty are dropped.
	CutAt []string
}

func (r *FixedOffset) Kind() constants.RuleKind { return constants.RuleFixedOffset }

func (r *FixedOffset) Empty() any { return "" }

func (r *FixedOffset) Prepare(*PatternCache) error {
	if r.Start < 0 {
		return errors.New("negative start")
	}
	if r.End != 0 && r.End <= r.Start {
		return errors.New("end must be greater than start")
	}
	if r.Join == "" {
		r.Join = ", "
	}
	return r.Anchor.validate()
}

func (r *FixedOffset) Apply(doc *Document, _ *record.Record) (any, error) {
	lines := doc.View(r.SkipBlank)
	base := 0
	if r.Anchor.Text != "" {
		at := r.Anchor.find(lines)
		if at < 0 {
			return "", nil
		}
		base = at
	}
	if r.End == 0 {
		i := base + r.Start
		if i >= len(lines) {
			return "", nil
		}
		return strings.TrimSpace(lines[i]), nil
	}
	join := r.Join
	if join == "" {
		join = ", "
	}
	lo, hi := clamp(base+r.Start, len(lines)), clamp(base+r.End, len(lines))
	picked := lines[lo:hi]
	if len(r.CutAt) > 0 {
		picked = cutLines(picked, r.CutAt)
	}
	return strings.TrimSpace(strings.Join(picked, join)), nil
}

func cutLines(lines, keywords []string) []string {
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		end := len(ln)
		for _, k := range keywords {
			if i := strings.Index(ln, k); i >= 0 && i < end {
				end = i
			}
		}
		if ln = strings.TrimSpace(ln[:end]); ln != "" {
			out = append(out, ln)
		}
	}
	return out
}
