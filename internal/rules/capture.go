package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/record"
)

// Scopes of a RegexCapture.
const (
	ScopeText    = "text"    // the whole document text
	ScopeCompact = "compact" // the non-blank lines re-joined with "\n"
	ScopeLine    = "line"    // the first (or Last) line that contains LineContains and matches
	ScopeWindow  = "window"  // lines [anchor+Start, anchor+End) after the anchor line
)

// RegexCapture returns group Group of the first match of Pattern, trimmed, or Default when
// nothing matches. A blank capture stays blank unless DefaultOnBlank is set.
type RegexCapture struct {
	Pattern        string
	Flags          string
	Group          int
	Default        string
	DefaultOnBlank bool
	// Format converts the capture (or Default) to a number; a blank capture becomes 0.
	Format string

	Scope        string
	LineContains string
	Anchor       Anchor
	Start, End   int
	SkipBlank    bool
	// Last makes line and window scopes take the last matching line instead of the first.
	Last bool

	// Line picks one 1-based line out of a multi-line capture; 0 keeps it whole.
	Line int
	// Join replaces the line breaks of a multi-line capture.
	Join string
	// TrimLines trims each line of the capture and drops blank ones before joining.
	TrimLines bool
	// Template builds the value from several groups, "{1}, {2}"; it replaces Group.
	Template string

	re *regexp.Regexp
}

func (r *RegexCapture) Kind() constants.RuleKind { return constants.RuleRegex }

func (r *RegexCapture) Empty() any {
	if r.numeric() {
		return formatNumber(0, r.Format)
	}
	return r.Default
}

func (r *RegexCapture) numeric() bool {
	return r.Format != "" && r.Format != FormatString
}

// Prepare compiles the pattern through pc and checks the scope settings.
func (r *RegexCapture) Prepare(pc *PatternCache) error {
	if r.Group == 0 {
		r.Group = 1
	}
	switch r.Scope {
	case "":
		r.Scope = ScopeText
	case ScopeText, ScopeCompact, ScopeLine:
	case ScopeWindow:
		if r.Anchor.Text == "" {
			return errors.New("window scope needs an anchor")
		}
		if r.End <= r.Start {
			return fmt.Errorf("window [%d, %d) is empty", r.Start, r.End)
		}
	default:
		return fmt.Errorf("unknown scope %q", r.Scope)
	}
	if err := r.Anchor.validate(); err != nil {
		return err
	}
	if err := validFormat(r.Format); err != nil {
		return err
	}
	re, err := pc.Compile(r.Pattern, r.Flags)
	if err != nil {
		return err
	}
	if r.Template == "" && r.Group > re.NumSubexp() {
		return fmt.Errorf("group %d out of range, pattern has %d", r.Group, re.NumSubexp())
	}
	for _, m := range templateRef.FindAllStringSubmatch(r.Template, -1) {
		if n, _ := strconv.Atoi(m[1]); n > re.NumSubexp() {
			return fmt.Errorf("template group %d out of range, pattern has %d", n, re.NumSubexp())
		}
	}
	r.re = re
	return nil
}

func (r *RegexCapture) Apply(doc *Document, _ *record.Record) (any, error) {
	if r.re == nil {
		if err := r.Prepare(nil); err != nil {
			return r.Empty(), err
		}
	}
	m := r.match(doc)
	if m == nil {
		return r.fallback()
	}
	var v string
	if r.Template != "" {
		v = strings.TrimSpace(interpolate(r.Template, m))
	} else {
		v = r.shape(group(m, r.Group))
	}
	if v == "" && r.DefaultOnBlank {
		return r.fallback()
	}
	if r.numeric() {
		if v == "" {
			return r.Empty(), nil
		}
		return convert(v, r.Format)
	}
	return v, nil
}

func (r *RegexCapture) fallback() (any, error) {
	if r.numeric() && r.Default != "" {
		return convert(r.Default, r.Format)
	}
	return r.Empty(), nil
}

func (r *RegexCapture) match(doc *Document) []string {
	switch r.Scope {
	case ScopeCompact:
		return r.re.FindStringSubmatch(strings.Join(doc.Compact, "\n"))
	case ScopeLine:
		return r.scan(doc.View(r.SkipBlank))
	case ScopeWindow:
		lines := doc.View(r.SkipBlank)
		at := r.Anchor.find(lines)
		if at < 0 {
			return nil
		}
		lo, hi := clamp(at+r.Start, len(lines)), clamp(at+r.End, len(lines))
		return r.scan(lines[lo:hi])
	default:
		return r.re.FindStringSubmatch(doc.Text)
	}
}

func (r *RegexCapture) scan(lines []string) []string {
	var found []string
	for _, ln := range lines {
		if r.LineContains != "" && !strings.Contains(ln, r.LineContains) {
			continue
		}
		if m := r.re.FindStringSubmatch(ln); m != nil {
			if !r.Last {
				return m
			}
			found = m
		}
	}
	return found
}

func (r *RegexCapture) shape(v string) string {
	if r.Line == 0 && r.Join == "" && !r.TrimLines {
		return v
	}
	parts := SplitLines(v)
	if r.TrimLines {
		kept := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				kept = append(kept, p)
			}
		}
		parts = kept
	}
	if r.Line > 0 {
		if r.Line > len(parts) {
			return ""
		}
		return strings.TrimSpace(parts[r.Line-1])
	}
	sep := r.Join
	if sep == "" {
		sep = "\n"
	}
	return strings.Join(parts, sep)
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
