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

// Row sources.
const (
	SourceLines = "lines" // match each line on its own
	SourceText  = "text"  // every non-overlapping match in the whole text
)

var templateRef = regexp.MustCompile(`\{(\d+)\}`)

// Column builds one field of a row. Exactly one of Group, Template, Value, Pattern, Sum or
// Counter is meaningful; Group is the fallback.
type Column struct {
	Name string
	// Group is the submatch of the row pattern.
	Group int
	// Template interpolates submatches of the row pattern, or of Pattern when set: "{3} {4}".
	Template string
	// Value is a constant.
	Value    string
	HasValue bool
	// Pattern is searched in the matched line; Last takes the final match instead of the first.
	Pattern string
	Last    bool
	// Sum adds the named columns of the same row.
	Sum []string
	// Counter numbers the rows from 1.
	Counter bool
	Format  string

	re *regexp.Regexp
}

// Merge appends the lines following a matched row to one of its columns.
type Merge struct {
	Into string
	Max  int
	// Stop ends the merge at a line it matches; empty means "starts with a digit".
	Stop string
	// Always merges the Max following lines without checking Stop or blanks.
	Always bool
	Sep    string

	stop *regexp.Regexp
}

// RepeatingRow turns every match of Pattern into one mapping of Columns.
type RepeatingRow struct {
	Pattern string
	Flags   string
	Source  string
	Columns []Column
	Merge   *Merge
	// Advance skips that many lines after a matched row, merged lines included.
	Advance   int
	SkipBlank bool

	re *regexp.Regexp
}

func (r *RepeatingRow) Kind() constants.RuleKind { return constants.RuleRows }

func (r *RepeatingRow) Empty() any { return []any{} }

func (r *RepeatingRow) Prepare(pc *PatternCache) error {
	switch r.Source {
	case "":
		r.Source = SourceLines
	case SourceLines, SourceText:
	default:
		return fmt.Errorf("unknown source %q", r.Source)
	}
	if len(r.Columns) == 0 {
		return errors.New("no columns")
	}
	re, err := pc.Compile(r.Pattern, r.Flags)
	if err != nil {
		return err
	}
	r.re = re

	names := make(map[string]bool, len(r.Columns))
	for i := range r.Columns {
		c := &r.Columns[i]
		if c.Name == "" {
			return fmt.Errorf("column %d has no name", i+1)
		}
		if err := validFormat(c.Format); err != nil {
			return fmt.Errorf("column %q: %w", c.Name, err)
		}
		if c.Group > re.NumSubexp() {
			return fmt.Errorf("column %q: group %d out of range, pattern has %d", c.Name, c.Group, re.NumSubexp())
		}
		if c.Pattern != "" {
			if c.re, err = pc.Compile(c.Pattern, "-"); err != nil {
				return fmt.Errorf("column %q: %w", c.Name, err)
			}
		}
		groups := re.NumSubexp()
		if c.re != nil {
			groups = c.re.NumSubexp()
		}
		for _, m := range templateRef.FindAllStringSubmatch(c.Template, -1) {
			if n, _ := strconv.Atoi(m[1]); n > groups {
				return fmt.Errorf("column %q: template group %d out of range", c.Name, n)
			}
		}
		for _, s := range c.Sum {
			if !names[s] {
				return fmt.Errorf("column %q sums %q, which is not an earlier column", c.Name, s)
			}
		}
		names[c.Name] = true
	}

	if m := r.Merge; m != nil {
		if r.Source == SourceText {
			return errors.New("merge needs the lines source")
		}
		if !names[m.Into] {
			return fmt.Errorf("merge into unknown column %q", m.Into)
		}
		if m.Max <= 0 {
			m.Max = 1
		}
		if m.Sep == "" {
			m.Sep = " "
		}
		stop := m.Stop
		if stop == "" {
			stop = `^\d`
		}
		if m.stop, err = pc.Compile(stop, "-"); err != nil {
			return fmt.Errorf("merge stop: %w", err)
		}
	}
	return nil
}

func (r *RepeatingRow) Apply(doc *Document, _ *record.Record) (any, error) {
	if r.re == nil {
		if err := r.Prepare(nil); err != nil {
			return r.Empty(), err
		}
	}
	rows := []any{}

	if r.Source == SourceText {
		for _, m := range r.re.FindAllStringSubmatch(doc.Text, -1) {
			row, err := r.build(m, m[0], len(rows)+1)
			if err != nil {
				return []any{}, err
			}
			rows = append(rows, row)
		}
		return rows, nil
	}

	lines := doc.View(r.SkipBlank)
	for i := 0; i < len(lines); i++ {
		m := r.re.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		row, err := r.build(m, lines[i], len(rows)+1)
		if err != nil {
			return []any{}, err
		}
		consumed := 0
		if r.Merge != nil {
			consumed = r.merge(row, lines, i)
		}
		rows = append(rows, row)
		i += max(consumed, r.Advance)
	}
	return rows, nil
}

func (r *RepeatingRow) build(m []string, line string, seq int) (*record.Record, error) {
	row := record.New()
	for _, c := range r.Columns {
		var (
			v   any
			err error
		)
		switch {
		case c.Counter:
			v, err = convert(strconv.Itoa(seq), c.Format)
		case c.HasValue:
			v, err = convert(c.Value, c.Format)
		case c.re != nil:
			v, err = convert(searchLine(c.re, line, c.Last, c.Template), c.Format)
		case c.Template != "":
			v, err = convert(interpolate(c.Template, m), c.Format)
		case len(c.Sum) > 0:
			v, err = sumColumns(row, c.Sum, c.Format)
		default:
			g := c.Group
			if g == 0 {
				g = 1
			}
			v, err = convert(group(m, g), c.Format)
		}
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		row.Set(c.Name, v)
	}
	return row, nil
}

// merge appends the lines after lines[i] to the merge column and reports how many it used.
func (r *RepeatingRow) merge(row *record.Record, lines []string, i int) int {
	m := r.Merge
	cur, _ := row.Get(m.Into)
	text, _ := cur.(string)
	used := 0
	for k := 1; k <= m.Max && i+k < len(lines); k++ {
		next := strings.TrimSpace(lines[i+k])
		if !m.Always && (next == "" || m.stop.MatchString(next)) {
			break
		}
		if text == "" {
			text = next
		} else {
			text += m.Sep + next
		}
		used++
	}
	row.Set(m.Into, strings.TrimSpace(text))
	return used
}

func interpolate(tmpl string, m []string) string {
	return templateRef.ReplaceAllStringFunc(tmpl, func(ref string) string {
		n, _ := strconv.Atoi(ref[1 : len(ref)-1])
		return group(m, n)
	})
}

// searchLine applies a column pattern to the matched line. Without a match the column is "".
func searchLine(re *regexp.Regexp, line string, last bool, tmpl string) string {
	all := re.FindAllStringSubmatch(line, -1)
	if len(all) == 0 {
		return ""
	}
	m := all[0]
	if last {
		m = all[len(all)-1]
	}
	if tmpl != "" {
		return interpolate(tmpl, m)
	}
	if len(m) > 1 {
		return group(m, 1)
	}
	return strings.TrimSpace(m[0])
}

func sumColumns(row *record.Record, names []string, format string) (any, error) {
	var total float64
	for _, n := range names {
		v, _ := row.Get(n)
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("sum %q: %w", n, err)
		}
		total += f
	}
	if format == "" || format == FormatString {
		format = FormatFloat
	}
	return formatNumber(total, format), nil
}
