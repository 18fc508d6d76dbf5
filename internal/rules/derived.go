package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/record"
)

// Derived operations.
const (
	OpSum    = "sum"    // add Column over the rows of From, or the values at Paths
	OpCount  = "count"  // number of rows in From
	OpFirst  = "first"  // Column of the first row of From, as captured
	OpNumber = "number" // the value at Paths[0] as a number, 0 when empty
)

// Derived computes a value from fields extracted earlier in the same record.
type Derived struct {
	From   string
	Column string
	Paths  []string
	Op     string
	Format string
	// IntWhenEmpty makes a sum over zero rows yield the integer 0 instead of a formatted zero.
	IntWhenEmpty bool
}

func (r *Derived) Kind() constants.RuleKind { return constants.RuleDerived }

func (r *Derived) Empty() any {
	switch r.Op {
	case OpFirst:
		return ""
	case OpCount:
		return int64(0)
	case OpSum:
		if r.IntWhenEmpty {
			return int64(0)
		}
	}
	return formatNumber(0, r.numberFormat())
}

func (r *Derived) numberFormat() string {
	if r.Format == "" || r.Format == FormatString {
		return FormatFloat
	}
	return r.Format
}

func (r *Derived) Prepare(*PatternCache) error {
	if err := validFormat(r.Format); err != nil {
		return err
	}
	switch r.Op {
	case OpSum:
		if r.From == "" && len(r.Paths) == 0 {
			return errors.New("sum needs from or paths")
		}
		if r.From != "" && r.Column == "" {
			return errors.New("sum over rows needs a column")
		}
	case OpCount:
		if r.From == "" {
			return errors.New("count needs from")
		}
	case OpFirst:
		if r.From == "" || r.Column == "" {
			return errors.New("first needs from and column")
		}
	case OpNumber:
		if len(r.Paths) != 1 {
			return errors.New("number needs exactly one path")
		}
	default:
		return fmt.Errorf("unknown op %q", r.Op)
	}
	return nil
}

func (r *Derived) Apply(_ *Document, root *record.Record) (any, error) {
	switch r.Op {
	case OpCount:
		rows, err := r.rows(root)
		if err != nil {
			return r.Empty(), err
		}
		return int64(len(rows)), nil
	case OpFirst:
		rows, err := r.rows(root)
		if err != nil || len(rows) == 0 {
			return "", err
		}
		return columnOf(rows[0], r.Column), nil
	case OpNumber:
		v, err := record.Lookup(root, r.Paths[0])
		if err != nil {
			return r.Empty(), err
		}
		f, err := toFloat(v)
		if err != nil {
			return r.Empty(), err
		}
		return formatNumber(f, r.numberFormat()), nil
	default:
		total, n, err := r.sum(root)
		if err != nil {
			return r.Empty(), err
		}
		if n == 0 && r.IntWhenEmpty {
			return int64(0), nil
		}
		return formatNumber(total, r.numberFormat()), nil
	}
}

func (r *Derived) rows(root *record.Record) ([]any, error) {
	v, err := record.Lookup(root, r.From)
	if err != nil {
		return nil, err
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s is %T, want a list", r.From, v)
	}
	return rows, nil
}

// sum returns the total and the number of terms added.
func (r *Derived) sum(root *record.Record) (float64, int, error) {
	var total float64
	n := 0
	if r.From != "" {
		rows, err := r.rows(root)
		if err != nil {
			return 0, 0, err
		}
		for i, row := range rows {
			f, err := toFloat(columnOf(row, r.Column))
			if err != nil {
				return 0, 0, fmt.Errorf("%s[%d].%s: %w", r.From, i, r.Column, err)
			}
			total += f
			n++
		}
	}
	for _, p := range r.Paths {
		v, err := record.Lookup(root, p)
		if err != nil {
			return 0, 0, err
		}
		f, err := toFloat(v)
		if err != nil {
			return 0, 0, fmt.Errorf("%s: %w", p, err)
		}
		total += f
		n++
	}
	return total, n, nil
}

func columnOf(row any, name string) any {
	m, ok := row.(*record.Record)
	if !ok {
		return nil
	}
	v, _ := m.Get(name)
	return v
}

// toFloat reads a number out of a record leaf; empty strings and nil count as 0.
func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, nil
		}
		return parseAmount(t)
	default:
		return 0, fmt.Errorf("cannot use %T as a number", v)
	}
}
