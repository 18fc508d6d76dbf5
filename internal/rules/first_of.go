package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/record"
)

// FirstOf tries Rules in order and yields the first result that is not blank. When every
// alternative comes back blank the first rule's empty value is used. An alternative that fails
// is skipped; the errors surface only when no alternative succeeds.
type FirstOf struct {
	Rules []Rule
}

func (r *FirstOf) Kind() constants.RuleKind { return constants.RuleFirstOf }

func (r *FirstOf) Empty() any {
	if len(r.Rules) == 0 {
		return ""
	}
	return r.Rules[0].Empty()
}

func (r *FirstOf) Prepare(pc *PatternCache) error {
	if len(r.Rules) == 0 {
		return errors.New("first_of needs at least one rule")
	}
	for i, sub := range r.Rules {
		if _, ok := sub.(*FirstOf); ok {
			return fmt.Errorf("rules[%d]: first_of cannot nest", i)
		}
		p, ok := sub.(Preparer)
		if !ok {
			continue
		}
		if err := p.Prepare(pc); err != nil {
			return fmt.Errorf("rules[%d] (%s): %w", i, sub.Kind(), err)
		}
	}
	return nil
}

func (r *FirstOf) Apply(doc *Document, root *record.Record) (any, error) {
	var errs []error
	for i, sub := range r.Rules {
		v, err := apply(sub, doc, root)
		if err != nil {
			errs = append(errs, fmt.Errorf("rules[%d]: %w", i, err))
			continue
		}
		if !blank(v) {
			return v, nil
		}
	}
	if len(errs) == len(r.Rules) {
		return r.Empty(), errors.Join(errs...)
	}
	return r.Empty(), nil
}

func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case *record.Record:
		return t.Len() == 0
	default:
		return false
	}
}
