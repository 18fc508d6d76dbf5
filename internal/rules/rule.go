package rules

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/record"
)

// Rule computes one record value from a document. Apply may read values already placed in
// root by earlier nodes.
type Rule interface {
	Kind() constants.RuleKind
	Apply(doc *Document, root *record.Record) (any, error)
	// Empty is the value recorded when Apply fails.
	Empty() any
}

// Node is one key of the output record: either a leaf computed by Rule or a nested mapping
// built from Children.
type Node struct {
	Key      string
	Rule     Rule
	Children []Node
}

// RuleError reports a rule that failed and was replaced by its empty value.
type RuleError struct {
	Path string
	Kind constants.RuleKind
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s at %s: %v", e.Kind, e.Path, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// Anchor locates a line by its text.
type Anchor struct {
	Text string
	// Mode is one of contains (default), equal, contains_fold, equal_fold, prefix.
	Mode string
}

var anchorModes = []string{"", "contains", "equal", "contains_fold", "equal_fold", "prefix"}

func (a Anchor) validate() error {
	for _, m := range anchorModes {
		if a.Mode == m {
			return nil
		}
	}
	return fmt.Errorf("unknown anchor mode %q", a.Mode)
}

func (a Anchor) matches(line string) bool {
	switch a.Mode {
	case "equal":
		return line == a.Text
	case "equal_fold":
		return strings.EqualFold(line, a.Text)
	case "contains_fold":
		return strings.Contains(strings.ToLower(line), strings.ToLower(a.Text))
	case "prefix":
		return strings.HasPrefix(line, a.Text)
	default:
		return strings.Contains(line, a.Text)
	}
}

// find returns the index of the first line matching a, or -1.
func (a Anchor) find(lines []string) int {
	for i, ln := range lines {
		if a.matches(ln) {
			return i
		}
	}
	return -1
}

// Literal always yields Value.
type Literal struct {
	Value string
}

func (r *Literal) Kind() constants.RuleKind { return constants.RuleLiteral }

func (r *Literal) Apply(*Document, *record.Record) (any, error) { return r.Value, nil }

func (r *Literal) Empty() any { return r.Value }
