package rules

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/record"
)

// Preparer is implemented by rules that validate and compile their settings up front.
type Preparer interface {
	Prepare(pc *PatternCache) error
}

// Prepare walks nodes and prepares every rule, reporting the first bad one by path.
func Prepare(nodes []Node, pc *PatternCache) error {
	return prepare(nodes, "", pc)
}

func prepare(nodes []Node, parent string, pc *PatternCache) error {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		path := join(parent, n.Key)
		if n.Key == "" {
			return fmt.Errorf("%s: empty key", parent)
		}
		if seen[n.Key] {
			return fmt.Errorf("%s: duplicate key", path)
		}
		seen[n.Key] = true
		if (n.Rule == nil) == (len(n.Children) == 0) {
			return fmt.Errorf("%s: want exactly one of rule or fields", path)
		}
		if n.Rule != nil {
			if p, ok := n.Rule.(Preparer); ok {
				if err := p.Prepare(pc); err != nil {
					return fmt.Errorf("%s (%s): %w", path, n.Rule.Kind(), err)
				}
			}
			continue
		}
		if err := prepare(n.Children, path, pc); err != nil {
			return err
		}
	}
	return nil
}

// Engine evaluates node trees against documents. It holds no per-document state.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Extract builds the record for doc. A failing or panicking rule contributes its empty value
// and a RuleError; the remaining rules still run.
func (e *Engine) Extract(doc *Document, nodes []Node) (*record.Record, []RuleError) {
	root := record.New()
	var errs []RuleError
	e.fill(doc, root, root, nodes, "", &errs)
	return root, errs
}

func (e *Engine) fill(doc *Document, root, into *record.Record, nodes []Node, parent string, errs *[]RuleError) {
	for _, n := range nodes {
		path := join(parent, n.Key)
		if n.Rule == nil {
			child := record.New()
			into.Set(n.Key, child)
			e.fill(doc, root, child, n.Children, path, errs)
			continue
		}
		v, err := apply(n.Rule, doc, root)
		if err != nil {
			e.logger.Warn("rule failed, using empty value", "path", path, "kind", n.Rule.Kind(), "error", err)
			*errs = append(*errs, RuleError{Path: path, Kind: n.Rule.Kind(), Err: err})
			v = n.Rule.Empty()
		}
		into.Set(n.Key, v)
	}
}

func apply(r Rule, doc *Document, root *record.Record) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v, err = nil, common.RecoverError(rec)
		}
	}()
	return r.Apply(doc, root)
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
