package profiles

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/record"
	"github.com/joseph-ayodele/invoice-extractor/internal/rules"
)

// Compile turns the YAML record into a prepared rule tree and stores it on p.
func Compile(p *Profile, pc *rules.PatternCache) ([]rules.Node, error) {
	nodes, err := compileEntries(p, p.Record)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("profile %s: empty record", p.Name)
	}
	if err := rules.Prepare(nodes, pc); err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	p.Nodes = nodes
	return nodes, nil
}

func compileEntries(p *Profile, entries []Entry) ([]rules.Node, error) {
	nodes := make([]rules.Node, 0, len(entries))
	for _, e := range entries {
		n := rules.Node{Key: e.Key}
		set := 0
		if e.Rule != nil {
			r, err := buildRule(p, e.Rule)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Key, err)
			}
			n.Rule = r
			set++
		}
		if e.Regex != "" {
			n.Rule = &rules.RegexCapture{Pattern: e.Regex, Flags: p.RegexFlags}
			set++
		}
		if e.Value != nil {
			n.Rule = &rules.Literal{Value: *e.Value}
			set++
		}
		if len(e.Fields) > 0 {
			children, err := compileEntries(p, e.Fields)
			if err != nil {
				return nil, fmt.Errorf("%s.%w", e.Key, err)
			}
			n.Children = children
			set++
		}
		if set != 1 {
			return nil, fmt.Errorf("%s: want exactly one of rule, regex, value or fields", e.Key)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func buildRule(p *Profile, s *RuleSpec) (rules.Rule, error) {
	if !constants.IsRuleKind(s.Kind) {
		return nil, fmt.Errorf("unknown rule kind %q", s.Kind)
	}
	skipBlank := p.Lines.SkipBlank
	if s.SkipBlank != nil {
		skipBlank = *s.SkipBlank
	}
	flags := s.Flags
	if flags == "" {
		flags = p.RegexFlags
	}
	anchor := rules.Anchor{Text: s.Anchor, Mode: s.AnchorMode}

	switch constants.RuleKind(s.Kind) {
	case constants.RuleRegex:
		return &rules.RegexCapture{
			Pattern:        s.Pattern,
			Flags:          flags,
			Group:          s.Group,
			Default:        s.Default,
			DefaultOnBlank: s.DefaultOnBlank,
			Last:           s.Last,
			Format:         s.Format,
			Scope:          s.Scope,
			LineContains:   s.LineContains,
			Anchor:         anchor,
			Start:          s.Start,
			End:            s.End,
			SkipBlank:      skipBlank,
			Line:           s.Line,
			Join:           s.Join,
			TrimLines:      s.TrimLines,
			Template:       s.Template,
		}, nil
	case constants.RuleLabelNext:
		var aliases *orderedmap.OrderedMap[string, string]
		if len(s.Aliases) > 0 {
			aliases = orderedmap.New[string, string]()
			for _, a := range s.Aliases {
				aliases.Set(a.From, a.To)
			}
		}
		return &rules.LabelNextLine{
			Labels:       s.Labels,
			Strip:        s.Strip,
			MatchCleaned: s.MatchCleaned,
			Contains:     s.Contains,
			FirstWins:    s.FirstWins,
			StopPrefixes: s.StopPrefixes,
			Exclude:      s.Exclude,
			RejectBlank:  s.RejectBlank,
			KeepOnReject: s.KeepOnReject,
			KeepUnset:    s.KeepUnset,
			Aliases:      aliases,
			Scalar:       s.Scalar,
			SkipBlank:    skipBlank,
		}, nil
	case constants.RuleFixedOffset:
		return &rules.FixedOffset{
			Anchor:    anchor,
			Start:     s.Start,
			End:       s.End,
			Join:      s.Join,
			SkipBlank: skipBlank,
			CutAt:     s.CutAt,
		}, nil
	case constants.RuleRows:
		r := &rules.RepeatingRow{
			Pattern:   s.Pattern,
			Flags:     flags,
			Source:    s.Source,
			Advance:   s.Advance,
			SkipBlank: skipBlank,
		}
		for _, c := range s.Columns {
			col := rules.Column{
				Name:     c.Name,
				Group:    c.Group,
				Template: c.Template,
				Pattern:  c.Pattern,
				Last:     c.Last,
				Sum:      c.Sum,
				Counter:  c.Counter,
				Format:   c.Format,
			}
			if c.Value != nil {
				col.Value, col.HasValue = *c.Value, true
			}
			r.Columns = append(r.Columns, col)
		}
		if m := s.Merge; m != nil {
			r.Merge = &rules.Merge{Into: m.Into, Max: m.Max, Stop: m.Stop, Always: m.Always, Sep: m.Sep}
		}
		return r, nil
	case constants.RuleDerived:
		return &rules.Derived{
			From:   s.From,
			Column: s.Column,
			Paths:  s.Paths,
			Op:     s.Op,
			Format: s.Format,

			IntWhenEmpty: s.IntWhenEmpty,
		}, nil
	case constants.RuleFirstOf:
		r := &rules.FirstOf{}
		for i := range s.Rules {
			sub, err := buildRule(p, &s.Rules[i])
			if err != nil {
				return nil, fmt.Errorf("rules[%d]: %w", i, err)
			}
			r.Rules = append(r.Rules, sub)
		}
		return r, nil
	default:
		return &rules.Literal{Value: s.Value}, nil
	}
}

// Shape returns the record p produces when nothing matches: every key with its empty value.
func (p *Profile) Shape() *record.Record {
	return shapeOf(p.Nodes)
}

func shapeOf(nodes []rules.Node) *record.Record {
	rec := record.New()
	for _, n := range nodes {
		if len(n.Children) > 0 {
			rec.Set(n.Key, shapeOf(n.Children))
			continue
		}
		rec.Set(n.Key, n.Rule.Empty())
	}
	return rec
}
