// Package profiles loads declarative vendor profiles and dispatches documents to them.
package profiles

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/invoice-extractor/internal/rules"
)

// Profile is one vendor layout: how to recognise it and how to read it.
type Profile struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Match       MatchSpec  `yaml:"match"`
	Lines       LinesSpec  `yaml:"lines"`
	RegexFlags  string     `yaml:"regex_flags"`
	Record      []Entry    `yaml:"record"`
	Schema      SchemaSpec `yaml:"schema"`

	// Source is the file the profile was read from, or "builtin".
	Source string `yaml:"-"`
	// Nodes is the compiled rule tree, set by Compile.
	Nodes []rules.Node `yaml:"-"`
}

type MatchSpec struct {
	// Prefixes select the profile by case-insensitive filename prefix.
	Prefixes []string `yaml:"prefixes"`
	// Contains selects the profile when every string appears in the text.
	Contains []string `yaml:"contains"`
}

type LinesSpec struct {
	SkipBlank bool `yaml:"skip_blank"`
}

type SchemaSpec struct {
	// Required lists dotted paths whose leaves must be non-empty.
	Required []string `yaml:"required"`
}

// Entry is one key of the record: a rule, a literal, a regex shorthand or nested fields.
type Entry struct {
	Key    string    `yaml:"key"`
	Rule   *RuleSpec `yaml:"rule"`
	Regex  string    `yaml:"regex"`
	Value  *string   `yaml:"value"`
	Fields []Entry   `yaml:"fields"`
}

// RuleSpec is the YAML form of every rule kind; Kind selects which fields apply.
type RuleSpec struct {
	Kind string `yaml:"kind"`

	Pattern string `yaml:"pattern"`
	Flags   string `yaml:"flags"`
	Group   int    `yaml:"group"`
	Default string `yaml:"default"`
	// DefaultOnBlank also applies Default when the capture is blank.
	DefaultOnBlank bool     `yaml:"default_on_blank"`
	Last           bool     `yaml:"last"`
	Scope          string   `yaml:"scope"`
	LineContains   string   `yaml:"line_contains"`
	Anchor         string   `yaml:"anchor"`
	AnchorMode     string   `yaml:"anchor_mode"`
	Start          int      `yaml:"start"`
	End            int      `yaml:"end"`
	Line           int      `yaml:"line"`
	Join           string   `yaml:"join"`
	TrimLines      bool     `yaml:"trim_lines"`
	Template       string   `yaml:"template"`
	SkipBlank      *bool    `yaml:"skip_blank"`
	CutAt          []string `yaml:"cut_at"`

	Labels       []string    `yaml:"labels"`
	Strip        string      `yaml:"strip"`
	MatchCleaned bool        `yaml:"match_cleaned"`
	Contains     bool        `yaml:"contains"`
	FirstWins    bool        `yaml:"first_wins"`
	StopPrefixes []string    `yaml:"stop_prefixes"`
	Exclude      []string    `yaml:"exclude"`
	RejectBlank  bool        `yaml:"reject_blank"`
	KeepOnReject bool        `yaml:"keep_on_reject"`
	KeepUnset    bool        `yaml:"keep_unset"`
	Aliases      []AliasSpec `yaml:"aliases"`
	Scalar       bool        `yaml:"scalar"`

	Source  string       `yaml:"source"`
	Columns []ColumnSpec `yaml:"columns"`
	Merge   *MergeSpec   `yaml:"merge"`
	Advance int          `yaml:"advance"`

	From   string   `yaml:"from"`
	Column string   `yaml:"column"`
	Paths  []string `yaml:"paths"`
	Op     string   `yaml:"op"`
	Format string   `yaml:"format"`
	// IntWhenEmpty makes a sum with nothing to add yield 0 rather than 0.0.
	IntWhenEmpty bool `yaml:"int_when_empty"`

	Value string `yaml:"value"`

	// Rules are the alternatives of a first_of rule, tried in order.
	Rules []RuleSpec `yaml:"rules"`
}

type AliasSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type ColumnSpec struct {
	Name     string   `yaml:"name"`
	Group    int      `yaml:"group"`
	Template string   `yaml:"template"`
	Value    *string  `yaml:"value"`
	Pattern  string   `yaml:"pattern"`
	Last     bool     `yaml:"last"`
	Sum      []string `yaml:"sum"`
	Counter  bool     `yaml:"counter"`
	Format   string   `yaml:"format"`
}

type MergeSpec struct {
	Into   string `yaml:"into"`
	Max    int    `yaml:"max"`
	Stop   string `yaml:"stop"`
	Always bool   `yaml:"always"`
	Sep    string `yaml:"sep"`
}

// Parse decodes one profile document. Unknown fields are rejected.
func Parse(r io.Reader) (*Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var p Profile
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty profile")
		}
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, errors.New("profile has no name")
	}
	return &p, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(b []byte) (*Profile, error) {
	return Parse(bytes.NewReader(b))
}
