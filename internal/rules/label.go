package rules

import (
	"errors"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/record"
)

// DefaultLabelStrip lists the characters removed from a label to form its output key.
const DefaultLabelStrip = ".:\\"

// LabelNextLine reads label/value pairs laid out as a label line followed by a value line.
// It yields a mapping from cleaned label to value, or a single string when Scalar is set.
type LabelNextLine struct {
	Labels []string
	// Strip lists the characters removed from labels to form keys. Curly apostrophes are
	// always normalised to '.
	Strip string
	// MatchCleaned compares cleaned lines with cleaned labels instead of raw text.
	MatchCleaned bool
	// Contains matches lines that contain a label rather than equal it.
	Contains bool
	// FirstWins keeps the first value seen for a label.
	FirstWins bool
	// StopPrefixes reject value lines that start with any of them ("Sl " table headers).
	StopPrefixes []string
	// Exclude rejects value lines equal to any of them.
	Exclude     []string
	RejectBlank bool
	// KeepOnReject leaves an earlier value in place when the value line is rejected.
	KeepOnReject bool
	// KeepUnset emits every label with "" even when it never appears.
	KeepUnset bool
	// Aliases renames cleaned keys; renamed keys move to the end of the mapping.
	Aliases   *orderedmap.OrderedMap[string, string]
	Scalar    bool
	SkipBlank bool

	labelSet map[string]struct{}
	exclude  map[string]struct{}
}

func (r *LabelNextLine) Kind() constants.RuleKind { return constants.RuleLabelNext }

func (r *LabelNextLine) Empty() any {
	if r.Scalar {
		return ""
	}
	return record.New()
}

func (r *LabelNextLine) Prepare(*PatternCache) error {
	if len(r.Labels) == 0 {
		return errors.New("no labels")
	}
	if r.Strip == "" {
		r.Strip = DefaultLabelStrip
	}
	if r.Strip == "-" {
		r.Strip = ""
	}
	r.labelSet = make(map[string]struct{}, 2*len(r.Labels))
	for _, l := range r.Labels {
		r.labelSet[l] = struct{}{}
		r.labelSet[r.clean(l)] = struct{}{}
	}
	r.exclude = make(map[string]struct{}, len(r.Exclude))
	for _, e := range r.Exclude {
		r.exclude[e] = struct{}{}
	}
	return nil
}

// clean removes the Strip characters, normalises curly apostrophes and trims.
func (r *LabelNextLine) clean(s string) string {
	s = strings.ReplaceAll(s, "’", "'")
	if r.Strip != "" {
		s = strings.Map(func(c rune) rune {
			if strings.ContainsRune(r.Strip, c) {
				return -1
			}
			return c
		}, s)
	}
	return strings.TrimSpace(s)
}

func (r *LabelNextLine) Apply(doc *Document, _ *record.Record) (any, error) {
	if r.labelSet == nil {
		if err := r.Prepare(nil); err != nil {
			return r.Empty(), err
		}
	}
	lines := doc.View(r.SkipBlank)
	if r.Scalar {
		return r.scalar(lines), nil
	}

	out := record.New()
	if r.KeepUnset {
		for _, l := range r.Labels {
			out.Set(r.clean(l), "")
		}
	}
	seen := make(map[string]bool, len(r.Labels))
	for i, ln := range lines {
		next := ""
		if i+1 < len(lines) {
			next = strings.TrimSpace(lines[i+1])
		}
		label, ok := r.match(ln, seen)
		if !ok {
			continue
		}
		key := r.clean(label)
		seen[key] = true
		if r.accept(next) {
			out.Set(key, next)
		} else if !r.KeepOnReject {
			out.Set(key, "")
		}
	}

	if r.Aliases != nil {
		for p := r.Aliases.Oldest(); p != nil; p = p.Next() {
			v, ok := out.Get(p.Key)
			if !ok {
				v = ""
			}
			out.Delete(p.Key)
			out.Set(p.Value, v)
		}
	}
	return out, nil
}

func (r *LabelNextLine) scalar(lines []string) string {
	seen := map[string]bool{}
	for i, ln := range lines {
		if _, ok := r.match(ln, seen); !ok {
			continue
		}
		if i+1 >= len(lines) {
			return ""
		}
		if next := strings.TrimSpace(lines[i+1]); r.accept(next) {
			return next
		}
		return ""
	}
	return ""
}

// match returns the label ln stands for. Labels already seen are skipped under FirstWins.
func (r *LabelNextLine) match(ln string, seen map[string]bool) (string, bool) {
	cmp := strings.TrimSpace(ln)
	if r.MatchCleaned {
		cmp = r.clean(cmp)
	}
	for _, l := range r.Labels {
		if r.FirstWins && seen[r.clean(l)] {
			continue
		}
		target := l
		if r.MatchCleaned {
			target = r.clean(l)
		}
		if r.Contains && strings.Contains(cmp, target) || !r.Contains && cmp == target {
			return l, true
		}
	}
	return "", false
}

func (r *LabelNextLine) accept(v string) bool {
	if _, ok := r.labelSet[v]; ok {
		return false
	}
	if _, ok := r.exclude[v]; ok {
		return false
	}
	if r.RejectBlank && v == "" {
		return false
	}
	for _, p := range r.StopPrefixes {
		if strings.HasPrefix(v, p) {
			return false
		}
	}
	return true
}
