// Package validate checks extracted values against the text they were read from.
//
// The check is advisory: every leaf of a record is looked up as an exact substring of the
// text and reported with its character offset, or -1.
package validate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/invoice-extractor/internal/record"
)

// Entry is one checked leaf.
type Entry struct {
	Path  string
	Value string
	// Index is the character offset of the first occurrence of Value in the text, or -1.
	Index int
}

func (e Entry) Found() bool { return e.Index >= 0 }

// Line renders the entry as it appears in a report.
func (e Entry) Line() string {
	return fmt.Sprintf("%s : '%s' found at index %d", e.Path, e.Value, e.Index)
}

// Walk visits every leaf of rec in key order and locates it in text.
//
// Mapping leaves are trimmed and skipped when blank. List elements that are not mappings are
// always reported, untrimmed.
func Walk(rec *record.Record, text string) []Entry {
	var out []Entry
	walkRecord(rec, "", text, &out)
	return out
}

func walkRecord(rec *record.Record, parent, text string, out *[]Entry) {
	for p := rec.Oldest(); p != nil; p = p.Next() {
		walkValue(p.Key, p.Value, parent, text, out)
	}
}

func walkValue(key string, v any, parent, text string, out *[]Entry) {
	full := key
	if parent != "" {
		full = parent + "." + key
	}
	switch t := v.(type) {
	case *record.Record:
		walkRecord(t, full, text, out)
	case []any:
		for i, item := range t {
			itemPath := fmt.Sprintf("%s[%d]", full, i)
			if m, ok := item.(*record.Record); ok {
				walkRecord(m, itemPath, text, out)
				continue
			}
			val := leafString(item)
			*out = append(*out, Entry{Path: itemPath, Value: val, Index: runeIndex(text, val)})
		}
	default:
		val := strings.TrimSpace(leafString(v))
		if val == "" {
			return
		}
		*out = append(*out, Entry{Path: full, Value: val, Index: runeIndex(text, val)})
	}
}

// runeIndex is strings.Index counted in characters rather than bytes.
func runeIndex(text, sub string) int {
	i := strings.Index(text, sub)
	if i < 0 {
		return -1
	}
	return utf8.RuneCountInString(text[:i])
}

// leafString renders a leaf the way the reports have always shown it: integral floats keep ".0",
// booleans are True/False and null is None.
func leafString(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return record.FormatFloat(t)
	case json.Number:
		return numberStr(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = quoteLeaf(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *record.Record:
		parts := make([]string, 0, t.Len())
		for p := t.Oldest(); p != nil; p = p.Next() {
			parts = append(parts, quoteLeaf(p.Key)+": "+quoteLeaf(p.Value))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(t)
	}
}

// numberStr keeps integers as written and prints anything with a fraction or exponent as a float.
func numberStr(n json.Number) string {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	f, err := n.Float64()
	if err != nil {
		return s
	}
	return record.FormatFloat(f)
}

func quoteLeaf(v any) string {
	s, ok := v.(string)
	if !ok {
		return leafString(v)
	}
	quote := "'"
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		quote = `"`
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	if quote == "'" {
		s = strings.ReplaceAll(s, "'", `\'`)
	}
	s = strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`).Replace(s)
	return quote + s + quote
}
