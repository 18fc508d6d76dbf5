// Package record holds the ordered key/value tree produced by field extraction and its JSON form.
//
// Leaf values are string, bool, nil, int64, float64 or json.Number; containers are []any and
// *Record. Keys keep insertion order through encoding and decoding.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is an insertion-ordered mapping from field name to value.
type Record = orderedmap.OrderedMap[string, any]

// New returns an empty Record.
func New() *Record {
	return orderedmap.New[string, any]()
}

// Encode writes rec as JSON with a 4-space indent, keys in insertion order, followed by a newline.
// Strings are written as-is: "&", "<" and ">" are not turned into \u escapes.
func Encode(w io.Writer, rec *Record) error {
	var buf bytes.Buffer
	if err := writeValue(&buf, rec, 0); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	buf.WriteByte('\n')
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

const indent = "    "

// writeValue walks containers itself; the ordered map's own MarshalJSON escapes HTML before an
// outer encoder can be told not to.
func writeValue(buf *bytes.Buffer, v any, depth int) error {
	switch t := v.(type) {
	case *Record:
		if t == nil {
			buf.WriteString("null")
			return nil
		}
		if t.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteByte('{')
		i := 0
		for p := t.Oldest(); p != nil; p = p.Next() {
			if i > 0 {
				buf.WriteByte(',')
			}
			i++
			newline(buf, depth+1)
			if err := writeLeaf(buf, p.Key, depth+1); err != nil {
				return err
			}
			buf.WriteString(": ")
			if err := writeValue(buf, p.Value, depth+1); err != nil {
				return fmt.Errorf("%s: %w", p.Key, err)
			}
		}
		newline(buf, depth)
		buf.WriteByte('}')
	case []any:
		if len(t) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, depth+1)
			if err := writeValue(buf, e, depth+1); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		newline(buf, depth)
		buf.WriteByte(']')
	default:
		return writeLeaf(buf, v, depth)
	}
	return nil
}

func writeLeaf(buf *bytes.Buffer, v any, depth int) error {
	var leaf bytes.Buffer
	enc := json.NewEncoder(&leaf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(strings.Repeat(indent, depth), indent)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(leaf.Bytes(), []byte{'\n'}))
	return nil
}

func newline(buf *bytes.Buffer, depth int) {
	buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		buf.WriteString(indent)
	}
}

// Marshal is Encode into a byte slice.
func Marshal(rec *Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads one JSON object from r, keeping key order at every level. Numbers decode as
// json.Number.
func Decode(r io.Reader) (*Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("decode record: top level is %v, want object", tok)
	}
	rec, err := decodeObject(dec)
	if err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func decodeObject(dec *json.Decoder) (*Record, error) {
	rec := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key %v is not a string", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		rec.Set(key, val)
	}
	if _, err := dec.Token(); err != nil { // closing }
		return nil, err
	}
	return rec, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		return decodeObject(dec)
	case '[':
		list := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		if _, err := dec.Token(); err != nil { // closing ]
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", d)
	}
}

// ErrNoPath is returned by Lookup when a path segment does not resolve.
var ErrNoPath = errors.New("path not found")

// Lookup resolves a dotted path with optional list indexes ("items[0].amount") against rec.
func Lookup(rec *Record, path string) (any, error) {
	var cur any = rec
	for _, seg := range strings.Split(path, ".") {
		name, idx, err := splitSegment(seg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if name != "" {
			m, ok := cur.(*Record)
			if !ok {
				return nil, fmt.Errorf("%s: %q is not a mapping: %w", path, name, ErrNoPath)
			}
			if cur, ok = m.Get(name); !ok {
				return nil, fmt.Errorf("%s: %q: %w", path, name, ErrNoPath)
			}
		}
		for _, i := range idx {
			list, ok := cur.([]any)
			if !ok || i < 0 || i >= len(list) {
				return nil, fmt.Errorf("%s: index %d: %w", path, i, ErrNoPath)
			}
			cur = list[i]
		}
	}
	return cur, nil
}

// splitSegment parses "name[1][2]" into its name and indexes.
func splitSegment(seg string) (string, []int, error) {
	open := strings.IndexByte(seg, '[')
	if open < 0 {
		return seg, nil, nil
	}
	name, rest := seg[:open], seg[open:]
	var idx []int
	for rest != "" {
		end := strings.IndexByte(rest, ']')
		if rest[0] != '[' || end < 0 {
			return "", nil, fmt.Errorf("malformed segment %q", seg)
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, fmt.Errorf("malformed index in %q: %w", seg, err)
		}
		idx = append(idx, n)
		rest = rest[end+1:]
	}
	return name, idx, nil
}

// FormatFloat renders f in shortest form; integral values keep a trailing ".0".
func FormatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		switch {
		case math.IsNaN(f):
			return "nan"
		case f > 0:
			return "inf"
		default:
			return "-inf"
		}
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.Contains(s, "e") {
		// exponent form only outside [1e-4, 1e16)
		if a := math.Abs(f); a < 1e16 && a >= 1e-4 {
			s = strconv.FormatFloat(f, 'f', -1, 64)
		} else {
			return s
		}
	}
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Number returns f as a JSON number formatted by FormatFloat.
func Number(f float64) json.Number {
	return json.Number(FormatFloat(f))
}

// Plain converts rec into map[string]any / []any trees with json.Number leaves, the shape
// expected by schema validators.
func Plain(v any) any {
	switch t := v.(type) {
	case *Record:
		out := make(map[string]any, t.Len())
		for p := t.Oldest(); p != nil; p = p.Next() {
			out[p.Key] = Plain(p.Value)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Plain(e)
		}
		return out
	case int:
		return json.Number(strconv.Itoa(t))
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case float64:
		return json.Number(strconv.FormatFloat(t, 'g', -1, 64))
	default:
		return v
	}
}
