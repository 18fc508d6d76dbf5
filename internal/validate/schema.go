package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extractor/internal/record"
)

// BuildSchema returns a JSON schema for records shaped like shape, with each dotted path in
// required marked as present and non-empty. shape may be nil.
//
// Mappings in shape become objects that require their keys, lists become arrays and every
// other leaf only has to be a scalar. Paths address mapping keys; a required list or mapping
// must have at least one element.
func BuildSchema(required []string, shape *record.Record) (map[string]any, error) {
	root := map[string]any{"type": "object"}
	if shape != nil {
		root = shapeSchema(shape)
	}
	for _, path := range required {
		if err := requirePath(root, path); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func shapeSchema(v any) map[string]any {
	switch t := v.(type) {
	case *record.Record:
		props := make(map[string]any, t.Len())
		keys := make([]string, 0, t.Len())
		for p := t.Oldest(); p != nil; p = p.Next() {
			props[p.Key] = shapeSchema(p.Value)
			keys = append(keys, p.Key)
		}
		s := map[string]any{"type": "object", "properties": props}
		if len(keys) > 0 {
			s["required"] = keys
		}
		return s
	case []any:
		return map[string]any{"type": "array"}
	default:
		return map[string]any{"not": map[string]any{"type": []any{"object", "array"}}}
	}
}

func requirePath(root map[string]any, path string) error {
	segs := strings.Split(path, ".")
	node := root
	for i, seg := range segs {
		if seg == "" || strings.ContainsAny(seg, "[]") {
			return fmt.Errorf("required path %q: only dotted mapping keys are supported", path)
		}
		if t, ok := node["type"]; ok && t != "object" {
			return fmt.Errorf("required path %q: %s is not a mapping", path, strings.Join(segs[:i], "."))
		}
		node["type"] = "object"
		props, _ := node["properties"].(map[string]any)
		if props == nil {
			props = map[string]any{}
			node["properties"] = props
		}
		req, _ := node["required"].([]string)
		if !contains(req, seg) {
			node["required"] = append(req, seg)
		}
		child, _ := props[seg].(map[string]any)
		if child == nil {
			child = map[string]any{}
			props[seg] = child
		}
		node = child
	}
	node["minLength"] = 1
	node["minItems"] = 1
	node["minProperties"] = 1
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CompileSchema compiles a schema built by BuildSchema.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("record.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// CheckShape validates rec against schema. The error lists every failing location, sorted.
func CheckShape(schema *jsonschema.Schema, rec *record.Record) error {
	err := schema.Validate(record.Plain(rec))
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	var msgs []string
	for _, e := range verr.BasicOutput().Errors {
		if e.Error == "" || strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		loc := e.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		msgs = append(msgs, loc+": "+e.Error)
	}
	sort.Strings(msgs)
	if len(msgs) == 0 {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return fmt.Errorf("record does not match schema: %s", strings.Join(msgs, "; "))
}
