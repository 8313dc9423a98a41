// Package config holds the key/value plumbing shared by the config store
// adapters. Keys are dot-separated paths such as "vector_store.backend".
package config

import (
	"maps"
	"slices"
	"strings"
)

// Values is a flat key/value view of a configuration document.
// It does no locking; stores guard it themselves.
type Values map[string]any

// String returns the value as a string, or "".
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// Int returns the value as an int. Floats are truncated; TOML and YAML
// decoders disagree on numeric types.
func (v Values) Int(key string) int {
	switch n := v[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// Float returns the value as a float64. Integers are converted.
func (v Values) Float(key string) float64 {
	switch n := v[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// Bool returns the value as a bool, or false.
func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

// StringSlice returns the string elements of a list value.
func (v Values) StringSlice(key string) []string {
	switch list := v[key].(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// StringMap returns the string values under prefix keyed by the rest of the key.
func (v Values) StringMap(prefix string) map[string]string {
	out := make(map[string]string)
	for key, val := range v {
		rest, ok := strings.CutPrefix(key, prefix+".")
		if !ok {
			continue
		}
		if s, ok := val.(string); ok {
			out[rest] = s
		}
	}
	return out
}

// Flatten turns nested tables into dotted keys: {"a": {"b": 1}} becomes {"a.b": 1}.
func Flatten(doc map[string]any) Values {
	out := make(Values)
	flattenInto(out, doc, "")
	return out
}

func flattenInto(out Values, doc map[string]any, prefix string) {
	for key, val := range doc {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenInto(out, nested, key)
			continue
		}
		out[key] = val
	}
}

// Nest is the inverse of Flatten. Shallow keys are placed first, so a key
// that is both a leaf and a table prefix ends up as the table.
func (v Values) Nest() map[string]any {
	keys := slices.Collect(maps.Keys(v))
	slices.SortFunc(keys, func(a, b string) int {
		if d := strings.Count(a, ".") - strings.Count(b, "."); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		node := root
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = v[key]
	}
	return root
}
