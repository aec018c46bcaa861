// Package document holds configuration documents: string-keyed trees of
// scalars, sequences and nested mappings, loaded from YAML or JSON.
package document

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ExtendsKey names the base fragments a document is merged on top of.
	ExtendsKey = "$extends"
	// VarsKey holds named local values visible to templates.
	VarsKey = "$vars"
)

// Document is a configuration mapping. Values are string, int64, float64,
// bool, nil, []any or map[string]any once normalized.
type Document map[string]any

// Load parses a YAML (or JSON) mapping. An empty input yields an empty document.
func Load(data []byte) (Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if raw == nil {
		return Document{}, nil
	}

	m, ok := Normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document root must be a mapping, got %s", TypeName(raw))
	}
	return Document(m), nil
}

// Normalize converts decoded YAML/JSON values into the document value set.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, float64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return float64(t)
		}
		return int64(t)
	case float32:
		return float64(t)
	case Document:
		return Normalize(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	default:
		return fmt.Sprint(t)
	}
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneValue(map[string]any(d)).(map[string]any))
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return t
	}
}

// Get looks up a dotted path such as "trainer.optimizer.lr". Sequence
// elements are addressed by their index.
func (d Document) Get(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Keys returns the top-level keys in sorted order.
func (d Document) Keys() []string {
	return SortedKeys(d)
}

// SortedKeys returns the keys of m in sorted order.
func SortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TypeName names the document type of v for error messages.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int64:
		return "integer"
	case float64:
		return "float"
	case []any:
		return "sequence"
	case map[string]any, map[any]any, Document:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}
