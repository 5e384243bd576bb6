package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/nathoo/keepercore/types"
)

// Schema builders.

func object(required []string, props map[string]*types.Schema) *types.Schema {
	return &types.Schema{Type: "object", Properties: props, Required: required}
}

func str(desc string) *types.Schema {
	return &types.Schema{Type: "string", Description: desc}
}

func enum(desc string, values ...string) *types.Schema {
	return &types.Schema{Type: "string", Description: desc, Enum: values}
}

func integer(desc string, min, max float64) *types.Schema {
	s := &types.Schema{Type: "integer", Description: desc, Minimum: &min}
	if max > min {
		s.Maximum = &max
	}
	return s
}

func boolean(desc string) *types.Schema {
	return &types.Schema{Type: "boolean", Description: desc}
}

func array(desc string, items *types.Schema) *types.Schema {
	return &types.Schema{Type: "array", Description: desc, Items: items}
}

// validate checks args against s. Required keys are reported in the order
// the schema lists them; unknown keys are ignored.
func validate(s *types.Schema, args map[string]any, path string) error {
	if s == nil {
		return nil
	}
	for _, key := range s.Required {
		if v, ok := args[key]; !ok || v == nil {
			return fmt.Errorf("%w: %s", ErrMissingArgument, join(path, key))
		}
	}
	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		v, ok := args[key]
		if !ok || v == nil {
			continue
		}
		if err := check(s.Properties[key], v, join(path, key)); err != nil {
			return err
		}
	}
	return nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func check(s *types.Schema, v any, path string) error {
	switch s.Type {
	case "string":
		sv, ok := v.(string)
		if !ok {
			return invalid(path, "must be a string")
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, sv) {
			return invalid(path, fmt.Sprintf("must be one of %v, got %q", s.Enum, sv))
		}
	case "integer":
		n, ok := toFloat(v)
		if !ok || n != math.Trunc(n) {
			return invalid(path, "must be an integer")
		}
		return bounds(s, n, path)
	case "number":
		n, ok := toFloat(v)
		if !ok {
			return invalid(path, "must be a number")
		}
		return bounds(s, n, path)
	case "boolean":
		if _, ok := v.(bool); !ok {
			return invalid(path, "must be a boolean")
		}
	case "array":
		items, ok := toSlice(v)
		if !ok {
			return invalid(path, "must be an array")
		}
		if s.Items == nil {
			return nil
		}
		for i, item := range items {
			if item == nil {
				return invalid(fmt.Sprintf("%s[%d]", path, i), "must not be null")
			}
			if err := check(s.Items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case "object":
		m, ok := v.(map[string]any)
		if !ok {
			return invalid(path, "must be an object")
		}
		return validate(s, m, path)
	}
	return nil
}

func bounds(s *types.Schema, n float64, path string) error {
	if s.Minimum != nil && n < *s.Minimum {
		return invalid(path, fmt.Sprintf("must be at least %g", *s.Minimum))
	}
	if s.Maximum != nil && n > *s.Maximum {
		return invalid(path, fmt.Sprintf("must be at most %g", *s.Maximum))
	}
	return nil
}

func invalid(path, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidArgument, path, msg)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	}
	return nil, false
}

// args reads validated arguments. Callers only reach it after validate, so
// the conversions cannot fail.
type args map[string]any

func (a args) text(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a args) textOr(key, def string) string {
	if s := a.text(key); s != "" {
		return s
	}
	return def
}

func (a args) num(key string) int {
	n, _ := toFloat(a[key])
	return int(n)
}

func (a args) numOr(key string, def int) int {
	if _, ok := a[key]; !ok || a[key] == nil {
		return def
	}
	return a.num(key)
}

func (a args) flag(key string) bool {
	b, _ := a[key].(bool)
	return b
}

func (a args) list(key string) []string {
	items, _ := toSlice(a[key])
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (a args) objects(key string) []args {
	items, _ := toSlice(a[key])
	out := make([]args, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, args(m))
		}
	}
	return out
}
