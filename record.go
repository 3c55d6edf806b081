package records

import (
	"slices"
	"time"
)

// Record is a single stored entity. ID is assigned by the store and never changes.
type Record[T any] struct {
	ID      string    `json:"id" yaml:"id"`
	Data    T         `json:"data" yaml:"data"`
	Created time.Time `json:"created,omitempty" yaml:"created,omitempty"`
	Updated time.Time `json:"updated,omitempty" yaml:"updated,omitempty"`
}

// Fields is the free-form record shape. Keys are caller-defined; the kinds shipped
// with recordctl use title, content, name and amount.
type Fields map[string]any

// Clone returns a deep copy of f. Nested maps and slices, as decoded from JSON or
// YAML, are copied too; other values are shared.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case Fields:
		return v.Clone()
	case map[string]any:
		return map[string]any(Fields(v).Clone())
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(v)
	default:
		return v
	}
}

// String returns the value stored under key when it is a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}
