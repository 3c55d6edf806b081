package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Patch holds the fields to change on update, keyed by their JSON names.
type Patch map[string]any

// Apply merges p into data. The merge is shallow: a key in p replaces the whole
// value stored under that key. For struct types keys that do not name a field are
// rejected.
func Apply[T any](data T, p Patch) (T, error) {
	var zero T

	if len(p) == 0 {
		return data, nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		return zero, fmt.Errorf("%w: encode record data: %v", ErrInvalidPatch, err)
	}

	merged := map[string]json.RawMessage{}
	if !bytes.Equal(b, []byte("null")) {
		if err := json.Unmarshal(b, &merged); err != nil {
			return zero, fmt.Errorf("%w: record data is not an object: %v", ErrInvalidPatch, err)
		}
	}

	for k, v := range p {
		raw, err := json.Marshal(v)
		if err != nil {
			return zero, fmt.Errorf("%w: encode %q: %v", ErrInvalidPatch, k, err)
		}
		merged[k] = raw
	}

	b, err = json.Marshal(merged)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	// fields json skips keep their current value
	var out T
	if reflect.TypeFor[T]().Kind() == reflect.Struct {
		out = data
		clearEncoded(reflect.ValueOf(&out).Elem())
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	if isStruct[T]() {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return out, nil
}

// clearEncoded zeroes the fields of the struct v that encoding/json reads, so a
// decode into v does not reuse their maps or slices.
func clearEncoded(v reflect.Value) {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Tag.Get("json") == "-" {
			continue
		}

		fv := v.Field(i)
		if f.Anonymous && fv.Kind() == reflect.Struct {
			clearEncoded(fv)
			continue
		}
		if f.IsExported() && fv.CanSet() {
			fv.SetZero()
		}
	}
}

func isStruct[T any]() bool {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}
