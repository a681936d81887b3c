package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
)

type arrayUnion struct{ values []any }

type arrayRemove struct{ values []any }

type deleteField struct{}

// ArrayUnion adds each value to the array field unless already present.
// Applying it twice leaves the array unchanged.
func ArrayUnion(values ...any) any {
	return arrayUnion{values: values}
}

// ArrayRemove removes every occurrence of each value from the array field.
func ArrayRemove(values ...any) any {
	return arrayRemove{values: values}
}

// DeleteField removes the field from the document.
func DeleteField() any {
	return deleteField{}
}

// Apply computes the state of a document after w. existing is the current
// field set and exists reports whether the document is present. It returns
// the resulting fields and whether the document exists afterwards.
func Apply(existing Fields, exists bool, w Write) (Fields, bool, error) {
	switch w.Kind {
	case WriteDelete:
		return nil, false, nil
	case WriteUpdate:
		if !exists {
			return nil, false, fmt.Errorf("update %s/%s: %w", w.Collection, w.ID, ErrNotFound)
		}
		out, err := resolve(existing.Clone(), w.Fields)
		if err != nil {
			return nil, false, fmt.Errorf("update %s/%s: %w", w.Collection, w.ID, err)
		}
		return out, true, nil
	case WriteSet:
		base := Fields{}
		if w.Merge && exists {
			base = existing.Clone()
		}
		out, err := resolve(base, w.Fields)
		if err != nil {
			return nil, false, fmt.Errorf("set %s/%s: %w", w.Collection, w.ID, err)
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("unknown write kind %d", w.Kind)
	}
}

func resolve(base Fields, patch Fields) (Fields, error) {
	if base == nil {
		base = Fields{}
	}
	for key, value := range patch {
		switch t := value.(type) {
		case deleteField:
			delete(base, key)
		case arrayUnion:
			current := asArray(base[key])
			for _, raw := range t.values {
				v, err := Normalize(raw)
				if err != nil {
					return nil, fmt.Errorf("field %q: %w", key, err)
				}
				if !containsValue(current, v) {
					current = append(current, v)
				}
			}
			base[key] = current
		case arrayRemove:
			current := asArray(base[key])
			kept := make([]any, 0, len(current))
			for _, item := range current {
				drop := false
				for _, raw := range t.values {
					v, err := Normalize(raw)
					if err != nil {
						return nil, fmt.Errorf("field %q: %w", key, err)
					}
					if reflect.DeepEqual(item, v) {
						drop = true
						break
					}
				}
				if !drop {
					kept = append(kept, item)
				}
			}
			base[key] = kept
		default:
			v, err := Normalize(value)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			base[key] = v
		}
	}
	return base, nil
}

// Normalize converts v to the value a JSON round trip would produce, so that
// both backends compare and return identical shapes.
func Normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64:
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func asArray(v any) []any {
	arr, ok := v.([]any)
	if !ok {
		return []any{}
	}
	out := make([]any, len(arr))
	copy(out, arr)
	return out
}

func containsValue(arr []any, v any) bool {
	for _, item := range arr {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}
