package docstore

import "reflect"

// Op is a query comparison operator.
type Op string

const (
	OpEqual         Op = "=="
	OpIn            Op = "in"
	OpArrayContains Op = "array-contains"
)

// Predicate filters documents on one top-level field. Predicates passed to
// Query are ANDed.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Where builds a predicate. For OpIn, value must be a slice.
func Where(field string, op Op, value any) Predicate {
	if v, err := Normalize(value); err == nil {
		value = v
	}
	return Predicate{Field: field, Op: op, Value: value}
}

// Values returns the candidate values of an OpIn predicate.
func (p Predicate) Values() []any {
	arr, _ := p.Value.([]any)
	return arr
}

// Matches reports whether fields satisfies p.
func (p Predicate) Matches(fields Fields) bool {
	current, ok := fields[p.Field]
	switch p.Op {
	case OpEqual:
		return ok && reflect.DeepEqual(current, p.Value)
	case OpIn:
		if !ok {
			return false
		}
		for _, v := range p.Values() {
			if reflect.DeepEqual(current, v) {
				return true
			}
		}
		return false
	case OpArrayContains:
		arr, isArr := current.([]any)
		return isArr && containsValue(arr, p.Value)
	default:
		return false
	}
}

// MatchesAll reports whether fields satisfies every predicate.
func MatchesAll(fields Fields, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Matches(fields) {
			return false
		}
	}
	return true
}
