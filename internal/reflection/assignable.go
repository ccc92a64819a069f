package reflection

import (
	"fmt"
	"reflect"
)

// Assignable reports whether a value of type candidate can satisfy a
// request for type requested.
//
// On top of Go's assignability rules, container types are treated
// covariantly: a []*Derived satisfies a request for []Base when *Derived
// implements Base. The same holds for arrays of equal length and for maps
// with identical key types. Requests for interfaces act as unions of all
// their implementations; a request for the empty interface accepts anything.
func Assignable(candidate, requested reflect.Type) bool {
	if candidate == nil || requested == nil {
		return false
	}
	if candidate.AssignableTo(requested) {
		return true
	}
	if candidate.Kind() != requested.Kind() {
		return false
	}

	switch requested.Kind() {
	case reflect.Slice:
		return Assignable(candidate.Elem(), requested.Elem())
	case reflect.Array:
		return candidate.Len() == requested.Len() && Assignable(candidate.Elem(), requested.Elem())
	case reflect.Map:
		return candidate.Key() == requested.Key() && Assignable(candidate.Elem(), requested.Elem())
	}
	return false
}

// Coerce converts v to a value of type t. It accepts everything Assignable
// accepts, rebuilding covariant slices, arrays and maps element by element.
// A nil v yields the zero value of t.
func Coerce(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	return coerceValue(reflect.ValueOf(v), t)
}

func coerceValue(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(t), nil
	}
	if v.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(v)
		return out, nil
	}
	if !Assignable(v.Type(), t) {
		return reflect.Value{}, fmt.Errorf("%w: %v is not assignable to %v", ErrTypeMismatch, v.Type(), t)
	}

	switch t.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(t), nil
		}
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := range v.Len() {
			elem, err := coerceValue(v.Index(i), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	case reflect.Array:
		out := reflect.New(t).Elem()
		for i := range v.Len() {
			elem, err := coerceValue(v.Index(i), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(t), nil
		}
		out := reflect.MakeMapWithSize(t, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			elem, err := coerceValue(iter.Value(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(iter.Key(), elem)
		}
		return out, nil
	}

	return reflect.Value{}, fmt.Errorf("%w: %v is not assignable to %v", ErrTypeMismatch, v.Type(), t)
}

// adapt turns v into a value of exactly type t, taking the address of or
// dereferencing v when the two differ by one level of pointer.
func adapt(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	switch {
	case v.Type() == t:
		return v, nil
	case t.Kind() == reflect.Pointer && t.Elem() == v.Type():
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		return p, nil
	case v.Kind() == reflect.Pointer && v.Type().Elem() == t:
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil %v cannot produce %v", ErrTypeMismatch, v.Type(), t)
		}
		return v.Elem(), nil
	}
	return coerceValue(v, t)
}
