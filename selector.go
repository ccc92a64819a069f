package autowire

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// Selector is a deferred reference to a context field, or to an attribute
// path below it, evaluated when the field it is passed to is constructed.
//
//	Repo autowire.Field[*Repo] = autowire.AutoWired[*Repo](
//	    autowire.WithArgs(autowire.Args{"dsn": autowire.Select("Config", "Database", "DSN")}),
//	)
//
// Each path element names an exported struct field or a getter method.
// Getters take no arguments or only a context.Context and return a value
// with an optional error.
type Selector struct {
	field string
	path  []string
}

// Select references the context field named field, then walks path.
func Select(field string, path ...string) Selector {
	return Selector{field: field, path: path}
}

func (s Selector) String() string {
	return strings.Join(append([]string{s.field}, s.path...), ".")
}

// Select evaluates the selector against c.
func (s Selector) Select(ctx context.Context, c *Context) (any, error) {
	state := c.lookupField(s.field)
	if state == nil {
		return nil, SelectorError{Path: s.String(), Cause: fmt.Errorf("%w: %s", ErrNoSuchAttribute, s.field)}
	}

	v, err := state.get(ctx)
	if err != nil {
		return nil, SelectorError{Path: s.String(), Cause: err}
	}

	cur := reflect.ValueOf(v)
	for _, name := range s.path {
		cur, err = attribute(ctx, cur, name)
		if err != nil {
			return nil, SelectorError{Path: s.String(), Cause: err}
		}
	}

	if !cur.IsValid() {
		return nil, nil
	}
	return cur.Interface(), nil
}

// lookupField finds a bound field by Go name, then by provider name.
func (c *Context) lookupField(name string) *fieldState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.byName[name]; ok {
		return s
	}
	for _, s := range c.fields {
		if s.name == name {
			return s
		}
	}
	return nil
}

func attribute(ctx context.Context, v reflect.Value, name string) (reflect.Value, error) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if m := v.MethodByName(name); m.IsValid() {
			return callGetter(ctx, m, name)
		}
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("cannot read %s of nil %v", name, v.Type())
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return reflect.Value{}, fmt.Errorf("cannot read %s of nil value", name)
	}

	if m := v.MethodByName(name); m.IsValid() {
		return callGetter(ctx, m, name)
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: %s on %v", ErrNoSuchAttribute, name, v.Type())
	}

	sf, ok := v.Type().FieldByName(name)
	if !ok || !sf.IsExported() {
		return reflect.Value{}, fmt.Errorf("%w: %s on %v", ErrNoSuchAttribute, name, v.Type())
	}
	fv, err := v.FieldByIndexErr(sf.Index)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("cannot read %s: %w", name, err)
	}

	// Fields of nested contexts are resolved rather than returned as is.
	holder := reflect.New(fv.Type())
	holder.Elem().Set(fv)
	if l, ok := holder.Interface().(lazy); ok {
		x, err := l.lookup(ctx)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(x), nil
	}
	return fv, nil
}

var ctxType = reflect.TypeFor[context.Context]()

func callGetter(ctx context.Context, m reflect.Value, name string) (reflect.Value, error) {
	mt := m.Type()

	var in []reflect.Value
	switch {
	case mt.NumIn() == 0:
	case mt.NumIn() == 1 && mt.In(0) == ctxType:
		in = []reflect.Value{reflect.ValueOf(ctx)}
	default:
		return reflect.Value{}, fmt.Errorf("%w: method %s is not a getter", ErrNoSuchAttribute, name)
	}

	switch {
	case mt.NumOut() == 1:
	case mt.NumOut() == 2 && mt.Out(1) == reflect.TypeFor[error]():
	default:
		return reflect.Value{}, fmt.Errorf("%w: method %s is not a getter", ErrNoSuchAttribute, name)
	}

	out := m.Call(in)
	if len(out) == 2 {
		if err, _ := out[1].Interface().(error); err != nil {
			return reflect.Value{}, err
		}
	}
	return out[0], nil
}
