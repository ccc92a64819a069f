package reflection

import (
	"fmt"
	"reflect"
	"strings"
)

// constructor is a registered initializer function.
type constructor struct {
	fn       reflect.Value
	out      reflect.Type
	params   []Parameter
	hasError bool
}

func newConstructor(fn any, specs []string) (*constructor, error) {
	if fn == nil {
		return nil, ErrNotConstructor
	}

	val := reflect.ValueOf(fn)
	typ := val.Type()
	if typ.Kind() != reflect.Func || val.IsNil() || typ.IsVariadic() {
		return nil, fmt.Errorf("%w: got %v", ErrNotConstructor, typ)
	}

	switch {
	case typ.NumOut() == 1 && !implementsError(typ.Out(0)):
	case typ.NumOut() == 2 && !implementsError(typ.Out(0)) && typ.Out(1) == errType:
	default:
		return nil, fmt.Errorf("%w: got %v", ErrNotConstructor, typ)
	}

	if len(specs) != 0 && len(specs) != typ.NumIn() {
		return nil, fmt.Errorf("%w: %d specs for %v", ErrParameterCount, len(specs), typ)
	}

	params := make([]Parameter, typ.NumIn())
	for i := range typ.NumIn() {
		in := typ.In(i)
		p := Parameter{Name: DefaultName(in), Type: in, Required: true}
		if IsUntyped(in) {
			p.Type = nil
		}
		if len(specs) > 0 {
			name, opts, _ := strings.Cut(specs[i], ",")
			p.Name = strings.TrimSpace(name)
			p.Required = strings.TrimSpace(opts) != "optional"
		}
		params[i] = p
	}

	return &constructor{
		fn:       val,
		out:      typ.Out(0),
		params:   params,
		hasError: typ.NumOut() == 2,
	}, nil
}

func (c *constructor) signature() *Signature {
	return &Signature{
		Target: c.out,
		Origin: c.out,
		Params: c.params,
		Build:  c.call,
	}
}

func (c *constructor) call(args map[string]reflect.Value) (reflect.Value, error) {
	in := make([]reflect.Value, len(c.params))
	for i, p := range c.params {
		want := c.fn.Type().In(i)
		v, ok := args[p.Name]
		if !ok {
			in[i] = reflect.Zero(want)
			continue
		}

		arg, err := coerceValue(v, want)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		in[i] = arg
	}

	results := c.fn.Call(in)
	if c.hasError {
		if err, _ := results[1].Interface().(error); err != nil {
			return reflect.Value{}, err
		}
	}
	return results[0], nil
}

// structSignature injects a struct field by field. Every field becomes a
// parameter; fields tagged optional or carrying a default are not required.
func structSignature(t reflect.Type, fields []reflect.StructField) (*Signature, error) {
	params := make([]Parameter, 0, len(fields))
	defaults := make(map[string]reflect.Value)
	index := make(map[string]int, len(fields))

	for _, f := range fields {
		tag := ParseTag(f.Tag.Get(TagKey))
		p := Parameter{
			Name:     SnakeCase(f.Name),
			Type:     f.Type,
			Required: !tag.Has("optional"),
		}
		if tag.Name != "" {
			p.Name = tag.Name
		}

		if raw, ok := f.Tag.Lookup(DefaultTagKey); ok {
			def, err := ParseDefault(raw, f.Type)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", t.Name(), f.Name, err)
			}
			defaults[p.Name] = def
			p.Required = false
			if IsUntyped(f.Type) {
				// Fall back to the type of the default literal.
				p.Type = def.Type()
			}
		} else if IsUntyped(f.Type) {
			p.Type = nil
		}

		index[p.Name] = f.Index[0]
		params = append(params, p)
	}

	return &Signature{
		Target: t,
		Origin: t,
		Params: params,
		Build: func(args map[string]reflect.Value) (reflect.Value, error) {
			out := reflect.New(t).Elem()
			for name, i := range index {
				field := out.Field(i)
				v, ok := args[name]
				if !ok {
					v, ok = defaults[name]
				}
				if !ok {
					continue
				}

				arg, err := coerceValue(v, field.Type())
				if err != nil {
					return reflect.Value{}, fmt.Errorf("field %s: %w", t.Field(i).Name, err)
				}
				field.Set(arg)
			}
			return out, nil
		},
	}, nil
}

// inheritedSignature builds t by constructing its embedded base through
// the base's own initializer.
func inheritedSignature(t reflect.Type, base reflect.StructField, inherited *Signature) *Signature {
	return &Signature{
		Target: t,
		Origin: inherited.Origin,
		Params: inherited.Params,
		Build: func(args map[string]reflect.Value) (reflect.Value, error) {
			v, err := inherited.Build(args)
			if err != nil {
				return reflect.Value{}, err
			}
			embedded, err := adapt(v, base.Type)
			if err != nil {
				return reflect.Value{}, err
			}

			out := reflect.New(t).Elem()
			out.FieldByIndex(base.Index).Set(embedded)
			return out, nil
		},
	}
}
