// Package digwire connects an autowire Container with a go.uber.org/dig
// container.
//
// Export makes the providers of a Container injectable into dig
// constructors and invocations. Import goes the other way and registers
// dig-built types as providers of a Container.
//
// dig builds every value once per container, so a transient autowire
// provider behaves as a singleton once exported.
package digwire

import (
	"context"
	"fmt"
	"reflect"

	"github.com/junioryono/autowire"
	"github.com/junioryono/autowire/internal/reflection"
	"go.uber.org/dig"
)

var errType = reflect.TypeFor[error]()

type key struct {
	typ  reflect.Type
	name string
}

// Export provides every provider of c to dc under the provider's name.
// Types served by a single provider are also provided without a name, and
// providers without a name are exported only that way.
// When several providers share a type and name only the first is
// exported.
func Export(ctx context.Context, c *autowire.Container, dc *dig.Container) error {
	providers := c.Providers()

	perType := make(map[reflect.Type]int)
	for _, p := range providers {
		perType[p.Type()]++
	}

	seen := make(map[key]bool)
	for _, p := range providers {
		t := p.Type()
		if reflection.IsUntyped(t) {
			continue
		}

		// Unnamed providers, such as those of slice or map values, are
		// served by the unnamed provide below.
		named := key{typ: t, name: p.Name()}
		if p.Name() != "" && !seen[named] {
			seen[named] = true
			if err := dc.Provide(constructor(ctx, c, p), dig.Name(p.Name())); err != nil {
				return fmt.Errorf("export %s: %w", p.Name(), err)
			}
		}

		if perType[t] == 1 {
			if err := dc.Provide(constructor(ctx, c, p)); err != nil {
				return fmt.Errorf("export %v: %w", t, err)
			}
		}
	}

	return nil
}

// constructor builds a func() (T, error) serving p.
func constructor(ctx context.Context, c *autowire.Container, p autowire.Provider) any {
	t := p.Type()
	dep := autowire.Dependency{Name: p.Name(), Type: t, Required: true}

	fnType := reflect.FuncOf(nil, []reflect.Type{t, errType}, false)
	fn := reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		v, err := p.Instance(ctx, dep, c)
		if err != nil {
			return failure(t, err)
		}
		out, err := reflection.Coerce(v, t)
		if err != nil {
			return failure(t, err)
		}
		return []reflect.Value{out, reflect.Zero(errType)}
	})

	return fn.Interface()
}

func failure(t reflect.Type, err error) []reflect.Value {
	errVal := reflect.New(errType).Elem()
	errVal.Set(reflect.ValueOf(err))
	return []reflect.Value{reflect.Zero(t), errVal}
}

// Import registers a provider in c for each of types, pulling the value
// out of dc on every access. dig itself caches the value.
func Import(dc *dig.Container, c *autowire.Container, types ...reflect.Type) error {
	for _, t := range types {
		if err := importType(dc, c, t); err != nil {
			return err
		}
	}
	return nil
}

// ImportType is the generic form of Import for a single type, accepting
// provider options such as autowire.WithName.
func ImportType[T any](dc *dig.Container, c *autowire.Container, opts ...autowire.ProviderOption) error {
	p := autowire.Supplier(func() (T, error) {
		var out T
		err := dc.Invoke(func(v T) {
			out = v
		})
		return out, err
	}, opts...)
	return c.Add(p)
}

func importType(dc *dig.Container, c *autowire.Container, t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("import: %w", autowire.ErrNilInstance)
	}

	extract := reflect.FuncOf([]reflect.Type{t}, nil, false)
	supplier := reflect.MakeFunc(reflect.FuncOf(nil, []reflect.Type{t, errType}, false), func([]reflect.Value) []reflect.Value {
		var result reflect.Value
		fn := reflect.MakeFunc(extract, func(args []reflect.Value) []reflect.Value {
			result = args[0]
			return nil
		})
		if err := dc.Invoke(fn.Interface()); err != nil {
			return failure(t, err)
		}
		return []reflect.Value{result, reflect.Zero(errType)}
	})

	p, err := autowire.FromSupplier(supplier.Interface(), autowire.WithType(t))
	if err != nil {
		return fmt.Errorf("import %v: %w", t, err)
	}
	return c.Add(p)
}
