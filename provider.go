package autowire

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/junioryono/autowire/internal/reflection"
)

// Provider is a registered source of instances.
type Provider interface {
	// Instance returns a value satisfying dep. The container argument is the
	// container currently resolving the dependency.
	Instance(ctx context.Context, dep Dependency, c *Container) (any, error)

	// Name is compared with the dependency name to settle ambiguity when
	// several providers satisfy the same dependency.
	Name() string

	// Type is the type of the values the provider produces.
	Type() reflect.Type

	// Satisfies reports whether the provider can serve dep.
	Satisfies(dep Dependency) bool
}

// A ProviderOption modifies the defaults of FromInstance, FromSupplier,
// Supplier and Component.
type ProviderOption interface {
	applyProviderOption(*providerOptions)
}

type providerOptions struct {
	name      string
	typ       reflect.Type
	transient bool
}

type providerOptionFunc func(*providerOptions)

func (f providerOptionFunc) applyProviderOption(o *providerOptions) {
	f(o)
}

func newProviderOptions(opts []ProviderOption) *providerOptions {
	o := &providerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyProviderOption(o)
		}
	}
	return o
}

// WithName names the provider instead of deriving the name from its type.
func WithName(name string) ProviderOption {
	return providerOptionFunc(func(o *providerOptions) {
		o.name = name
	})
}

// WithType declares the provided type explicitly. Values must be
// assignable to it.
func WithType(t reflect.Type) ProviderOption {
	return providerOptionFunc(func(o *providerOptions) {
		o.typ = t
	})
}

// AsTransient makes a component produce a new instance on every access.
func AsTransient() ProviderOption {
	return providerOptionFunc(func(o *providerOptions) {
		o.transient = true
	})
}

// supplierProvider backs every built-in provider: it returns whatever its
// supply function returns.
type supplierProvider struct {
	name   string
	typ    reflect.Type
	supply func(ctx context.Context) (any, error)
}

func (p *supplierProvider) Instance(ctx context.Context, _ Dependency, _ *Container) (any, error) {
	return p.supply(ctx)
}

func (p *supplierProvider) Name() string {
	return p.name
}

func (p *supplierProvider) Type() reflect.Type {
	return p.typ
}

func (p *supplierProvider) Satisfies(dep Dependency) bool {
	return reflection.Assignable(p.typ, dep.Type)
}

func (p *supplierProvider) String() string {
	return fmt.Sprintf("%s(%s)", p.name, formatType(p.typ))
}

// FromInstance creates a singleton provider that always returns v. The
// name defaults to the snake_case name of v's type.
func FromInstance(v any, opts ...ProviderOption) (Provider, error) {
	if v == nil {
		return nil, ErrNilInstance
	}

	o := newProviderOptions(opts)
	typ := reflect.TypeOf(v)
	if o.typ != nil {
		if !reflection.Assignable(typ, o.typ) {
			return nil, fmt.Errorf("%w: %s is not assignable to %s", reflection.ErrTypeMismatch, formatType(typ), formatType(o.typ))
		}
		typ = o.typ
	}

	return &supplierProvider{
		name: nameOr(o.name, typ),
		typ:  typ,
		supply: func(context.Context) (any, error) {
			return v, nil
		},
	}, nil
}

// FromSupplier creates a provider calling fn on every access. fn must be a
// func() T or func() (T, error). Whether the result is a singleton or a
// fresh value is up to fn.
//
// The provided type defaults to T; a supplier returning the empty interface
// needs WithType.
func FromSupplier(fn any, opts ...ProviderOption) (Provider, error) {
	o := newProviderOptions(opts)
	missing := MissingTypeAnnotationError{Name: fmt.Sprintf("supplier %T", fn)}

	if fn == nil {
		if o.typ == nil {
			return nil, missing
		}
		return nil, ErrInvalidSupplier
	}

	val := reflect.ValueOf(fn)
	ft := val.Type()
	valid := ft.Kind() == reflect.Func && !val.IsNil() && ft.NumIn() == 0 &&
		(ft.NumOut() == 1 || (ft.NumOut() == 2 && ft.Out(1) == reflect.TypeFor[error]()))
	if !valid {
		if o.typ == nil {
			return nil, missing
		}
		return nil, fmt.Errorf("%w: got %T", ErrInvalidSupplier, fn)
	}

	typ := o.typ
	if typ == nil {
		typ = ft.Out(0)
		if reflection.IsUntyped(typ) {
			return nil, missing
		}
	}

	hasError := ft.NumOut() == 2
	return &supplierProvider{
		name: nameOr(o.name, typ),
		typ:  typ,
		supply: func(context.Context) (any, error) {
			out := val.Call(nil)
			if hasError {
				if err, _ := out[1].Interface().(error); err != nil {
					return nil, err
				}
			}
			return out[0].Interface(), nil
		},
	}, nil
}

// Supplier creates a provider of T backed by fn, called on every access.
func Supplier[T any](fn func() (T, error), opts ...ProviderOption) Provider {
	o := newProviderOptions(opts)
	typ := reflect.TypeFor[T]()
	return &supplierProvider{
		name: nameOr(o.name, typ),
		typ:  typ,
		supply: func(context.Context) (any, error) {
			return fn()
		},
	}
}

// FromType creates a provider that auto-wires t through c. Unless transient,
// the first successfully built instance is kept and returned afterwards.
func FromType(t reflect.Type, c *Container, transient bool, opts ...ProviderOption) Provider {
	o := newProviderOptions(opts)
	build := func(ctx context.Context) (any, error) {
		return c.Autowire(ctx, t, nil)
	}
	if !transient && !o.transient {
		build = cached(build)
	}

	return &supplierProvider{
		name: nameOr(o.name, t),
		typ:  t,
		supply: func(ctx context.Context) (any, error) {
			// Fail before blocking on the cache when t is already being built.
			if err := checkCycle(ctx, t); err != nil {
				return nil, err
			}
			return build(ctx)
		},
	}
}

// cached memoizes the first successful result of supply.
func cached(supply func(context.Context) (any, error)) func(context.Context) (any, error) {
	var (
		mu     sync.Mutex
		done   bool
		result any
	)
	return func(ctx context.Context) (any, error) {
		mu.Lock()
		defer mu.Unlock()

		if done {
			return result, nil
		}
		v, err := supply(ctx)
		if err != nil {
			return nil, err
		}
		result, done = v, true
		return result, nil
	}
}

func nameOr(name string, t reflect.Type) string {
	if name != "" {
		return name
	}
	return reflection.DefaultName(t)
}
