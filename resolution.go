package autowire

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"slices"

	"github.com/junioryono/autowire/internal/reflection"
)

// Args are explicit initializer arguments keyed by parameter name. They
// take precedence over anything the container would resolve.
type Args map[string]any

// Resolver resolves dependencies. Both *Container and *Context implement it.
type Resolver interface {
	Resolve(ctx context.Context, dep Dependency) (any, error)
}

// Autowirer constructs types from resolved parameters. Both *Container and
// *Context implement it.
type Autowirer interface {
	Autowire(ctx context.Context, t reflect.Type, args Args) (any, error)
}

var (
	_ Resolver  = (*Container)(nil)
	_ Autowirer = (*Container)(nil)
)

// Resolve returns a value satisfying dep.
//
// An existing provider is used when one matches. Otherwise slice requests
// collect every provider of the element type, and any other type is
// auto-wired and then registered under dep's name and type so later
// resolutions return the same instance.
func (c *Container) Resolve(ctx context.Context, dep Dependency) (any, error) {
	c.logger.Debug("resolving dependency", "dependency", dep.String())

	existing, err := c.Lookup(dep)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing.Instance(ctx, dep, c)
	}

	if dep.Type != nil {
		switch dep.Type.Kind() {
		case reflect.Slice:
			return c.collect(ctx, dep)
		case reflect.Array:
			return nil, UnresolvableDependencyError{Dependency: dep, Cause: ErrFixedSequence}
		}
	}

	v, err := c.Autowire(ctx, dep.Type, nil)
	if err != nil {
		return nil, err
	}
	return c.memoize(ctx, dep, v)
}

// ResolveType resolves the default dependency on t.
func (c *Container) ResolveType(ctx context.Context, t reflect.Type) (any, error) {
	return c.Resolve(ctx, NewDependency(t))
}

// collect resolves every provider of the element type of a slice request,
// in registration order.
func (c *Container) collect(ctx context.Context, dep Dependency) (any, error) {
	elem := Dependency{Name: dep.Name, Type: dep.Type.Elem(), Required: true}
	providers := c.Candidates(elem)

	out := reflect.MakeSlice(dep.Type, 0, len(providers))
	for _, p := range providers {
		v, err := p.Instance(ctx, elem, c)
		if err != nil {
			return nil, err
		}
		ev, err := reflection.Coerce(v, elem.Type)
		if err != nil {
			return nil, err
		}
		out = reflect.Append(out, ev)
	}

	c.logger.Debug("collected dependencies", "dependency", dep.String(), "count", len(providers))
	return out.Interface(), nil
}

// memoize registers v as the provider of dep. A matching provider that
// appeared while v was being built takes precedence.
func (c *Container) memoize(ctx context.Context, dep Dependency, v any) (any, error) {
	c.mu.Lock()
	existing, err := pick(dep, candidates(c.providers, dep))
	if err != nil {
		c.mu.Unlock()
		return v, nil
	}
	if existing == nil {
		c.providers = append(c.providers, &supplierProvider{
			name: dep.Name,
			typ:  dep.Type,
			supply: func(context.Context) (any, error) {
				return v, nil
			},
		})
		c.mu.Unlock()
		c.logger.Debug("registered auto-wired instance", "dependency", dep.String())
		return v, nil
	}
	c.mu.Unlock()

	return existing.Instance(ctx, dep, c)
}

// Autowire constructs a t from its initializer, resolving every parameter
// not present in args. The result is not registered.
func (c *Container) Autowire(ctx context.Context, t reflect.Type, args Args) (any, error) {
	if c.denies(t) {
		return nil, IllegalAutoWireTypeError{Type: t}
	}

	ctx, err := enter(ctx, t, formatType(t))
	if err != nil {
		return nil, err
	}

	sig, err := c.introspector.Signature(t)
	if err != nil {
		return nil, IllegalAutoWireTypeError{Type: t, Cause: err}
	}

	c.logger.Debug("auto-wiring", "type", formatType(t), "params", len(sig.Params), "args", len(args))

	for name := range args {
		if !slices.ContainsFunc(sig.Params, func(p Parameter) bool { return p.Name == name }) {
			return nil, InstantiationError{Type: t, Cause: fmt.Errorf("%w %q", ErrUnknownArgument, name)}
		}
	}

	values := make(map[string]reflect.Value, len(sig.Params))
	for _, p := range sig.Params {
		if v, ok := args[p.Name]; ok {
			values[p.Name] = reflect.ValueOf(v)
			continue
		}

		dep := Dependency{Name: p.Name, Type: p.Type, Required: p.Required}
		v, err := c.resolveParameter(ctx, t, dep)
		if err != nil {
			if dep.Required {
				return nil, UnresolvableDependencyError{Dependency: dep, Target: t, Cause: err}
			}
			c.logger.Debug("skipping optional parameter", "type", formatType(t), "parameter", p.Name, "error", err)
			continue
		}
		values[p.Name] = reflect.ValueOf(v)
	}

	out, err := build(sig, values)
	if err != nil {
		return nil, InstantiationError{Type: t, Cause: err}
	}
	return out.Interface(), nil
}

func (c *Container) resolveParameter(ctx context.Context, owner reflect.Type, dep Dependency) (any, error) {
	if dep.Type == nil {
		return nil, MissingTypeAnnotationError{Owner: formatType(owner), Name: dep.Name}
	}
	return c.Resolve(ctx, dep)
}

// build runs the initializer, turning a panic into a PanicError.
func build(sig *Signature, values map[string]reflect.Value) (out reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return sig.Build(values)
}

// Resolve resolves the default dependency on T through r.
func Resolve[T any](ctx context.Context, r Resolver) (T, error) {
	return ResolveDependency[T](ctx, r, DependencyFor[T]())
}

// ResolveNamed resolves T through r, preferring the provider named name.
func ResolveNamed[T any](ctx context.Context, r Resolver, name string) (T, error) {
	return ResolveDependency[T](ctx, r, DependencyFor[T]().Named(name))
}

// ResolveDependency resolves dep through r and converts the result to T.
func ResolveDependency[T any](ctx context.Context, r Resolver, dep Dependency) (T, error) {
	v, err := r.Resolve(ctx, dep)
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](v)
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](ctx context.Context, r Resolver) T {
	v, err := Resolve[T](ctx, r)
	if err != nil {
		panic(err)
	}
	return v
}

// AutowireAs auto-wires T through a and converts the result to T.
func AutowireAs[T any](ctx context.Context, a Autowirer, args Args) (T, error) {
	v, err := a.Autowire(ctx, reflect.TypeFor[T](), args)
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](v)
}

func as[T any](v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}

	var zero T
	rv, err := reflection.Coerce(v, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	// A nil interface value converts to the zero T.
	out, _ := rv.Interface().(T)
	return out, nil
}

// chainKey carries the resolution chain through a context.Context.
type chainKey struct{}

type link struct {
	parent *link
	key    any
	label  string
}

// enter appends key to the resolution chain of ctx. Entering a key that is
// already on the chain fails with a CircularDependencyError.
func enter(ctx context.Context, key any, label string) (context.Context, error) {
	head, _ := ctx.Value(chainKey{}).(*link)
	for l := head; l != nil; l = l.parent {
		if l.key == key {
			return ctx, CircularDependencyError{Chain: head.labels(label)}
		}
	}
	return context.WithValue(ctx, chainKey{}, &link{parent: head, key: key, label: label}), nil
}

func checkCycle(ctx context.Context, t reflect.Type) error {
	_, err := enter(ctx, t, formatType(t))
	return err
}

// labels returns the chain from the outermost entry to last.
func (l *link) labels(last string) []string {
	var out []string
	for ; l != nil; l = l.parent {
		out = append(out, l.label)
	}
	slices.Reverse(out)
	return append(out, last)
}
