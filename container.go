package autowire

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/junioryono/autowire/internal/reflection"
)

// Signature is the initializer of a type as reported by a TypeIntrospector.
type Signature = reflection.Signature

// Parameter is one input of a Signature.
type Parameter = reflection.Parameter

// TypeIntrospector derives the initializer signature of a type.
type TypeIntrospector interface {
	Signature(t reflect.Type) (*Signature, error)
}

// constructorRegistry is implemented by introspectors that accept
// explicitly registered constructors.
type constructorRegistry interface {
	Register(fn any, specs ...string) error
}

// defaultDeniedPackages hold types that are never auto-constructed.
var defaultDeniedPackages = []string{"reflect", "unsafe", "sync", "sync/atomic", "context"}

// Container holds an ordered list of providers and resolves dependencies
// against it, auto-wiring what no provider satisfies.
//
// A Container is safe for concurrent use. Registering the same name and
// type twice is allowed; the clash surfaces as an AmbiguousDependencyError
// when the dependency is looked up by type alone.
type Container struct {
	mu        sync.RWMutex
	providers []Provider

	introspector TypeIntrospector
	denied       map[string]struct{}
	logger       *slog.Logger
}

// Option configures a Container.
type Option interface {
	apply(*Container)
}

type optionFunc func(*Container)

func (f optionFunc) apply(c *Container) {
	f(c)
}

// WithIntrospector replaces the reflection-based TypeIntrospector.
func WithIntrospector(ti TypeIntrospector) Option {
	return optionFunc(func(c *Container) {
		if ti != nil {
			c.introspector = ti
		}
	})
}

// WithLogger sets the logger receiving resolution traces at debug level.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithDeniedPackages adds import paths whose types are never auto-wired.
func WithDeniedPackages(pkgs ...string) Option {
	return optionFunc(func(c *Container) {
		for _, pkg := range pkgs {
			c.denied[pkg] = struct{}{}
		}
	})
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		introspector: reflection.New(),
		denied:       make(map[string]struct{}, len(defaultDeniedPackages)),
		logger:       slog.Default(),
	}
	for _, pkg := range defaultDeniedPackages {
		c.denied[pkg] = struct{}{}
	}

	for _, opt := range opts {
		if opt != nil {
			opt.apply(c)
		}
	}

	return c
}

// Add registers v. Values that are not a Provider are wrapped with
// FromInstance.
func (c *Container) Add(v any) error {
	if v == nil {
		return ErrNilInstance
	}

	p, ok := v.(Provider)
	if !ok {
		var err error
		if p, err = FromInstance(v); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.providers = append(c.providers, p)
	c.mu.Unlock()

	c.logger.Debug("provider added", "provider", describe(p))
	return nil
}

// MustAdd is like Add but panics on error.
func (c *Container) MustAdd(v any) {
	if err := c.Add(v); err != nil {
		panic(err)
	}
}

// Remove removes the first occurrence of p and reports whether it was found.
func (c *Container) Remove(p Provider) bool {
	if p == nil {
		return false
	}
	return c.removeFirst(func(candidate Provider) bool { return candidate == p })
}

// RemoveNamed removes the first provider named name and reports whether
// one was found.
func (c *Container) RemoveNamed(name string) bool {
	return c.removeFirst(func(candidate Provider) bool { return candidate.Name() == name })
}

func (c *Container) removeFirst(match func(Provider) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.providers, match)
	if i < 0 {
		return false
	}
	c.logger.Debug("provider removed", "provider", describe(c.providers[i]))
	c.providers = slices.Delete(c.providers, i, i+1)
	return true
}

// Providers returns a snapshot of every provider in registration order.
func (c *Container) Providers() []Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.providers)
}

// Candidates returns the providers satisfying dep in registration order.
func (c *Container) Candidates(dep Dependency) []Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return candidates(c.providers, dep)
}

// Lookup returns the provider serving dep, or nil when there is none.
// When several providers satisfy dep the one named dep.Name wins, provided
// it is the only one with that name; otherwise an AmbiguousDependencyError
// is returned.
func (c *Container) Lookup(dep Dependency) (Provider, error) {
	return pick(dep, c.Candidates(dep))
}

func candidates(providers []Provider, dep Dependency) []Provider {
	var out []Provider
	for _, p := range providers {
		if p.Satisfies(dep) {
			out = append(out, p)
		}
	}
	return out
}

func pick(dep Dependency, found []Provider) (Provider, error) {
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	}

	var named []Provider
	for _, p := range found {
		if p.Name() == dep.Name {
			named = append(named, p)
		}
	}
	if len(named) == 1 {
		return named[0], nil
	}

	names := make([]string, len(found))
	for i, p := range found {
		names[i] = describe(p)
	}
	return nil, AmbiguousDependencyError{Dependency: dep, Candidates: names}
}

// RegisterConstructor makes fn the initializer of its first return type.
// Each param names one parameter of fn, optionally suffixed with
// ",optional"; without params every parameter is required and named after
// its type.
func (c *Container) RegisterConstructor(fn any, params ...string) error {
	reg, ok := c.introspector.(constructorRegistry)
	if !ok {
		return fmt.Errorf("introspector %T does not accept constructors", c.introspector)
	}
	return reg.Register(fn, params...)
}

// denies reports whether t must never be auto-wired: interfaces, functions,
// channels, unnamed and predeclared types, and types from denied packages.
func (c *Container) denies(t reflect.Type) bool {
	if t == nil {
		return true
	}

	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	switch base.Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Pointer:
		return true
	}
	if base.Name() == "" || base.PkgPath() == "" {
		return true
	}

	_, denied := c.denied[base.PkgPath()]
	return denied
}

func describe(p Provider) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%s(%s)", p.Name(), formatType(p.Type()))
}
