package autowire

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"unsafe"

	"github.com/junioryono/autowire/internal/reflection"
)

// Context turns the Field members of the struct embedding it into lazily
// resolved values backed by a container derived from those fields.
//
//	type App struct {
//	    autowire.Context
//
//	    Config  autowire.Field[*Config] `autowire:"provided"`
//	    Service autowire.Field[*Service]
//	}
//
//	app := &App{}
//	app.Config.Provide(cfg)
//	if err := autowire.Init(ctx, app); err != nil {
//	    return err
//	}
//	svc, err := app.Service.Get(ctx)
//
// Fields of embedded structs are bound as well, so contexts compose by
// embedding.
type Context struct {
	mu     sync.Mutex
	bound  bool
	typ    reflect.Type
	fields []*fieldState
	byName map[string]*fieldState

	container *Container
	once      sync.Once
	err       error
}

// contextual is implemented by every struct embedding Context.
type contextual interface {
	autowireContext() *Context
}

func (c *Context) autowireContext() *Context {
	return c
}

// Source provides the providers copied by DeriveFrom. *Container, *Context
// and every struct embedding Context implement it.
type Source interface {
	providerSnapshot() ([]Provider, error)
}

var (
	_ Source    = (*Container)(nil)
	_ Source    = (*Context)(nil)
	_ Resolver  = (*Context)(nil)
	_ Autowirer = (*Context)(nil)
)

func (c *Container) providerSnapshot() ([]Provider, error) {
	return c.Providers(), nil
}

func (c *Context) providerSnapshot() ([]Provider, error) {
	container, err := c.Container()
	if err != nil {
		return nil, err
	}
	return container.Providers(), nil
}

// Init binds the fields of target, which must be a pointer to a struct
// embedding Context. Eager fields are resolved afterwards, then every
// provided field is checked to hold a value. The options configure the
// context's container.
func Init(ctx context.Context, target any, opts ...Option) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return IllegalContextError{Type: reflect.TypeOf(target), Reason: "target must be a non-nil pointer to a struct"}
	}

	cx, ok := target.(contextual)
	if !ok {
		return IllegalContextError{Type: rv.Type(), Reason: "struct does not embed autowire.Context"}
	}
	c := cx.autowireContext()
	if c == nil {
		return IllegalContextError{Type: rv.Type(), Reason: "autowire.Context must be embedded by value"}
	}

	c.mu.Lock()
	if c.bound {
		c.mu.Unlock()
		return IllegalContextError{Type: rv.Type(), Reason: "already initialized"}
	}
	c.typ = rv.Elem().Type()
	c.byName = make(map[string]*fieldState)
	c.container = New(opts...)
	if err := c.bindStruct(rv.Elem()); err != nil {
		c.fields, c.byName = nil, nil
		c.mu.Unlock()
		return err
	}
	c.bound = true
	c.mu.Unlock()

	c.logger().Debug("context initialized", "type", formatType(c.typ), "fields", len(c.fields))

	for _, s := range c.fields {
		if !s.decl.eager {
			continue
		}
		if _, err := s.get(ctx); err != nil {
			return err
		}
	}

	for _, s := range c.fields {
		if s.decl.provided && s.value.Load() == nil {
			return NotProvidedError{Context: c.typ, Field: s.goName}
		}
	}

	return nil
}

// bindStruct binds every Field of v in declaration order, descending into
// embedded structs.
func (c *Context) bindStruct(v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		sf := t.Field(i)
		fv := v.Field(i)
		if !fv.CanAddr() {
			continue
		}
		// Unexported fields are bound too.
		ptr := reflect.NewAt(sf.Type, unsafe.Pointer(fv.UnsafeAddr()))

		if b, ok := ptr.Interface().(binder); ok {
			s, err := b.bind(c, sf)
			if err != nil {
				return err
			}
			if s == nil {
				continue
			}
			if _, dup := c.byName[s.goName]; dup {
				return IllegalContextError{Type: c.typ, Reason: fmt.Sprintf("field %s is declared more than once", s.goName)}
			}
			c.fields = append(c.fields, s)
			c.byName[s.goName] = s
			continue
		}

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && sf.Type != reflect.TypeFor[Context]() {
			if err := c.bindStruct(fv); err != nil {
				return err
			}
		}
	}
	return nil
}

// Container returns the container derived from the context. It holds one
// provider per field, named after the field and reading its live value.
// It is built once.
func (c *Context) Container() (*Container, error) {
	c.mu.Lock()
	bound := c.bound
	c.mu.Unlock()
	if !bound {
		return nil, ErrContextNotInitialized
	}

	c.once.Do(func() {
		c.err = c.project()
	})
	if c.err != nil {
		return nil, c.err
	}
	return c.container, nil
}

func (c *Context) project() error {
	for _, s := range c.fields {
		if reflection.IsUntyped(s.typ) {
			return MissingTypeAnnotationError{Owner: formatType(c.typ), Name: s.goName}
		}

		state := s
		err := c.container.Add(&supplierProvider{
			name: s.name,
			typ:  s.typ,
			supply: func(ctx context.Context) (any, error) {
				return state.get(ctx)
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Autowire auto-wires t through the context's container.
func (c *Context) Autowire(ctx context.Context, t reflect.Type, args Args) (any, error) {
	container, err := c.Container()
	if err != nil {
		return nil, err
	}
	return container.Autowire(ctx, t, args)
}

// Resolve resolves dep through the context's container.
func (c *Context) Resolve(ctx context.Context, dep Dependency) (any, error) {
	container, err := c.Container()
	if err != nil {
		return nil, err
	}
	return container.Resolve(ctx, dep)
}

// DeriveFrom registers every provider of src in the context's container.
func (c *Context) DeriveFrom(src Source) error {
	if src == nil {
		return ErrNilProvider
	}

	providers, err := src.providerSnapshot()
	if err != nil {
		return err
	}
	container, err := c.Container()
	if err != nil {
		return err
	}
	for _, p := range providers {
		if err := container.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseLocal drops the thread-local values cached for the local scope
// of ctx.
func (c *Context) ReleaseLocal(ctx context.Context) {
	id := LocalID(ctx)

	c.mu.Lock()
	fields := c.fields
	c.mu.Unlock()

	for _, s := range fields {
		if s.decl.threadLocal {
			s.release(id)
		}
	}
}

func (c *Context) logger() *slog.Logger {
	if c.container == nil {
		return slog.Default()
	}
	return c.container.logger
}
