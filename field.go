package autowire

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/junioryono/autowire/internal/reflection"
)

// FieldState is the resolution state of a context field.
type FieldState int32

const (
	// Unresolved fields have no cached value.
	Unresolved FieldState = iota
	// Resolving fields are being computed by some caller.
	Resolving
	// Resolved fields return their cached value.
	Resolved
)

func (s FieldState) String() string {
	switch s {
	case Unresolved:
		return "Unresolved"
	case Resolving:
		return "Resolving"
	case Resolved:
		return "Resolved"
	default:
		return fmt.Sprintf("FieldState(%d)", int32(s))
	}
}

// Field is a lazily resolved member of a struct embedding Context.
//
// A field is auto-wired by default: on first Get its type is constructed
// through the context's container and cached. Its behavior is declared
// either by assigning the result of AutoWired, Provided, Cached or Value
// before Init, or with an autowire struct tag:
//
//	type App struct {
//	    autowire.Context
//
//	    Config  autowire.Field[*Config]  `autowire:"provided"`
//	    DB      autowire.Field[*DB]      `autowire:"eager"`
//	    Request autowire.Field[*Request] `autowire:"transient"`
//	    Conn    autowire.Field[*Conn]    `autowire:"thread_local,name=connection"`
//	}
//
// A Field must not be copied after Init.
type Field[T any] struct {
	decl  *declaration
	state *fieldState
}

// declaration holds how a field is resolved.
type declaration struct {
	eager       bool
	transient   bool
	threadLocal bool
	provided    bool

	args        Args
	argsFactory func(context.Context, *Context) (Args, error)
	compute     func(context.Context, *Context) (any, error)
}

// FieldOption configures a field declaration.
type FieldOption interface {
	applyField(*declaration)
}

type fieldOptionFunc func(*declaration)

func (f fieldOptionFunc) applyField(d *declaration) {
	f(d)
}

// Eager resolves the field during Init.
func Eager() FieldOption {
	return fieldOptionFunc(func(d *declaration) {
		d.eager = true
	})
}

// Transient makes every Get produce a new value.
func Transient() FieldOption {
	return fieldOptionFunc(func(d *declaration) {
		d.transient = true
	})
}

// ThreadLocal caches one value per local scope. A local scope is not a
// goroutine: goroutines reading the field with contexts that carry no
// local scope share the root value. A goroutine that needs its own value
// starts a scope with WithLocal.
func ThreadLocal() FieldOption {
	return fieldOptionFunc(func(d *declaration) {
		d.threadLocal = true
	})
}

// WithArgs passes explicit initializer arguments when the field is
// auto-wired. Values may be Selectors, evaluated against the context when
// the field is constructed.
func WithArgs(args Args) FieldOption {
	return fieldOptionFunc(func(d *declaration) {
		if d.args == nil {
			d.args = make(Args, len(args))
		}
		for k, v := range args {
			d.args[k] = v
		}
	})
}

// WithArgsFactory computes initializer arguments from the context each
// time the field is constructed. Arguments given with WithArgs override
// the ones returned by fn.
func WithArgsFactory(fn func(ctx context.Context, c *Context) (Args, error)) FieldOption {
	return fieldOptionFunc(func(d *declaration) {
		d.argsFactory = fn
	})
}

func newDeclaration(opts []FieldOption) *declaration {
	d := &declaration{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyField(d)
		}
	}
	return d
}

// AutoWired declares an auto-wired field.
func AutoWired[T any](opts ...FieldOption) Field[T] {
	return Field[T]{decl: newDeclaration(opts)}
}

// Provided declares a field whose value must be supplied with Provide
// before Init.
func Provided[T any]() Field[T] {
	return Field[T]{decl: &declaration{provided: true}}
}

// Value declares a provided field already holding v.
func Value[T any](v T) Field[T] {
	f := Provided[T]()
	f.Provide(v)
	return f
}

// Cached declares a field computed by fn on first Get and cached. With
// ThreadLocal the value is cached per local scope; with Transient fn runs
// on every Get.
func Cached[T any](fn func(ctx context.Context, c *Context) (T, error), opts ...FieldOption) Field[T] {
	d := newDeclaration(opts)
	d.compute = func(ctx context.Context, c *Context) (any, error) {
		return fn(ctx, c)
	}
	return Field[T]{decl: d}
}

// Get returns the field's value, resolving it if needed.
func (f *Field[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if f.state == nil {
		return zero, ErrFieldUnbound
	}

	v, err := f.state.get(ctx)
	if err != nil {
		return zero, err
	}
	return as[T](v)
}

// MustGet is like Get but panics on error.
func (f *Field[T]) MustGet(ctx context.Context) T {
	v, err := f.Get(ctx)
	if err != nil {
		panic(err)
	}
	return v
}

// Provide sets the field's value. It may be called before or after Init
// and replaces any value resolved so far.
func (f *Field[T]) Provide(v T) {
	if f.state == nil {
		f.state = newFieldState(reflect.TypeFor[T]())
	}
	f.state.provide(v)
}

// Resolved reports whether the field holds a cached value.
func (f *Field[T]) Resolved() bool {
	return f.State() == Resolved
}

// State returns the field's resolution state. Thread-local and transient
// fields stay Unresolved unless a value is provided.
func (f *Field[T]) State() FieldState {
	if f.state == nil {
		return Unresolved
	}
	return FieldState(f.state.status.Load())
}

// lookup lets selectors read a field reached through a nested struct.
func (f *Field[T]) lookup(ctx context.Context) (any, error) {
	if f.state == nil {
		return nil, ErrFieldUnbound
	}
	return f.state.get(ctx)
}

// fieldFlags are the options accepted in a field's autowire tag.
var fieldFlags = []string{"eager", "transient", "thread_local", "provided"}

func (f *Field[T]) bind(owner *Context, sf reflect.StructField) (*fieldState, error) {
	tag := reflection.ParseTag(sf.Tag.Get(reflection.TagKey))
	if tag.Skip {
		return nil, nil
	}

	for _, flag := range tag.Flags() {
		if !slices.Contains(fieldFlags, flag) {
			return nil, IllegalContextError{Type: owner.typ, Reason: fmt.Sprintf("field %s has unknown option %q", sf.Name, flag)}
		}
	}

	d := f.decl
	if d == nil {
		d = &declaration{}
	}
	d.eager = d.eager || tag.Has("eager")
	d.transient = d.transient || tag.Has("transient")
	d.threadLocal = d.threadLocal || tag.Has("thread_local")
	d.provided = d.provided || tag.Has("provided")

	switch {
	case d.transient && d.threadLocal:
		return nil, IllegalContextError{Type: owner.typ, Reason: fmt.Sprintf("field %s cannot be both transient and thread-local", sf.Name)}
	case d.provided && (d.eager || d.transient || d.threadLocal || d.compute != nil):
		return nil, IllegalContextError{Type: owner.typ, Reason: fmt.Sprintf("provided field %s cannot be auto-wired", sf.Name)}
	}

	name := tag.Name
	if name == "" {
		name = strings.TrimPrefix(reflection.SnakeCase(sf.Name), "_")
	}

	s := f.state
	if s == nil {
		s = newFieldState(reflect.TypeFor[T]())
	}
	s.owner = owner
	s.goName = sf.Name
	s.name = name
	s.decl = d

	f.decl, f.state = d, s
	return s, nil
}

// binder is implemented by *Field[T] for every T.
type binder interface {
	bind(owner *Context, sf reflect.StructField) (*fieldState, error)
}

// lazy is implemented by *Field[T] for every T.
type lazy interface {
	lookup(ctx context.Context) (any, error)
}

var (
	_ binder = (*Field[any])(nil)
	_ lazy   = (*Field[any])(nil)
)

// fieldState is the per-instance storage of a bound field.
type fieldState struct {
	owner  *Context
	goName string
	name   string
	typ    reflect.Type
	decl   *declaration

	// mu serializes resolution of the shared value and guards locals.
	mu     sync.Mutex
	status atomic.Int32
	value  atomic.Pointer[cell]
	locals map[uuid.UUID]*localSlot
}

type cell struct {
	v any
}

// localSlot is the value of a thread-local field within one local scope.
type localSlot struct {
	mu    sync.Mutex
	done  bool
	value any
}

func newFieldState(t reflect.Type) *fieldState {
	return &fieldState{
		typ:    t,
		decl:   &declaration{},
		locals: make(map[uuid.UUID]*localSlot),
	}
}

func (s *fieldState) label() string {
	if s.owner == nil {
		return s.goName
	}
	return formatType(s.owner.typ) + "." + s.goName
}

func (s *fieldState) provide(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value.Store(&cell{v: v})
	s.status.Store(int32(Resolved))
}

func (s *fieldState) get(ctx context.Context) (any, error) {
	if c := s.value.Load(); c != nil {
		return c.v, nil
	}
	if s.owner == nil {
		return nil, ErrFieldUnbound
	}
	if s.decl.provided {
		return nil, NotProvidedError{Context: s.owner.typ, Field: s.goName}
	}

	// A field reached again through its own construction is a cycle;
	// failing here keeps the field lock from deadlocking.
	ctx, err := enter(ctx, s, s.label())
	if err != nil {
		return nil, err
	}

	switch {
	case s.decl.transient:
		return s.compute(ctx)
	case s.decl.threadLocal:
		return s.local(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.value.Load(); c != nil {
		return c.v, nil
	}

	s.status.Store(int32(Resolving))
	v, err := s.compute(ctx)
	if err != nil {
		s.status.Store(int32(Unresolved))
		return nil, err
	}
	s.value.Store(&cell{v: v})
	s.status.Store(int32(Resolved))

	s.owner.logger().Debug("context field resolved", "field", s.label())
	return v, nil
}

func (s *fieldState) local(ctx context.Context) (any, error) {
	id := LocalID(ctx)

	s.mu.Lock()
	slot, ok := s.locals[id]
	if !ok {
		slot = &localSlot{}
		s.locals[id] = slot
	}
	s.mu.Unlock()

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.done {
		return slot.value, nil
	}
	v, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	slot.value, slot.done = v, true

	s.owner.logger().Debug("context field resolved", "field", s.label(), "local", id)
	return v, nil
}

func (s *fieldState) release(id uuid.UUID) {
	s.mu.Lock()
	delete(s.locals, id)
	s.mu.Unlock()
}

func (s *fieldState) compute(ctx context.Context) (any, error) {
	if s.decl.compute != nil {
		return s.decl.compute(ctx, s.owner)
	}
	if reflection.IsUntyped(s.typ) {
		return nil, MissingTypeAnnotationError{Owner: formatType(s.owner.typ), Name: s.goName}
	}

	args, err := s.args(ctx)
	if err != nil {
		return nil, err
	}
	return s.owner.Autowire(ctx, s.typ, args)
}

// args merges factory and literal arguments and evaluates selectors.
func (s *fieldState) args(ctx context.Context) (Args, error) {
	args := make(Args)
	if s.decl.argsFactory != nil {
		produced, err := s.decl.argsFactory(ctx, s.owner)
		if err != nil {
			return nil, err
		}
		for k, v := range produced {
			args[k] = v
		}
	}
	for k, v := range s.decl.args {
		args[k] = v
	}

	for k, v := range args {
		sel, ok := v.(Selector)
		if !ok {
			continue
		}
		selected, err := sel.Select(ctx, s.owner)
		if err != nil {
			return nil, err
		}
		args[k] = selected
	}
	return args, nil
}
