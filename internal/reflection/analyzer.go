package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrNoInitializer is returned for types that have neither a registered
	// constructor nor a struct layout that can be populated.
	ErrNoInitializer = errors.New("type has no initializer")

	// ErrNotConstructor is returned when registering something that is not
	// a function returning a value and an optional error.
	ErrNotConstructor = errors.New("constructor must be a function returning a value and an optional error")

	// ErrParameterCount is returned when the number of parameter specs
	// does not match the constructor's arity.
	ErrParameterCount = errors.New("parameter specs do not match constructor arity")

	// ErrTypeMismatch is returned when a value cannot be used as another type.
	ErrTypeMismatch = errors.New("type mismatch")
)

var errType = reflect.TypeFor[error]()

// Parameter describes one input of a type's initializer.
type Parameter struct {
	// Name is used to break ties between equally typed candidates.
	Name string

	// Type is the declared type, nil when it cannot be determined.
	Type reflect.Type

	// Required is false when the initializer has a default for it.
	Required bool
}

// Signature is the initializer of a type as seen by the container.
type Signature struct {
	// Target is the type Build produces.
	Target reflect.Type

	// Origin is the type that declares the initializer. It differs from
	// Target when the initializer is inherited from an embedded type.
	Origin reflect.Type

	// Params are the initializer inputs in declaration order.
	Params []Parameter

	// Build constructs a Target from the resolved arguments, keyed by
	// parameter name. Optional parameters may be absent.
	Build func(args map[string]reflect.Value) (reflect.Value, error)
}

// Reflector derives signatures through reflection. Types with a registered
// constructor use it; other structs are populated field by field.
// A Reflector is safe for concurrent use.
type Reflector struct {
	mu    sync.RWMutex
	ctors map[reflect.Type]*constructor
	cache map[reflect.Type]*Signature
}

// New creates a new Reflector.
func New() *Reflector {
	return &Reflector{
		ctors: make(map[reflect.Type]*constructor),
		cache: make(map[reflect.Type]*Signature),
	}
}

// Register records fn as the constructor of its first return type.
//
// Each entry names one parameter, optionally followed by ",optional". When no
// specs are given every parameter is required and named after its type.
func (r *Reflector) Register(fn any, specs ...string) error {
	ctor, err := newConstructor(fn, specs)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ctors[ctor.out] = ctor
	// Inherited signatures may now resolve differently.
	clear(r.cache)
	return nil
}

// Signature returns the initializer signature of t.
func (r *Reflector) Signature(t reflect.Type) (*Signature, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrNoInitializer)
	}

	r.mu.RLock()
	if cached, ok := r.cache[t]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	sig, err := r.signature(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[t] = sig
	r.mu.Unlock()

	return sig, nil
}

// CacheSize returns the number of cached signatures.
func (r *Reflector) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Reflector) signature(t reflect.Type) (*Signature, error) {
	origin, err := r.nearest(t)
	if err != nil {
		return nil, err
	}

	build := origin.Build
	return &Signature{
		Target: t,
		Origin: origin.Origin,
		Params: origin.Params,
		Build: func(args map[string]reflect.Value) (reflect.Value, error) {
			v, err := build(args)
			if err != nil {
				return reflect.Value{}, err
			}
			return adapt(v, t)
		},
	}, nil
}

// nearest finds the closest initializer for t: a registered constructor
// for t or *t, then the struct's own fields, then the initializer of its
// single embedded base when the struct declares nothing of its own.
func (r *Reflector) nearest(t reflect.Type) (*Signature, error) {
	if ctor := r.constructorFor(t); ctor != nil {
		return ctor.signature(), nil
	}

	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	for _, alt := range []reflect.Type{base, reflect.PointerTo(base)} {
		if ctor := r.constructorFor(alt); ctor != nil {
			return ctor.signature(), nil
		}
	}

	if base.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNoInitializer, t)
	}

	fields := injectableFields(base)
	if parent, ok := embeddedBase(fields); ok {
		inherited, err := r.nearest(parent.Type)
		if err != nil {
			return nil, err
		}
		return inheritedSignature(base, parent, inherited), nil
	}

	return structSignature(base, fields)
}

func (r *Reflector) constructorFor(t reflect.Type) *constructor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ctors[t]
}

// injectableFields lists the exported fields of a struct not tagged "-".
func injectableFields(t reflect.Type) []reflect.StructField {
	fields := make([]reflect.StructField, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if ParseTag(f.Tag.Get(TagKey)).Skip {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// embeddedBase reports the only field when a struct consists of a single
// embedded struct, which then acts as the base type. Tagging the embedded
// field with "inject" turns it back into an ordinary parameter.
func embeddedBase(fields []reflect.StructField) (reflect.StructField, bool) {
	if len(fields) != 1 || !fields[0].Anonymous {
		return reflect.StructField{}, false
	}
	if ParseTag(fields[0].Tag.Get(TagKey)).Has("inject") {
		return reflect.StructField{}, false
	}

	ft := fields[0].Type
	if ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
	}
	if ft.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}
	return fields[0], true
}

func implementsError(t reflect.Type) bool {
	return t.Implements(errType)
}
