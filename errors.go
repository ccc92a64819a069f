package autowire

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================

var (
	// Provider errors.
	ErrNilInstance     = errors.New("instance cannot be nil")
	ErrInvalidSupplier = errors.New("supplier must be a function without parameters returning a value and an optional error")
	ErrNilProvider     = errors.New("provider cannot be nil")

	// Resolution errors.
	ErrFixedSequence   = errors.New("fixed-length sequences cannot be resolved collectively")
	ErrUnknownArgument = errors.New("unknown argument")

	// Context errors.
	ErrContextNotInitialized = errors.New("context has not been initialized")
	ErrFieldUnbound          = errors.New("field is not bound to an initialized context")
	ErrNoSuchAttribute       = errors.New("no such attribute")
)

var (
	_ error = MissingTypeAnnotationError{}
	_ error = IllegalAutoWireTypeError{}
	_ error = AmbiguousDependencyError{}
	_ error = UnresolvableDependencyError{}
	_ error = InstantiationError{}
	_ error = NotProvidedError{}
	_ error = IllegalContextError{}
	_ error = CircularDependencyError{}
	_ error = PanicError{}
	_ error = SelectorError{}
	_ error = ModuleError{}
)

// ========================================
// Typed Errors
// ========================================

// MissingTypeAnnotationError indicates that a field, parameter or supplier
// has no determinable type.
type MissingTypeAnnotationError struct {
	Owner string
	Name  string
}

func (e MissingTypeAnnotationError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("cannot determine type of %s", e.Name)
	}
	return fmt.Sprintf("cannot determine type of %s.%s", e.Owner, e.Name)
}

// IllegalAutoWireTypeError indicates an attempt to auto-construct a type
// that must never be auto-wired, such as a predeclared type or an interface.
type IllegalAutoWireTypeError struct {
	Type  reflect.Type
	Cause error
}

func (e IllegalAutoWireTypeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot auto-wire object of type %s: %v", formatType(e.Type), e.Cause)
	}
	return fmt.Sprintf("cannot auto-wire object of type %s", formatType(e.Type))
}

func (e IllegalAutoWireTypeError) Unwrap() error {
	return e.Cause
}

// AmbiguousDependencyError indicates that several providers satisfy a
// dependency and none of them is named after it.
type AmbiguousDependencyError struct {
	Dependency Dependency
	Candidates []string
}

func (e AmbiguousDependencyError) Error() string {
	return fmt.Sprintf("failed to resolve dependency %s of type %s: multiple candidates found: [%s]",
		e.Dependency.Name, formatType(e.Dependency.Type), strings.Join(e.Candidates, ", "))
}

// UnresolvableDependencyError indicates that a required initializer
// parameter of Target could not be satisfied.
type UnresolvableDependencyError struct {
	Dependency Dependency
	Target     reflect.Type
	Cause      error
}

func (e UnresolvableDependencyError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("failed to resolve dependency %s of type %s", e.Dependency.Name, formatType(e.Dependency.Type)))
	if e.Target != nil {
		b.WriteString(fmt.Sprintf(" for %s", formatType(e.Target)))
	}
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}
	return b.String()
}

func (e UnresolvableDependencyError) Unwrap() error {
	return e.Cause
}

// InstantiationError indicates that the initializer of Type failed.
type InstantiationError struct {
	Type  reflect.Type
	Cause error
}

func (e InstantiationError) Error() string {
	return fmt.Sprintf("failed to initialize %s: %v", formatType(e.Type), e.Cause)
}

func (e InstantiationError) Unwrap() error {
	return e.Cause
}

// PanicError carries a panic raised by an initializer.
type PanicError struct {
	Value any
	Stack []byte
}

func (e PanicError) Error() string {
	return fmt.Sprintf("initializer panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// NotProvidedError indicates that a provided field was read, or checked at
// initialization, before a value was assigned.
type NotProvidedError struct {
	Context reflect.Type
	Field   string
}

func (e NotProvidedError) Error() string {
	return fmt.Sprintf("field %s.%s is marked as provided but is not initialized", formatType(e.Context), e.Field)
}

// IllegalContextError indicates structural misuse of a context type.
type IllegalContextError struct {
	Type   reflect.Type
	Reason string
}

func (e IllegalContextError) Error() string {
	return fmt.Sprintf("illegal context %s: %s", formatType(e.Type), e.Reason)
}

// CircularDependencyError indicates that a resolution re-entered itself.
type CircularDependencyError struct {
	Chain []string
}

func (e CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Chain, " -> "))
}

// SelectorError indicates that a value selector could not be evaluated.
type SelectorError struct {
	Path  string
	Cause error
}

func (e SelectorError) Error() string {
	return fmt.Sprintf("cannot select %s: %v", e.Path, e.Cause)
}

func (e SelectorError) Unwrap() error {
	return e.Cause
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// IsAmbiguous reports whether err contains an AmbiguousDependencyError.
func IsAmbiguous(err error) bool {
	var target AmbiguousDependencyError
	return errors.As(err, &target)
}

// IsUnresolvable reports whether err contains an UnresolvableDependencyError.
func IsUnresolvable(err error) bool {
	var target UnresolvableDependencyError
	return errors.As(err, &target)
}

// IsNotProvided reports whether err contains a NotProvidedError.
func IsNotProvided(err error) bool {
	var target NotProvidedError
	return errors.As(err, &target)
}

// IsCircular reports whether err contains a CircularDependencyError.
func IsCircular(err error) bool {
	var target CircularDependencyError
	return errors.As(err, &target)
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
