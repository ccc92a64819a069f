package autowire

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type errorsTestService struct{}

func TestSentinelErrors(t *testing.T) {
	sentinelErrors := []struct {
		err     error
		message string
	}{
		{ErrNilInstance, "instance cannot be nil"},
		{ErrNilProvider, "provider cannot be nil"},
		{ErrFixedSequence, "fixed-length sequences cannot be resolved collectively"},
		{ErrUnknownArgument, "unknown argument"},
		{ErrContextNotInitialized, "context has not been initialized"},
		{ErrFieldUnbound, "field is not bound to an initialized context"},
		{ErrNoSuchAttribute, "no such attribute"},
	}

	for _, tt := range sentinelErrors {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestTypedErrors(t *testing.T) {
	svc := reflect.TypeFor[*errorsTestService]()
	dep := Dependency{Name: "service", Type: svc, Required: true}

	tests := []struct {
		name    string
		err     error
		message string
		cause   error
	}{
		{
			name:    "missing type",
			err:     MissingTypeAnnotationError{Owner: "App", Name: "Anything"},
			message: "cannot determine type of App.Anything",
		},
		{
			name:    "missing type without owner",
			err:     MissingTypeAnnotationError{Name: "supplier func() interface {}"},
			message: "cannot determine type of supplier func() interface {}",
		},
		{
			name:    "illegal type",
			err:     IllegalAutoWireTypeError{Type: reflect.TypeFor[string]()},
			message: "cannot auto-wire object of type string",
		},
		{
			name:    "illegal type with cause",
			err:     IllegalAutoWireTypeError{Type: svc, Cause: ErrFixedSequence},
			message: "cannot auto-wire object of type *errorsTestService: fixed-length sequences cannot be resolved collectively",
			cause:   ErrFixedSequence,
		},
		{
			name:    "ambiguous",
			err:     AmbiguousDependencyError{Dependency: dep, Candidates: []string{"a", "b"}},
			message: "failed to resolve dependency service of type *errorsTestService: multiple candidates found: [a, b]",
		},
		{
			name:    "unresolvable",
			err:     UnresolvableDependencyError{Dependency: dep, Target: reflect.TypeFor[errorsTestService](), Cause: ErrNilInstance},
			message: "failed to resolve dependency service of type *errorsTestService for errorsTestService: instance cannot be nil",
			cause:   ErrNilInstance,
		},
		{
			name:    "instantiation",
			err:     InstantiationError{Type: svc, Cause: ErrUnknownArgument},
			message: "failed to initialize *errorsTestService: unknown argument",
			cause:   ErrUnknownArgument,
		},
		{
			name:    "panic with error",
			err:     PanicError{Value: ErrNilProvider},
			message: "initializer panicked: provider cannot be nil",
			cause:   ErrNilProvider,
		},
		{
			name:    "panic with value",
			err:     PanicError{Value: 42},
			message: "initializer panicked: 42",
		},
		{
			name:    "not provided",
			err:     NotProvidedError{Context: reflect.TypeFor[errorsTestService](), Field: "Config"},
			message: "field errorsTestService.Config is marked as provided but is not initialized",
		},
		{
			name:    "illegal context",
			err:     IllegalContextError{Type: svc, Reason: "target must embed autowire.Context"},
			message: "illegal context *errorsTestService: target must embed autowire.Context",
		},
		{
			name:    "circular",
			err:     CircularDependencyError{Chain: []string{"*A", "*B", "*A"}},
			message: "circular dependency detected: *A -> *B -> *A",
		},
		{
			name:    "selector",
			err:     SelectorError{Path: "Config.DSN", Cause: ErrNoSuchAttribute},
			message: "cannot select Config.DSN: no such attribute",
			cause:   ErrNoSuchAttribute,
		},
		{
			name:    "module",
			err:     ModuleError{Module: "app", Cause: ErrNilInstance},
			message: `module "app": instance cannot be nil`,
			cause:   ErrNilInstance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			if tt.cause != nil {
				assert.ErrorIs(t, tt.err, tt.cause)
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	ambiguous := fmt.Errorf("wrapped: %w", AmbiguousDependencyError{})
	unresolvable := InstantiationError{Cause: UnresolvableDependencyError{Cause: ambiguous}}
	notProvided := SelectorError{Cause: NotProvidedError{}}
	circular := ModuleError{Cause: CircularDependencyError{}}

	assert.True(t, IsAmbiguous(ambiguous))
	assert.True(t, IsAmbiguous(unresolvable))
	assert.True(t, IsUnresolvable(unresolvable))
	assert.False(t, IsUnresolvable(ambiguous))
	assert.True(t, IsNotProvided(notProvided))
	assert.True(t, IsCircular(circular))

	assert.False(t, IsAmbiguous(nil))
	assert.False(t, IsCircular(errors.New("other")))
}

func TestFormatType(t *testing.T) {
	tests := []struct {
		typ  reflect.Type
		want string
	}{
		{nil, "<nil>"},
		{reflect.TypeFor[errorsTestService](), "errorsTestService"},
		{reflect.TypeFor[*errorsTestService](), "*errorsTestService"},
		{reflect.TypeFor[*int](), "*int"},
		{reflect.TypeFor[string](), "string"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatType(tt.typ))
	}
}
