package testutil

import (
	"context"
	"testing"

	"github.com/junioryono/autowire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// AssertResolvable checks if T can be resolved
func AssertResolvable[T any](t *testing.T, r autowire.Resolver) T {
	t.Helper()
	v, err := autowire.Resolve[T](context.Background(), r)
	require.NoError(t, err, "failed to resolve %T", *new(T))
	return v
}

// AssertResolvableNamed checks if T can be resolved by name
func AssertResolvableNamed[T any](t *testing.T, r autowire.Resolver, name string) T {
	t.Helper()
	v, err := autowire.ResolveNamed[T](context.Background(), r, name)
	require.NoError(t, err, "failed to resolve %T named %q", *new(T), name)
	return v
}

// AssertErrorType checks if an error is of a specific type
func AssertErrorType[T error](t *testing.T, err error, msgAndArgs ...any) T {
	t.Helper()
	var target T
	assert.ErrorAs(t, err, &target, msgAndArgs...)
	return target
}

// AssertAmbiguous checks if an error is an ambiguous dependency error
func AssertAmbiguous(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, autowire.IsAmbiguous(err), "expected ambiguous dependency error, got: %v", err)
}

// AssertUnresolvable checks if an error is an unresolvable dependency error
func AssertUnresolvable(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, autowire.IsUnresolvable(err), "expected unresolvable dependency error, got: %v", err)
}

// AssertCircular checks if an error is a circular dependency error
func AssertCircular(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, autowire.IsCircular(err), "expected circular dependency error, got: %v", err)
}

// AssertNotProvided checks if an error is a not provided error
func AssertNotProvided(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, autowire.IsNotProvided(err), "expected not provided error, got: %v", err)
}

// AssertSameInstance verifies two values are the same instance
func AssertSameInstance(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	assert.Same(t, expected, actual, msgAndArgs...)
}

// AssertDifferentInstances verifies two values are different instances
func AssertDifferentInstances(t *testing.T, first, second any, msgAndArgs ...any) {
	t.Helper()
	assert.NotSame(t, first, second, msgAndArgs...)
}

// RunConcurrently runs fn n times in parallel and fails on the first error.
func RunConcurrently(t *testing.T, n int, fn func(i int) error) {
	t.Helper()
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			return fn(i)
		})
	}
	require.NoError(t, g.Wait())
}

// CollectConcurrently runs fn n times in parallel and returns the results
// in call order.
func CollectConcurrently[T any](t *testing.T, n int, fn func(i int) (T, error)) []T {
	t.Helper()
	out := make([]T, n)
	RunConcurrently(t, n, func(i int) error {
		v, err := fn(i)
		out[i] = v
		return err
	})
	return out
}
