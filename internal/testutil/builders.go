package testutil

import (
	"testing"

	"github.com/junioryono/autowire"
	"github.com/stretchr/testify/require"
)

// ContainerBuilder provides a fluent interface for building test containers
type ContainerBuilder struct {
	t *testing.T
	c *autowire.Container
}

// NewContainerBuilder creates a new ContainerBuilder
func NewContainerBuilder(t *testing.T, opts ...autowire.Option) *ContainerBuilder {
	return &ContainerBuilder{
		t: t,
		c: autowire.New(opts...),
	}
}

// WithInstance adds a singleton instance to the container
func (b *ContainerBuilder) WithInstance(v any, opts ...autowire.ProviderOption) *ContainerBuilder {
	p, err := autowire.FromInstance(v, opts...)
	require.NoError(b.t, err)
	require.NoError(b.t, b.c.Add(p))
	return b
}

// WithSupplier adds a supplier to the container
func (b *ContainerBuilder) WithSupplier(fn any, opts ...autowire.ProviderOption) *ContainerBuilder {
	p, err := autowire.FromSupplier(fn, opts...)
	require.NoError(b.t, err)
	require.NoError(b.t, b.c.Add(p))
	return b
}

// WithProvider adds a provider to the container
func (b *ContainerBuilder) WithProvider(p autowire.Provider) *ContainerBuilder {
	require.NoError(b.t, b.c.Add(p))
	return b
}

// WithConstructor registers a constructor with the container
func (b *ContainerBuilder) WithConstructor(fn any, params ...string) *ContainerBuilder {
	require.NoError(b.t, b.c.RegisterConstructor(fn, params...))
	return b
}

// WithModule scans a module into the container
func (b *ContainerBuilder) WithModule(module autowire.ModuleOption) *ContainerBuilder {
	require.NoError(b.t, b.c.Scan(module))
	return b
}

// Build returns the built container
func (b *ContainerBuilder) Build() *autowire.Container {
	return b.c
}
