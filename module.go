package autowire

import (
	"reflect"
)

// ModuleOption represents a registration action within a module.
type ModuleOption func(*Container) error

// NewModule creates a new module with the given name and registrations.
// Modules group the components of a package so they can be added to a
// container in one call.
//
// Example:
//
//	var StorageModule = autowire.NewModule("storage",
//	    autowire.Component[*Database](),
//	    autowire.Component[*UserRepository](),
//	)
//
//	var AppModule = autowire.NewModule("app",
//	    StorageModule,
//	    autowire.Component[*RequestLog](autowire.AsTransient()),
//	    autowire.Component[*Mailer](autowire.WithName("mailer")),
//	)
//
//	err := c.Scan(AppModule)
func NewModule(name string, opts ...ModuleOption) ModuleOption {
	return func(c *Container) error {
		for _, opt := range opts {
			if opt == nil {
				continue
			}

			if err := opt(c); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// Component registers T to be auto-wired on first resolution and cached,
// or rebuilt on every resolution with AsTransient.
func Component[T any](opts ...ProviderOption) ModuleOption {
	return func(c *Container) error {
		t := reflect.TypeFor[T]()
		if c.denies(t) {
			return IllegalAutoWireTypeError{Type: t}
		}
		return c.Add(FromType(t, c, false, opts...))
	}
}

// Instance registers v as a singleton.
func Instance(v any, opts ...ProviderOption) ModuleOption {
	return func(c *Container) error {
		p, err := FromInstance(v, opts...)
		if err != nil {
			return err
		}
		return c.Add(p)
	}
}

// Supply registers fn as a supplier called on every access. See
// FromSupplier.
func Supply(fn any, opts ...ProviderOption) ModuleOption {
	return func(c *Container) error {
		p, err := FromSupplier(fn, opts...)
		if err != nil {
			return err
		}
		return c.Add(p)
	}
}

// Constructor registers fn as the initializer of its first return type.
// See Container.RegisterConstructor.
func Constructor(fn any, params ...string) ModuleOption {
	return func(c *Container) error {
		return c.RegisterConstructor(fn, params...)
	}
}

// Scan applies modules to c in order, stopping at the first error.
func (c *Container) Scan(modules ...ModuleOption) error {
	for _, m := range modules {
		if m == nil {
			continue
		}
		if err := m(c); err != nil {
			return err
		}
	}
	return nil
}
