package autowire

import (
	"fmt"
	"reflect"

	"github.com/junioryono/autowire/internal/reflection"
)

// Dependency describes a request for a value: something assignable to
// Type, preferably named Name when several candidates exist. A dependency
// that is not Required is skipped instead of failing when it cannot be met.
//
// Dependency is a comparable value type.
type Dependency struct {
	Name     string
	Type     reflect.Type
	Required bool
}

// NewDependency returns the required dependency on t, named after t in
// snake_case (pointers are named after their element type).
func NewDependency(t reflect.Type) Dependency {
	return Dependency{
		Name:     reflection.DefaultName(t),
		Type:     t,
		Required: true,
	}
}

// DependencyFor is the generic form of NewDependency.
func DependencyFor[T any]() Dependency {
	return NewDependency(reflect.TypeFor[T]())
}

// Named returns a copy of d with its name replaced.
func (d Dependency) Named(name string) Dependency {
	d.Name = name
	return d
}

// Optional returns a copy of d that is not required.
func (d Dependency) Optional() Dependency {
	d.Required = false
	return d
}

func (d Dependency) String() string {
	return fmt.Sprintf("%s %s", d.Name, formatType(d.Type))
}
