package reflection_test

import (
	"reflect"
	"testing"

	"github.com/junioryono/autowire/internal/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Generic[T any] struct {
	Value T
}

type PluginB struct{}

func (PluginB) Name() string { return "b" }

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Service0", "service0"},
		{"UserService", "user_service"},
		{"userService", "user_service"},
		{"Service1A", "service1_a"},
		{"HTTPServer", "httpserver"},
		{"already_snake", "already_snake"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, reflection.SnakeCase(tt.in))
		})
	}
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "Database", reflection.TypeName(reflect.TypeFor[*Database]()))
	assert.Equal(t, "Database", reflection.TypeName(reflect.TypeFor[**Database]()))
	assert.Equal(t, "Generic", reflection.TypeName(reflect.TypeFor[Generic[int]]()))
	assert.Equal(t, "", reflection.TypeName(reflect.TypeFor[[]int]()))
	assert.Equal(t, "", reflection.TypeName(nil))

	assert.Equal(t, "console_logger", reflection.DefaultName(reflect.TypeFor[*ConsoleLogger]()))
}

func TestIsUntyped(t *testing.T) {
	assert.True(t, reflection.IsUntyped(nil))
	assert.True(t, reflection.IsUntyped(reflect.TypeFor[any]()))
	assert.False(t, reflection.IsUntyped(reflect.TypeFor[Logger]()))
	assert.False(t, reflection.IsUntyped(reflect.TypeFor[string]()))
}

func TestParseTag(t *testing.T) {
	tag := reflection.ParseTag("eager, name=primary ,thread_local")
	assert.Equal(t, "primary", tag.Name)
	assert.True(t, tag.Has("eager"))
	assert.True(t, tag.Has("thread_local"))
	assert.False(t, tag.Has("transient"))
	assert.False(t, tag.Skip)
	assert.ElementsMatch(t, []string{"eager", "thread_local"}, tag.Flags())

	assert.True(t, reflection.ParseTag("-").Skip)
	assert.Empty(t, reflection.ParseTag("").Flags())
}

func TestAssignable(t *testing.T) {
	plugin := reflect.TypeFor[Plugin]()

	tests := []struct {
		name      string
		candidate reflect.Type
		requested reflect.Type
		want      bool
	}{
		{"identical", reflect.TypeFor[*PluginA](), reflect.TypeFor[*PluginA](), true},
		{"implements interface", reflect.TypeFor[*PluginA](), plugin, true},
		{"value receiver", reflect.TypeFor[PluginB](), plugin, true},
		{"pointer method set only", reflect.TypeFor[PluginA](), plugin, false},
		{"any accepts all", reflect.TypeFor[int](), reflect.TypeFor[any](), true},
		{"covariant slice", reflect.TypeFor[[]*PluginA](), reflect.TypeFor[[]Plugin](), true},
		{"contravariant slice", reflect.TypeFor[[]Plugin](), reflect.TypeFor[[]*PluginA](), false},
		{"covariant array", reflect.TypeFor[[2]*PluginA](), reflect.TypeFor[[2]Plugin](), true},
		{"array length differs", reflect.TypeFor[[1]*PluginA](), reflect.TypeFor[[2]Plugin](), false},
		{"covariant map", reflect.TypeFor[map[string]*PluginA](), reflect.TypeFor[map[string]Plugin](), true},
		{"map key differs", reflect.TypeFor[map[int]*PluginA](), reflect.TypeFor[map[string]Plugin](), false},
		{"unrelated", reflect.TypeFor[*Database](), plugin, false},
		{"nil candidate", nil, plugin, false},
		{"nil request", plugin, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reflection.Assignable(tt.candidate, tt.requested))
		})
	}
}

func TestCoerce(t *testing.T) {
	a := &PluginA{}

	v, err := reflection.Coerce([]*PluginA{a}, reflect.TypeFor[[]Plugin]())
	require.NoError(t, err)
	assert.Equal(t, []Plugin{a}, v.Interface())

	v, err = reflection.Coerce(map[string]*PluginA{"a": a}, reflect.TypeFor[map[string]Plugin]())
	require.NoError(t, err)
	assert.Equal(t, map[string]Plugin{"a": a}, v.Interface())

	v, err = reflection.Coerce([1]*PluginA{a}, reflect.TypeFor[[1]Plugin]())
	require.NoError(t, err)
	assert.Equal(t, [1]Plugin{a}, v.Interface())

	v, err = reflection.Coerce(nil, reflect.TypeFor[Plugin]())
	require.NoError(t, err)
	assert.True(t, v.IsNil())

	_, err = reflection.Coerce("x", reflect.TypeFor[Plugin]())
	assert.ErrorIs(t, err, reflection.ErrTypeMismatch)
}
