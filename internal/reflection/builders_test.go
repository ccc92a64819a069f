package reflection_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/junioryono/autowire/internal/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Settings struct {
	Name    string        `default:"svc"`
	Enabled bool          `default:"true"`
	Retries int           `default:"3"`
	Port    uint16        `default:"0x1F90"`
	Ratio   float64       `default:"0.5"`
	Timeout time.Duration `default:"1m30s"`
}

type BadDefault struct {
	Retries int `default:"many"`
}

type UnsupportedDefault struct {
	Tags []string `default:"a,b"`
}

type Plugin interface {
	Name() string
}

type PluginA struct{}

func (*PluginA) Name() string { return "a" }

type Plugins struct {
	All []Plugin
}

func TestStructDefaults(t *testing.T) {
	r := reflection.New()
	sig, err := r.Signature(reflect.TypeFor[Settings]())
	require.NoError(t, err)

	for _, p := range sig.Params {
		assert.False(t, p.Required, p.Name)
	}

	v, err := sig.Build(map[string]reflect.Value{})
	require.NoError(t, err)

	assert.Equal(t, Settings{
		Name:    "svc",
		Enabled: true,
		Retries: 3,
		Port:    8080,
		Ratio:   0.5,
		Timeout: 90 * time.Second,
	}, v.Interface())
}

func TestStructDefaults_ExplicitArgumentWins(t *testing.T) {
	r := reflection.New()
	sig, err := r.Signature(reflect.TypeFor[*Settings]())
	require.NoError(t, err)

	v, err := sig.Build(map[string]reflect.Value{"name": reflect.ValueOf("override")})
	require.NoError(t, err)
	assert.Equal(t, "override", v.Interface().(*Settings).Name)
}

func TestStructDefaults_Invalid(t *testing.T) {
	r := reflection.New()

	_, err := r.Signature(reflect.TypeFor[BadDefault]())
	assert.Error(t, err)

	_, err = r.Signature(reflect.TypeFor[UnsupportedDefault]())
	assert.ErrorIs(t, err, reflection.ErrTypeMismatch)
}

func TestStructBuild_CovariantSlice(t *testing.T) {
	r := reflection.New()
	sig, err := r.Signature(reflect.TypeFor[*Plugins]())
	require.NoError(t, err)

	a := &PluginA{}
	v, err := sig.Build(map[string]reflect.Value{
		"all": reflect.ValueOf([]*PluginA{a}),
	})
	require.NoError(t, err)

	plugins := v.Interface().(*Plugins)
	require.Len(t, plugins.All, 1)
	assert.Same(t, a, plugins.All[0])
}

func TestStructBuild_TypeMismatch(t *testing.T) {
	r := reflection.New()
	sig, err := r.Signature(reflect.TypeFor[*Plugins]())
	require.NoError(t, err)

	_, err = sig.Build(map[string]reflect.Value{"all": reflect.ValueOf(42)})
	assert.ErrorIs(t, err, reflection.ErrTypeMismatch)
}

func TestConstructorBuild_DefaultNames(t *testing.T) {
	r := reflection.New()
	require.NoError(t, r.Register(func(db *Database, l Logger, v any) *UserService {
		return &UserService{DB: db, Logger: l, Extra: v}
	}))

	sig, err := r.Signature(reflect.TypeFor[*UserService]())
	require.NoError(t, err)
	require.Len(t, sig.Params, 3)

	assert.Equal(t, "database", sig.Params[0].Name)
	assert.Equal(t, "logger", sig.Params[1].Name)
	assert.Nil(t, sig.Params[2].Type)

	logger := &ConsoleLogger{}
	v, err := sig.Build(map[string]reflect.Value{"logger": reflect.ValueOf(logger)})
	require.NoError(t, err)

	svc := v.Interface().(*UserService)
	assert.Nil(t, svc.DB)
	assert.Same(t, logger, svc.Logger)
}
