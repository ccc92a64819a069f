package autowire_test

import (
	"context"
	"testing"

	"github.com/junioryono/autowire"
	"github.com/junioryono/autowire/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeContext struct {
	autowire.Context

	Config autowire.Field[*testutil.Config] `autowire:"provided"`
	Store  autowire.Field[*testutil.Store]
}

type nestedContext struct {
	autowire.Context

	Inner autowire.Field[*storeContext] `autowire:"provided"`
	Store autowire.Field[*testutil.Store]
}

func newStoreContext(t *testing.T, sel autowire.Selector) *storeContext {
	t.Helper()

	app := &storeContext{
		Config: autowire.Value(&testutil.Config{
			Database: testutil.DatabaseConfig{DSN: "postgres://db"},
			Port:     5432,
		}),
		Store: autowire.AutoWired[*testutil.Store](autowire.WithArgs(autowire.Args{"dsn": sel})),
	}
	require.NoError(t, autowire.Init(context.Background(), app))
	return app
}

func TestSelector(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		sel     autowire.Selector
		want    string
		wantErr error
	}{
		{
			name: "nested field",
			sel:  autowire.Select("Config", "Database", "DSN"),
			want: "postgres://db",
		},
		{
			name: "getter method",
			sel:  autowire.Select("Config", "Database", "Driver"),
			want: "postgres",
		},
		{
			name: "by provider name",
			sel:  autowire.Select("config", "Database", "DSN"),
			want: "postgres://db",
		},
		{
			name:    "missing attribute",
			sel:     autowire.Select("Config", "Nope"),
			wantErr: autowire.ErrNoSuchAttribute,
		},
		{
			name:    "missing field",
			sel:     autowire.Select("Nope"),
			wantErr: autowire.ErrNoSuchAttribute,
		},
		{
			name:    "attribute of a scalar",
			sel:     autowire.Select("Config", "Port", "Value"),
			wantErr: autowire.ErrNoSuchAttribute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := newStoreContext(t, tt.sel)
			store, err := app.Store.Get(ctx)
			if tt.wantErr != nil {
				selErr := testutil.AssertErrorType[autowire.SelectorError](t, err)
				assert.Equal(t, tt.sel.String(), selErr.Path)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, app.Store.Resolved())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, store.DSN)
		})
	}
}

func TestSelector_EvaluatedOnConstruction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	app := newStoreContext(t, autowire.Select("Config", "Database", "DSN"))

	app.Config.Provide(&testutil.Config{Database: testutil.DatabaseConfig{DSN: "sqlite://replaced"}})
	assert.Equal(t, "sqlite://replaced", app.Store.MustGet(ctx).DSN)
}

func TestSelector_NestedContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := newStoreContext(t, autowire.Select("Config", "Database", "DSN"))

	outer := &nestedContext{
		Inner: autowire.Value(inner),
		Store: autowire.AutoWired[*testutil.Store](autowire.WithArgs(autowire.Args{
			"dsn": autowire.Select("Inner", "Store", "DSN"),
		})),
	}
	require.NoError(t, autowire.Init(ctx, outer))

	assert.Equal(t, "postgres://db", outer.Store.MustGet(ctx).DSN)
	assert.True(t, inner.Store.Resolved())
}

func TestSelector_ArgsFactory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	app := &storeContext{
		Config: autowire.Value(&testutil.Config{Port: 1}),
		Store: autowire.AutoWired[*testutil.Store](
			autowire.WithArgsFactory(func(ctx context.Context, c *autowire.Context) (autowire.Args, error) {
				return autowire.Args{"dsn": "from-factory"}, nil
			}),
		),
	}
	require.NoError(t, autowire.Init(ctx, app))
	assert.Equal(t, "from-factory", app.Store.MustGet(ctx).DSN)

	override := &storeContext{
		Config: autowire.Value(&testutil.Config{Port: 1}),
		Store: autowire.AutoWired[*testutil.Store](
			autowire.WithArgsFactory(func(context.Context, *autowire.Context) (autowire.Args, error) {
				return autowire.Args{"dsn": "from-factory"}, nil
			}),
			autowire.WithArgs(autowire.Args{"dsn": "literal"}),
		),
	}
	require.NoError(t, autowire.Init(ctx, override))
	assert.Equal(t, "literal", override.Store.MustGet(ctx).DSN)

	failing := &storeContext{
		Config: autowire.Value(&testutil.Config{Port: 1}),
		Store: autowire.AutoWired[*testutil.Store](
			autowire.WithArgsFactory(func(context.Context, *autowire.Context) (autowire.Args, error) {
				return nil, testutil.ErrTest
			}),
		),
	}
	require.NoError(t, autowire.Init(ctx, failing))
	_, err := failing.Store.Get(ctx)
	assert.ErrorIs(t, err, testutil.ErrTest)
}

func TestSelector_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Config.Database.DSN", autowire.Select("Config", "Database", "DSN").String())
	assert.Equal(t, "Config", autowire.Select("Config").String())
}
