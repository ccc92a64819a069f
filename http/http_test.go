package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/junioryono/autowire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test types
type requestState struct {
	ID string `autowire:"-"`
}

type greeting struct {
	Text string `default:"hello"`
}

type testController struct {
	Greeting *greeting
}

func (c *testController) Greet(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(c.Greeting.Text))
}

func (c *testController) Panic(w http.ResponseWriter, r *http.Request) {
	panic("test panic")
}

type testApp struct {
	autowire.Context

	State    autowire.Field[*requestState] `autowire:"thread_local"`
	Greeting autowire.Field[*greeting]
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	app := &testApp{}
	require.NoError(t, autowire.Init(context.Background(), app))
	return app
}

func seedRequestID(app Application, r *http.Request) error {
	state, err := autowire.Resolve[*requestState](r.Context(), app)
	if err != nil {
		return err
	}
	state.ID = r.Header.Get("X-Request-ID")
	return nil
}

func writeRequestID(s *requestState, w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.ID))
}

func serve(h http.Handler, id string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLocalMiddleware(t *testing.T) {
	t.Run("attaches application to context", func(t *testing.T) {
		app := newTestApp(t)

		var found Application
		handler := LocalMiddleware(app)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var err error
			found, err = FromContext(r.Context())
			assert.NoError(t, err)
			assert.NotEqual(t, autowire.LocalID(context.Background()), autowire.LocalID(r.Context()))
			w.WriteHeader(http.StatusOK)
		}))

		rec := serve(handler, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Same(t, app, found)
	})

	t.Run("thread-local fields are per request", func(t *testing.T) {
		app := newTestApp(t)

		var mu sync.Mutex
		var seen []*requestState
		handler := LocalMiddleware(app, WithMiddleware(seedRequestID))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := app.State.MustGet(r.Context())
			mu.Lock()
			seen = append(seen, state)
			mu.Unlock()
			w.Write([]byte(state.ID))
		}))

		first := serve(handler, "req-1")
		second := serve(handler, "req-2")

		assert.Equal(t, "req-1", first.Body.String())
		assert.Equal(t, "req-2", second.Body.String())
		require.Len(t, seen, 2)
		assert.NotSame(t, seen[0], seen[1])
	})

	t.Run("middleware error", func(t *testing.T) {
		app := newTestApp(t)

		handler := LocalMiddleware(app,
			WithMiddleware(func(Application, *http.Request) error {
				return errors.New("rejected")
			}),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		rec := serve(handler, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("custom error handler", func(t *testing.T) {
		app := newTestApp(t)

		var handled error
		handler := LocalMiddleware(app,
			WithMiddleware(func(Application, *http.Request) error {
				return errors.New("unauthorized")
			}),
			WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				handled = err
				w.WriteHeader(http.StatusUnauthorized)
			}),
		)(http.NotFoundHandler())

		rec := serve(handler, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.EqualError(t, handled, "unauthorized")
	})

	t.Run("middlewares run in order", func(t *testing.T) {
		app := newTestApp(t)

		var order []int
		mw := func(n int) func(Application, *http.Request) error {
			return func(Application, *http.Request) error {
				order = append(order, n)
				return nil
			}
		}

		handler := LocalMiddleware(app, WithMiddleware(mw(1)), WithMiddleware(mw(2)))(http.NotFoundHandler())
		serve(handler, "")
		assert.Equal(t, []int{1, 2}, order)
	})
}

func TestHandle(t *testing.T) {
	t.Run("resolves controller", func(t *testing.T) {
		app := newTestApp(t)
		handler := LocalMiddleware(app)(Handle((*testController).Greet))

		rec := serve(handler, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		body, _ := io.ReadAll(rec.Body)
		assert.Equal(t, "hello", string(body))
	})

	t.Run("resolves thread-local fields within the request", func(t *testing.T) {
		app := newTestApp(t)
		handler := LocalMiddleware(app, WithMiddleware(seedRequestID))(Handle(writeRequestID))

		assert.Equal(t, "abc", serve(handler, "abc").Body.String())
		assert.Equal(t, "def", serve(handler, "def").Body.String())
	})

	t.Run("without application", func(t *testing.T) {
		var handled error
		handler := Handle((*testController).Greet, WithApplicationErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			handled = err
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		rec := serve(handler, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.ErrorIs(t, handled, ErrNoApplication)
	})

	t.Run("resolution error", func(t *testing.T) {
		app := newTestApp(t)

		var handled error
		handler := LocalMiddleware(app)(Handle(func(s io.Reader, w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}, WithResolutionErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			handled = err
			w.WriteHeader(http.StatusBadGateway)
		})))

		rec := serve(handler, "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Error(t, handled)
	})

	t.Run("panic recovery", func(t *testing.T) {
		app := newTestApp(t)

		var recovered any
		handler := LocalMiddleware(app)(Handle((*testController).Panic,
			WithPanicRecovery(true),
			WithPanicHandler(func(w http.ResponseWriter, r *http.Request, v any) {
				recovered = v
				w.WriteHeader(http.StatusInternalServerError)
			}),
		))

		rec := serve(handler, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "test panic", recovered)
	})

	t.Run("panics propagate without recovery", func(t *testing.T) {
		app := newTestApp(t)
		handler := LocalMiddleware(app)(Handle((*testController).Panic))

		assert.Panics(t, func() { serve(handler, "") })
	})
}
