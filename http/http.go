// Package http provides autowire integration for net/http servers and
// routers built on http.Handler, such as chi.
//
// LocalMiddleware gives every request its own local scope, so thread-local
// context fields hold one value per request and are released when the
// request completes. Handle resolves a controller from the application
// attached to the request.
//
// Example usage:
//
//	app := &App{}
//	autowire.Init(ctx, app)
//
//	mux := http.NewServeMux()
//	mux.Handle("POST /login", autowirehttp.Handle(AuthController.Login))
//	http.ListenAndServe(":8080", autowirehttp.LocalMiddleware(app)(mux))
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/junioryono/autowire"
)

// ErrNoApplication is reported by Handle when the request did not pass
// through LocalMiddleware.
var ErrNoApplication = errors.New("no application found in request context")

// Application is an object graph whose thread-local values are scoped to a
// request. Pointers to structs embedding autowire.Context implement it.
type Application interface {
	autowire.Resolver
	ReleaseLocal(ctx context.Context)
}

type applicationKey struct{}

// FromContext returns the application attached by LocalMiddleware.
func FromContext(ctx context.Context) (Application, error) {
	app, ok := ctx.Value(applicationKey{}).(Application)
	if !ok || app == nil {
		return nil, ErrNoApplication
	}
	return app, nil
}

// Config holds the configuration for the local scope middleware.
type Config struct {
	// ErrorHandler is called when a middleware fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Middlewares are functions that run after the local scope is opened.
	// They can be used to seed thread-local fields from the request.
	Middlewares []func(Application, *http.Request) error
}

// Option configures the local scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the local
// scope is opened. Multiple middlewares are executed in the order they are
// added.
func WithMiddleware(mw func(Application, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("request middleware failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// LocalMiddleware opens a local scope for each request and attaches app to
// the request context. Thread-local values cached for the request are
// released when it completes.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(autowirehttp.LocalMiddleware(app))
func LocalMiddleware(app Application, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := autowire.WithLocal(r.Context())
			defer app.ReleaseLocal(ctx)

			r = r.WithContext(context.WithValue(ctx, applicationKey{}, app))

			for _, mw := range cfg.Middlewares {
				if err := mw(app, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ApplicationErrorHandler is called when no application is attached
	// to the request.
	ApplicationErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler is called when controller resolution fails.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithApplicationErrorHandler sets the error handler for requests without
// an application.
func WithApplicationErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ApplicationErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(w http.ResponseWriter, r *http.Request, v any) {
			slog.Error("panic in handler", "panic", v)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ApplicationErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("failed to get application from context", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ResolutionErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("failed to resolve controller", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// Handle wraps a controller method. The controller type T is resolved from
// the application attached to the request, within the request's local
// scope.
//
// Example:
//
//	type UserController interface {
//	    GetByID(http.ResponseWriter, *http.Request)
//	}
//
//	mux.HandleFunc("GET /users/{id}", autowirehttp.Handle(UserController.GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		app, err := FromContext(r.Context())
		if err != nil {
			cfg.ApplicationErrorHandler(w, r, err)
			return
		}

		controller, err := autowire.Resolve[T](r.Context(), app)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
