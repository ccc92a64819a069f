// Package echo provides autowire integration for the Echo web framework.
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
//	e := echo.New()
//	e.Use(autowireecho.LocalMiddleware(app))
//
//	e.POST("/login", autowireecho.Handle(AuthController.Login))
//	e.GET("/users/:id", autowireecho.Handle(UserController.GetByID))
package echo

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/junioryono/autowire"
	"github.com/labstack/echo/v4"
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
func FromContext(c echo.Context) (Application, error) {
	app, ok := c.Request().Context().Value(applicationKey{}).(Application)
	if !ok || app == nil {
		return nil, ErrNoApplication
	}
	return app, nil
}

// Config holds the configuration for the local scope middleware.
type Config struct {
	// ErrorHandler is called when a middleware fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(echo.Context, error) error

	// Middlewares are functions that run after the local scope is opened.
	Middlewares []func(Application, echo.Context) error
}

// Option configures the local scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(echo.Context, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the local
// scope is opened. Multiple middlewares are executed in the order they are
// added.
func WithMiddleware(mw func(Application, echo.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c echo.Context, err error) error {
			slog.Error("request middleware failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
	}
}

// LocalMiddleware creates an echo.MiddlewareFunc that opens a local scope
// for each request and attaches app to the request context. Thread-local
// values cached for the request are released when it completes.
//
// Example:
//
//	e := echo.New()
//	e.Use(autowireecho.LocalMiddleware(app))
func LocalMiddleware(app Application, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := autowire.WithLocal(c.Request().Context())
			defer app.ReleaseLocal(ctx)

			c.SetRequest(c.Request().WithContext(context.WithValue(ctx, applicationKey{}, app)))

			for _, mw := range cfg.Middlewares {
				if err := mw(app, c); err != nil {
					return cfg.ErrorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(echo.Context, any) error

	// ApplicationErrorHandler is called when no application is attached
	// to the request.
	ApplicationErrorHandler func(echo.Context, error) error

	// ResolutionErrorHandler is called when controller resolution fails.
	ResolutionErrorHandler func(echo.Context, error) error
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
func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithApplicationErrorHandler sets the error handler for requests without
// an application.
func WithApplicationErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ApplicationErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler: func(c echo.Context, v any) error {
			slog.Error("panic in handler", "panic", v)
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		ApplicationErrorHandler: func(c echo.Context, err error) error {
			slog.Error("failed to get application from context", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		ResolutionErrorHandler: func(c echo.Context, err error) error {
			slog.Error("failed to resolve controller", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
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
//	    GetByID(echo.Context) error
//	}
//
//	e.GET("/users/:id", autowireecho.Handle(UserController.GetByID))
func Handle[T any](method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		app, appErr := FromContext(c)
		if appErr != nil {
			return cfg.ApplicationErrorHandler(c, appErr)
		}

		controller, resolveErr := autowire.Resolve[T](c.Request().Context(), app)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}
