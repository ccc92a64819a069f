// Package fiber provides autowire integration for the Fiber web framework.
//
// LocalMiddleware gives every request its own local scope, so thread-local
// context fields hold one value per request and are released when the
// request completes. The scoped context is set as the request's user
// context. Handle resolves a controller from the application attached to
// the request.
//
// Example usage:
//
//	app := &App{}
//	autowire.Init(ctx, app)
//
//	f := fiber.New()
//	f.Use(autowirefiber.LocalMiddleware(app))
//
//	f.Post("/login", autowirefiber.Handle(AuthController.Login))
//	f.Get("/users/:id", autowirefiber.Handle(UserController.GetByID))
package fiber

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/junioryono/autowire"
)

const applicationKey = "autowire_application"

// ErrNoApplication is reported by Handle when the request did not pass
// through LocalMiddleware.
var ErrNoApplication = errors.New("no application found in request locals")

// Application is an object graph whose thread-local values are scoped to a
// request. Pointers to structs embedding autowire.Context implement it.
type Application interface {
	autowire.Resolver
	ReleaseLocal(ctx context.Context)
}

// Config holds the configuration for the local scope middleware.
type Config struct {
	// ErrorHandler is called when a middleware fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(*fiber.Ctx, error) error

	// Middlewares are functions that run after the local scope is opened.
	Middlewares []func(Application, *fiber.Ctx) error
}

// Option configures the local scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the local
// scope is opened. Multiple middlewares are executed in the order they are
// added.
func WithMiddleware(mw func(Application, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("request middleware failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		},
	}
}

// LocalMiddleware creates a fiber.Handler that opens a local scope for each
// request. The scoped context replaces the request's user context and app
// is stored in the request locals. Thread-local values cached for the
// request are released when it completes.
func LocalMiddleware(app Application, opts ...Option) fiber.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) error {
		ctx := autowire.WithLocal(c.UserContext())
		defer app.ReleaseLocal(ctx)

		c.SetUserContext(ctx)
		c.Locals(applicationKey, app)

		for _, mw := range cfg.Middlewares {
			if err := mw(app, c); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		return c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*fiber.Ctx, any) error

	// ApplicationErrorHandler is called when no application is stored in
	// the request locals.
	ApplicationErrorHandler func(*fiber.Ctx, error) error

	// ResolutionErrorHandler is called when controller resolution fails.
	ResolutionErrorHandler func(*fiber.Ctx, error) error
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
func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithApplicationErrorHandler sets the error handler for requests without
// an application.
func WithApplicationErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ApplicationErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	internalError := func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal Server Error",
		})
	}

	return &HandlerConfig{
		PanicHandler: func(c *fiber.Ctx, v any) error {
			slog.Error("panic in handler", "panic", v)
			return internalError(c)
		},
		ApplicationErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("failed to get application from locals", "error", err)
			return internalError(c)
		},
		ResolutionErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("failed to resolve controller", "error", err)
			return internalError(c)
		},
	}
}

// Handle wraps a controller method. The controller type T is resolved from
// the application stored in the request locals, within the request's
// local scope.
//
// Example:
//
//	type UserController interface {
//	    GetByID(*fiber.Ctx) error
//	}
//
//	f.Get("/users/:id", autowirefiber.Handle(UserController.GetByID))
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		app := FromContext(c)
		if app == nil {
			return cfg.ApplicationErrorHandler(c, ErrNoApplication)
		}

		controller, resolveErr := autowire.Resolve[T](c.UserContext(), app)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}

// FromContext retrieves the application from fiber.Ctx.Locals.
// This is useful when you need to resolve values manually.
//
// Example:
//
//	app := autowirefiber.FromContext(c)
//	session := autowire.MustResolve[*Session](c.UserContext(), app)
func FromContext(c *fiber.Ctx) Application {
	app, ok := c.Locals(applicationKey).(Application)
	if !ok {
		return nil
	}
	return app
}
