// Package gin provides autowire integration for the Gin web framework.
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
//	g := gin.New()
//	g.Use(autowiregin.LocalMiddleware(app))
//
//	g.POST("/login", autowiregin.Handle(AuthController.Login))
//	g.GET("/users/:id", autowiregin.Handle(UserController.GetByID))
package gin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
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
func FromContext(c *gin.Context) (Application, error) {
	app, ok := c.Request.Context().Value(applicationKey{}).(Application)
	if !ok || app == nil {
		return nil, ErrNoApplication
	}
	return app, nil
}

// Config holds the configuration for the local scope middleware.
type Config struct {
	// ErrorHandler is called when a middleware fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(*gin.Context, error)

	// Middlewares are functions that run after the local scope is opened.
	// They can be used to seed thread-local fields, set user claims, etc.
	Middlewares []func(Application, *gin.Context) error
}

// Option configures the local scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(*gin.Context, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after the local
// scope is opened. Multiple middlewares are executed in the order they are
// added.
//
// Example:
//
//	autowiregin.LocalMiddleware(app,
//	    autowiregin.WithMiddleware(func(app autowiregin.Application, c *gin.Context) error {
//	        session := autowire.MustResolve[*Session](c.Request.Context(), app)
//	        session.UserID = c.GetHeader("X-User")
//	        return nil
//	    }),
//	)
func WithMiddleware(mw func(Application, *gin.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *gin.Context, err error) {
			slog.Error("request middleware failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
	}
}

// LocalMiddleware creates a gin.HandlerFunc that opens a local scope for
// each request and attaches app to the request context. Thread-local
// values cached for the request are released when it completes.
//
// Example:
//
//	g := gin.New()
//	g.Use(autowiregin.LocalMiddleware(app))
func LocalMiddleware(app Application, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		ctx := autowire.WithLocal(c.Request.Context())
		defer app.ReleaseLocal(ctx)

		c.Request = c.Request.WithContext(context.WithValue(ctx, applicationKey{}, app))

		for _, mw := range cfg.Middlewares {
			if err := mw(app, c); err != nil {
				cfg.ErrorHandler(c, err)
				return
			}
		}

		c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	// If true, panics are caught and handled by PanicHandler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*gin.Context, any)

	// ApplicationErrorHandler is called when no application is attached
	// to the request.
	ApplicationErrorHandler func(*gin.Context, error)

	// ResolutionErrorHandler is called when controller resolution fails.
	ResolutionErrorHandler func(*gin.Context, error)
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics (requires WithPanicRecovery(true)).
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithApplicationErrorHandler sets the error handler for requests without
// an application.
func WithApplicationErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ApplicationErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	abort := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal Server Error",
		})
	}

	return &HandlerConfig{
		PanicHandler: func(c *gin.Context, r any) {
			slog.Error("panic in handler", "panic", r)
			abort(c)
		},
		ApplicationErrorHandler: func(c *gin.Context, err error) {
			slog.Error("failed to get application from context", "error", err)
			abort(c)
		},
		ResolutionErrorHandler: func(c *gin.Context, err error) {
			slog.Error("failed to resolve controller", "error", err)
			abort(c)
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
//	    GetByID(*gin.Context)
//	}
//
//	g.GET("/users/:id", autowiregin.Handle(UserController.GetByID))
func Handle[T any](method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if r := recover(); r != nil {
					cfg.PanicHandler(c, r)
				}
			}()
		}

		app, err := FromContext(c)
		if err != nil {
			cfg.ApplicationErrorHandler(c, err)
			return
		}

		controller, err := autowire.Resolve[T](c.Request.Context(), app)
		if err != nil {
			cfg.ResolutionErrorHandler(c, err)
			return
		}

		method(controller, c)
	}
}
