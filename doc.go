// Package autowire provides a reflection-driven dependency injection
// container for Go applications.
//
// # Overview
//
// autowire builds objects from their struct fields or registered
// constructors, looking up every input in a Container. Values nobody
// registered are auto-wired recursively and remembered, so most object
// graphs need no registration at all. The library provides:
//   - Singleton, supplier and auto-wired providers
//   - Matching by assignability with name-based tie breaking
//   - Slice requests collecting every matching provider
//   - Constructors with named and optional parameters
//   - Lazily resolved context fields with eager, transient and thread-local modes
//   - Module system for organizing registrations
//   - Thread-safe operations
//
// # Basic Usage
//
// Create a container, optionally add values, and resolve:
//
//	c := autowire.New()
//	c.MustAdd(&Config{DSN: "postgres://localhost"})
//
//	repo, err := autowire.Resolve[*UserRepository](ctx, c)
//
// UserRepository is built from its exported fields. Each field is an
// initializer parameter named after the field in snake_case:
//
//	type UserRepository struct {
//	    Config *Config
//	    Logger Logger `autowire:"optional"`
//	    Table  string `default:"users"`
//	}
//
// Tag a field with `autowire:"-"` to leave it alone, or `autowire:"name=x"`
// to look it up under another name.
//
// # Constructors
//
// Types with unexported state register a constructor instead. Parameters
// are named after their types unless names are given:
//
//	c.RegisterConstructor(NewMailer, "smtp_host", "logger,optional")
//
// A struct with no fields of its own and a single embedded base is built
// with the base's initializer.
//
// # Matching
//
// A provider satisfies a request when its type is assignable to the
// requested one. With several candidates the one named after the request
// wins; otherwise resolution fails with AmbiguousDependencyError:
//
//	c.Scan(
//	    autowire.Instance(primary, autowire.WithName("primary")),
//	    autowire.Instance(replica, autowire.WithName("replica")),
//	)
//
//	db, err := autowire.ResolveNamed[*DB](ctx, c, "replica")
//
// Requesting a slice collects every matching provider in registration
// order:
//
//	plugins, err := autowire.Resolve[[]Plugin](ctx, c)
//
// # Modules
//
// Organize registrations into reusable modules:
//
//	var StorageModule = autowire.NewModule("storage",
//	    autowire.Instance(cfg),
//	    autowire.Component[*UserRepository](),
//	    autowire.Constructor(NewMailer),
//	)
//
//	c.Scan(StorageModule)
//
// # Contexts
//
// A struct embedding Context declares its members as lazily resolved
// fields. Fields are auto-wired from each other on first access:
//
//	type App struct {
//	    autowire.Context
//
//	    Config  autowire.Field[*Config] `autowire:"provided"`
//	    Repo    autowire.Field[*UserRepository]
//	    Session autowire.Field[*Session] `autowire:"thread_local"`
//	}
//
//	app := &App{Config: autowire.Value(cfg)}
//	if err := autowire.Init(ctx, app); err != nil {
//	    log.Fatal(err)
//	}
//	repo, err := app.Repo.Get(ctx)
//
// Thread-local fields hold one value per local scope. Open one per unit of
// work with WithLocal and drop its values with ReleaseLocal.
//
// # Thread Safety
//
// Containers and contexts can be used from multiple goroutines. A cached
// field is constructed exactly once even under concurrent access.
//
// # Error Handling
//
// autowire reports failures with typed errors:
//   - AmbiguousDependencyError: several candidates and no name match
//   - UnresolvableDependencyError: a required parameter could not be satisfied
//   - IllegalAutoWireTypeError: the type must not be auto-wired
//   - CircularDependencyError: a resolution re-entered itself
//   - NotProvidedError: a provided field was never assigned
package autowire
