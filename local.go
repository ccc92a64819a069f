package autowire

import (
	"context"

	"github.com/google/uuid"
)

// localContextKey is the key for storing the local scope ID in a context.
type localContextKey struct{}

// WithLocal returns a context starting a new local scope. Thread-local
// fields keep one value per local scope, so a goroutine that needs its
// own instances starts one:
//
//	go func() {
//	    ctx := autowire.WithLocal(ctx)
//	    conn, err := app.Conn.Get(ctx)
//	    ...
//	}()
//
// Contexts without a local scope share the root scope.
func WithLocal(ctx context.Context) context.Context {
	return context.WithValue(ctx, localContextKey{}, uuid.New())
}

// LocalID returns the local scope of ctx, or uuid.Nil for the root scope.
func LocalID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(localContextKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
