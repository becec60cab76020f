package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Scope is the tenant context of one unit of work: the tenant it runs for
// and the transaction every query of that unit must use.
// A Scope lives only inside the context derived by Run or WithScope; it is
// never stored elsewhere. Tx is bound to a single connection and must not be
// used by two goroutines at the same time.
type Scope struct {
	TenantID uuid.UUID
	Tx       pgx.Tx
}

// scopeKey is a private type to prevent collisions with other context keys.
type scopeKey struct{}

// WithScope returns a context carrying scope. Only code that receives the
// returned context, or a context derived from it, observes the scope.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFromContext returns the active scope, if any.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeKey{}).(Scope)
	return scope, ok
}

// IDFromContext returns the tenant ID of the active scope.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	scope, ok := ScopeFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return scope.TenantID, true
}

// MustIDFromContext returns the tenant ID of the active scope.
// Panics if no scope is active. Use this only in code that can never run
// outside the isolation middleware or a batch runner.
func MustIDFromContext(ctx context.Context) uuid.UUID {
	id, ok := IDFromContext(ctx)
	if !ok {
		panic("tenant: no scope in context")
	}
	return id
}

// Run calls fn with a context carrying scope. The scope is visible for the
// whole dynamic extent of fn, including goroutines fn starts with the
// context it received, and invisible to any other call chain.
func Run(ctx context.Context, scope Scope, fn func(ctx context.Context) error) error {
	return fn(WithScope(ctx, scope))
}

// LoggerExtractor returns a logger context extractor that adds the tenant ID of the active scope.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
