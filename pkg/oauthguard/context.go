package oauthguard

import (
	"context"

	"github.com/google/uuid"
)

// Result is what a successful callback hands to the next handler.
type Result struct {
	Provider string
	TenantID uuid.UUID
	Profile  ProviderProfile
}

type resultKey struct{}

// WithResult stores res in ctx.
func WithResult(ctx context.Context, res Result) context.Context {
	return context.WithValue(ctx, resultKey{}, res)
}

// ResultFromContext returns the callback result, if any.
func ResultFromContext(ctx context.Context) (Result, bool) {
	res, ok := ctx.Value(resultKey{}).(Result)
	return res, ok
}
