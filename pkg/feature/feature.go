package feature

import "context"

// Flag is a named switch. A disabled flag is off for everyone; an enabled
// flag with a Strategy is on only where the strategy says so.
type Flag struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Enabled     bool     `json:"enabled"`
	Strategy    Strategy `json:"-"`
}

// Strategy decides whether an enabled flag applies to the caller described by ctx.
type Strategy interface {
	Evaluate(ctx context.Context) (bool, error)
}

// Provider answers flag queries.
type Provider interface {
	// IsEnabled returns ErrFlagNotFound for unknown flags.
	IsEnabled(ctx context.Context, name string) (bool, error)
	GetFlag(ctx context.Context, name string) (*Flag, error)
	ListFlags(ctx context.Context) ([]*Flag, error)
}

// TenantExtractor returns the tenant a flag is evaluated for.
type TenantExtractor func(ctx context.Context) (string, bool)
