package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a tenant. Tenants are never deleted,
// deactivation flips the status.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Tenant is a logically isolated customer sharing the physical database.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Host      string    `json:"host"` // canonical origin, e.g. https://acme.example.com
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the tenant may serve requests.
func (t *Tenant) Active() bool {
	return t != nil && t.Status == StatusActive
}

// Registry is the durable store of known tenants.
// Lookups return ErrTenantNotFound when nothing matches.
// Implementations must not cache; caching belongs to edge collaborators.
type Registry interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	// FindByHost matches the canonical form of origin against registered hosts.
	FindByHost(ctx context.Context, origin string) (*Tenant, error)
	ListAll(ctx context.Context) ([]*Tenant, error)
}

// Runner executes a unit of work inside a transaction scoped to one tenant.
// The context passed to fn carries the active Scope.
type Runner interface {
	RunWithTenant(ctx context.Context, tenantID uuid.UUID, fn func(ctx context.Context) error) error
}

// ChangeHook is invoked after a registry mutation succeeds.
type ChangeHook func(ctx context.Context, t *Tenant)
