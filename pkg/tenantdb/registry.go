package tenantdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

const tenantColumns = `id, host, status, created_at, updated_at`

// Registry is a tenant.Registry backed by the tenants table.
// The table is not subject to row-level security; lookups run on the pool
// and never join the caller's tenant transaction.
//
// tenantd itself only reads tenants. Create, UpdateHost and SetStatus are
// called by provisioning tools that share this package, and OnChange hooks
// fire only in the process that made the change. Other processes see the
// change once their own caches expire (CORS_CACHE_TTL for allowed origins).
type Registry struct {
	q     Querier
	now   func() time.Time
	mu    sync.RWMutex
	hooks []tenant.ChangeHook
}

var _ tenant.Registry = (*Registry)(nil)

// NewRegistry creates a registry that queries through q.
func NewRegistry(q Querier) *Registry {
	if q == nil {
		panic(ErrNilPool)
	}
	return &Registry{q: q, now: time.Now}
}

func (r *Registry) FindByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	row := r.q.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// FindByHost looks the tenant up by the canonical form of origin.
func (r *Registry) FindByHost(ctx context.Context, origin string) (*tenant.Tenant, error) {
	host, err := tenant.CanonicalHost(origin)
	if err != nil {
		return nil, tenant.ErrTenantNotFound
	}
	row := r.q.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE host = $1`, host)
	return scanTenant(row)
}

// ListAll returns every tenant ordered by creation time.
func (r *Registry) ListAll(ctx context.Context) ([]*tenant.Tenant, error) {
	rows, err := r.q.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var out []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return out, nil
}

// Create registers a new active tenant for host.
func (r *Registry) Create(ctx context.Context, host string) (*tenant.Tenant, error) {
	canonical, err := tenant.CanonicalHost(host)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	row := r.q.QueryRow(ctx,
		`INSERT INTO tenants (id, host, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 RETURNING `+tenantColumns,
		uuid.New(), canonical, string(tenant.StatusActive), now)
	t, err := scanTenant(row)
	if err != nil {
		return nil, err
	}

	r.notify(ctx, t)
	return t, nil
}

// UpdateHost moves a tenant to a new host.
func (r *Registry) UpdateHost(ctx context.Context, id uuid.UUID, host string) (*tenant.Tenant, error) {
	canonical, err := tenant.CanonicalHost(host)
	if err != nil {
		return nil, err
	}

	row := r.q.QueryRow(ctx,
		`UPDATE tenants SET host = $2, updated_at = $3 WHERE id = $1 RETURNING `+tenantColumns,
		id, canonical, r.now().UTC())
	t, err := scanTenant(row)
	if err != nil {
		return nil, err
	}

	r.notify(ctx, t)
	return t, nil
}

// SetStatus activates or deactivates a tenant.
func (r *Registry) SetStatus(ctx context.Context, id uuid.UUID, status tenant.Status) (*tenant.Tenant, error) {
	if !status.Valid() {
		return nil, tenant.ErrInvalidStatus
	}

	row := r.q.QueryRow(ctx,
		`UPDATE tenants SET status = $2, updated_at = $3 WHERE id = $1 RETURNING `+tenantColumns,
		id, string(status), r.now().UTC())
	t, err := scanTenant(row)
	if err != nil {
		return nil, err
	}

	r.notify(ctx, t)
	return t, nil
}

// OnChange registers a hook fired after every successful mutation made through
// this registry value. Mutations from other processes are not observed.
func (r *Registry) OnChange(hook tenant.ChangeHook) {
	if hook == nil {
		return
	}
	r.mu.Lock()
	r.hooks = append(r.hooks, hook)
	r.mu.Unlock()
}

func (r *Registry) notify(ctx context.Context, t *tenant.Tenant) {
	r.mu.RLock()
	hooks := append([]tenant.ChangeHook(nil), r.hooks...)
	r.mu.RUnlock()

	for _, h := range hooks {
		h(ctx, t)
	}
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var (
		t      tenant.Tenant
		status string
	)
	if err := row.Scan(&t.ID, &t.Host, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		switch {
		case pg.IsNotFoundError(err):
			return nil, tenant.ErrTenantNotFound
		case pg.IsDuplicateKeyError(err):
			return nil, tenant.ErrDuplicateHost
		case pg.IsCheckViolationError(err):
			return nil, tenant.ErrInvalidStatus
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	t.Status = tenant.Status(status)
	return &t, nil
}
