package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRegistry is an in-memory Registry. It is useful for tests and local development.
type MemoryRegistry struct {
	mu      sync.RWMutex
	tenants []*Tenant
	hooks   []ChangeHook
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates a registry holding copies of the given tenants.
// Hosts are canonicalised; tenants with an invalid host are skipped.
func NewMemoryRegistry(tenants ...*Tenant) *MemoryRegistry {
	m := &MemoryRegistry{}
	for _, t := range tenants {
		if t == nil {
			continue
		}
		host, err := CanonicalHost(t.Host)
		if err != nil {
			continue
		}
		c := *t
		c.Host = host
		if c.Status == "" {
			c.Status = StatusActive
		}
		m.tenants = append(m.tenants, &c)
	}
	return m
}

// FindByID returns a copy of the tenant with the given ID.
func (m *MemoryRegistry) FindByID(_ context.Context, id uuid.UUID) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tenants {
		if t.ID == id {
			c := *t
			return &c, nil
		}
	}
	return nil, ErrTenantNotFound
}

// FindByHost returns a copy of the tenant registered for origin.
func (m *MemoryRegistry) FindByHost(_ context.Context, origin string) (*Tenant, error) {
	host, err := CanonicalHost(origin)
	if err != nil {
		return nil, ErrTenantNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tenants {
		if t.Host == host {
			c := *t
			return &c, nil
		}
	}
	return nil, ErrTenantNotFound
}

// ListAll returns copies of all tenants in registration order.
func (m *MemoryRegistry) ListAll(_ context.Context) ([]*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

// Create registers a new active tenant for host.
func (m *MemoryRegistry) Create(ctx context.Context, host string) (*Tenant, error) {
	canonical, err := CanonicalHost(host)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	for _, t := range m.tenants {
		if t.Host == canonical {
			m.mu.Unlock()
			return nil, ErrDuplicateHost
		}
	}
	now := time.Now()
	t := &Tenant{ID: uuid.New(), Host: canonical, Status: StatusActive, CreatedAt: now, UpdatedAt: now}
	m.tenants = append(m.tenants, t)
	c := *t
	m.mu.Unlock()

	m.notify(ctx, &c)
	return &c, nil
}

// UpdateHost moves a tenant to a new host.
func (m *MemoryRegistry) UpdateHost(ctx context.Context, id uuid.UUID, host string) (*Tenant, error) {
	canonical, err := CanonicalHost(host)
	if err != nil {
		return nil, err
	}
	return m.update(ctx, id, func(t *Tenant) error {
		for _, other := range m.tenants {
			if other.ID != id && other.Host == canonical {
				return ErrDuplicateHost
			}
		}
		t.Host = canonical
		return nil
	})
}

// SetStatus activates or deactivates a tenant.
func (m *MemoryRegistry) SetStatus(ctx context.Context, id uuid.UUID, status Status) (*Tenant, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return m.update(ctx, id, func(t *Tenant) error {
		t.Status = status
		return nil
	})
}

// OnChange registers a hook fired after every successful mutation.
func (m *MemoryRegistry) OnChange(hook ChangeHook) {
	if hook == nil {
		return
	}
	m.mu.Lock()
	m.hooks = append(m.hooks, hook)
	m.mu.Unlock()
}

func (m *MemoryRegistry) update(ctx context.Context, id uuid.UUID, fn func(t *Tenant) error) (*Tenant, error) {
	m.mu.Lock()
	var target *Tenant
	for _, t := range m.tenants {
		if t.ID == id {
			target = t
			break
		}
	}
	if target == nil {
		m.mu.Unlock()
		return nil, ErrTenantNotFound
	}
	if err := fn(target); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	target.UpdatedAt = time.Now()
	c := *target
	m.mu.Unlock()

	m.notify(ctx, &c)
	return &c, nil
}

func (m *MemoryRegistry) notify(ctx context.Context, t *Tenant) {
	m.mu.RLock()
	hooks := append([]ChangeHook(nil), m.hooks...)
	m.mu.RUnlock()

	for _, h := range hooks {
		h(ctx, t)
	}
}
