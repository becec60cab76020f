package tenant_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

var errBadToken = errors.New("bad token")

// stubVerifier accepts the tokens it knows.
type stubVerifier map[string]uuid.UUID

func (s stubVerifier) Verify(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := s[token]
	if !ok {
		return uuid.Nil, errBadToken
	}
	return id, nil
}

// recordingRunner stands in for the database runner.
type recordingRunner struct {
	mu        sync.Mutex
	calls     []uuid.UUID
	outcomes  []error
	commitErr error
}

func (r *recordingRunner) RunWithTenant(ctx context.Context, id uuid.UUID, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	r.calls = append(r.calls, id)
	r.mu.Unlock()

	err := fn(tenant.WithScope(ctx, tenant.Scope{TenantID: id}))
	if err == nil && r.commitErr != nil {
		err = r.commitErr
	}

	r.mu.Lock()
	r.outcomes = append(r.outcomes, err)
	r.mu.Unlock()
	return err
}

func principalHeader(r *http.Request) (string, bool) {
	v := r.Header.Get("X-Test-Tenant")
	return v, v != ""
}

type fixture struct {
	registry *tenant.MemoryRegistry
	acme     *tenant.Tenant
	globex   *tenant.Tenant
	dormant  *tenant.Tenant
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	reg := tenant.NewMemoryRegistry()

	acme, err := reg.Create(ctx, "https://acme.example.com")
	require.NoError(t, err)
	globex, err := reg.Create(ctx, "https://globex.example.com")
	require.NoError(t, err)
	dormant, err := reg.Create(ctx, "https://dormant.example.com")
	require.NoError(t, err)
	dormant, err = reg.SetStatus(ctx, dormant.ID, tenant.StatusInactive)
	require.NoError(t, err)

	return fixture{registry: reg, acme: acme, globex: globex, dormant: dormant}
}
