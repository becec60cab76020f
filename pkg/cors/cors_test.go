package cors_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/cors"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// countingRegistry counts host lookups.
type countingRegistry struct {
	*tenant.MemoryRegistry
	lookups atomic.Int32
	fail    atomic.Bool
}

func (c *countingRegistry) FindByHost(ctx context.Context, origin string) (*tenant.Tenant, error) {
	c.lookups.Add(1)
	if c.fail.Load() {
		return nil, errors.New("db down")
	}
	return c.MemoryRegistry.FindByHost(ctx, origin)
}

func newResolver(t *testing.T, cfg cors.Config) (*cors.OriginResolver, *countingRegistry, *tenant.Tenant) {
	t.Helper()
	mem := tenant.NewMemoryRegistry()
	acme, err := mem.Create(context.Background(), "https://acme.example.com")
	require.NoError(t, err)

	reg := &countingRegistry{MemoryRegistry: mem}
	r, err := cors.NewOriginResolver(reg, cfg)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	mem.OnChange(r.OnTenantChange)
	return r, reg, acme
}

func TestOriginResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("tenant hosts and static origins", func(t *testing.T) {
		r, _, _ := newResolver(t, cors.Config{AllowedOrigins: []string{"https://admin.example.com"}})
		assert.True(t, r.Allowed(ctx, "https://acme.example.com"))
		assert.True(t, r.Allowed(ctx, "https://ACME.example.com:443"))
		assert.True(t, r.Allowed(ctx, "https://admin.example.com"))
		assert.False(t, r.Allowed(ctx, "https://evil.example.com"))
		assert.False(t, r.Allowed(ctx, "null"))
	})

	t.Run("answers are cached", func(t *testing.T) {
		r, reg, _ := newResolver(t, cors.Config{CacheTTL: time.Minute})
		assert.True(t, r.Allowed(ctx, "https://acme.example.com"))
		r.Wait()
		assert.True(t, r.Allowed(ctx, "https://acme.example.com"))
		assert.Equal(t, int32(1), reg.lookups.Load())
	})

	t.Run("registry change invalidates", func(t *testing.T) {
		r, reg, acme := newResolver(t, cors.Config{CacheTTL: time.Hour})
		assert.True(t, r.Allowed(ctx, "https://acme.example.com"))
		r.Wait()

		_, err := reg.SetStatus(ctx, acme.ID, tenant.StatusInactive)
		require.NoError(t, err)
		assert.False(t, r.Allowed(ctx, "https://acme.example.com"))
	})

	t.Run("changes made elsewhere expire with the cache ttl", func(t *testing.T) {
		mem := tenant.NewMemoryRegistry()
		acme, err := mem.Create(ctx, "https://acme.example.com")
		require.NoError(t, err)
		r, err := cors.NewOriginResolver(mem, cors.Config{CacheTTL: 50 * time.Millisecond})
		require.NoError(t, err)
		t.Cleanup(r.Close)

		assert.True(t, r.Allowed(ctx, "https://acme.example.com"))
		r.Wait()

		// No hook registered: the mutation happens in another process.
		_, err = mem.SetStatus(ctx, acme.ID, tenant.StatusInactive)
		require.NoError(t, err)
		assert.True(t, r.Allowed(ctx, "https://acme.example.com"))

		assert.Eventually(t, func() bool {
			return !r.Allowed(ctx, "https://acme.example.com")
		}, time.Second, 20*time.Millisecond)
	})

	t.Run("lookup failures are not cached", func(t *testing.T) {
		r, reg, _ := newResolver(t, cors.Config{})
		reg.fail.Store(true)
		assert.False(t, r.Allowed(ctx, "https://acme.example.com"))
		r.Wait()
		reg.fail.Store(false)
		assert.True(t, r.Allowed(ctx, "https://acme.example.com"))
	})

	t.Run("nil registry", func(t *testing.T) {
		_, err := cors.NewOriginResolver(nil, cors.Config{})
		assert.ErrorIs(t, err, cors.ErrNilRegistry)
	})
}

func TestMiddleware(t *testing.T) {
	cfg := cors.Config{
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}
	r, _, _ := newResolver(t, cfg)

	var reached bool
	h := cors.Middleware(r, cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("preflight from tenant host", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodOptions, "/api/me", nil)
		req.Header.Set("Origin", "https://acme.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, reached)
		assert.Equal(t, "https://acme.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight from unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/me", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("simple request", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Origin", "https://acme.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.True(t, reached)
		assert.Equal(t, "https://acme.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Values("Vary"), "Origin")
	})

	t.Run("disallowed simple request passes without headers", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.True(t, reached)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("same-origin request", func(t *testing.T) {
		reached = false
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
		assert.True(t, reached)
		assert.Empty(t, rec.Header().Values("Vary"))
	})
}
