package oauthguard_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/tenantkit/pkg/feature"
	"github.com/dmitrymomot/tenantkit/pkg/oauthguard"
	"github.com/dmitrymomot/tenantkit/pkg/statetoken"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

var errUpstream = errors.New("upstream down")

type fakeAdapter struct {
	profiles map[string]oauthguard.ProviderProfile
}

func (f *fakeAdapter) ProviderID() string { return "fake" }

func (f *fakeAdapter) AuthURL(state string, opts ...oauth2.AuthCodeOption) string {
	conf := &oauth2.Config{ClientID: "client", Endpoint: oauth2.Endpoint{AuthURL: "https://idp.example/authorize"}}
	return conf.AuthCodeURL(state, opts...)
}

func (f *fakeAdapter) ResolveProfile(_ context.Context, code string) (oauthguard.ProviderProfile, error) {
	if code == "broken" {
		return oauthguard.ProviderProfile{}, errUpstream
	}
	p, ok := f.profiles[code]
	if !ok {
		return oauthguard.ProviderProfile{}, oauthguard.ErrInvalidCode
	}
	return p, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	reg    *tenant.MemoryRegistry
	acme   *tenant.Tenant
	globex *tenant.Tenant
	states *statetoken.Service
	clock  *clock
	guard  *oauthguard.Guard
	// results collects what reached the next handler.
	results []oauthguard.Result
}

var alice = oauthguard.ProviderProfile{ProviderUserID: "u-1", Email: "alice@acme.example.com", EmailVerified: true, Name: "Alice"}

func newHarness(t *testing.T, cfg oauthguard.Config) *harness {
	t.Helper()
	ctx := context.Background()

	reg := tenant.NewMemoryRegistry()
	acme, err := reg.Create(ctx, "https://acme.example.com")
	require.NoError(t, err)
	globex, err := reg.Create(ctx, "https://globex.example.com")
	require.NoError(t, err)

	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	states, err := statetoken.New("guard-test-secret",
		statetoken.WithClock(clk.Now),
		statetoken.WithReplayGuard(statetoken.NewMemoryReplayGuard()))
	require.NoError(t, err)

	if cfg.Provider == nil {
		cfg.Provider = &fakeAdapter{profiles: map[string]oauthguard.ProviderProfile{"good": alice}}
	}
	resolver := tenant.NewResolver(reg, tenant.WithStateVerifier(states))
	g, err := oauthguard.New(cfg, resolver, states)
	require.NoError(t, err)

	return &harness{reg: reg, acme: acme, globex: globex, states: states, clock: clk, guard: g}
}

func (h *harness) handler() http.Handler {
	return h.guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := oauthguard.ResultFromContext(r.Context())
		if ok {
			h.results = append(h.results, res)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
}

func (h *harness) begin(t *testing.T, target string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func callback(h *harness, state, code string) *httptest.ResponseRecorder {
	q := url.Values{"state": {state}, "code": {code}}
	req := httptest.NewRequest(http.MethodGet, "https://api.example.com/auth/fake/callback?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	h.handler().ServeHTTP(rec, req)
	return rec
}

func TestNew_Validation(t *testing.T) {
	states, err := statetoken.New("s")
	require.NoError(t, err)
	resolver := tenant.NewResolver(tenant.NewMemoryRegistry())
	adapter := &fakeAdapter{}

	_, err = oauthguard.New(oauthguard.Config{}, resolver, states)
	assert.ErrorIs(t, err, oauthguard.ErrMissingProvider)
	_, err = oauthguard.New(oauthguard.Config{Provider: adapter}, nil, states)
	assert.ErrorIs(t, err, oauthguard.ErrMissingResolver)
	_, err = oauthguard.New(oauthguard.Config{Provider: adapter}, resolver, nil)
	assert.ErrorIs(t, err, oauthguard.ErrMissingStates)
}

func TestBegin_RedirectsWithTenantBoundState(t *testing.T) {
	h := newHarness(t, oauthguard.Config{
		Options: func(*http.Request) []oauth2.AuthCodeOption {
			return []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
		},
	})

	rec := httptest.NewRecorder()
	h.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "https://acme.example.com/auth/fake", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "idp.example", loc.Host)
	assert.Equal(t, "offline", loc.Query().Get("access_type"))

	id, err := h.states.Verify(context.Background(), loc.Query().Get("state"))
	require.NoError(t, err)
	assert.Equal(t, h.acme.ID, id)
}

func TestBegin_UsesActiveScope(t *testing.T) {
	h := newHarness(t, oauthguard.Config{})

	req := httptest.NewRequest(http.MethodGet, "https://acme.example.com/auth/fake", nil)
	req = req.WithContext(tenant.WithScope(req.Context(), tenant.Scope{TenantID: h.globex.ID}))
	rec := httptest.NewRecorder()
	h.handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	id, err := h.states.Verify(context.Background(), loc.Query().Get("state"))
	require.NoError(t, err)
	assert.Equal(t, h.globex.ID, id)
}

func TestBegin_UnknownOriginIsUnauthorized(t *testing.T) {
	h := newHarness(t, oauthguard.Config{})

	rec := httptest.NewRecorder()
	h.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "https://unknown.example.com/auth/fake", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBegin_Disabled(t *testing.T) {
	h := newHarness(t, oauthguard.Config{
		Enabled:         oauthguard.StaticEnabled(false),
		DisabledMessage: "Fake sign-in is turned off",
	})

	rec := httptest.NewRecorder()
	h.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "https://acme.example.com/auth/fake", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Fake sign-in is turned off")
}

func TestFlagEnabled_PerTenant(t *testing.T) {
	extract := func(ctx context.Context) (string, bool) {
		id, ok := tenant.IDFromContext(ctx)
		return id.String(), ok
	}

	var flags *feature.MemoryProvider
	h := newHarness(t, oauthguard.Config{
		Enabled: func(r *http.Request) (bool, error) {
			return oauthguard.FlagEnabled(flags, "oauth.fake")(r)
		},
	})

	var err error
	flags, err = feature.NewMemoryProvider(&feature.Flag{
		Name:     "oauth.fake",
		Enabled:  true,
		Strategy: feature.NewTenantStrategy(feature.TenantCriteria{AllowList: []string{h.acme.ID.String()}}, extract),
	})
	require.NoError(t, err)

	serve := func(id uuid.UUID, host string) int {
		req := httptest.NewRequest(http.MethodGet, "https://"+host+"/auth/fake", nil)
		req = req.WithContext(tenant.WithScope(req.Context(), tenant.Scope{TenantID: id}))
		rec := httptest.NewRecorder()
		h.handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusFound, serve(h.acme.ID, "acme.example.com"))
	assert.Equal(t, http.StatusForbidden, serve(h.globex.ID, "globex.example.com"))

	require.NoError(t, flags.Delete("oauth.fake"))
	assert.Equal(t, http.StatusForbidden, serve(h.acme.ID, "acme.example.com"))
}

func TestCallback_AcceptedWithinLifetime(t *testing.T) {
	h := newHarness(t, oauthguard.Config{})
	state := h.begin(t, "https://acme.example.com/auth/fake")

	h.clock.Advance(9 * time.Minute)
	rec := callback(h, state, "good")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, h.results, 1)
	assert.Equal(t, oauthguard.Result{Provider: "fake", TenantID: h.acme.ID, Profile: alice}, h.results[0])
}

func TestCallback_ExpiredStateRejected(t *testing.T) {
	h := newHarness(t, oauthguard.Config{})
	state := h.begin(t, "https://acme.example.com/auth/fake")

	h.clock.Advance(11 * time.Minute)
	rec := callback(h, state, "good")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, h.results)
}

func TestCallback_StateIsSingleUse(t *testing.T) {
	h := newHarness(t, oauthguard.Config{})
	state := h.begin(t, "https://acme.example.com/auth/fake")

	assert.Equal(t, http.StatusNoContent, callback(h, state, "good").Code)
	assert.Equal(t, http.StatusUnauthorized, callback(h, state, "good").Code)
	assert.Len(t, h.results, 1)
}

func TestCallback_Rejections(t *testing.T) {
	h := newHarness(t, oauthguard.Config{})

	tests := []struct {
		name  string
		query url.Values
		code  int
	}{
		{"missing state", url.Values{"code": {"good"}}, http.StatusUnauthorized},
		{"forged state", url.Values{"state": {"abc.def"}, "code": {"good"}}, http.StatusUnauthorized},
		{"provider error", url.Values{"error": {"access_denied"}}, http.StatusUnauthorized},
		{"missing code", url.Values{}, http.StatusUnauthorized},
		{"invalid code", url.Values{"code": {"nope"}}, http.StatusUnauthorized},
		{"upstream failure", url.Values{"code": {"broken"}}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			if _, ok := q["state"]; !ok && tt.name != "missing state" {
				q.Set("state", h.begin(t, "https://acme.example.com/auth/fake"))
			}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "https://api.example.com/auth/fake/callback?"+q.Encode(), nil)
			h.handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
	assert.Empty(t, h.results)
}

func TestCallback_InsideScopeTrustsScopeTenant(t *testing.T) {
	h := newHarness(t, oauthguard.Config{})
	state := h.begin(t, "https://acme.example.com/auth/fake")

	// The isolation middleware verifies the same token before the guard runs.
	id, err := h.states.Verify(context.Background(), state)
	require.NoError(t, err)

	q := url.Values{"state": {state}, "code": {"good"}}
	req := httptest.NewRequest(http.MethodGet, "https://api.example.com/auth/fake/callback?"+q.Encode(), nil)
	req = req.WithContext(tenant.WithScope(req.Context(), tenant.Scope{TenantID: id}))
	rec := httptest.NewRecorder()
	h.handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, h.results, 1)
	assert.Equal(t, h.acme.ID, h.results[0].TenantID)
}

// scopeRunner opens a scope without a database, recording each tenant.
type scopeRunner struct {
	mu      sync.Mutex
	tenants []uuid.UUID
}

func (r *scopeRunner) RunWithTenant(ctx context.Context, id uuid.UUID, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	r.tenants = append(r.tenants, id)
	r.mu.Unlock()
	return fn(tenant.WithScope(ctx, tenant.Scope{TenantID: id}))
}

func TestCallback_ThroughIsolationMiddleware(t *testing.T) {
	h := newHarness(t, oauthguard.Config{})
	runner := &scopeRunner{}
	resolver := tenant.NewResolver(h.reg, tenant.WithStateVerifier(h.states))
	chain := tenant.Middleware(resolver, runner)(h.handler())

	serve := func(state string) *httptest.ResponseRecorder {
		q := url.Values{"state": {state}, "code": {"good"}}
		req := httptest.NewRequest(http.MethodGet, "https://api.example.com/auth/fake/callback?"+q.Encode(), nil)
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		return rec
	}

	state := h.begin(t, "https://acme.example.com/auth/fake")
	h.clock.Advance(9 * time.Minute)

	rec := serve(state)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, h.results, 1)
	assert.Equal(t, oauthguard.Result{Provider: "fake", TenantID: h.acme.ID, Profile: alice}, h.results[0])

	t.Run("second use is rejected", func(t *testing.T) {
		rec := serve(state)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Len(t, h.results, 1)
	})

	t.Run("expired state is rejected", func(t *testing.T) {
		fresh := h.begin(t, "https://acme.example.com/auth/fake")
		h.clock.Advance(11 * time.Minute)

		rec := serve(fresh)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Len(t, h.results, 1)
	})

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, []uuid.UUID{h.acme.ID}, runner.tenants)
}

func TestResultFromContext_Empty(t *testing.T) {
	_, ok := oauthguard.ResultFromContext(context.Background())
	assert.False(t, ok)
}

type mockStates struct {
	mock.Mock
}

func (m *mockStates) Sign(id uuid.UUID) (string, error) {
	args := m.Called(id)
	return args.String(0), args.Error(1)
}

func (m *mockStates) Verify(ctx context.Context, tok string) (uuid.UUID, error) {
	args := m.Called(ctx, tok)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func TestBegin_SignFailureIsServerError(t *testing.T) {
	reg := tenant.NewMemoryRegistry()
	acme, err := reg.Create(context.Background(), "https://acme.example.com")
	require.NoError(t, err)

	states := &mockStates{}
	states.On("Sign", acme.ID).Return("", errors.New("key unavailable")).Once()

	g, err := oauthguard.New(oauthguard.Config{Provider: &fakeAdapter{}}, tenant.NewResolver(reg), states)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	g.Begin(rec, httptest.NewRequest(http.MethodGet, "https://acme.example.com/auth/fake", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	states.AssertExpectations(t)
	states.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}
