package cors

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// OriginResolver decides whether a browser origin may call the API.
// An origin is allowed when it is configured statically or when it is the
// host of an active tenant. Registry answers are cached per origin with a TTL;
// Invalidate drops them after the registry changes.
type OriginResolver struct {
	registry tenant.Registry
	static   map[string]struct{}
	cache    *ristretto.Cache[string, bool]
	ttl      time.Duration
	logger   *slog.Logger
}

// ResolverOption configures an OriginResolver.
type ResolverOption func(*OriginResolver)

// WithLogger sets the logger for registry failures.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *OriginResolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewOriginResolver creates a resolver. Static origins that cannot be
// canonicalised are ignored.
func NewOriginResolver(registry tenant.Registry, cfg Config, opts ...ResolverOption) (*OriginResolver, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}

	maxEntries := cfg.CacheMaxEntries
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, bool]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	r := &OriginResolver{
		registry: registry,
		static:   make(map[string]struct{}, len(cfg.AllowedOrigins)),
		cache:    cache,
		ttl:      cfg.CacheTTL,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if r.ttl <= 0 {
		r.ttl = 5 * time.Minute
	}
	for _, o := range cfg.AllowedOrigins {
		if c, err := tenant.CanonicalHost(o); err == nil {
			r.static[c] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Allowed reports whether origin may make credentialed cross-origin requests.
func (r *OriginResolver) Allowed(ctx context.Context, origin string) bool {
	canonical, err := tenant.CanonicalHost(origin)
	if err != nil {
		return false
	}
	if _, ok := r.static[canonical]; ok {
		return true
	}

	if allowed, ok := r.cache.Get(canonical); ok {
		return allowed
	}

	t, err := r.registry.FindByHost(ctx, canonical)
	switch {
	case err == nil:
	case errors.Is(err, tenant.ErrTenantNotFound):
		t = nil
	default:
		// Not cached; the next request asks the registry again.
		r.logger.ErrorContext(ctx, "cors origin lookup failed",
			slog.String("origin", canonical),
			logger.Error(err),
			logger.Component("cors"))
		return false
	}

	allowed := t.Active()
	r.cache.SetWithTTL(canonical, allowed, 1, r.ttl)
	return allowed
}

// Invalidate drops every cached answer. Wire it to the registry change hook.
func (r *OriginResolver) Invalidate() {
	r.cache.Clear()
}

// OnTenantChange matches tenant.ChangeHook.
func (r *OriginResolver) OnTenantChange(ctx context.Context, t *tenant.Tenant) {
	r.Invalidate()
}

// Wait blocks until pending cache writes are applied.
func (r *OriginResolver) Wait() { r.cache.Wait() }

// Close releases the cache.
func (r *OriginResolver) Close() { r.cache.Close() }
