package oauthguard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/tenantkit/pkg/feature"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// EnabledFunc reports whether the provider may be used for the request.
type EnabledFunc func(r *http.Request) (bool, error)

// StaticEnabled returns an EnabledFunc with a fixed answer.
func StaticEnabled(enabled bool) EnabledFunc {
	return func(*http.Request) (bool, error) { return enabled, nil }
}

// FlagEnabled evaluates the named flag against the request context, so
// tenant-targeted strategies see the active tenant scope. A missing flag
// disables the provider.
func FlagEnabled(p feature.Provider, name string) EnabledFunc {
	return func(r *http.Request) (bool, error) {
		ok, err := p.IsEnabled(r.Context(), name)
		if errors.Is(err, feature.ErrFlagNotFound) {
			return false, nil
		}
		return ok, err
	}
}

// StateService signs and verifies OAuth state tokens.
type StateService interface {
	Sign(tenantID uuid.UUID) (string, error)
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}

// Config parameterises a Guard for one provider.
type Config struct {
	Provider ProviderAdapter
	// Options adds provider specific authorization parameters per request.
	Options func(r *http.Request) []oauth2.AuthCodeOption
	// Enabled defaults to StaticEnabled(true).
	Enabled         EnabledFunc
	DisabledMessage string
}

// Guard runs both legs of an OAuth flow for one provider and binds the flow
// to a tenant through the signed state token.
type Guard struct {
	cfg      Config
	resolver *tenant.Resolver
	states   StateService
	logger   *slog.Logger
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithLogger sets the guard logger.
func WithLogger(l *slog.Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a guard.
func New(cfg Config, resolver *tenant.Resolver, states StateService, opts ...GuardOption) (*Guard, error) {
	if cfg.Provider == nil {
		return nil, ErrMissingProvider
	}
	if resolver == nil {
		return nil, ErrMissingResolver
	}
	if states == nil {
		return nil, ErrMissingStates
	}
	if cfg.Enabled == nil {
		cfg.Enabled = StaticEnabled(true)
	}
	if cfg.DisabledMessage == "" {
		cfg.DisabledMessage = "Sign-in with " + cfg.Provider.ProviderID() + " is disabled"
	}

	g := &Guard{
		cfg:      cfg,
		resolver: resolver,
		states:   states,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Middleware serves the initiating leg itself and runs next only after a
// successful callback. Callback requests are those whose path has a
// "callback" segment.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	callback := g.Callback(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tenant.IsCallbackPath(r.URL.Path) {
			callback.ServeHTTP(w, r)
			return
		}
		g.Begin(w, r)
	})
}

// Begin redirects the user to the provider with a state token bound to the
// request's tenant.
func (g *Guard) Begin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := g.logger.With(logger.Provider(g.cfg.Provider.ProviderID()), logger.Component("oauthguard"))

	enabled, err := g.cfg.Enabled(r)
	if err != nil {
		log.ErrorContext(ctx, "evaluate provider enablement", logger.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !enabled {
		http.Error(w, g.cfg.DisabledMessage, http.StatusForbidden)
		return
	}

	tenantID, err := g.initiatingTenant(r)
	if err != nil || tenantID == uuid.Nil {
		log.WarnContext(ctx, "oauth initiation without tenant", logger.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	state, err := g.states.Sign(tenantID)
	if err != nil {
		log.ErrorContext(ctx, "sign state token", logger.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var opts []oauth2.AuthCodeOption
	if g.cfg.Options != nil {
		opts = g.cfg.Options(r)
	}
	http.Redirect(w, r, g.cfg.Provider.AuthURL(state, opts...), http.StatusFound)
}

func (g *Guard) initiatingTenant(r *http.Request) (uuid.UUID, error) {
	if id, ok := tenant.IDFromContext(r.Context()); ok {
		return id, nil
	}
	return g.resolver.ResolveWithoutState(r)
}

// Callback verifies the returned state, exchanges the code and hands the
// resulting profile to next through the request context.
func (g *Guard) Callback(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()
		log := g.logger.With(logger.Provider(g.cfg.Provider.ProviderID()), logger.Component("oauthguard"))

		tenantID, err := g.callbackTenant(r, q.Get(tenant.DefaultStateParam))
		if err != nil {
			log.WarnContext(ctx, "oauth callback rejected", logger.Error(err))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if perr := q.Get("error"); perr != "" {
			log.WarnContext(ctx, "provider denied authorization",
				slog.String("provider_error", perr),
				logger.TenantID(tenantID))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		code := q.Get("code")
		if code == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		profile, err := g.cfg.Provider.ResolveProfile(ctx, code)
		switch {
		case err == nil:
		case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrNoPrimaryEmail):
			log.WarnContext(ctx, "resolve provider profile", logger.Error(err))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		default:
			log.ErrorContext(ctx, "resolve provider profile", logger.Error(err))
			http.Error(w, "Bad gateway", http.StatusBadGateway)
			return
		}

		res := Result{Provider: g.cfg.Provider.ProviderID(), TenantID: tenantID, Profile: profile}
		next.ServeHTTP(w, r.WithContext(WithResult(ctx, res)))
	})
}

// callbackTenant never resolves a tenant from the request itself. Inside the
// isolation middleware the state token has already been verified and consumed
// to open the scope, so the scope's tenant is the token's tenant.
func (g *Guard) callbackTenant(r *http.Request, state string) (uuid.UUID, error) {
	if state == "" {
		return uuid.Nil, tenant.ErrInvalidState
	}
	if id, ok := tenant.IDFromContext(r.Context()); ok {
		return id, nil
	}
	id, err := g.states.Verify(r.Context(), state)
	if err != nil {
		return uuid.Nil, tenant.ErrInvalidState
	}
	return id, nil
}
