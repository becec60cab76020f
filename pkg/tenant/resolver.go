package tenant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultOriginHeader is the header consulted first when computing a request origin.
	DefaultOriginHeader = "Origin"
	// DefaultCallbackSegment marks OAuth callback paths.
	DefaultCallbackSegment = "callback"
	// DefaultStateParam is the query parameter carrying the OAuth state token.
	DefaultStateParam = "state"
)

// StateVerifier verifies a signed state token and returns the tenant it carries.
type StateVerifier interface {
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}

// PrincipalFunc returns the tenant claim of the authenticated principal, if any.
type PrincipalFunc func(r *http.Request) (tenantID string, ok bool)

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithStateVerifier enables resolution from OAuth state tokens on callback paths.
func WithStateVerifier(v StateVerifier) ResolverOption {
	return func(r *Resolver) { r.verifier = v }
}

// WithPrincipal enables resolution from the authenticated principal's tenant claim.
func WithPrincipal(fn PrincipalFunc) ResolverOption {
	return func(r *Resolver) { r.principal = fn }
}

// WithOriginHeader overrides the header that names the request origin.
func WithOriginHeader(name string) ResolverOption {
	return func(r *Resolver) {
		if name != "" {
			r.originHeader = name
		}
	}
}

// WithResolverLogger sets the logger used for rejected resolutions.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver determines the tenant of an inbound request. Strategies are tried in
// a fixed order and the first that applies decides; a strategy that applies
// but fails rejects the request instead of falling through to a weaker one.
//
//  1. Signed OAuth state token on a callback path.
//  2. Authenticated principal's tenant claim, cross-checked against the request origin.
//  3. Request origin looked up in the registry.
type Resolver struct {
	registry     Registry
	verifier     StateVerifier
	principal    PrincipalFunc
	originHeader string
	logger       *slog.Logger
}

// NewResolver creates a resolver backed by registry.
func NewResolver(registry Registry, opts ...ResolverOption) *Resolver {
	if registry == nil {
		panic("tenant: resolver requires a registry")
	}
	r := &Resolver{
		registry:     registry,
		originHeader: DefaultOriginHeader,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the tenant ID for req, or uuid.Nil with a nil error when no
// strategy applies. Deciding what an unresolved request means is left to the caller.
func (r *Resolver) Resolve(req *http.Request) (uuid.UUID, error) {
	ctx := req.Context()

	if state := req.URL.Query().Get(DefaultStateParam); state != "" && IsCallbackPath(req.URL.Path) {
		return r.fromState(ctx, req, state)
	}

	if r.principal != nil {
		if claim, ok := r.principal(req); ok && claim != "" {
			return r.fromPrincipal(ctx, req, claim)
		}
	}

	return r.fromOrigin(ctx, req)
}

// ResolveWithoutState skips the state token strategy. OAuth guards use it on
// the initiating leg, where no state exists yet.
func (r *Resolver) ResolveWithoutState(req *http.Request) (uuid.UUID, error) {
	ctx := req.Context()
	if r.principal != nil {
		if claim, ok := r.principal(req); ok && claim != "" {
			return r.fromPrincipal(ctx, req, claim)
		}
	}
	return r.fromOrigin(ctx, req)
}

func (r *Resolver) fromState(ctx context.Context, req *http.Request, state string) (uuid.UUID, error) {
	if r.verifier == nil {
		return uuid.Nil, ErrInvalidState
	}

	id, err := r.verifier.Verify(ctx, state)
	if err != nil {
		r.logger.WarnContext(ctx, "state token rejected", slog.String("path", req.URL.Path))
		return uuid.Nil, ErrInvalidState
	}

	t, err := r.registry.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return uuid.Nil, ErrInvalidState
		}
		return uuid.Nil, fmt.Errorf("find tenant by state: %w", err)
	}
	if !t.Active() {
		return uuid.Nil, ErrInactiveTenant
	}

	// The provider redirect normally carries no origin; when one is asserted it must agree.
	if HasExplicitOrigin(req, r.originHeader) && RequestOrigin(req, r.originHeader) != t.Host {
		r.logger.WarnContext(ctx, "state token tenant does not own origin",
			slog.String("tenant_id", id.String()))
		return uuid.Nil, ErrTenantMismatch
	}

	return t.ID, nil
}

func (r *Resolver) fromPrincipal(ctx context.Context, req *http.Request, claim string) (uuid.UUID, error) {
	id, err := uuid.Parse(claim)
	if err != nil {
		return uuid.Nil, ErrTenantMismatch
	}

	t, err := r.registry.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return uuid.Nil, ErrTenantMismatch
		}
		return uuid.Nil, fmt.Errorf("find tenant by principal: %w", err)
	}

	origin := RequestOrigin(req, r.originHeader)
	if origin == "" || origin != t.Host {
		r.logger.WarnContext(ctx, "principal tenant does not own origin",
			slog.String("tenant_id", id.String()),
			slog.String("origin", origin))
		return uuid.Nil, ErrTenantMismatch
	}
	if !t.Active() {
		return uuid.Nil, ErrInactiveTenant
	}

	return t.ID, nil
}

func (r *Resolver) fromOrigin(ctx context.Context, req *http.Request) (uuid.UUID, error) {
	origin := RequestOrigin(req, r.originHeader)
	if origin == "" {
		return uuid.Nil, nil
	}

	t, err := r.registry.FindByHost(ctx, origin)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return uuid.Nil, nil
		}
		return uuid.Nil, fmt.Errorf("find tenant by host: %w", err)
	}
	if !t.Active() {
		return uuid.Nil, ErrInactiveTenant
	}

	return t.ID, nil
}

// IsCallbackPath reports whether path contains a literal "callback" segment.
func IsCallbackPath(path string) bool {
	for seg := range strings.SplitSeq(path, "/") {
		if seg == DefaultCallbackSegment {
			return true
		}
	}
	return false
}
