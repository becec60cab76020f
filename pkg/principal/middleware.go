package principal

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type claimsKey struct{}

// WithClaims returns a context carrying claims.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// FromContext returns the authenticated principal, if any.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}

// TenantClaim returns the tenant claim of the request's principal. Its
// signature matches tenant.PrincipalFunc.
func TenantClaim(r *http.Request) (string, bool) {
	c, ok := FromContext(r.Context())
	if !ok || c.TenantID == "" {
		return "", false
	}
	return c.TenantID, true
}

// TokenExtractorFunc extracts a token from a request. It returns ErrNoToken
// when the request carries none.
type TokenExtractorFunc func(r *http.Request) (string, error)

// BearerTokenExtractor reads "Authorization: Bearer <token>".
func BearerTokenExtractor(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrNoToken
	}
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(tok), nil
}

// CookieTokenExtractor reads the token from the named cookie.
func CookieTokenExtractor(name string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			return "", ErrNoToken
		}
		return c.Value, nil
	}
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	extractor TokenExtractorFunc
	required  bool
}

// WithExtractor replaces the bearer extractor.
func WithExtractor(fn TokenExtractorFunc) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.extractor = fn
		}
	}
}

// WithRequired rejects requests that carry no token.
func WithRequired() MiddlewareOption {
	return func(c *middlewareConfig) { c.required = true }
}

// Middleware authenticates the request's principal and stores its claims in
// the context. Requests without a token pass through anonymously unless
// WithRequired is set; a token that is present but invalid is always rejected
// with 401.
func Middleware(svc *Service, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{extractor: BearerTokenExtractor}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := cfg.extractor(r)
			if errors.Is(err, ErrNoToken) && !cfg.required {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := svc.Parse(tok)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
