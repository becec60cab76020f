package statetoken

import (
	"context"
	"crypto/sha256"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/token"
)

// DefaultTTL is the lifetime of a state token.
const DefaultTTL = 10 * time.Minute

// keyInfo separates state token keys from any other key derived from the same secret.
const keyInfo = "tenantkit/oauth-state/v1"

// payload is the signed body of a state token. Times are epoch milliseconds.
type payload struct {
	TenantID  string `json:"tenantId"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithReplayGuard makes every token single use.
func WithReplayGuard(g ReplayGuard) Option {
	return func(s *Service) { s.guard = g }
}

// WithLogger sets the logger used for rejected tokens.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service signs and verifies state tokens that carry a tenant ID across an
// external redirect, such as a round trip through an OAuth provider.
type Service struct {
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	guard  ReplayGuard
	logger *slog.Logger
}

// New creates a Service whose HMAC key is derived from secret.
// An empty secret is a configuration error.
func New(secret string, opts ...Option) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}

	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, err
	}

	s := &Service{
		key:    key,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *Service) TTL() time.Duration { return s.ttl }

// Sign issues a token for tenantID that expires after the configured TTL.
func (s *Service) Sign(tenantID uuid.UUID) (string, error) {
	if tenantID == uuid.Nil {
		return "", ErrInvalidTenant
	}

	now := s.now()
	return token.GenerateToken(payload{
		TenantID:  tenantID.String(),
		IssuedAt:  now.UnixMilli(),
		ExpiresAt: now.Add(s.ttl).UnixMilli(),
	}, s.key)
}

// Verify checks the token's signature, shape and expiry and returns the
// tenant ID it carries. All failures are reported as ErrInvalidState.
func (s *Service) Verify(ctx context.Context, tok string) (uuid.UUID, error) {
	p, err := token.ParseToken[payload](tok, s.key)
	if err != nil {
		return s.reject(ctx, "malformed or unsigned")
	}

	if p.TenantID == "" || p.IssuedAt <= 0 || p.ExpiresAt <= 0 {
		return s.reject(ctx, "missing fields")
	}
	id, err := uuid.Parse(p.TenantID)
	if err != nil || id == uuid.Nil {
		return s.reject(ctx, "bad tenant id")
	}

	now := s.now()
	if now.UnixMilli() > p.ExpiresAt {
		return s.reject(ctx, "expired")
	}

	if s.guard != nil {
		_, sig, _ := strings.Cut(tok, token.Separator)
		// Remaining lifetime on the service clock; the guard never reads a clock of its own.
		remaining := max(time.UnixMilli(p.ExpiresAt).Sub(now), time.Millisecond)
		first, err := s.guard.Consume(ctx, sig, remaining)
		if err != nil {
			s.logger.ErrorContext(ctx, "state replay guard failed", logger.Error(err), logger.Component("statetoken"))
			return uuid.Nil, ErrInvalidState
		}
		if !first {
			return s.reject(ctx, "replayed")
		}
	}

	return id, nil
}

// reject logs the concrete reason server side and returns the uniform error.
func (s *Service) reject(ctx context.Context, reason string) (uuid.UUID, error) {
	s.logger.DebugContext(ctx, "state token rejected",
		slog.String("reason", reason),
		logger.Component("statetoken"))
	return uuid.Nil, ErrInvalidState
}
