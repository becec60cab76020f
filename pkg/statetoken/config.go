package statetoken

import "time"

// Config holds state token settings loaded from the environment.
type Config struct {
	Secret    string        `env:"OAUTH_STATE_SECRET,required"`             // Secret is the server secret the signing key is derived from.
	TTL       time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`        // TTL is the lifetime of a state token.
	SingleUse bool          `env:"OAUTH_STATE_SINGLE_USE" envDefault:"true"` // SingleUse rejects a token presented a second time.
}

// NewFromConfig creates a Service from cfg. With SingleUse set it installs an
// in-memory replay guard; pass WithReplayGuard to share the guard between
// instances instead.
func NewFromConfig(cfg Config, opts ...Option) (*Service, error) {
	base := make([]Option, 0, 2+len(opts))
	if cfg.TTL > 0 {
		base = append(base, WithTTL(cfg.TTL))
	}
	if cfg.SingleUse {
		base = append(base, WithReplayGuard(NewMemoryReplayGuard()))
	}
	return New(cfg.Secret, append(base, opts...)...)
}
