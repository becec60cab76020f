package principal

import "time"

// Config holds bearer token settings.
type Config struct {
	Secret string        `env:"PRINCIPAL_JWT_SECRET,required"`
	Issuer string        `env:"PRINCIPAL_JWT_ISSUER" envDefault:"tenantkit"`
	TTL    time.Duration `env:"PRINCIPAL_JWT_TTL" envDefault:"1h"`
}

// NewFromConfig creates a Service from cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Service, error) {
	base := []Option{WithIssuer(cfg.Issuer), WithTTL(cfg.TTL)}
	return New(cfg.Secret, append(base, opts...)...)
}
