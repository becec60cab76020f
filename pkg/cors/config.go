package cors

import "time"

// Config holds CORS settings. Tenant hosts are always allowed; AllowedOrigins
// adds origins that do not belong to a tenant, such as an admin console.
type Config struct {
	AllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	AllowedMethods   []string      `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,PATCH,DELETE"`
	AllowedHeaders   []string      `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Authorization,Content-Type"`
	AllowCredentials bool          `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           time.Duration `env:"CORS_MAX_AGE" envDefault:"10m"`
	CacheTTL         time.Duration `env:"CORS_CACHE_TTL" envDefault:"5m"`
	CacheMaxEntries  int64         `env:"CORS_CACHE_MAX_ENTRIES" envDefault:"10000"`
}
