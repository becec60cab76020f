package main

import (
	"time"

	"github.com/dmitrymomot/tenantkit/pkg/cors"
	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/oauthguard"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/principal"
	"github.com/dmitrymomot/tenantkit/pkg/redis"
	"github.com/dmitrymomot/tenantkit/pkg/statetoken"
)

type appConfig struct {
	Log       logger.Config
	HTTP      httpserver.Config
	Postgres  pg.Config
	Redis     redis.Config
	State     statetoken.Config
	Principal principal.Config
	CORS      cors.Config
	Google    oauthguard.GoogleConfig
	GitHub    oauthguard.GitHubConfig

	// OAuthDisabledTenants lists tenant IDs for which social sign-in is off.
	OAuthDisabledTenants []string `env:"OAUTH_DISABLED_TENANTS" envSeparator:","`

	NotesRetention      time.Duration `env:"NOTES_RETENTION" envDefault:"0"`
	NotesRetentionEvery time.Duration `env:"NOTES_RETENTION_INTERVAL" envDefault:"1h"`
}
