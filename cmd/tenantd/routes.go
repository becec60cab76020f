package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/tenantkit/pkg/cors"
	"github.com/dmitrymomot/tenantkit/pkg/feature"
	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/oauthguard"
	"github.com/dmitrymomot/tenantkit/pkg/principal"
	"github.com/dmitrymomot/tenantkit/pkg/statetoken"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

type application struct {
	log        *slog.Logger
	cfg        appConfig
	db         *tenantdb.DB
	runner     tenant.Runner
	resolver   *tenant.Resolver
	states     *statetoken.Service
	principals *principal.Service
	origins    *cors.OriginResolver
	flags      feature.Provider
	checks     map[string]httpserver.Check
}

func (app *application) routes() (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Middleware(app.origins, app.cfg.CORS))

	r.Get("/health", httpserver.HealthCheckHandler(app.log, app.checks))
	r.Get("/health/live", httpserver.HealthCheckHandler(app.log, nil))

	guards, err := app.guards()
	if err != nil {
		return nil, err
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(principal.Middleware(app.principals))
		api.Use(tenant.Middleware(app.resolver, app.runner, tenant.WithLogger(app.log)))

		api.Get("/me", app.me)
		api.Get("/notes", app.listNotes)
		api.Post("/notes", app.createNote)

		signIn := http.HandlerFunc(app.signIn)
		for name, g := range guards {
			h := g.Middleware(signIn)
			api.Handle("/auth/"+name, h)
			api.Handle("/auth/"+name+"/callback", h)
		}
	})

	return r, nil
}

// guards builds one guard per configured provider.
func (app *application) guards() (map[string]*oauthguard.Guard, error) {
	type provider struct {
		adapter  oauthguard.ProviderAdapter
		flag     string
		message  string
		authOpts []oauth2.AuthCodeOption
	}

	var providers []provider
	if app.cfg.Google.ClientID != "" {
		providers = append(providers, provider{
			adapter:  oauthguard.NewGoogleAdapter(app.cfg.Google),
			flag:     flagGoogleSignIn,
			message:  app.cfg.Google.DisabledMessage,
			authOpts: []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "select_account")},
		})
	}
	if app.cfg.GitHub.ClientID != "" {
		providers = append(providers, provider{
			adapter: oauthguard.NewGitHubAdapter(app.cfg.GitHub),
			flag:    flagGitHubSignIn,
			message: app.cfg.GitHub.DisabledMessage,
		})
	}

	guards := make(map[string]*oauthguard.Guard, len(providers))
	for _, p := range providers {
		g, err := oauthguard.New(oauthguard.Config{
			Provider: p.adapter,
			Options: func(*http.Request) []oauth2.AuthCodeOption {
				return p.authOpts
			},
			Enabled:         oauthguard.FlagEnabled(app.flags, p.flag),
			DisabledMessage: p.message,
		}, app.resolver, app.states, oauthguard.WithLogger(app.log))
		if err != nil {
			return nil, err
		}
		guards[p.adapter.ProviderID()] = g
	}
	return guards, nil
}
