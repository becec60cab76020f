package main

import (
	"context"

	"github.com/dmitrymomot/tenantkit/pkg/feature"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

const (
	flagGoogleSignIn = "oauth.google"
	flagGitHubSignIn = "oauth.github"
)

// newFlags declares the sign-in switches. A provider is on when its config
// enables it and the tenant is not listed in OAUTH_DISABLED_TENANTS.
func newFlags(cfg appConfig) (*feature.MemoryProvider, error) {
	perTenant := feature.NewTenantStrategy(
		feature.TenantCriteria{DenyList: cfg.OAuthDisabledTenants},
		scopeTenant,
	)
	return feature.NewMemoryProvider(
		&feature.Flag{Name: flagGoogleSignIn, Description: "Sign in with Google", Enabled: cfg.Google.Enabled, Strategy: perTenant},
		&feature.Flag{Name: flagGitHubSignIn, Description: "Sign in with GitHub", Enabled: cfg.GitHub.Enabled, Strategy: perTenant},
	)
}

func scopeTenant(ctx context.Context) (string, bool) {
	id, ok := tenant.IDFromContext(ctx)
	if !ok {
		return "", false
	}
	return id.String(), true
}
