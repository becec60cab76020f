// Package oauthguard binds OAuth sign-in flows to a tenant.
//
// A Guard is created per provider. On the initiating leg it resolves the
// tenant, signs a short-lived state token for it and redirects to the
// provider. On the callback leg it trusts only the state token: the tenant
// is never re-derived from the callback request, which arrives from the
// provider without a usable origin.
//
//	g, err := oauthguard.New(oauthguard.Config{
//		Provider: oauthguard.NewGoogleAdapter(googleCfg),
//		Enabled:  oauthguard.FlagEnabled(flags, "oauth.google"),
//	}, resolver, states)
//	r.Handle("/auth/google", g.Middleware(linkAccount))
//	r.Handle("/auth/google/callback", g.Middleware(linkAccount))
//
// Adapters for Google and GitHub are provided; any type implementing
// ProviderAdapter can be guarded.
package oauthguard
