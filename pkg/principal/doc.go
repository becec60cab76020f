// Package principal authenticates API callers with HS256 bearer tokens built
// on github.com/golang-jwt/jwt/v5.
//
// Each token names the tenant its subject belongs to in the tenant_id claim.
// Middleware parses the token and stores the claims in the request context;
// TenantClaim exposes the claim to the tenant resolver:
//
//	resolver := tenant.NewResolver(registry, tenant.WithPrincipal(principal.TenantClaim))
//	r.Use(principal.Middleware(svc), tenant.Middleware(resolver, runner))
package principal
