// Package tenant is the request-facing half of the tenant isolation core.
//
// It defines the Tenant model and Registry contract, carries the active
// tenant Scope through context.Context, resolves the tenant of an inbound
// request and wraps every request in exactly one tenant-scoped unit of work.
//
// # Scope propagation
//
// A Scope pairs the tenant ID with the transaction all queries of one unit of
// work must use. It travels in the context passed down the call chain, so it
// is visible to everything the unit of work calls, including goroutines it
// starts with that context, and invisible to every other request running
// concurrently. There is no global state.
//
//	err := tenant.Run(ctx, tenant.Scope{TenantID: id, Tx: tx}, func(ctx context.Context) error {
//		id := tenant.MustIDFromContext(ctx)
//		...
//	})
//
// # Resolution
//
// Resolver tries, in order and stopping at the first strategy that applies:
//
//  1. a signed OAuth state token on a callback path (query parameter "state");
//  2. the authenticated principal's tenant claim, whose registered host must
//     equal the request origin;
//  3. the request origin looked up in the Registry.
//
// A strategy that applies but fails rejects the request. A forged state token
// or a session replayed against another tenant's host never degrades to a
// weaker strategy. When nothing applies Resolve returns uuid.Nil and the caller
// decides; Middleware answers 401.
//
// # Usage
//
//	resolver := tenant.NewResolver(registry,
//		tenant.WithStateVerifier(states),
//		tenant.WithPrincipal(principal.TenantClaim),
//	)
//
//	r.Use(tenant.Middleware(resolver, runner,
//		tenant.WithSkipPaths("/health"),
//		tenant.WithLogger(log),
//	))
//
// # Error Handling
//
// ErrTenantNotResolved, ErrTenantMismatch and ErrInvalidState all map to the
// same 401 response body in DefaultErrorHandler. ErrInactiveTenant maps to 403.
package tenant
