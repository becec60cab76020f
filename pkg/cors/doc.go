// Package cors allows cross-origin requests from tenant hosts.
//
// The set of allowed origins is the hosts of active tenants plus statically
// configured origins. Registry answers are cached per origin in a
// github.com/dgraph-io/ristretto/v2 cache with a TTL; hook the resolver to the
// registry so that host or status changes take effect at once:
//
//	origins, err := cors.NewOriginResolver(registry, cfg)
//	registry.OnChange(origins.OnTenantChange)
//	r.Use(cors.Middleware(origins, cfg))
package cors
