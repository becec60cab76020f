// Package feature provides feature flags with per-tenant rollout.
//
// The OAuth guards use it to switch identity providers on and off per
// tenant:
//
//	flags, _ := feature.NewMemoryProvider(&feature.Flag{
//		Name:    "oauth.github",
//		Enabled: true,
//		Strategy: feature.NewTenantStrategy(feature.TenantCriteria{
//			AllowList: []string{acmeID.String()},
//		}, tenantExtractor),
//	})
//
//	enabled, err := flags.IsEnabled(ctx, "oauth.github")
//
// A disabled flag is off regardless of its strategy. Unknown flags return
// ErrFlagNotFound.
package feature
