package tenantdb

import "errors"

var (
	ErrNilTenant       = errors.New("tenantdb: tenant id is nil")
	ErrNestedScope     = errors.New("tenantdb: a tenant scope is already active in this context")
	ErrBeginFailed     = errors.New("tenantdb: failed to begin transaction")
	ErrSetTenantFailed = errors.New("tenantdb: failed to set tenant session setting")
	ErrCommitFailed    = errors.New("tenantdb: failed to commit transaction")
	ErrNilPool         = errors.New("tenantdb: pool is nil")
)
