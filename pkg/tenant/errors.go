package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when a tenant cannot be found.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantNotResolved is returned when no tenant could be determined for a request.
	ErrTenantNotResolved = errors.New("tenant could not be resolved")

	// ErrTenantMismatch is returned when the principal's tenant does not own the request origin.
	ErrTenantMismatch = errors.New("tenant does not match request origin")

	// ErrInvalidState is returned when an OAuth state token fails verification.
	ErrInvalidState = errors.New("invalid state")

	// ErrInactiveTenant is returned when trying to use an inactive tenant.
	ErrInactiveTenant = errors.New("tenant is inactive")

	// ErrNoScope is returned when a tenant scope is required but absent.
	ErrNoScope = errors.New("no tenant scope in context")

	// ErrDuplicateHost is returned when a host is already registered to another tenant.
	ErrDuplicateHost = errors.New("tenant host already registered")

	// ErrInvalidHost is returned when a host cannot be canonicalised.
	ErrInvalidHost = errors.New("invalid tenant host")

	// ErrInvalidStatus is returned for an unknown tenant status.
	ErrInvalidStatus = errors.New("invalid tenant status")
)
