package statetoken

import "errors"

var (
	// ErrMissingSecret is a configuration error: the service cannot start without a signing secret.
	ErrMissingSecret = errors.New("statetoken: signing secret is not configured")

	// ErrInvalidState is the only verification error. It never reveals which check failed.
	ErrInvalidState = errors.New("statetoken: invalid state")

	// ErrInvalidTenant is returned when signing for the nil tenant ID.
	ErrInvalidTenant = errors.New("statetoken: invalid tenant id")
)
