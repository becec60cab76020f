package oauthguard

import "errors"

var (
	ErrProviderDisabled = errors.New("oauthguard: provider is disabled")
	ErrProviderError    = errors.New("oauthguard: provider returned an error")
	ErrMissingCode      = errors.New("oauthguard: authorization code is missing")
	ErrInvalidCode      = errors.New("oauthguard: authorization code is invalid")
	ErrNoPrimaryEmail   = errors.New("oauthguard: provider account has no usable email")
	ErrMissingProvider  = errors.New("oauthguard: provider adapter is required")
	ErrMissingResolver  = errors.New("oauthguard: tenant resolver is required")
	ErrMissingStates    = errors.New("oauthguard: state token service is required")
)
