package redis

import "errors"

var (
	// ErrEmptyConnectionURL is returned by Connect when no URL is configured.
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")
	// ErrInvalidConnectionURL wraps URL parse failures.
	ErrInvalidConnectionURL = errors.New("invalid redis connection URL")
	// ErrRedisNotReady is returned when every connection attempt failed.
	ErrRedisNotReady = errors.New("redis did not become ready")
	// ErrHealthcheckFailed wraps ping failures.
	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)
