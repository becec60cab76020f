package feature

import "errors"

var (
	// ErrFlagNotFound indicates that the requested feature flag was not found.
	ErrFlagNotFound = errors.New("feature flag not found")

	// ErrInvalidFlag indicates that the provided flag parameters are invalid.
	ErrInvalidFlag = errors.New("invalid feature flag parameters")

	// ErrInvalidStrategy indicates an issue with the rollout strategy configuration.
	ErrInvalidStrategy = errors.New("invalid feature rollout strategy")
)
