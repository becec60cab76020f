package token

import "errors"

var (
	ErrInvalidToken     = errors.New("invalid token format")
	ErrSignatureInvalid = errors.New("signature mismatch")
	ErrInvalidPayload   = errors.New("invalid token payload")
	ErrEmptyKey         = errors.New("signing key is empty")
)
