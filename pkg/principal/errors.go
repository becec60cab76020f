package principal

import "errors"

var (
	ErrMissingSecret = errors.New("principal: signing secret is empty")
	ErrInvalidToken  = errors.New("principal: invalid token")
	ErrExpiredToken  = errors.New("principal: token expired")
	ErrNoToken       = errors.New("principal: no token in request")
)
