package token

import (
	"crypto/subtle"
	"encoding/json"
	"strings"
)

// ParseToken verifies the token's signature and decodes the JSON payload into the generic type.
// The payload is only decoded after the signature has been verified.
func ParseToken[T any](token string, key []byte) (T, error) {
	var payload T

	if len(key) == 0 {
		return payload, ErrEmptyKey
	}

	encPayload, encSig, found := strings.Cut(token, Separator)
	if !found || encPayload == "" || encSig == "" || strings.Contains(encSig, Separator) {
		return payload, ErrInvalidToken
	}

	data, err := encoding.DecodeString(encPayload)
	if err != nil {
		return payload, ErrInvalidToken
	}
	sig, err := encoding.DecodeString(encSig)
	if err != nil {
		return payload, ErrInvalidToken
	}

	// ConstantTimeCompare returns 0 immediately on length mismatch, which only
	// reveals the signature length, a public constant.
	if subtle.ConstantTimeCompare(sig, sign(data, key)) != 1 {
		return payload, ErrSignatureInvalid
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, ErrInvalidPayload
	}

	return payload, nil
}
