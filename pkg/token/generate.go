package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
)

// Separator joins the encoded payload and the encoded signature.
const Separator = "."

// encoding rejects non-zero trailing bits, so every token has exactly one
// accepted spelling and no character can be altered without detection.
var encoding = base64.RawURLEncoding.Strict()

// GenerateToken JSON encodes the payload and appends its HMAC-SHA256 signature.
func GenerateToken[T any](payload T, key []byte) (string, error) {
	if len(key) == 0 {
		return "", ErrEmptyKey
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	return encoding.EncodeToString(data) + Separator +
		encoding.EncodeToString(sign(data, key)), nil
}

func sign(data, key []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
