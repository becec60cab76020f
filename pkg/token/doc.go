// Package token provides compact, signed tokens for embedding JSON payloads.
//
// Tokens use a full-length HMAC-SHA256 over the JSON-encoded payload. The
// payload is readable by anyone holding the token; the signature only proves
// that it was produced by a holder of the key.
//
// Token format: base64url(payload).base64url(signature)
//
// The "." delimiter never appears in the unpadded base64url alphabet, so a
// token always splits into exactly two parts.
//
// # Usage
//
//	import "github.com/dmitrymomot/tenantkit/pkg/token"
//
//	type Payload struct {
//	    TenantID string `json:"tenantId"`
//	    Exp      int64  `json:"exp"`
//	}
//
//	key := []byte("my-very-strong-secret")
//
//	tok, err := token.GenerateToken(Payload{"42", time.Now().Add(time.Hour).UnixMilli()}, key)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p, err := token.ParseToken[Payload](tok, key)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// ParseToken returns ErrInvalidToken for malformed tokens, ErrSignatureInvalid
// for signature mismatches and ErrInvalidPayload when the signed bytes are
// not valid JSON for T. Signatures are compared in constant time.
package token
