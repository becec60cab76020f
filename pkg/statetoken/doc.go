// Package statetoken signs and verifies short-lived state tokens that carry a
// tenant ID through an external redirect, typically the OAuth authorization
// round trip, where no request context survives.
//
// Wire format (see package token):
//
//	base64url({"tenantId":"<uuid>","iat":<epoch ms>,"exp":<epoch ms>}) "." base64url(HMAC-SHA256)
//
// The HMAC key is derived from the server secret with HKDF-SHA256. Tokens live
// for DefaultTTL (10 minutes). Verify rejects bad signatures, malformed or
// incomplete payloads and expired tokens with the single error
// ErrInvalidState, so a caller cannot learn which check failed.
//
// With a ReplayGuard configured every token verifies at most once.
//
// # Usage
//
//	states, err := statetoken.New(cfg.Secret,
//		statetoken.WithReplayGuard(statetoken.NewRedisReplayGuard(rdb, "")),
//	)
//	if err != nil {
//		return err // missing secret: refuse to start
//	}
//
//	state, _ := states.Sign(tenantID)
//	...
//	tenantID, err := states.Verify(ctx, r.URL.Query().Get("state"))
package statetoken
