package token

import (
	"errors"
	"time"
)

// ErrInvalid is the single decode failure. Malformed input, a bad signature,
// an unknown key, and an expired token are deliberately indistinguishable to
// the caller.
var ErrInvalid = errors.New("invalid token")

// Codec serializes a session id into an opaque cookie value and back.
//
// Encode binds the token to an expiry so a stolen value cannot be replayed
// past the session's own lifetime even if the server-side record lingers.
type Codec interface {
	Encode(sessionID string, expiresAt time.Time) (string, error)
	Decode(tok string) (string, error)
}
