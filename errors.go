package cookieauth

import (
	"errors"

	"github.com/dkrieger7/cookieauth/token"
)

var (
	// ErrUnauthorized is returned by Login for any credential failure. It is
	// deliberately uniform: callers cannot tell an unknown identifier from a
	// wrong secret.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnauthenticated is returned when a token is missing, malformed,
	// tampered with, expired, or refers to a revoked session. All of those
	// collapse into this single outcome.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrStoreUnavailable wraps session-store backend failures. It is
	// retryable and is never folded into ErrUnauthenticated.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrTokenInvalid is the codec-level decode failure, re-exported so
	// callers working with codecs directly need only this package.
	ErrTokenInvalid = token.ErrInvalid
	// ErrPrincipalNotFound is returned by Me when the principal store has no
	// record for an authenticated subject.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrSessionLimitExceeded is returned by Login when the subject already
	// holds the configured maximum number of live sessions.
	ErrSessionLimitExceeded = errors.New("session limit exceeded")
	// ErrGatewayNotReady is returned when a Gateway method is called on a
	// nil or incompletely built gateway.
	ErrGatewayNotReady = errors.New("gateway not initialized")
)
