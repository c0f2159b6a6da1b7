package session

import "time"

// Session binds an opaque id to an authenticated subject for a bounded time.
//
// ExpiresAt is the effective expiry: under sliding expiration it moves
// forward on activity, but never past CreatedAt plus the store's maximum
// lifetime. Timestamps are unix seconds.
type Session struct {
	ID        string
	SubjectID string

	CreatedAt int64
	ExpiresAt int64
}

// ExpiresIn returns the remaining lifetime relative to now, which may be
// negative for an expired session.
func (s *Session) ExpiresIn(now time.Time) time.Duration {
	return time.Unix(s.ExpiresAt, 0).Sub(now)
}

// Expired reports whether the session's effective expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}
