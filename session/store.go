package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session does not exist or has expired.
// Callers cannot distinguish the two cases; an expired record is absent.
var ErrNotFound = errors.New("session not found")

// ErrUnavailable wraps backend failures (connection refused, timeout).
// It is retryable and must never be collapsed into ErrNotFound.
var ErrUnavailable = errors.New("session store unavailable")

// ErrCorrupt is returned when a stored payload cannot be decoded.
var ErrCorrupt = errors.New("session payload corrupt")

// Config controls expiry behavior shared by all Store implementations.
type Config struct {
	// MaxLifetime is the absolute lifetime cap measured from creation.
	MaxLifetime time.Duration

	// Window is the effective lifetime granted at creation and restored by
	// each Touch, never past CreatedAt+MaxLifetime. Zero defaults to
	// MaxLifetime, which makes Touch an idempotent validation.
	Window time.Duration

	// OpTimeout bounds each backend round-trip for stores that do I/O.
	// Zero means the caller's context deadline alone applies.
	OpTimeout time.Duration
}

// Store maps opaque session ids to Session records with expiry.
//
// All mutations on a single id are atomic: concurrent Create, Get, Touch,
// and Revoke calls never observe a half-written record and never resurrect
// a revoked or expired session.
type Store interface {
	// Create generates a fresh random id, persists the record, and returns
	// it. The id never collides with a live session.
	Create(ctx context.Context, subjectID string) (*Session, error)

	// Get returns the session if it exists and has not expired. Expired
	// records are treated as absent regardless of whether a sweep has
	// removed them yet.
	Get(ctx context.Context, id string) (*Session, error)

	// Touch extends the effective expiry to now+Window, capped by the
	// absolute lifetime, and returns the updated record. Touching an
	// expired or missing session returns ErrNotFound; it never revives it.
	// Whether reads touch implicitly is the caller's policy, not the
	// store's.
	Touch(ctx context.Context, id string) (*Session, error)

	// Revoke removes the session. Revoking an unknown id is not an error.
	Revoke(ctx context.Context, id string) error

	// RevokeAllForSubject removes every live session of a subject.
	RevokeAllForSubject(ctx context.Context, subjectID string) error

	// ActiveSessionCount returns the number of tracked sessions for a subject.
	ActiveSessionCount(ctx context.Context, subjectID string) (int, error)

	// ActiveSessionIDs returns the tracked session ids for a subject.
	ActiveSessionIDs(ctx context.Context, subjectID string) ([]string, error)

	// Ping is a point-in-time backend availability check.
	Ping(ctx context.Context) error

	// Close releases backend resources and stops background sweeping.
	Close() error
}

func (c Config) normalize() Config {
	if c.MaxLifetime <= 0 {
		c.MaxLifetime = 24 * time.Hour
	}
	if c.Window <= 0 {
		c.Window = c.MaxLifetime
	}
	if c.Window > c.MaxLifetime {
		c.Window = c.MaxLifetime
	}
	return c
}

// initialTTL is the effective lifetime a fresh session starts with.
func (c Config) initialTTL() time.Duration {
	return c.Window
}
