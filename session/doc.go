// Package session owns the server-side session record: a random 128-bit id
// bound to a subject for a bounded time. It provides the versioned binary
// payload codec and two Store implementations (Redis, in-memory) with
// identical semantics: expired records are never returned, touch never
// extends an already-expired session, and revocation is idempotent.
//
// The package has no knowledge of cookies, tokens, or HTTP. Callers hold a
// Store handle; there is no process-wide session table.
package session
