// Package cookieauth provides a cookie-session authentication core: random
// server-side session ids with expiry, a tamper-evident cookie token codec,
// and a gateway that issues, validates, refreshes, and revokes sessions.
//
// The package is designed for concurrent server workloads: Gateway methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// cookieauth is the public surface. It exposes [Gateway], [Builder],
// [Config], and value types (AuthResult, Principal, MetricsSnapshot).
// Session storage lives in the session subpackage, token encoding in the
// token subpackage, HTTP glue in the middleware subpackage.
//
// # What this package must NOT do
//
//   - Verify credentials or load principal data; both are delegated to the
//     injected [CredentialVerifier] and [PrincipalStore] collaborators.
//   - Read cookies or any other ambient request state; tokens are passed in
//     as explicit values.
//   - Collapse a store outage into an authentication failure. Backend
//     unavailability surfaces as [ErrStoreUnavailable] so callers can answer
//     with a 5xx instead of logging everyone out.
package cookieauth
