// Package audit holds the audit event model, sink implementations, and the
// asynchronous dispatcher used by the gateway. Events describe authentication
// outcomes (login, authenticate, logout) and never contain credentials or
// token material.
package audit
