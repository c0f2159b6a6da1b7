// Package middleware exposes HTTP adapters for cookie-session enforcement
// built on top of cookieauth.Gateway validation.
//
// # Guards
//
//   - [Guard]: reads the session cookie, validates it, injects the result.
//   - [SubjectFromContext], [ResultFromContext]: accessors for downstream
//     handlers.
//
// # Cookies
//
//   - [SetSessionCookie] and [ClearSessionCookie] issue and delete the
//     session cookie per the gateway's CookieConfig.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Gateway calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// Gateway.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to the Gateway).
//   - Access the session store (the Gateway handles I/O).
//   - Collapse a store outage into 401: backend failures map to 503 so
//     clients retry instead of re-prompting for credentials.
package middleware
