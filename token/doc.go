// Package token encodes session ids into tamper-evident cookie values.
//
// Two codecs share one contract: the HMAC codec produces a compact opaque
// token (id, expiry bound, SHA-256 tag) and is the default; the JWT codec
// produces a standard signed JWT for deployments that need interoperable
// tokens. Both fail closed: any structural, integrity, or expiry failure
// decodes to ErrInvalid and nothing else. No payload beyond the session id
// and its expiry bound is ever recoverable by the client.
package token
