package cookieauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkrieger7/cookieauth/session"
	"github.com/dkrieger7/cookieauth/token"
)

// Gateway is the authentication facade. It owns the login, validation, and
// logout flows and coordinates the session store, the token codec, and the
// external identity collaborators.
//
// A Gateway is safe for concurrent use. Build one with [Builder].
type Gateway struct {
	config Config
	store  session.Store
	codec  token.Codec

	verifier   CredentialVerifier
	principals PrincipalStore

	metrics *Metrics
	audit   *auditDispatcher
}

func (g *Gateway) ready() error {
	if g == nil || g.store == nil || g.codec == nil || g.verifier == nil {
		return ErrGatewayNotReady
	}
	return nil
}

// Login checks the submitted credentials and, on success, creates a session
// and returns the cookie token alongside the session details.
//
// Every credential failure returns the same ErrUnauthorized value. The
// identifier and secret are both handed to the verifier unconditionally, so
// an unknown identifier takes the same path as a wrong secret.
func (g *Gateway) Login(ctx context.Context, identifier, secret string) (string, *AuthResult, error) {
	if err := g.ready(); err != nil {
		return "", nil, err
	}

	subjectID, err := g.verifier.VerifyCredentials(ctx, identifier, secret)
	if err != nil || subjectID == "" {
		g.metrics.Inc(MetricLoginFailure)
		g.emitAudit(ctx, auditEventLogin, false, "", "", ErrUnauthorized)
		return "", nil, ErrUnauthorized
	}

	if limit := g.config.Limits.MaxSessionsPerSubject; limit > 0 {
		count, err := g.store.ActiveSessionCount(ctx, subjectID)
		if err != nil {
			return "", nil, g.storeError(err)
		}
		if count >= limit {
			g.metrics.Inc(MetricSessionLimitExceeded)
			g.emitAudit(ctx, auditEventLogin, false, subjectID, "", ErrSessionLimitExceeded)
			return "", nil, ErrSessionLimitExceeded
		}
	}

	sess, err := g.store.Create(ctx, subjectID)
	if err != nil {
		mapped := g.storeError(err)
		g.emitAudit(ctx, auditEventLogin, false, subjectID, "", mapped)
		return "", nil, mapped
	}

	// The token is bound to the absolute lifetime cap, not the effective
	// expiry: under sliding expiration the session may outlive its initial
	// window, and the server-side record alone decides liveness before the
	// cap.
	hardCap := time.Unix(sess.CreatedAt, 0).Add(g.config.Session.MaxLifetime)

	tok, err := g.codec.Encode(sess.ID, hardCap)
	if err != nil {
		// The record must not outlive a login the caller never saw succeed.
		_ = g.store.Revoke(ctx, sess.ID)
		return "", nil, err
	}

	g.metrics.Inc(MetricLoginSuccess)
	g.metrics.Inc(MetricSessionCreated)
	g.emitAudit(ctx, auditEventLogin, true, subjectID, sess.ID, nil)

	return tok, &AuthResult{
		SubjectID: subjectID,
		SessionID: sess.ID,
		ExpiresAt: time.Unix(sess.ExpiresAt, 0),
	}, nil
}

// Authenticate validates a cookie token and resolves it to a live session.
// Under sliding expiration the session's expiry is extended as a side effect.
//
// A missing, malformed, tampered, or expired token and a revoked or expired
// session all return ErrUnauthenticated. Backend failures return
// ErrStoreUnavailable instead; callers must not treat that as a credential
// failure.
func (g *Gateway) Authenticate(ctx context.Context, tok string) (*AuthResult, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	start := time.Now()

	sid, err := g.codec.Decode(tok)
	if err != nil {
		g.metrics.Inc(MetricAuthenticateFailure)
		return nil, ErrUnauthenticated
	}

	sess, err := g.resolve(ctx, sid)
	if err != nil {
		if errors.Is(err, session.ErrUnavailable) {
			return nil, g.storeError(err)
		}
		g.metrics.Inc(MetricAuthenticateFailure)
		return nil, ErrUnauthenticated
	}

	g.metrics.Inc(MetricAuthenticateSuccess)
	g.metrics.Observe(MetricAuthenticateLatency, time.Since(start))

	return &AuthResult{
		SubjectID: sess.SubjectID,
		SessionID: sess.ID,
		ExpiresAt: time.Unix(sess.ExpiresAt, 0),
	}, nil
}

// resolve fetches the session, touching it when sliding expiration is on.
func (g *Gateway) resolve(ctx context.Context, sid string) (*session.Session, error) {
	if g.config.Session.SlidingExpiration {
		return g.store.Touch(ctx, sid)
	}
	return g.store.Get(ctx, sid)
}

// Refresh extends the session's expiry to now+Window, capped by the absolute
// lifetime, and re-issues the cookie token. The extension happens whether or
// not sliding expiration is on; it is the explicit renewal path for clients
// whose requests do not otherwise touch the session.
func (g *Gateway) Refresh(ctx context.Context, tok string) (string, *AuthResult, error) {
	if err := g.ready(); err != nil {
		return "", nil, err
	}

	sid, err := g.codec.Decode(tok)
	if err != nil {
		g.metrics.Inc(MetricRefreshFailure)
		return "", nil, ErrUnauthenticated
	}

	sess, err := g.store.Touch(ctx, sid)
	if err != nil {
		if errors.Is(err, session.ErrUnavailable) {
			return "", nil, g.storeError(err)
		}
		g.metrics.Inc(MetricRefreshFailure)
		return "", nil, ErrUnauthenticated
	}

	hardCap := time.Unix(sess.CreatedAt, 0).Add(g.config.Session.MaxLifetime)
	fresh, err := g.codec.Encode(sess.ID, hardCap)
	if err != nil {
		return "", nil, err
	}

	g.metrics.Inc(MetricRefreshSuccess)

	return fresh, &AuthResult{
		SubjectID: sess.SubjectID,
		SessionID: sess.ID,
		ExpiresAt: time.Unix(sess.ExpiresAt, 0),
	}, nil
}

// Logout revokes the session behind the token. It is idempotent: an invalid
// token or an already-revoked session returns nil. A backend failure returns
// ErrStoreUnavailable so the caller knows the session may still be live.
func (g *Gateway) Logout(ctx context.Context, tok string) error {
	if err := g.ready(); err != nil {
		return err
	}

	sid, err := g.codec.Decode(tok)
	if err != nil {
		// Nothing identifiable to revoke.
		return nil
	}

	if err := g.store.Revoke(ctx, sid); err != nil {
		mapped := g.storeError(err)
		g.emitAudit(ctx, auditEventLogout, false, "", sid, mapped)
		return mapped
	}

	g.metrics.Inc(MetricLogout)
	g.emitAudit(ctx, auditEventLogout, true, "", sid, nil)

	return nil
}

// LogoutAll revokes every live session of a subject. Use it on password
// change or compromise response.
func (g *Gateway) LogoutAll(ctx context.Context, subjectID string) error {
	if err := g.ready(); err != nil {
		return err
	}

	if err := g.store.RevokeAllForSubject(ctx, subjectID); err != nil {
		mapped := g.storeError(err)
		g.emitAudit(ctx, auditEventLogoutAll, false, subjectID, "", mapped)
		return mapped
	}

	g.metrics.Inc(MetricLogoutAll)
	g.emitAudit(ctx, auditEventLogoutAll, true, subjectID, "", nil)

	return nil
}

// Me authenticates the token and loads the principal record behind it.
func (g *Gateway) Me(ctx context.Context, tok string) (*Principal, error) {
	result, err := g.Authenticate(ctx, tok)
	if err != nil {
		return nil, err
	}

	if g.principals == nil {
		return nil, ErrPrincipalNotFound
	}

	principal, err := g.principals.LoadPrincipal(ctx, result.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrincipalNotFound, err)
	}
	if principal == nil {
		return nil, ErrPrincipalNotFound
	}

	return principal, nil
}

// ActiveSessionCount reports how many live sessions a subject holds.
func (g *Gateway) ActiveSessionCount(ctx context.Context, subjectID string) (int, error) {
	if err := g.ready(); err != nil {
		return 0, err
	}

	count, err := g.store.ActiveSessionCount(ctx, subjectID)
	if err != nil {
		return 0, g.storeError(err)
	}
	return count, nil
}

// ActiveSessionIDs lists a subject's live session ids.
func (g *Gateway) ActiveSessionIDs(ctx context.Context, subjectID string) ([]string, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	ids, err := g.store.ActiveSessionIDs(ctx, subjectID)
	if err != nil {
		return nil, g.storeError(err)
	}
	return ids, nil
}

// Ping checks session store availability.
func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.ready(); err != nil {
		return err
	}

	if err := g.store.Ping(ctx); err != nil {
		return g.storeError(err)
	}
	return nil
}

// Config returns a copy of the effective configuration.
func (g *Gateway) Config() Config {
	if g == nil {
		return Config{}
	}
	return cloneConfig(g.config)
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (g *Gateway) MetricsSnapshot() MetricsSnapshot {
	if g == nil {
		var none *Metrics
		return none.Snapshot()
	}
	return g.metrics.Snapshot()
}

// AuditDropped reports how many audit events the dispatcher had to drop.
func (g *Gateway) AuditDropped() uint64 {
	if g == nil {
		return 0
	}
	return g.audit.Dropped()
}

// Close drains the audit dispatcher and releases store resources. The
// gateway must not be used afterwards.
func (g *Gateway) Close() error {
	if g == nil {
		return nil
	}

	g.audit.Close()

	if g.store != nil {
		return g.store.Close()
	}
	return nil
}

// storeError maps store failures onto the public error surface. Backend
// unavailability stays distinct from every authentication outcome.
func (g *Gateway) storeError(err error) error {
	if errors.Is(err, session.ErrUnavailable) {
		g.metrics.Inc(MetricStoreUnavailable)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrCorrupt) {
		return ErrUnauthenticated
	}
	return err
}
