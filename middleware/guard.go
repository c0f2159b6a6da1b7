package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	cookieauth "github.com/dkrieger7/cookieauth"
)

type authResultContextKey struct{}

// ResultFromContext returns the validated auth result injected by [Guard].
func ResultFromContext(ctx context.Context) (*cookieauth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*cookieauth.AuthResult)
	return res, ok
}

// SubjectFromContext returns the authenticated subject id, or "" when the
// request did not pass through [Guard].
func SubjectFromContext(ctx context.Context) string {
	res, ok := ResultFromContext(ctx)
	if !ok {
		return ""
	}
	return res.SubjectID
}

// Guard enforces an authenticated session on every wrapped request. It reads
// the session cookie, validates it through the gateway, and injects the
// result into the request context.
//
// A missing or invalid session yields 401. A session store outage yields 503
// with a Retry-After hint; it is never presented as an authentication
// failure.
func Guard(gateway *cookieauth.Gateway) func(http.Handler) http.Handler {
	var cookieName string
	if gateway != nil {
		cookieName = gateway.Config().Cookie.Name
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gateway == nil {
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}

			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}

			ctx := cookieauth.WithClientIP(r.Context(), clientIP(r))
			ctx = cookieauth.WithUserAgent(ctx, r.UserAgent())

			res, err := gateway.Authenticate(ctx, cookie.Value)
			if err != nil {
				if errors.Is(err, cookieauth.ErrStoreUnavailable) {
					w.Header().Set("Retry-After", "1")
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
