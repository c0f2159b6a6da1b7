package middleware

import (
	"net/http"
	"time"

	cookieauth "github.com/dkrieger7/cookieauth"
)

// SetSessionCookie writes the session cookie for a freshly issued token.
// With the default "__Host-" name the cookie is locked to the origin host,
// path "/", and Secure, which is what the prefix requires.
func SetSessionCookie(w http.ResponseWriter, cfg cookieauth.CookieConfig, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  expiresAt,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}

// ClearSessionCookie expires the session cookie immediately. Attributes must
// match the issuing cookie or browsers keep the old one.
func ClearSessionCookie(w http.ResponseWriter, cfg cookieauth.CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   -1,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}
