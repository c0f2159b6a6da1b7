package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	cookieauth "github.com/dkrieger7/cookieauth"
)

type stubVerifier struct{}

func (stubVerifier) VerifyCredentials(_ context.Context, identifier, secret string) (string, error) {
	if identifier == "alice@example.com" && secret == "correct-horse" {
		return "user-alice", nil
	}
	return "", errors.New("bad credentials")
}

func newGuardedServer(t *testing.T) (*cookieauth.Gateway, *miniredis.Miniredis, http.Handler) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg, err := cookieauth.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Token.Secrets = [][]byte{[]byte("test-secret-test-secret-test-sec")}

	gateway, err := cookieauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialVerifier(stubVerifier{}).
		Build()
	if err != nil {
		t.Fatalf("build gateway: %v", err)
	}
	t.Cleanup(func() { gateway.Close() })

	handler := Guard(gateway)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(SubjectFromContext(r.Context())))
	}))

	return gateway, mr, handler
}

func loginCookie(t *testing.T, gateway *cookieauth.Gateway) *http.Cookie {
	t.Helper()

	tok, result, err := gateway.Login(context.Background(), "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rec := httptest.NewRecorder()
	SetSessionCookie(rec, gateway.Config().Cookie, tok, result.ExpiresAt)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func TestGuardRejectsMissingCookie(t *testing.T) {
	_, _, handler := newGuardedServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGuardRejectsForgedCookie(t *testing.T) {
	gateway, _, handler := newGuardedServer(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: gateway.Config().Cookie.Name, Value: "forged-token"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGuardPassesValidSession(t *testing.T) {
	gateway, _, handler := newGuardedServer(t)
	cookie := loginCookie(t, gateway)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(cookie)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "user-alice" {
		t.Fatalf("subject not injected: %q", rec.Body.String())
	}
}

func TestGuardRejectsRevokedSession(t *testing.T) {
	gateway, _, handler := newGuardedServer(t)
	cookie := loginCookie(t, gateway)

	if err := gateway.Logout(context.Background(), cookie.Value); err != nil {
		t.Fatalf("logout: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(cookie)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestGuardMapsOutageTo503(t *testing.T) {
	gateway, mr, handler := newGuardedServer(t)
	cookie := loginCookie(t, gateway)

	mr.Close()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(cookie)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 during outage, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestClearSessionCookie(t *testing.T) {
	gateway, _, _ := newGuardedServer(t)

	rec := httptest.NewRecorder()
	ClearSessionCookie(rec, gateway.Config().Cookie)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].Value != "" || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookie not cleared: %+v", cookies[0])
	}
}
