package cookieauth

import (
	"net/http"
	"testing"
)

func TestDefaultConfigValidatesWithSecrets(t *testing.T) {
	cfg := defaultConfig()
	cfg.Token.Secrets = [][]byte{[]byte("test-secret-test-secret-test-sec")}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	if cfg.Cookie.Name != "__Host-session" {
		t.Fatalf("cookie name: got %q", cfg.Cookie.Name)
	}
	if !cfg.Cookie.Secure || cfg.Cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie defaults too permissive: %+v", cfg.Cookie)
	}
	if !cfg.Session.SlidingExpiration {
		t.Fatal("sliding expiration should default on")
	}
}

func TestValidateRejectsMissingSecrets(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for hmac codec without secrets")
	}

	// The JWT codec carries keys in its own section and is checked at
	// construction instead.
	cfg.Token.Codec = CodecJWT
	if err := cfg.Validate(); err != nil {
		t.Fatalf("jwt codec must not require hmac secrets: %v", err)
	}
}

func TestCloneConfigIsDeep(t *testing.T) {
	cfg := defaultConfig()
	cfg.Token.Secrets = [][]byte{[]byte("test-secret-test-secret-test-sec")}
	cfg.Token.PrivateKey = []byte("private")

	clone := cloneConfig(cfg)
	cfg.Token.Secrets[0][0] = 'X'
	cfg.Token.PrivateKey[0] = 'X'

	if clone.Token.Secrets[0][0] == 'X' {
		t.Fatal("secret not deep-copied")
	}
	if clone.Token.PrivateKey[0] == 'X' {
		t.Fatal("private key not deep-copied")
	}
}
