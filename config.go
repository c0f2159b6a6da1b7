package cookieauth

import (
	"errors"
	"net/http"
	"time"
)

// Config is the full gateway configuration. Instances are set up once and
// treated as immutable after [Builder.Build]; Build clones the config so
// later mutation by the caller has no effect.
type Config struct {
	Session SessionConfig
	Token   TokenConfig
	Cookie  CookieConfig
	Audit   AuditConfig
	Metrics MetricsConfig
	Limits  LimitsConfig
}

// SessionConfig controls server-side session storage and expiry.
type SessionConfig struct {
	// RedisPrefix namespaces all Redis keys.
	RedisPrefix string

	// SlidingExpiration moves the expiry to now+Window on each
	// authenticated request, never past CreatedAt+MaxLifetime. With it
	// disabled only an explicit Refresh renews the window.
	SlidingExpiration bool

	// Window is the effective lifetime granted at login and on each
	// renewal. Zero defaults to MaxLifetime (fixed expiration).
	Window      time.Duration
	MaxLifetime time.Duration

	// OpTimeout bounds each store round-trip so a dead backend surfaces as
	// a retryable error instead of a hung request.
	OpTimeout time.Duration

	// SweepInterval drives the background expiry sweep of the in-memory
	// store. Redis evicts by TTL and ignores it.
	SweepInterval time.Duration
}

// TokenCodecKind selects the cookie token encoding.
type TokenCodecKind string

const (
	// CodecHMAC is the default opaque token: id, expiry bound, HMAC tag.
	CodecHMAC TokenCodecKind = "hmac"
	// CodecJWT emits a standard signed JWT instead.
	CodecJWT TokenCodecKind = "jwt"
)

// TokenConfig controls the cookie token codec.
type TokenConfig struct {
	Codec TokenCodecKind

	// Secrets sign and verify HMAC tokens. The first secret signs; all of
	// them verify, which keeps previously issued tokens valid across a key
	// rotation.
	Secrets [][]byte

	// JWT-mode settings, ignored by the HMAC codec.
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// CookieConfig describes how the middleware issues the session cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LimitsConfig caps resource usage per subject.
type LimitsConfig struct {
	// MaxSessionsPerSubject rejects logins once a subject holds this many
	// live sessions. Zero disables the cap.
	MaxSessionsPerSubject int
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:       "cs",
			SlidingExpiration: true,
			Window:            30 * time.Minute,
			MaxLifetime:       24 * time.Hour,
			OpTimeout:         2 * time.Second,
			SweepInterval:     time.Minute,
		},
		Token: TokenConfig{
			Codec: CodecHMAC,
		},
		Cookie: CookieConfig{
			Name:     "__Host-session",
			Path:     "/",
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations that would produce sessions violating the
// expiry invariants or tokens without integrity protection.
func (c Config) Validate() error {
	if err := c.validateCore(); err != nil {
		return err
	}

	switch c.Token.Codec {
	case CodecHMAC:
		if len(c.Token.Secrets) == 0 {
			return errors.New("Token.Secrets required for the hmac codec")
		}
	case CodecJWT:
	default:
		return errors.New("unsupported token codec")
	}

	return nil
}

// validateCore checks everything except the token section. Build uses it
// alone when the caller injects a codec carrying its own key material.
func (c Config) validateCore() error {
	if c.Session.MaxLifetime <= 0 {
		return errors.New("Session.MaxLifetime must be positive")
	}
	if c.Session.SlidingExpiration && c.Session.Window <= 0 {
		return errors.New("Session.Window must be positive when sliding expiration is enabled")
	}
	if c.Session.Window > c.Session.MaxLifetime {
		return errors.New("Session.Window must not exceed Session.MaxLifetime")
	}
	if c.Session.OpTimeout < 0 {
		return errors.New("Session.OpTimeout must not be negative")
	}
	if c.Limits.MaxSessionsPerSubject < 0 {
		return errors.New("Limits.MaxSessionsPerSubject must not be negative")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secrets = make([][]byte, len(cfg.Token.Secrets))
	for i, s := range cfg.Token.Secrets {
		out.Token.Secrets[i] = cloneBytes(s)
	}
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
