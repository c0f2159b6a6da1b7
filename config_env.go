package cookieauth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvLoaded sync.Once

type envConfig struct {
	RedisPrefix   string        `env:"COOKIEAUTH_REDIS_PREFIX" envDefault:"cs"`
	Sliding       bool          `env:"COOKIEAUTH_SLIDING_EXPIRATION" envDefault:"true"`
	Window        time.Duration `env:"COOKIEAUTH_WINDOW" envDefault:"30m"`
	MaxLifetime   time.Duration `env:"COOKIEAUTH_MAX_LIFETIME" envDefault:"24h"`
	OpTimeout     time.Duration `env:"COOKIEAUTH_OP_TIMEOUT" envDefault:"2s"`
	SweepInterval time.Duration `env:"COOKIEAUTH_SWEEP_INTERVAL" envDefault:"1m"`

	TokenCodec        string `env:"COOKIEAUTH_TOKEN_CODEC" envDefault:"hmac"`
	TokenSecret       string `env:"COOKIEAUTH_TOKEN_SECRET"`
	TokenSecretPrev   string `env:"COOKIEAUTH_TOKEN_SECRET_PREVIOUS"`
	JWTSigningMethod  string `env:"COOKIEAUTH_JWT_SIGNING_METHOD" envDefault:"hs256"`
	JWTIssuer         string `env:"COOKIEAUTH_JWT_ISSUER"`
	JWTPrivateKeyFile string `env:"COOKIEAUTH_JWT_PRIVATE_KEY_FILE"`
	JWTPublicKeyFile  string `env:"COOKIEAUTH_JWT_PUBLIC_KEY_FILE"`

	CookieName   string `env:"COOKIEAUTH_COOKIE_NAME" envDefault:"__Host-session"`
	CookiePath   string `env:"COOKIEAUTH_COOKIE_PATH" envDefault:"/"`
	CookieDomain string `env:"COOKIEAUTH_COOKIE_DOMAIN"`
	CookieSecure bool   `env:"COOKIEAUTH_COOKIE_SECURE" envDefault:"true"`
	SameSite     string `env:"COOKIEAUTH_COOKIE_SAMESITE" envDefault:"lax"`

	AuditEnabled    bool `env:"COOKIEAUTH_AUDIT_ENABLED" envDefault:"false"`
	AuditBufferSize int  `env:"COOKIEAUTH_AUDIT_BUFFER" envDefault:"256"`
	MetricsEnabled  bool `env:"COOKIEAUTH_METRICS_ENABLED" envDefault:"true"`

	MaxSessionsPerSubject int `env:"COOKIEAUTH_MAX_SESSIONS_PER_SUBJECT" envDefault:"0"`
}

// LoadConfig builds a Config from environment variables, reading a local
// .env file first if one exists. Values not present in the environment fall
// back to the same defaults [Builder] starts from. The result still goes
// through [Config.Validate] at Build time.
func LoadConfig() (Config, error) {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	cfg := defaultConfig()
	cfg.Session.RedisPrefix = raw.RedisPrefix
	cfg.Session.SlidingExpiration = raw.Sliding
	cfg.Session.Window = raw.Window
	cfg.Session.MaxLifetime = raw.MaxLifetime
	cfg.Session.OpTimeout = raw.OpTimeout
	cfg.Session.SweepInterval = raw.SweepInterval

	cfg.Token.Codec = TokenCodecKind(raw.TokenCodec)
	if raw.TokenSecret != "" {
		cfg.Token.Secrets = [][]byte{[]byte(raw.TokenSecret)}
		if raw.TokenSecretPrev != "" {
			cfg.Token.Secrets = append(cfg.Token.Secrets, []byte(raw.TokenSecretPrev))
		}
	}
	cfg.Token.SigningMethod = raw.JWTSigningMethod
	cfg.Token.Issuer = raw.JWTIssuer
	if raw.JWTPrivateKeyFile != "" {
		key, err := os.ReadFile(raw.JWTPrivateKeyFile)
		if err != nil {
			return Config{}, fmt.Errorf("read jwt private key: %w", err)
		}
		cfg.Token.PrivateKey = key
	}
	if raw.JWTPublicKeyFile != "" {
		key, err := os.ReadFile(raw.JWTPublicKeyFile)
		if err != nil {
			return Config{}, fmt.Errorf("read jwt public key: %w", err)
		}
		cfg.Token.PublicKey = key
	}
	// hs256 JWTs sign with a shared secret; without a key file the token
	// secret doubles as that secret.
	if cfg.Token.Codec == CodecJWT && len(cfg.Token.PrivateKey) == 0 && raw.TokenSecret != "" {
		cfg.Token.PrivateKey = []byte(raw.TokenSecret)
	}

	cfg.Cookie.Name = raw.CookieName
	cfg.Cookie.Path = raw.CookiePath
	cfg.Cookie.Domain = raw.CookieDomain
	cfg.Cookie.Secure = raw.CookieSecure
	sameSite, err := parseSameSite(raw.SameSite)
	if err != nil {
		return Config{}, err
	}
	cfg.Cookie.SameSite = sameSite

	cfg.Audit.Enabled = raw.AuditEnabled
	cfg.Audit.BufferSize = raw.AuditBufferSize
	cfg.Metrics.Enabled = raw.MetricsEnabled
	cfg.Limits.MaxSessionsPerSubject = raw.MaxSessionsPerSubject

	return cfg, nil
}

func parseSameSite(value string) (http.SameSite, error) {
	switch value {
	case "lax", "":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, errors.New("invalid SameSite policy: " + value)
	}
}
