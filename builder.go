package cookieauth

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dkrieger7/cookieauth/session"
	"github.com/dkrieger7/cookieauth/token"
)

// Builder assembles a [Gateway] from configuration and collaborators.
//
// Builder instances are intended to be configured during initialization and
// then discarded; a Builder is single-use and not safe for concurrent use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  session.Store
	codec  token.Codec

	verifier   CredentialVerifier
	principals PrincipalStore
	auditSink  AuditSink

	built bool
}

// New returns a Builder preloaded with defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the full configuration. The config is cloned, so later
// mutation by the caller has no effect on the built gateway.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the session store. The client's
// lifecycle stays with the caller; [Gateway.Close] does not close it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore injects a session store directly, bypassing Redis. Use
// [session.NewMemoryStore] for single-process deployments and tests.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithCodec injects a token codec, overriding the one derived from
// [TokenConfig].
func (b *Builder) WithCodec(codec token.Codec) *Builder {
	b.codec = codec
	return b
}

// WithCredentialVerifier supplies the external credential check used by
// [Gateway.Login]. Required.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithPrincipalStore supplies the principal lookup used by [Gateway.Me].
// Optional; without it Me returns [ErrPrincipalNotFound].
func (b *Builder) WithPrincipalStore(ps PrincipalStore) *Builder {
	b.principals = ps
	return b
}

// WithAuditSink supplies the destination for audit events. Ignored unless
// [AuditConfig.Enabled] is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process metrics counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the collaborators, and returns the
// gateway. The builder cannot be reused afterwards.
func (b *Builder) Build() (*Gateway, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.codec == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	} else if err := cfg.validateCore(); err != nil {
		return nil, err
	}

	if b.verifier == nil {
		return nil, errors.New("credential verifier required")
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or session store required")
		}
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, session.Config{
			MaxLifetime: cfg.Session.MaxLifetime,
			Window:      cfg.Session.Window,
			OpTimeout:   cfg.Session.OpTimeout,
		})
	}

	codec := b.codec
	if codec == nil {
		built, err := newCodec(cfg.Token)
		if err != nil {
			return nil, err
		}
		codec = built
	}

	g := &Gateway{
		config:     cfg,
		store:      store,
		codec:      codec,
		verifier:   b.verifier,
		principals: b.principals,
		metrics:    NewMetrics(cfg.Metrics),
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
	}

	b.built = true

	return g, nil
}

func newCodec(tc TokenConfig) (token.Codec, error) {
	switch tc.Codec {
	case CodecJWT:
		return token.NewJWTCodec(token.JWTConfig{
			SigningMethod: token.SigningMethod(tc.SigningMethod),
			PrivateKey:    tc.PrivateKey,
			PublicKey:     tc.PublicKey,
			Issuer:        tc.Issuer,
			Leeway:        tc.Leeway,
		})
	default:
		return token.NewHMACCodec(tc.Secrets...)
	}
}
