package authcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nystai-labs/authcore/cache"
	"github.com/nystai-labs/authcore/password"
	"github.com/nystai-labs/authcore/token"
)

// Builder assembles an [Engine]. A builder is single-use: Build succeeds at
// most once.
type Builder struct {
	config Config
	redis  *redis.Client

	store     CredentialStore
	cacheImpl cache.Store
	notifier  Notifier
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New returns a builder preloaded with defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the authoritative credential store. Required.
func (b *Builder) WithStore(s CredentialStore) *Builder {
	b.store = s
	return b
}

// WithRedis provides the client used by the issuance throttle, and — when no
// explicit cache was set — a Redis cache backend.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithCache sets the cache backend. Optional: without one every read goes to
// the store.
func (b *Builder) WithCache(c cache.Store) *Builder {
	b.cacheImpl = c
	return b
}

// WithNotifier sets the code delivery channel. Required.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit destination. Only consulted when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) withClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and dependencies and returns the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	cacheImpl := b.cacheImpl
	if cacheImpl == nil && b.redis != nil {
		cacheImpl = cache.NewRedis(b.redis)
	}

	engine := &Engine{
		config:     cfg,
		users:      b.store,
		cache:      cacheImpl,
		notifier:   b.notifier,
		otpLimiter: newOTPIssueLimiter(b.redis, cfg.OTP),
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:    NewMetrics(cfg.Metrics),
		now:        b.clock,
	}

	hasher, err := password.NewBcrypt(password.Config{
		Cost: cfg.Password.Cost,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	tm, err := token.NewManager(token.Config{
		Secret:     cloneBytes(cfg.Token.Secret),
		SessionTTL: cfg.Token.SessionTTL,
		ResetTTL:   cfg.Token.ResetTTL,
		Issuer:     cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}
	if b.clock != nil {
		tm = tm.WithClock(b.clock)
	}
	engine.tokens = tm

	b.built = true

	return engine, nil
}
