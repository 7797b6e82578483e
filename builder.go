package authcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veilapp/authcore/cipher"
	"github.com/veilapp/authcore/directory"
	"github.com/veilapp/authcore/ledger"
	"github.com/veilapp/authcore/otp"
	"github.com/veilapp/authcore/password"
	"github.com/veilapp/authcore/token"
)

// Builder assembles an Engine. A Builder is single-use: Build consumes it.
type Builder struct {
	config    Config
	redis     *redis.Client
	directory directory.Store
	notifier  otp.Notifier
	identity  IdentityVerifier

	built bool
}

// New returns a Builder carrying the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the credential directory and the
// revocation ledger.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithDirectory overrides the credential directory. When unset, Build
// creates a Redis-backed directory on the client from WithRedis.
func (b *Builder) WithDirectory(store directory.Store) *Builder {
	b.directory = store
	return b
}

// WithNotifier sets the gateway that delivers OTP codes. Without one,
// codes are generated and stored but never leave the process.
func (b *Builder) WithNotifier(n otp.Notifier) *Builder {
	b.notifier = n
	return b
}

// WithIdentityVerifier enables FederatedLogin.
func (b *Builder) WithIdentityVerifier(v IdentityVerifier) *Builder {
	b.identity = v
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the stores, and starts the
// background workers (OTP dispatcher and ledger sweeper).
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	dir := b.directory
	if dir == nil {
		dir = directory.NewRedisStore(b.redis, cfg.Directory.RedisPrefix)
	}

	tokens, err := token.NewManager(token.Config{
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
		Issuer:     cfg.Token.Issuer,
		Leeway:     cfg.Token.Leeway,
		Secrets: map[token.Tier]token.SecretPair{
			token.TierDefault: {
				Access:  cfg.Token.DefaultAccessSecret,
				Refresh: cfg.Token.DefaultRefreshSecret,
			},
			token.TierElevated: {
				Access:  cfg.Token.ElevatedAccessSecret,
				Refresh: cfg.Token.ElevatedRefreshSecret,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	piiCipher, err := cipher.New(cfg.Cipher.Key)
	if err != nil {
		return nil, err
	}

	revocations := ledger.NewRedisStore(b.redis, cfg.Ledger.RedisPrefix)

	dispatcher := otp.NewDispatcher(b.notifier, cfg.Notify.BufferSize)

	challenges := otp.NewEngine(otp.Config{
		Digits:         cfg.OTP.Digits,
		TTL:            cfg.OTP.TTL,
		ResendCooldown: cfg.OTP.ResendCooldown,
		MaxAttempts:    cfg.OTP.MaxAttempts,
		BanDuration:    cfg.OTP.BanDuration,
	}, dir, hasher, dispatcher)

	engine := &Engine{
		config:      cfg,
		directory:   dir,
		tokens:      tokens,
		revocations: revocations,
		challenges:  challenges,
		dispatcher:  dispatcher,
		hasher:      hasher,
		cipher:      piiCipher,
		identity:    b.identity,
		metrics:     NewMetrics(cfg.Metrics),
		now:         time.Now,
	}

	if !cfg.Ledger.DisableSweep {
		engine.sweeper = ledger.NewSweeper(revocations, cfg.Ledger.SweepInterval)
	}

	b.built = true
	return engine, nil
}
