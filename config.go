package authcore

import (
	"bytes"
	"errors"
	"time"
)

// Config carries every tunable of the engine. Zero values fall back to the
// defaults where a default is safe; signing secrets and the PII cipher key
// have no safe default and must be provided.
type Config struct {
	Token     TokenConfig
	OTP       OTPConfig
	Password  PasswordConfig
	Cipher    CipherConfig
	Directory DirectoryConfig
	Ledger    LedgerConfig
	Notify    NotifyConfig
	Metrics   MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig sets the lifetimes and per-tier HS256 signing secrets of the
// session-token pairs. Default-tier tokens are presented with the "Bearer"
// scheme, elevated-tier tokens with "System"; the two tiers must not share
// secrets.
type TokenConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration

	DefaultAccessSecret   []byte
	DefaultRefreshSecret  []byte
	ElevatedAccessSecret  []byte
	ElevatedRefreshSecret []byte
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig sets the challenge policy shared by email confirmation and
// password reset: code length, validity window, reissue cool-down, and the
// failure threshold that opens a temporary ban.
type OTPConfig struct {
	Digits         int
	TTL            time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
	BanDuration    time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig sets the argon2id cost parameters and the minimum
// plaintext length accepted on signup and reset.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

/*
====================================
CIPHER CONFIG
====================================
*/

// CipherConfig holds the AES key (16, 24, or 32 bytes) used to encrypt PII
// fields such as phone numbers before they reach the directory.
type CipherConfig struct {
	Key []byte
}

/*
====================================
STORE CONFIG
====================================
*/

// DirectoryConfig namespaces the credential directory's Redis keys.
type DirectoryConfig struct {
	RedisPrefix string
}

// LedgerConfig tunes the revocation ledger: its Redis key namespace and
// the background sweep that trims expired entries.
type LedgerConfig struct {
	RedisPrefix   string
	SweepInterval time.Duration
	DisableSweep  bool
}

/*
====================================
NOTIFY CONFIG
====================================
*/

// NotifyConfig sizes the asynchronous OTP delivery queue. Deliveries that
// do not fit are dropped and counted, never blocked on.
type NotifyConfig struct {
	BufferSize int
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the in-process counters and the verification
// latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		OTP: OTPConfig{
			Digits:         6,
			TTL:            2 * time.Minute,
			ResendCooldown: 2 * time.Minute,
			MaxAttempts:    5,
			BanDuration:    5 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   10,
		},
		Directory: DirectoryConfig{RedisPrefix: "cd"},
		Ledger: LedgerConfig{
			RedisPrefix:   "rvk",
			SweepInterval: 24 * time.Hour,
		},
		Notify:  NotifyConfig{BufferSize: 256},
		Metrics: MetricsConfig{Enabled: true},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.DefaultAccessSecret = cloneBytes(cfg.Token.DefaultAccessSecret)
	out.Token.DefaultRefreshSecret = cloneBytes(cfg.Token.DefaultRefreshSecret)
	out.Token.ElevatedAccessSecret = cloneBytes(cfg.Token.ElevatedAccessSecret)
	out.Token.ElevatedRefreshSecret = cloneBytes(cfg.Token.ElevatedRefreshSecret)
	out.Cipher.Key = cloneBytes(cfg.Cipher.Key)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration for the invariants Build relies on.
func (c Config) Validate() error {
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return errors.New("refresh TTL must cover access TTL")
	}
	if len(c.Token.DefaultAccessSecret) == 0 ||
		len(c.Token.DefaultRefreshSecret) == 0 ||
		len(c.Token.ElevatedAccessSecret) == 0 ||
		len(c.Token.ElevatedRefreshSecret) == 0 {
		return errors.New("all four signing secrets required")
	}
	if bytes.Equal(c.Token.DefaultAccessSecret, c.Token.ElevatedAccessSecret) ||
		bytes.Equal(c.Token.DefaultRefreshSecret, c.Token.ElevatedRefreshSecret) {
		return errors.New("default and elevated tiers must not share secrets")
	}

	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("OTP digits must be between 4 and 10")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be positive")
	}
	if c.OTP.ResendCooldown < 0 || c.OTP.ResendCooldown > c.OTP.TTL {
		return errors.New("OTP resend cool-down must fit inside the TTL")
	}
	if c.OTP.MaxAttempts < 1 {
		return errors.New("OTP max attempts must be at least 1")
	}
	if c.OTP.BanDuration <= 0 {
		return errors.New("OTP ban duration must be positive")
	}

	if c.Password.MinLength < 8 {
		return errors.New("password minimum length must be at least 8")
	}

	switch len(c.Cipher.Key) {
	case 16, 24, 32:
	default:
		return errors.New("cipher key must be 16, 24, or 32 bytes")
	}

	return nil
}
