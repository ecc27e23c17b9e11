package authcore

import (
	"errors"
	"strings"
	"time"
)

// Config carries every engine tunable. Populate it before [Builder.Build];
// the engine clones it and never reads it again.
type Config struct {
	Account  AccountConfig
	Token    TokenConfig
	Password PasswordConfig
	OTP      OTPConfig
	Cache    CacheConfig
	Notify   NotifyConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls registration and the role bootstrap. The account
// that registers with AdminEmail (compared case-insensitively) receives
// [RoleAdmin]; every other account receives [RoleUser]. Later changes go
// through [Engine.ChangeRole] only.
type AccountConfig struct {
	AdminEmail        string
	MinPasswordLength int
	AdminRedirect     string
	UserRedirect      string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures the HS256 token manager. Secret must be at least
// 32 bytes. Session tokens authenticate logins; reset tokens are short-lived
// proofs minted only by a successful code verification.
type TokenConfig struct {
	Secret     []byte
	SessionTTL time.Duration
	ResetTTL   time.Duration
	Issuer     string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the bcrypt work factor. When UpgradeOnLogin is set,
// hashes stored with a lower cost are transparently rehashed on the next
// successful login.
type PasswordConfig struct {
	Cost           int
	UpgradeOnLogin bool
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls the recovery-code state machine and the issuance
// throttle. The throttle is a Redis fixed window per email and per client IP;
// without a Redis client it is inert.
type OTPConfig struct {
	Digits      int
	Window      time.Duration
	MaxAttempts int

	IssueMaxPerWindow   int
	IssueWindow         time.Duration
	EnableIPThrottle    bool
	EnableEmailThrottle bool
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the cache-aside layer. Prefix is the key namespace
// version: bump it when the cached projection changes shape and the old
// entries become unreadable garbage instead of poison. OpTimeout bounds every
// cache round-trip so a slow cache cannot stall a request.
type CacheConfig struct {
	Prefix    string
	UserTTL   time.Duration
	ListTTL   time.Duration
	OpTimeout time.Duration
}

// NotifyConfig bounds code delivery.
type NotifyConfig struct {
	Timeout time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters and the optional login
// latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration the builder starts from. Callers
// that need to tweak a few knobs can take this, modify it, and pass it to
// [Builder.WithConfig]. Token.Secret is intentionally empty and must be set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Account: AccountConfig{
			MinPasswordLength: 8,
			AdminRedirect:     "/admin",
			UserRedirect:      "/products",
		},
		Token: TokenConfig{
			SessionTTL: 24 * time.Hour,
			ResetTTL:   15 * time.Minute,
			Issuer:     "authcore",
		},
		Password: PasswordConfig{
			Cost:           10,
			UpgradeOnLogin: true,
		},
		OTP: OTPConfig{
			Digits:              6,
			Window:              5 * time.Minute,
			MaxAttempts:         4,
			IssueMaxPerWindow:   3,
			IssueWindow:         15 * time.Minute,
			EnableIPThrottle:    true,
			EnableEmailThrottle: true,
		},
		Cache: CacheConfig{
			Prefix:    "ac1",
			UserTTL:   10 * time.Minute,
			ListTTL:   60 * time.Minute,
			OpTimeout: 250 * time.Millisecond,
		},
		Notify: NotifyConfig{
			Timeout: 5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the engine cannot run safely with. It is
// called by [Builder.Build]; calling it earlier is harmless.
func (c *Config) Validate() error {
	// Account
	if strings.TrimSpace(c.Account.AdminRedirect) == "" {
		return errors.New("Account AdminRedirect must not be empty")
	}
	if strings.TrimSpace(c.Account.UserRedirect) == "" {
		return errors.New("Account UserRedirect must not be empty")
	}
	if c.Account.MinPasswordLength < 6 {
		return errors.New("Account MinPasswordLength must be >= 6")
	}

	// Token
	if len(c.Token.Secret) < 32 {
		return errors.New("Token Secret must be at least 32 bytes")
	}
	if c.Token.SessionTTL <= 0 {
		return errors.New("Token SessionTTL must be > 0")
	}
	if c.Token.ResetTTL <= 0 {
		return errors.New("Token ResetTTL must be > 0")
	}
	if c.Token.ResetTTL > time.Hour {
		return errors.New("Token ResetTTL must be <= 1h")
	}

	// Password
	if c.Password.Cost < 4 || c.Password.Cost > 31 {
		return errors.New("Password Cost must be between 4 and 31")
	}

	// OTP
	if c.OTP.Digits < 6 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 6 and 10")
	}
	if c.OTP.Window <= 0 {
		return errors.New("OTP Window must be > 0")
	}
	if c.OTP.Window > 15*time.Minute {
		return errors.New("OTP Window must be <= 15m")
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("OTP MaxAttempts must be > 0")
	}
	if c.OTP.MaxAttempts > 10 {
		return errors.New("OTP MaxAttempts must be <= 10")
	}
	if c.OTP.EnableEmailThrottle || c.OTP.EnableIPThrottle {
		if c.OTP.IssueMaxPerWindow <= 0 {
			return errors.New("OTP IssueMaxPerWindow must be > 0 when a throttle is enabled")
		}
		if c.OTP.IssueWindow <= 0 {
			return errors.New("OTP IssueWindow must be > 0 when a throttle is enabled")
		}
	}

	// Cache
	if strings.TrimSpace(c.Cache.Prefix) == "" {
		return errors.New("Cache Prefix must not be empty")
	}
	if c.Cache.UserTTL <= 0 {
		return errors.New("Cache UserTTL must be > 0")
	}
	if c.Cache.ListTTL <= 0 {
		return errors.New("Cache ListTTL must be > 0")
	}
	if c.Cache.OpTimeout <= 0 {
		return errors.New("Cache OpTimeout must be > 0")
	}

	// Notify
	if c.Notify.Timeout <= 0 {
		return errors.New("Notify Timeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
