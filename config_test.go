package authcore

import (
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestDefaultConfigValidatesWithSecret(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.Token.Secret = []byte("too-short") }},
		{"zero session ttl", func(c *Config) { c.Token.SessionTTL = 0 }},
		{"zero reset ttl", func(c *Config) { c.Token.ResetTTL = 0 }},
		{"reset ttl too long", func(c *Config) { c.Token.ResetTTL = 2 * time.Hour }},
		{"cost too low", func(c *Config) { c.Password.Cost = 3 }},
		{"cost too high", func(c *Config) { c.Password.Cost = 32 }},
		{"too few digits", func(c *Config) { c.OTP.Digits = 4 }},
		{"too many digits", func(c *Config) { c.OTP.Digits = 11 }},
		{"zero window", func(c *Config) { c.OTP.Window = 0 }},
		{"window too long", func(c *Config) { c.OTP.Window = 20 * time.Minute }},
		{"zero attempts", func(c *Config) { c.OTP.MaxAttempts = 0 }},
		{"too many attempts", func(c *Config) { c.OTP.MaxAttempts = 11 }},
		{"throttle without budget", func(c *Config) { c.OTP.IssueMaxPerWindow = 0 }},
		{"throttle without window", func(c *Config) { c.OTP.IssueWindow = 0 }},
		{"empty cache prefix", func(c *Config) { c.Cache.Prefix = "  " }},
		{"zero user ttl", func(c *Config) { c.Cache.UserTTL = 0 }},
		{"zero list ttl", func(c *Config) { c.Cache.ListTTL = 0 }},
		{"zero op timeout", func(c *Config) { c.Cache.OpTimeout = 0 }},
		{"zero notify timeout", func(c *Config) { c.Notify.Timeout = 0 }},
		{"empty admin redirect", func(c *Config) { c.Account.AdminRedirect = "" }},
		{"empty user redirect", func(c *Config) { c.Account.UserRedirect = "" }},
		{"weak minimum password", func(c *Config) { c.Account.MinPasswordLength = 5 }},
		{"audit enabled without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestThrottleTunablesIgnoredWhenDisabled(t *testing.T) {
	cfg := validTestConfig()
	cfg.OTP.EnableEmailThrottle = false
	cfg.OTP.EnableIPThrottle = false
	cfg.OTP.IssueMaxPerWindow = 0
	cfg.OTP.IssueWindow = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected throttle tunables ignored when disabled, got %v", err)
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().
		WithConfig(validTestConfig()).
		WithStore(newMockStore()).
		WithNotifier(&recorderNotifier{})

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuildRequiresStoreAndNotifier(t *testing.T) {
	if _, err := New().WithConfig(validTestConfig()).WithNotifier(&recorderNotifier{}).Build(); err == nil {
		t.Fatal("expected Build without store to fail")
	}
	if _, err := New().WithConfig(validTestConfig()).WithStore(newMockStore()).Build(); err == nil {
		t.Fatal("expected Build without notifier to fail")
	}
}

func TestBuilderClonesSecret(t *testing.T) {
	cfg := validTestConfig()
	secret := cfg.Token.Secret

	engine, err := New().
		WithConfig(cfg).
		WithStore(newMockStore()).
		WithNotifier(&recorderNotifier{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	// Mutating the caller's slice must not reach the engine.
	original := string(secret)
	for i := range secret {
		secret[i] = 0
	}
	if string(engine.config.Token.Secret) != original {
		t.Fatal("expected engine to hold its own copy of the secret")
	}
}
