package authcore

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ConfigFromEnv builds a Config from environment variables, loading a .env
// file first when one is present. Unset variables keep their defaults.
//
//	ADMIN_EMAIL          admin role bootstrap email
//	TOKEN_SECRET         HS256 signing secret (required for Build)
//	TOKEN_SESSION_TTL    e.g. "24h"
//	TOKEN_RESET_TTL      e.g. "15m"
//	BCRYPT_COST          integer work factor
//	OTP_DIGITS           code length
//	OTP_WINDOW           code validity, e.g. "5m"
//	OTP_MAX_ATTEMPTS     attempt budget per issued code
//	CACHE_PREFIX         cache key namespace
//	CACHE_USER_TTL       per-user entry TTL
//	CACHE_LIST_TTL       listing entry TTL
func ConfigFromEnv() Config {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := defaultConfig()

	cfg.Account.AdminEmail = getEnv("ADMIN_EMAIL", cfg.Account.AdminEmail)
	cfg.Account.MinPasswordLength = getIntEnv("MIN_PASSWORD_LENGTH", cfg.Account.MinPasswordLength)
	cfg.Account.AdminRedirect = getEnv("ADMIN_REDIRECT", cfg.Account.AdminRedirect)
	cfg.Account.UserRedirect = getEnv("USER_REDIRECT", cfg.Account.UserRedirect)

	if secret := os.Getenv("TOKEN_SECRET"); secret != "" {
		cfg.Token.Secret = []byte(secret)
	}
	cfg.Token.SessionTTL = getDurationEnv("TOKEN_SESSION_TTL", cfg.Token.SessionTTL)
	cfg.Token.ResetTTL = getDurationEnv("TOKEN_RESET_TTL", cfg.Token.ResetTTL)
	cfg.Token.Issuer = getEnv("TOKEN_ISSUER", cfg.Token.Issuer)

	cfg.Password.Cost = getIntEnv("BCRYPT_COST", cfg.Password.Cost)

	cfg.OTP.Digits = getIntEnv("OTP_DIGITS", cfg.OTP.Digits)
	cfg.OTP.Window = getDurationEnv("OTP_WINDOW", cfg.OTP.Window)
	cfg.OTP.MaxAttempts = getIntEnv("OTP_MAX_ATTEMPTS", cfg.OTP.MaxAttempts)
	cfg.OTP.IssueMaxPerWindow = getIntEnv("OTP_ISSUE_MAX", cfg.OTP.IssueMaxPerWindow)
	cfg.OTP.IssueWindow = getDurationEnv("OTP_ISSUE_WINDOW", cfg.OTP.IssueWindow)

	cfg.Cache.Prefix = getEnv("CACHE_PREFIX", cfg.Cache.Prefix)
	cfg.Cache.UserTTL = getDurationEnv("CACHE_USER_TTL", cfg.Cache.UserTTL)
	cfg.Cache.ListTTL = getDurationEnv("CACHE_LIST_TTL", cfg.Cache.ListTTL)
	cfg.Cache.OpTimeout = getDurationEnv("CACHE_OP_TIMEOUT", cfg.Cache.OpTimeout)

	cfg.Notify.Timeout = getDurationEnv("NOTIFY_TIMEOUT", cfg.Notify.Timeout)

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
