package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

var (
	errOTPIssueRateLimited   = errors.New("otp issue rate limited")
	errOTPLimiterUnavailable = errors.New("otp limiter unavailable")
)

// otpIssueLimiter throttles code issuance with a Redis fixed window per
// email and per client IP. Without a Redis client it is inert.
type otpIssueLimiter struct {
	redis  *redis.Client
	config OTPConfig
}

func newOTPIssueLimiter(redisClient *redis.Client, cfg OTPConfig) *otpIssueLimiter {
	return &otpIssueLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckIssue returns errOTPIssueRateLimited when either window is spent.
// A Redis failure is reported as errOTPLimiterUnavailable; the engine
// fails open on it, since the throttle is protection for the mail channel,
// not an authentication gate.
func (l *otpIssueLimiter) CheckIssue(ctx context.Context, email, ip string) error {
	if l == nil || l.redis == nil {
		return nil
	}

	if l.config.EnableEmailThrottle && email != "" {
		if err := l.enforceFixedWindow(ctx, otpIssueEmailKey(email)); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, otpIssueIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *otpIssueLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", errOTPLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.IssueWindow).Err(); err != nil {
			return fmt.Errorf("%w: %v", errOTPLimiterUnavailable, err)
		}
	}

	if count > int64(l.config.IssueMaxPerWindow) {
		return errOTPIssueRateLimited
	}

	return nil
}

func (e *Engine) checkOTPIssueLimit(ctx context.Context, email string) error {
	err := e.otpLimiter.CheckIssue(ctx, email, clientIPFromContext(ctx))
	if err == nil {
		return nil
	}
	if errors.Is(err, errOTPIssueRateLimited) {
		return ErrOTPRateLimited
	}
	log.Print("authcore: otp issue limiter unavailable")
	return nil
}

func otpIssueEmailKey(email string) string {
	return "aoi:" + email
}

func otpIssueIPKey(ip string) string {
	return "aoip:" + ip
}
