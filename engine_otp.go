package authcore

import (
	"context"

	"github.com/nystai-labs/authcore/internal"
)

// IssueOTP generates a recovery code for the account, persists its digest
// with a fresh expiry and a zeroed attempt budget, and delivers the
// plaintext through the notifier. Issuing replaces any outstanding code.
//
// A delivery failure is reported as [ErrDeliveryFailed], but the stored code
// stays valid: the message may still arrive, and the attempt budget protects
// the window either way.
func (e *Engine) IssueOTP(ctx context.Context, email string) (OTPReceipt, error) {
	if e.users == nil || e.notifier == nil {
		return OTPReceipt{}, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" {
		return OTPReceipt{}, ErrInvalidInput
	}

	if err := e.checkOTPIssueLimit(ctx, email); err != nil {
		e.metricInc(MetricOTPIssueRateLimited)
		e.emitAudit(ctx, auditEventOTPIssueRateLimited, false, "", err, func() map[string]string {
			return map[string]string{
				"email": email,
			}
		})
		return OTPReceipt{}, err
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		e.emitAudit(ctx, auditEventOTPVerifyFailure, false, "", err, func() map[string]string {
			return map[string]string{
				"email": email,
				"stage": "issue_lookup",
			}
		})
		return OTPReceipt{}, err
	}

	code, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return OTPReceipt{}, err
	}

	expiry := e.timeNow().Add(e.config.OTP.Window)
	if err := e.users.SetOTP(ctx, user.ID, internal.HashOTP(code), expiry); err != nil {
		return OTPReceipt{}, err
	}

	receipt := OTPReceipt{
		Email:     email,
		ExpiresAt: expiry,
	}

	deliverCtx, cancel := context.WithTimeout(ctx, e.config.Notify.Timeout)
	defer cancel()

	if err := e.notifier.DeliverOTP(deliverCtx, email, code, e.config.OTP.Window); err != nil {
		e.metricInc(MetricOTPDeliveryFailed)
		e.emitAudit(ctx, auditEventOTPDeliveryFailed, false, user.ID, ErrDeliveryFailed, func() map[string]string {
			return map[string]string{
				"email": email,
			}
		})
		return OTPReceipt{}, ErrDeliveryFailed
	}

	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, auditEventOTPIssued, true, user.ID, nil, func() map[string]string {
		return map[string]string{
			"email": email,
		}
	})

	return receipt, nil
}

// VerifyOTP checks a submitted code against the account's outstanding one.
// On success the code is consumed and a reset token returned. Every failure
// other than exhaustion atomically spends one attempt; the stored code and
// expiry are never modified by a failed attempt.
//
// Once the attempt budget is spent, every submission — including the correct
// code — is [ErrOTPAttemptsExhausted] until a new code is issued.
func (e *Engine) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	if e.users == nil || e.tokens == nil {
		return "", ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" {
		return "", ErrInvalidInput
	}

	// Verification reads the store, never the cache: attempt counts and
	// expiry must be authoritative.
	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		e.metricInc(MetricOTPVerifyFailure)
		e.emitAudit(ctx, auditEventOTPVerifyFailure, false, "", err, func() map[string]string {
			return map[string]string{
				"email": email,
			}
		})
		return "", err
	}

	if user.OTPAttempts >= e.config.OTP.MaxAttempts {
		e.metricInc(MetricOTPAttemptsExhausted)
		e.emitAudit(ctx, auditEventOTPAttemptsExhausted, false, user.ID, ErrOTPAttemptsExhausted, nil)
		return "", ErrOTPAttemptsExhausted
	}

	if user.OTPDigest == "" {
		// No outstanding code (never issued, or already consumed). Nothing
		// to spend an attempt against.
		e.metricInc(MetricOTPVerifyFailure)
		e.emitAudit(ctx, auditEventOTPVerifyFailure, false, user.ID, ErrOTPInvalidOrExpired, nil)
		return "", ErrOTPInvalidOrExpired
	}

	expired := !e.timeNow().Before(user.OTPExpiry)
	matches := code != "" && internal.DigestEqual(internal.HashOTP(code), user.OTPDigest)

	if expired || !matches {
		if err := e.users.IncrementOTPAttempts(ctx, user.ID); err != nil {
			return "", err
		}
		e.metricInc(MetricOTPVerifyFailure)
		e.emitAudit(ctx, auditEventOTPVerifyFailure, false, user.ID, ErrOTPInvalidOrExpired, func() map[string]string {
			if expired {
				return map[string]string{"reason": "expired"}
			}
			return map[string]string{"reason": "mismatch"}
		})
		return "", ErrOTPInvalidOrExpired
	}

	if err := e.users.ClearOTP(ctx, user.ID); err != nil {
		return "", err
	}

	resetToken, err := e.tokens.IssueReset(user.ID)
	if err != nil {
		return "", err
	}

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventOTPVerifySuccess, true, user.ID, nil, nil)

	return resetToken, nil
}
