package authcore

import (
	"context"
	"log"
)

// ResetPassword consumes a reset token and replaces the account's password
// hash. Any token defect — including a token whose subject no longer exists
// — is the single [ErrTokenInvalid] outcome. Cache invalidation for the
// account runs on every path that may have changed store state, so a stale
// hash can never be served past this call.
func (e *Engine) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if e.users == nil || e.tokens == nil || e.hasher == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.VerifyReset(resetToken)
	if err != nil {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "token_rejected",
			}
		})
		return ErrTokenInvalid
	}

	if len(newPassword) < e.config.Account.MinPasswordLength {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, claims.Subject, ErrInvalidInput, func() map[string]string {
			return map[string]string{
				"reason": "password_too_short",
			}
		})
		return ErrInvalidInput
	}

	user, err := e.users.FindByID(ctx, claims.Subject)
	if err != nil {
		// The token outlived the account. Report it exactly like a forged
		// token.
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, claims.Subject, ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "subject_missing",
			}
		})
		return ErrTokenInvalid
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, user.ID, err, nil)
		return err
	}

	if err := e.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		// The write may have partially landed; invalidate before failing.
		e.cacheInvalidateUser(ctx, user.Email)
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, user.ID, err, nil)
		return err
	}

	// Stray recovery state dies with the old password. Best-effort: the
	// attempt budget still guards a leftover code.
	if err := e.users.ClearOTP(ctx, user.ID); err != nil {
		log.Print("authcore: otp state clear failed after password reset")
	}

	e.cacheInvalidateUser(ctx, user.Email)

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetSuccess, true, user.ID, nil, nil)

	return nil
}
