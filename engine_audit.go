package authcore

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRegisterSuccess         = "register_success"
	auditEventRegisterFailure         = "register_failure"
	auditEventLoginSuccess            = "login_success"
	auditEventLoginFailure            = "login_failure"
	auditEventOTPIssued               = "otp_issued"
	auditEventOTPDeliveryFailed       = "otp_delivery_failed"
	auditEventOTPIssueRateLimited     = "otp_issue_rate_limited"
	auditEventOTPVerifySuccess        = "otp_verify_success"
	auditEventOTPVerifyFailure        = "otp_verify_failure"
	auditEventOTPAttemptsExhausted    = "otp_attempts_exhausted"
	auditEventPasswordResetSuccess    = "password_reset_success"
	auditEventPasswordResetFailure    = "password_reset_failure"
	auditEventRoleChanged             = "role_changed"
	auditEventCacheInvalidationFailed = "cache_invalidation_failed"
)

// AuditErrorCode is the coarse error classification carried on audit events.
type AuditErrorCode string

const (
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrPasswordMismatch   AuditErrorCode = "password_mismatch"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrDeliveryFailed     AuditErrorCode = "delivery_failed"
	auditErrOTPInvalid         AuditErrorCode = "otp_invalid"
	auditErrAttemptsExceeded   AuditErrorCode = "attempts_exceeded"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// auditErrorCode deliberately folds ErrUserNotFound into the credentials
// bucket: audit consumers get the same signal an attacker probing for
// account existence would.
func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrPasswordMismatch):
		return auditErrPasswordMismatch
	case errors.Is(err, ErrDuplicateEmail):
		return auditErrDuplicate
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrOTPRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrOTPInvalidOrExpired):
		return auditErrOTPInvalid
	case errors.Is(err, ErrOTPAttemptsExhausted):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	default:
		return auditErrInternal
	}
}
