package authcore

import "errors"

var (
	// ErrInvalidInput is returned when a request is missing required fields
	// or violates a basic validation rule (password length, unknown role).
	ErrInvalidInput = errors.New("invalid input")
	// ErrPasswordMismatch is returned by Register when the password and its
	// confirmation differ.
	ErrPasswordMismatch = errors.New("password confirmation mismatch")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUserNotFound is returned when no account exists for the identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned on a password mismatch during login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrOTPRateLimited is returned when code issuance is throttled for the
	// email or client IP.
	ErrOTPRateLimited = errors.New("otp issuance rate limited")
	// ErrDeliveryFailed is returned when the notifier could not deliver the
	// code. The stored code remains valid.
	ErrDeliveryFailed = errors.New("otp delivery failed")
	// ErrOTPInvalidOrExpired is returned for a wrong, expired, or absent
	// code. Callers cannot distinguish which.
	ErrOTPInvalidOrExpired = errors.New("otp invalid or expired")
	// ErrOTPAttemptsExhausted is returned once the attempt budget for the
	// outstanding code is spent. Only a fresh issue resets it.
	ErrOTPAttemptsExhausted = errors.New("otp attempts exhausted")
	// ErrTokenInvalid is the single outcome for any reset-token failure:
	// malformed, bad signature, wrong purpose, expired, or unknown subject.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrEngineNotReady indicates the engine was not built with a required
	// dependency.
	ErrEngineNotReady = errors.New("engine not initialized")
)
