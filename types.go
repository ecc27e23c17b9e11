package authcore

import (
	"context"
	"time"
)

// Role is the coarse authorization level of an account.
type Role string

const (
	// RoleAdmin is granted once, to the account registering with the
	// configured admin email.
	RoleAdmin Role = "ADMIN"
	// RoleUser is the default role for every other account.
	RoleUser Role = "USER"
)

func validRole(r Role) bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the full account record exchanged with a [CredentialStore].
// OTPDigest holds the SHA-256 digest of the outstanding recovery code
// (hex-encoded, empty when none); the plaintext code is never persisted.
// OTPDigest and OTPExpiry are set and cleared together.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	OTPDigest    string
	OTPExpiry    time.Time
	OTPAttempts  int
	CreatedAt    time.Time
}

// UserSummary is the public projection of an account: no credential or
// recovery state.
type UserSummary struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// Summary strips credential and recovery fields from a User.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

// RegisterInput is the input for [Engine.Register].
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// LoginResult is returned by [Engine.Login]. Redirect is a UI hint derived
// from the role, not an authorization decision.
type LoginResult struct {
	Token    string
	UserID   string
	Role     Role
	Redirect string
}

// OTPReceipt is returned by [Engine.IssueOTP]. It never carries the code.
type OTPReceipt struct {
	Email     string
	ExpiresAt time.Time
}

// CredentialStore is the authoritative account storage that callers must
// provide to the engine. All methods are expected to be safe for concurrent
// use; IncrementOTPAttempts in particular must apply a single-row atomic
// increment so that concurrent failed verifications are never lost.
//
// Create returns [ErrDuplicateEmail] when the email is taken. Lookups return
// [ErrUserNotFound] for unknown identifiers.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, u User) (User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateRole(ctx context.Context, id string, role Role) error
	SetOTP(ctx context.Context, id, digest string, expiry time.Time) error
	IncrementOTPAttempts(ctx context.Context, id string) error
	ClearOTP(ctx context.Context, id string) error
}

// Notifier delivers a recovery code to an account. Implementations should
// honor ctx cancellation; the engine bounds each delivery with the configured
// notify timeout.
type Notifier interface {
	DeliverOTP(ctx context.Context, email, code string, validity time.Duration) error
}
