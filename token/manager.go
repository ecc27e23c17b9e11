// Package token signs and verifies the engine's HS256 tokens. A purpose
// claim separates long-lived session tokens from the short-lived reset
// tokens minted by code verification, so one can never stand in for the
// other.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is the single verification outcome for any failure: malformed
// token, bad signature, wrong algorithm, wrong purpose, or expiry. Callers
// get no detail to echo back.
var ErrInvalid = errors.New("invalid token")

const (
	purposeSession = "session"
	purposeReset   = "reset"
)

// Config configures the manager. Secret must be at least 32 bytes.
type Config struct {
	Secret     []byte
	SessionTTL time.Duration
	ResetTTL   time.Duration
	Issuer     string
}

// Manager signs and verifies tokens. Safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// Claims is the token payload: registered claims plus the purpose and, on
// session tokens, the role.
type Claims struct {
	Purpose string `json:"purpose"`
	Role    string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if cfg.SessionTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}

	return &Manager{config: cfg, now: time.Now}, nil
}

// WithClock overrides the manager's time source. Intended for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// IssueSession signs a session token for the given subject and role.
func (m *Manager) IssueSession(userID, role string) (string, error) {
	return m.issue(userID, purposeSession, role, m.config.SessionTTL)
}

// IssueReset signs a reset token for the given subject. Reset tokens carry
// no role; they authorize exactly one thing.
func (m *Manager) IssueReset(userID string) (string, error) {
	return m.issue(userID, purposeReset, "", m.config.ResetTTL)
}

func (m *Manager) issue(userID, purpose, role string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("empty subject")
	}

	now := m.now()
	claims := Claims{
		Purpose: purpose,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// VerifySession verifies a session token and returns its claims.
func (m *Manager) VerifySession(tokenStr string) (*Claims, error) {
	return m.verify(tokenStr, purposeSession)
}

// VerifyReset verifies a reset token and returns its claims.
func (m *Manager) VerifyReset(tokenStr string) (*Claims, error) {
	return m.verify(tokenStr, purposeReset)
}

func (m *Manager) verify(tokenStr, purpose string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, ErrInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}
