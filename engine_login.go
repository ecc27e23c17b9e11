package authcore

import (
	"context"
	"log"
	"time"
)

// Login authenticates an email/password pair. A cache hit serves the whole
// check without touching the store; a miss reads the store and repopulates
// the cache. Unknown account and wrong password stay distinct errors — the
// transport layer decides whether to collapse them.
func (e *Engine) Login(ctx context.Context, email, pass string) (LoginResult, error) {
	if e.hasher == nil || e.tokens == nil {
		return LoginResult{}, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricLoginLatency, time.Since(start))
		}()
	}

	email = normalizeEmail(email)
	if email == "" || pass == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "empty_credentials",
			}
		})
		return LoginResult{}, ErrInvalidCredentials
	}

	user, fromCache, err := e.lookupForLogin(ctx, email)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", err, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "user_not_found",
			}
		})
		return LoginResult{}, err
	}

	ok, err := e.hasher.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "password_mismatch",
			}
		})
		return LoginResult{}, ErrInvalidCredentials
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradeHashOnLogin(ctx, user, pass)
	}
	pass = ""

	if !fromCache {
		e.cacheSetUser(ctx, user)
	}

	tok, err := e.tokens.IssueSession(user.ID, string(user.Role))
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, err, func() map[string]string {
			return map[string]string{
				"reason": "token_issue_failed",
			}
		})
		return LoginResult{}, err
	}

	redirect := e.config.Account.UserRedirect
	if user.Role == RoleAdmin {
		redirect = e.config.Account.AdminRedirect
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, nil, func() map[string]string {
		return map[string]string{
			"email": email,
		}
	})

	return LoginResult{
		Token:    tok,
		UserID:   user.ID,
		Role:     user.Role,
		Redirect: redirect,
	}, nil
}

// VerifySession validates a session token and returns its subject and role.
func (e *Engine) VerifySession(tokenStr string) (userID string, role Role, err error) {
	if e.tokens == nil {
		return "", "", ErrEngineNotReady
	}

	claims, err := e.tokens.VerifySession(tokenStr)
	if err != nil {
		return "", "", ErrTokenInvalid
	}
	return claims.Subject, Role(claims.Role), nil
}

func (e *Engine) lookupForLogin(ctx context.Context, email string) (User, bool, error) {
	if user, ok := e.cacheGetUser(ctx, email); ok {
		return user, true, nil
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		return User{}, false, err
	}
	return user, false, nil
}

// upgradeHashOnLogin rehashes a below-cost stored hash with the plaintext at
// hand. Best-effort: a failure never blocks the login, but a stale cached
// hash must not outlive a successful update.
func (e *Engine) upgradeHashOnLogin(ctx context.Context, user User, pass string) {
	needsUpgrade, err := e.hasher.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needsUpgrade {
		return
	}

	upgraded, err := e.hasher.Hash(pass)
	if err != nil {
		log.Print("authcore: password hash upgrade generation failed")
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
		log.Print("authcore: password hash upgrade update failed")
		return
	}
	e.cacheInvalidateUser(ctx, user.Email)
}
