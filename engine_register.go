package authcore

import (
	"context"
	"errors"
	"strings"
)

// Register creates an account. The role is decided here and only here: the
// configured admin email gets [RoleAdmin], everyone else [RoleUser]. On
// success the account is cached and the user listing invalidated.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (UserSummary, error) {
	if e.hasher == nil || e.users == nil {
		return UserSummary{}, ErrEngineNotReady
	}

	email := normalizeEmail(input.Email)
	if err := validateRegisterInput(input, email, e.config.Account.MinPasswordLength); err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", err, func() map[string]string {
			return map[string]string{
				"email": email,
			}
		})
		return UserSummary{}, err
	}

	role := RoleUser
	if adminEmail := normalizeEmail(e.config.Account.AdminEmail); adminEmail != "" && email == adminEmail {
		role = RoleAdmin
	}

	hash, err := e.hasher.Hash(input.Password)
	if err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", err, nil)
		return UserSummary{}, err
	}

	created, err := e.users.Create(ctx, User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterFailure, false, "", ErrDuplicateEmail, func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			return UserSummary{}, ErrDuplicateEmail
		}
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", err, nil)
		return UserSummary{}, err
	}

	e.cacheSetUser(ctx, created)
	e.cacheInvalidateList(ctx)

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, created.ID, nil, func() map[string]string {
		return map[string]string{
			"email": email,
			"role":  string(created.Role),
		}
	})

	return created.Summary(), nil
}

// cacheInvalidateList drops only the listing entry; register repopulates the
// per-user key itself.
func (e *Engine) cacheInvalidateList(ctx context.Context) {
	if e.cache == nil {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, e.config.Cache.OpTimeout)
	defer cancel()

	if err := e.cache.Delete(opCtx, e.listCacheKey()); err != nil {
		e.metricInc(MetricCacheInvalidationFailed)
	}
}

func validateRegisterInput(input RegisterInput, email string, minPasswordLength int) error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrInvalidInput
	}
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidInput
	}
	if len(input.Password) < minPasswordLength {
		return ErrInvalidInput
	}
	if input.Password != input.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}
