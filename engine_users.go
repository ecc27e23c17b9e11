package authcore

import "context"

// ListUsers returns all accounts as summaries, read through the listing
// cache. Ordering comes from the store: creation time, then email.
func (e *Engine) ListUsers(ctx context.Context) ([]UserSummary, error) {
	if e.users == nil {
		return nil, ErrEngineNotReady
	}

	if summaries, ok := e.cacheGetList(ctx); ok {
		e.metricInc(MetricUsersListServed)
		return summaries, nil
	}

	users, err := e.users.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.Summary())
	}

	e.cacheSetList(ctx, summaries)
	e.metricInc(MetricUsersListServed)

	return summaries, nil
}

// ChangeRole sets an account's role. This is the only way a role changes
// after registration; the admin-email bootstrap never re-runs.
func (e *Engine) ChangeRole(ctx context.Context, userID string, role Role) (UserSummary, error) {
	if e.users == nil {
		return UserSummary{}, ErrEngineNotReady
	}
	if userID == "" || !validRole(role) {
		return UserSummary{}, ErrInvalidInput
	}

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return UserSummary{}, err
	}

	if err := e.users.UpdateRole(ctx, user.ID, role); err != nil {
		e.cacheInvalidateUser(ctx, user.Email)
		return UserSummary{}, err
	}
	user.Role = role

	e.cacheInvalidateUser(ctx, user.Email)

	e.metricInc(MetricRoleChanged)
	e.emitAudit(ctx, auditEventRoleChanged, true, user.ID, nil, func() map[string]string {
		return map[string]string{
			"role": string(role),
		}
	})

	return user.Summary(), nil
}
