package authcore

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/nystai-labs/authcore/cache"
)

// cachedUser is the JSON projection stored under the per-user key. It keeps
// the password hash so a cache hit can serve a full login without touching
// the store. Changing this shape requires bumping Config.Cache.Prefix.
type cachedUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func (e *Engine) userCacheKey(email string) string {
	return e.config.Cache.Prefix + ":user:" + email
}

func (e *Engine) listCacheKey() string {
	return e.config.Cache.Prefix + ":users:all"
}

// cacheGetUser returns the cached account for email. The second result is
// false on a miss or any cache misbehavior; callers always fall through to
// the store.
func (e *Engine) cacheGetUser(ctx context.Context, email string) (User, bool) {
	if e.cache == nil {
		return User{}, false
	}

	opCtx, cancel := context.WithTimeout(ctx, e.config.Cache.OpTimeout)
	defer cancel()

	data, err := e.cache.Get(opCtx, e.userCacheKey(email))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			e.metricInc(MetricCacheMiss)
		} else {
			e.metricInc(MetricCacheError)
		}
		return User{}, false
	}

	var cu cachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		// Unreadable entry, likely from an older projection. Drop it.
		e.metricInc(MetricCacheError)
		e.cacheInvalidateUser(ctx, email)
		return User{}, false
	}

	e.metricInc(MetricCacheHit)
	return User{
		ID:           cu.ID,
		Name:         cu.Name,
		Email:        cu.Email,
		PasswordHash: cu.PasswordHash,
		Role:         cu.Role,
		CreatedAt:    cu.CreatedAt,
	}, true
}

// cacheSetUser stores the account projection best-effort. OTP state is
// deliberately excluded: verification always reads the store.
func (e *Engine) cacheSetUser(ctx context.Context, u User) {
	if e.cache == nil {
		return
	}

	data, err := json.Marshal(cachedUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
	})
	if err != nil {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, e.config.Cache.OpTimeout)
	defer cancel()

	if err := e.cache.Set(opCtx, e.userCacheKey(u.Email), data, e.config.Cache.UserTTL); err != nil {
		e.metricInc(MetricCacheError)
	}
}

// cacheInvalidateUser drops the per-user entry and the listing. A failed
// delete is surfaced through metrics and audit, never to the caller: the
// entry still dies at its TTL.
func (e *Engine) cacheInvalidateUser(ctx context.Context, email string) {
	if e.cache == nil {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, e.config.Cache.OpTimeout)
	defer cancel()

	if err := e.cache.Delete(opCtx, e.userCacheKey(email), e.listCacheKey()); err != nil {
		e.metricInc(MetricCacheInvalidationFailed)
		log.Print("authcore: cache invalidation failed")
		e.emitAudit(ctx, auditEventCacheInvalidationFailed, false, "", nil, func() map[string]string {
			return map[string]string{
				"email": email,
			}
		})
	}
}

func (e *Engine) cacheGetList(ctx context.Context) ([]UserSummary, bool) {
	if e.cache == nil {
		return nil, false
	}

	opCtx, cancel := context.WithTimeout(ctx, e.config.Cache.OpTimeout)
	defer cancel()

	data, err := e.cache.Get(opCtx, e.listCacheKey())
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			e.metricInc(MetricCacheMiss)
		} else {
			e.metricInc(MetricCacheError)
		}
		return nil, false
	}

	var summaries []UserSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		e.metricInc(MetricCacheError)
		return nil, false
	}

	e.metricInc(MetricCacheHit)
	return summaries, true
}

func (e *Engine) cacheSetList(ctx context.Context, summaries []UserSummary) {
	if e.cache == nil {
		return
	}

	data, err := json.Marshal(summaries)
	if err != nil {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, e.config.Cache.OpTimeout)
	defer cancel()

	if err := e.cache.Set(opCtx, e.listCacheKey(), data, e.config.Cache.ListTTL); err != nil {
		e.metricInc(MetricCacheError)
	}
}
