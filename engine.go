package authcore

import (
	"strings"
	"time"

	"github.com/nystai-labs/authcore/password"
	"github.com/nystai-labs/authcore/token"

	"github.com/nystai-labs/authcore/cache"
)

// Engine is the credential engine. Build one through [Builder]; it is
// immutable and safe for concurrent use afterwards.
type Engine struct {
	config     Config
	users      CredentialStore
	cache      cache.Store
	hasher     *password.Bcrypt
	tokens     *token.Manager
	notifier   Notifier
	otpLimiter *otpIssueLimiter
	audit      *auditDispatcher
	metrics    *Metrics

	// now is the engine clock; tests override it through the builder.
	now func() time.Time
}

// Close drains and stops the audit dispatcher. Call it on shutdown when
// audit is enabled; otherwise it is a no-op.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a deep copy of the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) timeNow() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

// normalizeEmail is applied to every externally supplied email before
// lookup, storage, or cache keying, so "A@X.com" and "a@x.com " are the
// same account everywhere.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
