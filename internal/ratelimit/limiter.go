// Package ratelimit gates upstream search calls with a per-second token
// bucket and a calendar-month quota.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mjochum64/saaros-mcp-server/internal/errors"
	"github.com/mjochum64/saaros-mcp-server/internal/metrics"
)

// Defaults matching the free API plan.
const (
	DefaultPerSecond = 1
	DefaultPerMonth  = 15000
	DefaultMaxWait   = 5 * time.Second
)

// Window names reported in RateLimitError.
const (
	WindowSecond = "second"
	WindowMonth  = "month"
)

// Config holds the limiter budgets.
type Config struct {
	PerSecond int
	PerMonth  int
	MaxWait   time.Duration

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Limiter enforces both budgets. It is safe for concurrent use.
type Limiter struct {
	bucket  *rate.Limiter
	maxWait time.Duration
	now     func() time.Time
	metrics *metrics.Metrics

	mu       sync.Mutex
	perMonth int
	month    monthKey
	used     int
}

type monthKey struct {
	year  int
	month time.Month
}

func monthOf(t time.Time) monthKey {
	t = t.UTC()

	return monthKey{year: t.Year(), month: t.Month()}
}

// New builds a limiter. Non-positive budgets fall back to the defaults;
// a negative MaxWait means never wait.
func New(cfg Config, m *metrics.Metrics) *Limiter {
	perSecond := cfg.PerSecond
	if perSecond <= 0 {
		perSecond = DefaultPerSecond
	}

	perMonth := cfg.PerMonth
	if perMonth <= 0 {
		perMonth = DefaultPerMonth
	}

	maxWait := cfg.MaxWait
	if maxWait == 0 {
		maxWait = DefaultMaxWait
	}

	maxWait = max(maxWait, 0)

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Limiter{
		bucket:   rate.NewLimiter(rate.Limit(perSecond), perSecond),
		maxWait:  maxWait,
		now:      now,
		metrics:  m,
		perMonth: perMonth,
		month:    monthOf(now()),
	}
}

// Wait blocks until one call is allowed under both budgets.
//
// The monthly quota is checked first. A per-second token that would take
// longer than MaxWait to arrive fails with RateLimitError instead of
// blocking. Context cancellation returns the context error and refunds
// the quota slot.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := l.now()

	if err := l.takeMonthly(now); err != nil {
		l.metrics.ObserveUpstream(metrics.OutcomeLimited, 0)

		return err
	}

	reservation := l.bucket.ReserveN(now, 1)
	if !reservation.OK() {
		l.refundMonthly(now)

		return &errors.RateLimitError{Window: WindowSecond, Limit: l.bucket.Burst()}
	}

	delay := reservation.DelayFrom(now)
	if delay == 0 {
		return nil
	}

	if delay > l.maxWait {
		reservation.CancelAt(now)
		l.refundMonthly(now)
		l.metrics.ObserveUpstream(metrics.OutcomeLimited, 0)

		return &errors.RateLimitError{Window: WindowSecond, Limit: l.bucket.Burst()}
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		reservation.CancelAt(l.now())
		l.refundMonthly(now)

		return ctx.Err()
	}
}

// Used reports the calls counted against the current month.
func (l *Limiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if monthOf(l.now()) != l.month {
		return 0
	}

	return l.used
}

func (l *Limiter) takeMonthly(now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if key := monthOf(now); key != l.month {
		l.month = key
		l.used = 0
	}

	if l.used >= l.perMonth {
		return &errors.RateLimitError{Window: WindowMonth, Limit: l.perMonth}
	}

	l.used++

	return nil
}

func (l *Limiter) refundMonthly(at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if monthOf(at) == l.month && l.used > 0 {
		l.used--
	}
}
