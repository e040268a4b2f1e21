package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/limshub/vessel-queue/internal/domain"
)

// QueueLimiters holds one token bucket limiter per queue type, applied to
// mutating operations at the API boundary. A runaway integration hammering
// one queue cannot starve mutations on the others, since each queue type is
// also its own lock domain.
type QueueLimiters struct {
	limiters map[domain.QueueType]*rate.Limiter
}

// New creates a QueueLimiters with ratePerSec mutations per second per
// queue type. Burst equals the rate so no extra burst capacity accumulates
// beyond the configured per-second maximum.
func New(ratePerSec int) *QueueLimiters {
	r := rate.Limit(ratePerSec)
	burst := ratePerSec

	limiters := make(map[domain.QueueType]*rate.Limiter, len(domain.AllQueueTypes))
	for _, qt := range domain.AllQueueTypes {
		limiters[qt] = rate.NewLimiter(r, burst)
	}
	return &QueueLimiters{limiters: limiters}
}

// Allow reports whether a mutation on the queue type may proceed now.
// Non-blocking: the API layer turns a false into 429 rather than holding
// the request open.
func (ql *QueueLimiters) Allow(qt domain.QueueType) bool {
	l, ok := ql.limiters[qt]
	if !ok {
		return true
	}
	return l.Allow()
}

// Wait blocks until the queue type's limiter grants a token. Used by
// background callers (routing chains) that prefer waiting over failing.
func (ql *QueueLimiters) Wait(ctx context.Context, qt domain.QueueType) error {
	l, ok := ql.limiters[qt]
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}
