package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Gate enforces a minimum spacing between calls to the rewrite service and
// computes exponential backoff delays for transient failures. One Gate is
// shared by all refinement runs in the process; the limiter holds the
// "next allowed call time" under its own lock.
type Gate struct {
	limiter     *rate.Limiter
	backoffBase time.Duration
	backoffMax  time.Duration
	logger      *zap.Logger
}

// NewGate creates a gate with the given minimum interval between calls and
// backoff parameters.
func NewGate(minInterval, backoffBase, backoffMax time.Duration, logger *zap.Logger) *Gate {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	if backoffBase <= 0 {
		backoffBase = 2 * time.Second
	}
	if backoffMax < backoffBase {
		backoffMax = backoffBase
	}
	return &Gate{
		limiter:     rate.NewLimiter(rate.Every(minInterval), 1),
		backoffBase: backoffBase,
		backoffMax:  backoffMax,
		logger:      logger,
	}
}

// Acquire blocks until the next call slot is available or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

// Backoff sleeps for the delay of the given zero-based retry count,
// returning early if ctx is done.
func (g *Gate) Backoff(ctx context.Context, retry int) error {
	delay := g.Delay(retry)
	g.logger.Debug("Backing off before retry",
		zap.Int("retry", retry),
		zap.Duration("delay", delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delay returns base * 2^retry capped at the configured maximum.
func (g *Gate) Delay(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	delay := g.backoffBase
	for i := 0; i < retry; i++ {
		delay *= 2
		if delay >= g.backoffMax {
			return g.backoffMax
		}
	}
	if delay > g.backoffMax {
		delay = g.backoffMax
	}
	return delay
}
