package api

import (
	"context"
	"sync"
	"time"
)

// RateLimiter admits network calls at a configured per-minute rate using
// a continuously refilled token bucket. Capacity equals the per-minute
// limit, so bursts up to the full limit are allowed when unused capacity
// has accumulated; once depleted, admissions are spaced at limit/60 per
// second. Admit blocks callers in arrival order.
type RateLimiter struct {
	mu           sync.Mutex
	tokens       float64
	maxTokens    float64
	refillPerSec float64
	lastRefill   time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a rate limiter for perMinute admissions. A
// non-positive limit is a configuration error, reported immediately
// rather than causing callers to wait forever.
func NewRateLimiter(perMinute int) (*RateLimiter, error) {
	if perMinute <= 0 {
		return nil, configError("rate_limit_per_minute must be positive")
	}
	rl := &RateLimiter{
		tokens:       float64(perMinute),
		maxTokens:    float64(perMinute),
		refillPerSec: float64(perMinute) / 60.0,
		now:          time.Now,
		sleep:        sleepContext,
	}
	rl.lastRefill = rl.now()
	return rl, nil
}

// Admit blocks until one unit of capacity is available, then consumes
// it. Each caller reserves the next admission instant under the lock,
// so admissions in any trailing 60-second window never exceed the
// configured limit. A cancelled caller returns its reservation.
func (rl *RateLimiter) Admit(ctx context.Context) error {
	rl.mu.Lock()
	rl.refill()
	rl.tokens--
	var wait time.Duration
	if rl.tokens < 0 {
		wait = time.Duration(-rl.tokens / rl.refillPerSec * float64(time.Second))
	}
	rl.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	if err := rl.sleep(ctx, wait); err != nil {
		rl.mu.Lock()
		rl.tokens++
		rl.mu.Unlock()
		return err
	}
	return nil
}

// Tokens returns the currently available capacity, for metrics.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens < 0 {
		return 0
	}
	return rl.tokens
}

// refill adds capacity for the time elapsed since the last refill,
// capped at the configured limit. Caller must hold mu.
func (rl *RateLimiter) refill() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.tokens += elapsed * rl.refillPerSec
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
