package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/careportal/access-core/internal/cache"
)

// LockedError reports an active lockout and when it lifts.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

// RateLimiter throttles failed authentication attempts per (identity,
// origin) pair. Counting happens in the counter store with atomic
// increments; nothing identity-correlated outlives the lockout window.
type RateLimiter struct {
	counters    cache.Counters
	maxFailures int
	window      time.Duration
	lockoutBase time.Duration
	lockoutMax  time.Duration
}

// NewRateLimiter creates a rate limiter over the given counter store.
func NewRateLimiter(counters cache.Counters, maxFailures int, window, lockoutBase, lockoutMax time.Duration) *RateLimiter {
	return &RateLimiter{
		counters:    counters,
		maxFailures: maxFailures,
		window:      window,
		lockoutBase: lockoutBase,
		lockoutMax:  lockoutMax,
	}
}

// Check returns nil when an attempt may proceed, or a LockedError with
// the remaining lockout duration.
func (rl *RateLimiter) Check(ctx context.Context, identity, origin string) error {
	key := cache.LockoutKey(identity, origin)
	if _, err := rl.counters.Get(ctx, key); err != nil {
		if err == cache.ErrCacheMiss {
			return nil
		}
		return fmt.Errorf("failed to check lockout: %w", err)
	}

	remaining, err := rl.counters.TTL(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read lockout TTL: %w", err)
	}
	if remaining <= 0 {
		remaining = time.Second
	}
	return &LockedError{RetryAfter: remaining}
}

// RecordFailure counts a failed attempt. Crossing the failure threshold
// installs a lockout whose duration doubles with every consecutive
// lockout, capped at lockoutMax. Returns the lockout now in effect, if
// any, so the caller can surface retry-after immediately.
func (rl *RateLimiter) RecordFailure(ctx context.Context, identity, origin string) (*LockedError, error) {
	count, err := rl.counters.Increment(ctx, cache.FailureKey(identity, origin), rl.window)
	if err != nil {
		return nil, fmt.Errorf("failed to count failure: %w", err)
	}
	if count < int64(rl.maxFailures) {
		return nil, nil
	}

	// Threshold crossed: open a lockout and reset the window counter so
	// the next lockout needs a fresh run of failures.
	gen, err := rl.counters.Increment(ctx, cache.LockoutGenKey(identity, origin), rl.lockoutMax)
	if err != nil {
		return nil, fmt.Errorf("failed to count lockout generation: %w", err)
	}

	duration := rl.lockoutBase
	for i := int64(1); i < gen && duration < rl.lockoutMax; i++ {
		duration *= 2
	}
	if duration > rl.lockoutMax {
		duration = rl.lockoutMax
	}

	if err := rl.counters.Set(ctx, cache.LockoutKey(identity, origin), []byte(strconv.FormatInt(gen, 10)), duration); err != nil {
		return nil, fmt.Errorf("failed to set lockout: %w", err)
	}
	if err := rl.counters.Delete(ctx, cache.FailureKey(identity, origin)); err != nil {
		return nil, fmt.Errorf("failed to reset failure counter: %w", err)
	}

	return &LockedError{RetryAfter: duration}, nil
}

// RecordSuccess clears the failure counter and the lockout history for
// the pair after a successful authentication.
func (rl *RateLimiter) RecordSuccess(ctx context.Context, identity, origin string) error {
	if err := rl.counters.Delete(ctx, cache.FailureKey(identity, origin)); err != nil {
		return fmt.Errorf("failed to clear failure counter: %w", err)
	}
	if err := rl.counters.Delete(ctx, cache.LockoutGenKey(identity, origin)); err != nil {
		return fmt.Errorf("failed to clear lockout history: %w", err)
	}
	return nil
}
