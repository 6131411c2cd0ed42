package cache

import (
	"context"
	"fmt"
	"time"
)

// Counters holds the login-path hot state: failure counters and lockout
// markers. Everything here is ephemeral operational telemetry with a TTL
// no longer than the lockout window; nothing is ever written to Postgres.
type Counters interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Increment atomically adds one to the counter at key and returns the
	// new value. A new counter starts at 1 and expires after ttl. The
	// increment and the boundary check it feeds must not be separable
	// into a read-then-write.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// TTL returns the remaining lifetime of key, or 0 if absent.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Close() error
}

// ErrCacheMiss is returned when a key is not found
var ErrCacheMiss = fmt.Errorf("cache miss")

// FailureKey is the failed-attempt counter for an (identity, origin) pair.
func FailureKey(identity, origin string) string {
	return "authfail:" + identity + ":" + origin
}

// LockoutKey marks an active lockout for an (identity, origin) pair.
func LockoutKey(identity, origin string) string {
	return "lockout:" + identity + ":" + origin
}

// LockoutGenKey counts consecutive lockouts, driving the backoff.
func LockoutGenKey(identity, origin string) string {
	return "lockoutgen:" + identity + ":" + origin
}
