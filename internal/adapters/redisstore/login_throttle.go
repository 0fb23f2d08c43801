package redisstore

// Package redisstore provides Redis-backed adapters for auth: the failed-login
// throttle and the pending federated-signup store.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/greenbasket/storefront/internal/ports"
)

var _ ports.LoginThrottle = (*LoginThrottle)(nil)

// LoginThrottle is a keyed expiring counter limiting failed login attempts
// per email. The counter lives in Redis so the limit holds across server
// instances; increment-and-arm-TTL is a single Lua script, so concurrent
// failures never race the window.
type LoginThrottle struct {
	client      redis.UniversalClient
	prefix      string
	maxAttempts int
	window      time.Duration
}

// ThrottleConfig groups constructor inputs for LoginThrottle.
type ThrottleConfig struct {
	MaxAttempts int           // default 5
	Window      time.Duration // default 15m
	Prefix      string        // default "login_attempts:"
}

// NewLoginThrottle creates a Redis-backed login throttle.
func NewLoginThrottle(client redis.UniversalClient, cfg ThrottleConfig) *LoginThrottle {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "login_attempts:"
	}
	return &LoginThrottle{
		client:      client,
		prefix:      cfg.Prefix,
		maxAttempts: cfg.MaxAttempts,
		window:      cfg.Window,
	}
}

// recordFailureScript increments the counter and arms the window TTL on the
// first failure only, so the lockout window is measured from the first
// failure rather than sliding with each one.
var recordFailureScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

func (t *LoginThrottle) key(email string) string {
	return t.prefix + strings.ToLower(strings.TrimSpace(email))
}

// Check reports whether a login attempt is permitted. Locked-out identities
// get the remaining lockout duration so callers can surface it.
func (t *LoginThrottle) Check(ctx context.Context, email string) (ports.ThrottleState, error) {
	key := t.key(email)

	count, err := t.client.Get(ctx, key).Int()
	if err != nil {
		if err == redis.Nil {
			return ports.ThrottleState{Allowed: true}, nil
		}
		return ports.ThrottleState{}, fmt.Errorf("throttle check: %w", err)
	}

	if count < t.maxAttempts {
		return ports.ThrottleState{Allowed: true}, nil
	}

	remaining, err := t.client.PTTL(ctx, key).Result()
	if err != nil {
		return ports.ThrottleState{}, fmt.Errorf("throttle ttl: %w", err)
	}
	if remaining < 0 {
		// Key exists without TTL; treat as a full window to fail closed.
		remaining = t.window
	}
	return ports.ThrottleState{Allowed: false, Remaining: remaining}, nil
}

// RecordFailure atomically increments the identity's failure counter.
func (t *LoginThrottle) RecordFailure(ctx context.Context, email string) error {
	if err := recordFailureScript.Run(ctx, t.client, []string{t.key(email)}, t.window.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("throttle record failure: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email string) error {
	if err := t.client.Del(ctx, t.key(email)).Err(); err != nil {
		return fmt.Errorf("throttle reset: %w", err)
	}
	return nil
}
