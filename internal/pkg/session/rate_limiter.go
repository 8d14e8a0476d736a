// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxLoginAttempts = 5
	loginWindow      = 15 * time.Minute
)

// RateLimiter throttles login attempts per IP+email pair using Redis.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func loginKey(ip, email string) string {
	return fmt.Sprintf("login_attempts:%s:%s", ip, email)
}

// CheckLoginAttempt records an attempt and reports whether it is allowed
// and how many attempts remain in the current window.
func (r *RateLimiter) CheckLoginAttempt(ctx context.Context, ip, email string) (bool, int, error) {
	key := loginKey(ip, email)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment login attempts: %w", err)
	}

	// First attempt in the window sets the expiry.
	if count == 1 {
		if err := r.client.Expire(ctx, key, loginWindow).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set attempt window: %w", err)
		}
	}

	remaining := maxLoginAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return count <= maxLoginAttempts, remaining, nil
}

// ResetLoginAttempts clears the attempt counter after a successful login.
func (r *RateLimiter) ResetLoginAttempts(ctx context.Context, ip, email string) {
	r.client.Del(ctx, loginKey(ip, email))
}
