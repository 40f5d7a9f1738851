package limiter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimiter spaces out requests to a per-minute budget.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows rpm requests per minute with a burst of a tenth of
// that (at least 1). rpm <= 0 disables limiting.
func NewRateLimiter(rpm int) *RateLimiter {
	if rpm <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)}
}

// Wait blocks until a request is allowed or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := rl.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

// Allow reports whether a request may happen now.
func (rl *RateLimiter) Allow() bool { return rl.limiter.Allow() }
