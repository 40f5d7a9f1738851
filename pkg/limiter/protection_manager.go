package limiter

import (
	"context"
)

// ProtectionManager integrates rate limiting, retries, and circuit breaker
type ProtectionManager struct {
	rateLimiter    *RateLimiter
	retryManager   *RetryManager
	circuitBreaker *CircuitBreaker
}

func NewProtectionManager(rl *RateLimiter, rm *RetryManager, cb *CircuitBreaker) *ProtectionManager {
	if rl == nil {
		rl = NewRateLimiter(0)
	}
	if rm == nil {
		rm = NewRetryManager(nil)
	}
	if cb == nil {
		cb = NewCircuitBreaker(nil)
	}
	return &ProtectionManager{rateLimiter: rl, retryManager: rm, circuitBreaker: cb}
}

// Execute rate limits, then retries fn inside the breaker. Each retry
// attempt waits for the rate limiter again.
func (pm *ProtectionManager) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return pm.circuitBreaker.Execute(func() error {
		return pm.retryManager.Do(ctx, func(ctx context.Context) error {
			if err := pm.rateLimiter.Wait(ctx); err != nil {
				return err
			}
			return fn(ctx)
		})
	})
}

func (pm *ProtectionManager) Breaker() *CircuitBreaker { return pm.circuitBreaker }
