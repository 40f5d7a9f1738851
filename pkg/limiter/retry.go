package limiter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	BaseDelay       time.Duration `yaml:"base_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	BackoffFactor   float64       `yaml:"backoff_factor"`
	Jitter          bool          `yaml:"jitter"`
	RetryableErrors []int         `yaml:"retryable_errors"`
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:      3,
		BaseDelay:       100 * time.Millisecond,
		MaxDelay:        30 * time.Second,
		BackoffFactor:   2.0,
		Jitter:          true,
		RetryableErrors: []int{429, 500, 502, 503, 504},
	}
}

// RetryManager manages retry logic
type RetryManager struct {
	config  *RetryConfig
	onRetry func(attempt int, err error)
}

// NewRetryManager creates a new retry manager
func NewRetryManager(config *RetryConfig) *RetryManager {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryManager{config: config}
}

// OnRetry registers a callback invoked before each retry.
func (rm *RetryManager) OnRetry(fn func(attempt int, err error)) *RetryManager {
	rm.onRetry = fn
	return rm
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// retry budget is spent.
func (rm *RetryManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= rm.config.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == rm.config.MaxRetries {
			break
		}
		if !rm.isRetryableError(err) {
			return err
		}
		if rm.onRetry != nil {
			rm.onRetry(attempt+1, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rm.calculateDelay(attempt)):
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (rm *RetryManager) isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		for _, code := range rm.config.RetryableErrors {
			if httpErr.StatusCode == code {
				return true
			}
		}
	}
	return false
}

// calculateDelay is exponential backoff capped at MaxDelay, with up to 10%
// jitter when enabled.
func (rm *RetryManager) calculateDelay(attempt int) time.Duration {
	delay := float64(rm.config.BaseDelay) * math.Pow(rm.config.BackoffFactor, float64(attempt))
	if delay > float64(rm.config.MaxDelay) {
		delay = float64(rm.config.MaxDelay)
	}
	if rm.config.Jitter {
		delay += delay * 0.1 * rand.Float64()
	}
	return time.Duration(delay)
}

// HTTPError is an upstream failure with a status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Message: message}
}
