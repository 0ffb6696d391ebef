// ABOUTME: Retry policy with exponential backoff and jitter for completion calls.
// ABOUTME: Retryability is decided by the error type, not by inspecting messages.
package llm

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures retry behavior for completion-service calls.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts (not counting the initial call).
	MaxRetries int

	// BaseDelay is the initial delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay is the upper bound on the delay between retries.
	MaxDelay time.Duration

	// BackoffMultiplier controls exponential growth of the delay between retries.
	BackoffMultiplier float64

	// Jitter randomizes the delay to avoid thundering herds.
	Jitter bool

	// OnRetry is an optional callback invoked before each retry sleep.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns a RetryPolicy with sensible defaults:
// 2 retries, 1s base delay, 60s max delay, 2x backoff, jitter enabled.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		BaseDelay:         time.Second,
		MaxDelay:          60 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// CalculateDelay computes the delay for a given retry attempt using exponential
// backoff, capped at MaxDelay. With Jitter, the delay is randomized in
// [0, calculated] (full jitter).
func (p RetryPolicy) CalculateDelay(attempt int) time.Duration {
	delayFloat := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if delayFloat > float64(p.MaxDelay) {
		delayFloat = float64(p.MaxDelay)
	}

	delay := time.Duration(delayFloat)
	if p.Jitter && delay > 0 {
		delay = time.Duration(rand.Int63n(int64(delay) + 1))
	}
	return delay
}

// ShouldRetry reports whether the call should be retried given the error and
// the 0-indexed attempt number.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.MaxRetries {
		return false
	}
	return IsRetryable(err)
}

// newTimer exists so the retry sleep stays cancellable in one place.
func newTimer(d time.Duration) *time.Timer {
	if d < 0 {
		d = 0
	}
	return time.NewTimer(d)
}
