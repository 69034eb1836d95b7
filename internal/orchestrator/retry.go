package orchestrator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// DefaultRetryMax is the default maximum number of retries for transient errors.
const DefaultRetryMax = 3

// RetryPolicy defines retry behavior for transient cloud API errors.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy returns a sensible default retry policy.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: DefaultRetryMax,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// RetryWithBackoff executes fn with exponential backoff and jitter.
// It retries only if shouldRetry returns true for the error.
func RetryWithBackoff(ctx context.Context, policy *RetryPolicy, fn func() error, shouldRetry func(error) bool) error {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !shouldRetry(lastErr) {
			return lastErr
		}

		if attempt < policy.MaxRetries {
			delay := calculateBackoff(attempt, policy.BaseDelay, policy.MaxDelay)
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", policy.MaxRetries, lastErr)
}

// WaitPolicy bounds a readiness poll: probe every Interval until Budget is
// spent. Long-running resources (the DB instance) are polled, not event-driven.
type WaitPolicy struct {
	Interval time.Duration
	Budget   time.Duration
}

// DefaultWaitPolicy suits RDS instance readiness, which takes minutes.
func DefaultWaitPolicy() *WaitPolicy {
	return &WaitPolicy{
		Interval: 30 * time.Second,
		Budget:   25 * time.Minute,
	}
}

// WaitFor polls probe until it reports done, the budget is exhausted, or the
// context is cancelled. probe returns (done, err); a non-nil err aborts the
// wait immediately (the resource reached a terminal failure state).
func WaitFor(ctx context.Context, policy *WaitPolicy, what string, probe func(ctx context.Context) (bool, error)) error {
	if policy == nil {
		policy = DefaultWaitPolicy()
	}

	ctx, cancel := context.WithTimeout(ctx, policy.Budget)
	defer cancel()

	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	for {
		done, err := probe(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %s: %w", what, ctx.Err())
		case <-ticker.C:
		}
	}
}

// calculateBackoff returns exponential backoff with jitter.
func calculateBackoff(attempt int, base, max time.Duration) time.Duration {
	backoff := float64(base) * math.Pow(2, float64(attempt))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	// Add jitter: random between 0 and backoff
	jitter := rand.Float64() * backoff
	return time.Duration(jitter)
}

// IsTransientError checks if an error is likely transient and retryable.
// This checks for common cloud API throttling and network errors.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"throttl",
		"rate exceed",
		"too many requests",
		"request limit",
		"service unavailable",
		"internal server error",
		"connection reset",
		"connection refused",
		"timeout",
		"tls handshake",
		"i/o timeout",
		"temporary failure",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
