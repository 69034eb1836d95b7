package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), &RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  1 * time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
	}, func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("throttled")
		}
		return nil
	}, func(err error) bool {
		return true
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_NonRetryable(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), &RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  1 * time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
	}, func() error {
		attempts++
		return fmt.Errorf("permanent error")
	}, func(err error) bool {
		return false // Don't retry
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_MaxRetriesExceeded(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), &RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  1 * time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
	}, func() error {
		attempts++
		return fmt.Errorf("throttled")
	}, func(err error) bool {
		return true
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
	assert.Equal(t, 3, attempts) // initial + 2 retries
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, &RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
	}, func() error {
		return fmt.Errorf("throttled")
	}, func(err error) bool {
		return true
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestWaitFor_Success(t *testing.T) {
	probes := 0
	err := WaitFor(context.Background(), &WaitPolicy{
		Interval: 1 * time.Millisecond,
		Budget:   1 * time.Second,
	}, "test resource", func(ctx context.Context) (bool, error) {
		probes++
		return probes >= 3, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, probes)
}

func TestWaitFor_TerminalError(t *testing.T) {
	err := WaitFor(context.Background(), &WaitPolicy{
		Interval: 1 * time.Millisecond,
		Budget:   1 * time.Second,
	}, "test resource", func(ctx context.Context) (bool, error) {
		return false, fmt.Errorf("instance entered state failed")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestWaitFor_BudgetExhausted(t *testing.T) {
	err := WaitFor(context.Background(), &WaitPolicy{
		Interval: 1 * time.Millisecond,
		Budget:   20 * time.Millisecond,
	}, "slow resource", func(ctx context.Context) (bool, error) {
		return false, nil
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "timed out waiting for slow resource")
}

func TestIsTransientError(t *testing.T) {
	assert.False(t, IsTransientError(nil))
	assert.True(t, IsTransientError(fmt.Errorf("Throttling: rate exceeded")))
	assert.True(t, IsTransientError(fmt.Errorf("read tcp: i/o timeout")))
	assert.True(t, IsTransientError(fmt.Errorf("503 Service Unavailable")))
	assert.False(t, IsTransientError(fmt.Errorf("AccessDenied: not authorized")))
}

func TestCalculateBackoff_Bounded(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := calculateBackoff(attempt, 1*time.Second, 30*time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 30*time.Second)
	}
}
