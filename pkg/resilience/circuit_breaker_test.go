package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreakerConfig() *CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig("pick-server")
	cfg.FailureThreshold = 2
	cfg.MinRequestsToTrip = 0
	cfg.Timeout = time.Hour
	return cfg
}

func TestCircuitBreaker_PassesThroughResult(t *testing.T) {
	cb := NewCircuitBreaker(testBreakerConfig(), nil, nil)

	result, err := cb.Execute(context.Background(), func() (interface{}, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var transitions []gobreaker.State
	cb := NewCircuitBreaker(testBreakerConfig(), nil, func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	})

	boom := errors.New("connection refused")
	for i := 0; i < 2; i++ {
		_, err := cb.Execute(context.Background(), func() (interface{}, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	}

	var calls int32
	_, err := cb.Execute(context.Background(), func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
	assert.Equal(t, "open", cb.Status().State)
	assert.Equal(t, 2, StateValue(cb.State()))
}

func TestCircuitBreaker_CancelledContext(t *testing.T) {
	cb := NewCircuitBreaker(testBreakerConfig(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cb.Execute(ctx, func() (interface{}, error) {
		t.Fatal("fn must not run")
		return nil, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithResult(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		got, err := RetryWithResult(context.Background(), cfg, func() (string, error) {
			attempts++
			if attempts < 3 {
				return "", errors.New("not yet")
			}
			return "ok", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		boom := errors.New("down")
		err := Retry(context.Background(), cfg, func() error { return boom })

		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "max retries (3)")
	})

	t.Run("stops on non retryable error", func(t *testing.T) {
		fatal := errors.New("bad credentials")
		local := *cfg
		local.RetryableErrors = func(err error) bool { return !errors.Is(err, fatal) }

		attempts := 0
		err := Retry(context.Background(), &local, func() error {
			attempts++
			return fatal
		})

		assert.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, attempts)
	})
}
