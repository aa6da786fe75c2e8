package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func TestExecute_RetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(fastConfig())
	errTemp := errors.New("temporary")
	attempts := 0

	err := exec.Execute(context.Background(), "translate", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{Retryable: errors.Is(err, errTemp), RecordFailure: true}
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecute_DoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastConfig())
	errPermanent := errors.New("permanent")
	attempts := 0

	err := exec.Execute(context.Background(), "translate", func(context.Context) error {
		attempts++
		return errPermanent
	}, nil)

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, attempts)
}

func TestExecute_OpensCircuitAfterFailures(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	exec := NewExecutor(cfg)

	fail := func(context.Context) error { return errors.New("down") }
	for i := 0; i < 2; i++ {
		_ = exec.Execute(context.Background(), "translate", fail, nil)
	}
	assert.Equal(t, gobreaker.StateOpen, exec.State("translate"))

	called := false
	err := exec.Execute(context.Background(), "translate", func(context.Context) error {
		called = true
		return nil
	}, nil)
	assert.True(t, IsCircuitOpen(err))
	assert.False(t, called)

	assert.Equal(t, gobreaker.StateClosed, exec.State("other"))
}

func TestExecute_StopsOnCancelledContext(t *testing.T) {
	exec := NewExecutor(fastConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := exec.Execute(ctx, "translate", func(context.Context) error { return nil }, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfig_Normalize(t *testing.T) {
	got := Config{}.normalize()
	def := DefaultConfig()
	assert.Equal(t, def.RetryMaxAttempts, got.RetryMaxAttempts)
	assert.Equal(t, def.RetryMaxBackoff, got.RetryMaxBackoff)
	assert.Equal(t, def.BreakerFailureRatio, got.BreakerFailureRatio)
	assert.False(t, got.BreakerEnabled)
}
