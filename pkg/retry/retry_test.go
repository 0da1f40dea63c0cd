package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "skinfetch/pkg/errors"
	"skinfetch/pkg/logger"
)

func testConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewTestLogger(),
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, testConfig())

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeNetwork, "connection reset")
		}
		return nil
	}, testConfig())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnTerminalError(t *testing.T) {
	calls := 0
	terminal := errs.NewHTTP(errs.ErrorTypeNotFound, 404, "texture not found")

	err := Do(func() error {
		calls++
		return terminal
	}, testConfig())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, terminal, err)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeNetwork, "timeout")
	}, testConfig())

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "max retry attempts")

	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.ErrorTypeNetwork, apiErr.Type)
}

func TestDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := testConfig()
	cfg.Context = ctx
	cfg.Backoff = &ConstantBackoff{Delay: time.Minute}

	calls := 0
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		cancel()
	}

	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeNetwork, "timeout")
	}, cfg)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "retry cancelled")
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(func() (string, error) {
		calls++
		if calls < 2 {
			return "", errs.New(errs.ErrorTypeServerError, "boom")
		}
		return "hash123", nil
	}, testConfig())

	require.NoError(t, err)
	assert.Equal(t, "hash123", got)
	assert.Equal(t, 2, calls)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeNetwork, "x")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeServerError, "x")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeNotFound, "x")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeParsing, "x")))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(context.DeadlineExceeded))
	assert.True(t, DefaultRetryIf(errors.New("untyped failure")))
}

func TestNetworkOnly(t *testing.T) {
	assert.False(t, NetworkOnly(nil))
	assert.True(t, NetworkOnly(errs.New(errs.ErrorTypeNetwork, "x")))
	assert.False(t, NetworkOnly(errs.New(errs.ErrorTypeServerError, "x")))
	assert.False(t, NetworkOnly(errs.New(errs.ErrorTypeRejected, "x")))
	assert.False(t, NetworkOnly(errors.New("untyped failure")))
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: time.Second}
	assert.Equal(t, time.Duration(0), cb.NextDelay(0))
	assert.Equal(t, time.Second, cb.NextDelay(1))
	assert.Equal(t, time.Second, cb.NextDelay(5))
}

func TestExponentialBackoff(t *testing.T) {
	eb := &ExponentialBackoff{BaseDelay: time.Second, Multiplier: 2.0}

	assert.Equal(t, time.Second, eb.NextDelay(1))
	assert.Equal(t, 2*time.Second, eb.NextDelay(2))
	assert.Equal(t, 4*time.Second, eb.NextDelay(3))
}

func TestExponentialBackoffCapsAtMax(t *testing.T) {
	eb := &ExponentialBackoff{BaseDelay: time.Second, Multiplier: 2.0, MaxDelay: 3 * time.Second}

	assert.Equal(t, 3*time.Second, eb.NextDelay(3))
	assert.Equal(t, 3*time.Second, eb.NextDelay(10))
}

func TestWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Wait(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
