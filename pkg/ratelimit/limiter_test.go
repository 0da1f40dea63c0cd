package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedIntervalWait(t *testing.T) {
	f := NewFixedInterval(20 * time.Millisecond)

	start := time.Now()
	require.NoError(t, f.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestFixedIntervalZeroDelay(t *testing.T) {
	f := NewFixedInterval(0)

	start := time.Now()
	require.NoError(t, f.Wait(context.Background()))
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestFixedIntervalCancelled(t *testing.T) {
	f := NewFixedInterval(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(3, time.Minute)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)

	require.True(t, tb.Allow())
	require.False(t, tb.Allow())

	time.Sleep(25 * time.Millisecond)
	assert.True(t, tb.Allow())
}

func TestTokenBucketWait(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)

	require.NoError(t, tb.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, tb.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1, time.Minute)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
