package pool

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "skinfetch/pkg/errors"
	"skinfetch/pkg/logger"
)

func collect[T any](p *Pool[T]) []Outcome[T] {
	var out []Outcome[T]
	for o := range p.Results() {
		out = append(out, o)
	}
	return out
}

func TestPoolProcessesAllItems(t *testing.T) {
	log := logger.NewTestLogger()

	p := New(context.Background(), 3, func(ctx context.Context, item int) Outcome[int] {
		return Outcome[int]{Item: item, Success: true, Stage: "done"}
	}, log)
	p.Start()

	done := make(chan []Outcome[int])
	go func() { done <- collect(p) }()

	for i := 1; i <= 10; i++ {
		require.NoError(t, p.Submit(i))
	}
	p.Stop()

	outcomes := <-done
	require.Len(t, outcomes, 10)

	seen := make(map[int]bool)
	for _, o := range outcomes {
		assert.True(t, o.Success)
		seen[o.Item] = true
	}
	assert.Len(t, seen, 10)
}

func TestPoolReportsFailures(t *testing.T) {
	log := logger.NewTestLogger()

	p := New(context.Background(), 2, func(ctx context.Context, item int) Outcome[int] {
		if item%2 == 0 {
			return Outcome[int]{Item: item, Success: false, Err: errs.New(errs.ErrorTypeNetwork, "boom")}
		}
		return Outcome[int]{Item: item, Success: true}
	}, log)
	p.Start()

	done := make(chan []Outcome[int])
	go func() { done <- collect(p) }()

	for i := 1; i <= 6; i++ {
		require.NoError(t, p.Submit(i))
	}
	p.Stop()

	outcomes := <-done
	require.Len(t, outcomes, 6)

	failed := 0
	for _, o := range outcomes {
		if !o.Success {
			failed++
			assert.Error(t, o.Err)
		}
	}
	assert.Equal(t, 3, failed)
}

func TestPoolRecoversPanics(t *testing.T) {
	log := logger.NewTestLogger()

	p := New(context.Background(), 1, func(ctx context.Context, item int) Outcome[int] {
		if item == 2 {
			panic("bad item")
		}
		return Outcome[int]{Item: item, Success: true}
	}, log)
	p.Start()

	done := make(chan []Outcome[int])
	go func() { done <- collect(p) }()

	for i := 1; i <= 3; i++ {
		require.NoError(t, p.Submit(i))
	}
	p.Stop()

	outcomes := <-done
	require.Len(t, outcomes, 3)

	var panicked *Outcome[int]
	for i := range outcomes {
		if outcomes[i].Item == 2 {
			panicked = &outcomes[i]
		}
	}
	require.NotNil(t, panicked)
	assert.False(t, panicked.Success)
	assert.Contains(t, panicked.Err.Error(), "unexpected panic")
}

func TestPoolSubmitFailsAfterCancel(t *testing.T) {
	log := logger.NewTestLogger()
	ctx, cancel := context.WithCancel(context.Background())

	p := New(ctx, 1, func(ctx context.Context, item int) Outcome[int] {
		return Outcome[int]{Item: item, Success: true}
	}, log)
	p.Start()

	done := make(chan []Outcome[int])
	go func() { done <- collect(p) }()

	cancel()

	// The queue may hold one buffered item but submission must eventually fail.
	var submitErr error
	for i := 0; i < 100; i++ {
		if submitErr = p.Submit(i); submitErr != nil {
			break
		}
	}
	assert.Error(t, submitErr)

	p.Stop()
	<-done
}

func TestPoolConcurrentProcessing(t *testing.T) {
	log := logger.NewTestLogger()

	var processed atomic.Int64
	p := New(context.Background(), 4, func(ctx context.Context, item int) Outcome[int] {
		processed.Add(1)
		return Outcome[int]{Item: item, Success: true}
	}, log)
	p.Start()

	done := make(chan []Outcome[int])
	go func() { done <- collect(p) }()

	const total = 50
	for i := 0; i < total; i++ {
		require.NoError(t, p.Submit(i))
	}
	p.Stop()

	outcomes := <-done
	assert.Len(t, outcomes, total)
	assert.Equal(t, int64(total), processed.Load())
}
