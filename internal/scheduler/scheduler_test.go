package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitrader/internal/pkg/circuit"
)

func TestRunContainsErrorsAndPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	var cycleCtxErr error
	s := NewIntervalScheduler("test", 5*time.Millisecond)
	task := func(cycleCtx context.Context) error {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			return errors.New("exchange down")
		case 2:
			panic("boom")
		default:
			cancel()
			cycleCtxErr = cycleCtx.Err()
			return nil
		}
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, task) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.NoError(t, cycleCtxErr, "in-flight cycle must not observe the stop signal")
	st := s.Stats()
	assert.Equal(t, 3, st.Cycles)
	assert.Equal(t, 2, st.Failures)
	assert.Empty(t, st.LastError)
	assert.False(t, st.Running)
}

func TestRunNeverOverlapsCycles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var inFlight, maxInFlight, calls int32
	s := NewIntervalScheduler("serial", time.Millisecond)
	task := func(context.Context) error {
		n := atomic.AddInt32(&inFlight, 1)
		if n > atomic.LoadInt32(&maxInFlight) {
			atomic.StoreInt32(&maxInFlight, n)
		}
		time.Sleep(3 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		if atomic.AddInt32(&calls, 1) == 5 {
			cancel()
		}
		return nil
	}
	require.NoError(t, s.Run(ctx, task))
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestRunStopsBeforeFirstCycleWhenDelayed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewIntervalScheduler("delayed", time.Hour)
	s.RunImmediately = false
	called := false
	require.NoError(t, s.Run(ctx, func(context.Context) error { called = true; return nil }))
	assert.False(t, called)
}

func TestBreakerSkipsCycles(t *testing.T) {
	s := NewIntervalScheduler("breaker", time.Minute)
	s.Breaker = circuit.NewBreaker("breaker", 1, time.Hour)
	calls := 0
	failing := func(context.Context) error { calls++; return errors.New("fail") }

	assert.Error(t, s.RunOnce(context.Background(), failing))
	assert.NoError(t, s.RunOnce(context.Background(), failing))
	assert.Equal(t, 1, calls)
	st := s.Stats()
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, "OPEN", st.Breaker)
}

func TestRunRejectsBadSetup(t *testing.T) {
	assert.Error(t, NewIntervalScheduler("x", 0).Run(context.Background(), func(context.Context) error { return nil }))
	assert.Error(t, NewIntervalScheduler("x", time.Second).Run(context.Background(), nil))
}
