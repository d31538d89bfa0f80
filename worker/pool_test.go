package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestPoolRunsEverySubmittedTask(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := NewPool(4, nil)

	const n = 6
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		require.NoError(t, pool.Submit(func() {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()
	pool.Shutdown()

	assert.Equal(t, int64(n), count.Load())
}

func TestPoolFull(t *testing.T) {
	pool := NewPool(1, nil)
	defer pool.Shutdown()

	blocker := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		close(started)
		<-blocker
	}))
	<-started

	// 佇列容量為2
	require.NoError(t, pool.Submit(func() {}))
	require.NoError(t, pool.Submit(func() {}))

	assert.ErrorIs(t, pool.Submit(func() {}), ErrPoolFull)
	close(blocker)
}

func TestPoolClosed(t *testing.T) {
	pool := NewPool(2, nil)
	pool.Shutdown()
	pool.Shutdown()

	assert.ErrorIs(t, pool.Submit(func() {}), ErrPoolClosed)
}

func TestPoolSurvivesPanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := NewPool(1, nil)
	require.NoError(t, pool.Submit(func() { panic("boom") }))

	done := make(chan struct{})
	require.NoError(t, pool.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not recover from panic")
	}
	pool.Shutdown()
}

func TestPoolSubmitWaitBlocksUntilQueueDrains(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := NewPool(1, nil)
	blocker := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		close(started)
		<-blocker
	}))
	<-started
	require.NoError(t, pool.Submit(func() {}))
	require.NoError(t, pool.Submit(func() {}))

	var ran atomic.Bool
	submitted := make(chan error, 1)
	go func() {
		submitted <- pool.SubmitWait(context.Background(), func() { ran.Store(true) })
	}()

	select {
	case <-submitted:
		t.Fatal("佇列已滿時SubmitWait不應返回")
	case <-time.After(50 * time.Millisecond):
	}

	close(blocker)
	require.NoError(t, <-submitted)
	pool.Shutdown()
	assert.True(t, ran.Load())
}

func TestPoolSubmitWaitHonorsContext(t *testing.T) {
	pool := NewPool(1, nil)
	defer pool.Shutdown()

	blocker := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		close(started)
		<-blocker
	}))
	<-started
	require.NoError(t, pool.Submit(func() {}))
	require.NoError(t, pool.Submit(func() {}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.SubmitWait(ctx, func() {}), context.DeadlineExceeded)
	close(blocker)
}

func TestPoolSubmitWaitClosed(t *testing.T) {
	pool := NewPool(1, nil)
	pool.Shutdown()
	assert.ErrorIs(t, pool.SubmitWait(context.Background(), func() {}), ErrPoolClosed)
}
