package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolProcessesTasks(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 4, 16, "test", nil)
	pool.Start()
	defer pool.Stop()

	var processed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(func() {
			defer wg.Done()
			processed.Add(1)
		}))
	}
	wg.Wait()

	assert.Equal(t, int64(10), processed.Load())
}

func TestWorkerPoolSubmitBeforeStart(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1, 1, "test", nil)

	err := pool.Submit(func() {})
	assert.ErrorIs(t, err, ErrWorkerPoolNotRunning)
}

func TestWorkerPoolQueueFull(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1, 1, "test", nil)
	pool.Start()
	defer pool.Stop()

	block := make(chan struct{})
	defer close(block)

	// Occupy the single worker, then fill the single queue slot.
	require.NoError(t, pool.Submit(func() { <-block }))
	assert.Eventually(t, func() bool {
		return pool.Submit(func() { <-block }) == nil
	}, time.Second, 5*time.Millisecond)

	err := pool.Submit(func() {})
	assert.ErrorIs(t, err, ErrWorkerPoolQueueFull)
}

func TestWorkerPoolSubmitAfterStop(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1, 4, "test", nil)
	pool.Start()
	pool.Stop()

	err := pool.Submit(func() {})
	assert.ErrorIs(t, err, ErrWorkerPoolNotRunning)
}

func TestWorkerPoolSurvivesPanickingTask(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1, 4, "test", nil)
	pool.Start()
	defer pool.Stop()

	done := make(chan struct{})
	require.NoError(t, pool.Submit(func() { panic("boom") }))
	require.NoError(t, pool.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not recover from panicking task")
	}
}

func TestWorkerPoolStopDrainsInFlightTasks(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 2, 8, "test", nil)
	pool.Start()

	var processed atomic.Int64
	for i := 0; i < 4; i++ {
		require.NoError(t, pool.Submit(func() {
			time.Sleep(10 * time.Millisecond)
			processed.Add(1)
		}))
	}
	pool.Stop()

	assert.Equal(t, int64(4), processed.Load())
}

func TestWorkerPoolWaitBlocksUntilTasksFinish(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1, 4, "test", nil)
	pool.Start()
	defer pool.Stop()

	release := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, pool.Submit(func() {
		<-release
		finished.Store(true)
	}))

	waitDone := make(chan struct{})
	go func() {
		pool.Wait()
		close(waitDone)
	}()

	// The task has been dequeued but is still executing; Wait must not
	// return yet.
	select {
	case <-waitDone:
		t.Fatal("Wait returned while a task was still executing")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after tasks finished")
	}
	assert.True(t, finished.Load())
}

func TestWorkerPoolDoubleStartIsNoop(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1, 4, "test", nil)
	pool.Start()
	pool.Start()
	defer pool.Stop()

	assert.NoError(t, pool.Submit(func() {}))
}
