package longrun

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := NewPool(PoolConfig{Workers: 2, QueueSize: 4, Logger: quietLogger()})
	p.Start(context.Background())

	var ran atomic.Int32
	for i := 0; i < 4; i++ {
		require.NoError(t, p.Submit(func(context.Context) { ran.Add(1) }))
	}
	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, int32(4), ran.Load())
}

func TestPoolRejectsWhenQueueFull(t *testing.T) {
	p := NewPool(PoolConfig{Workers: 1, QueueSize: 1, Logger: quietLogger()})
	release := make(chan struct{})
	started := make(chan struct{})
	p.Start(context.Background())

	require.NoError(t, p.Submit(func(context.Context) { close(started); <-release }))
	<-started
	require.NoError(t, p.Submit(func(context.Context) {}))
	assert.ErrorIs(t, p.Submit(func(context.Context) {}), ErrPoolFull)

	st := p.Stats()
	assert.Equal(t, 1, st.Workers)
	assert.Equal(t, 1, st.Busy)
	assert.Equal(t, 1, st.Queued)
	assert.Equal(t, 1, st.Capacity)

	close(release)
	require.NoError(t, p.Stop(context.Background()))
}

func TestPoolSubmitAfterStop(t *testing.T) {
	p := NewPool(PoolConfig{Logger: quietLogger()})
	p.Start(context.Background())
	assert.False(t, p.Closed())
	require.NoError(t, p.Stop(context.Background()))
	require.NoError(t, p.Stop(context.Background()), "second Stop is a no-op")
	assert.True(t, p.Closed())
	assert.ErrorIs(t, p.Submit(func(context.Context) {}), ErrPoolClosed)
}

func TestPoolRejectsSubmitBeforeStart(t *testing.T) {
	p := NewPool(PoolConfig{Logger: quietLogger()})
	assert.ErrorIs(t, p.Submit(func(context.Context) {}), ErrPoolNotStarted)
	assert.Equal(t, 0, p.Stats().Queued)
	require.NoError(t, p.Stop(context.Background()))
	assert.ErrorIs(t, p.Submit(func(context.Context) {}), ErrPoolClosed)
}

func TestPoolSurvivesPanickingTask(t *testing.T) {
	p := NewPool(PoolConfig{Workers: 1, Logger: quietLogger()})
	p.Start(context.Background())

	done := make(chan struct{})
	require.NoError(t, p.Submit(func(context.Context) { panic("bad task") }))
	require.NoError(t, p.Submit(func(context.Context) { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
	require.NoError(t, p.Stop(context.Background()))
}

func TestPoolStopTimeoutCancelsTasks(t *testing.T) {
	p := NewPool(PoolConfig{Workers: 1, Logger: quietLogger()})
	p.Start(context.Background())

	started := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Stop(ctx), context.DeadlineExceeded)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(PoolConfig{Workers: 3, QueueSize: 20, Logger: quietLogger()})
	p.Start(context.Background())

	var cur, peak atomic.Int32
	for i := 0; i < 12; i++ {
		require.NoError(t, p.Submit(func(context.Context) {
			n := cur.Add(1)
			for {
				m := peak.Load()
				if n <= m || peak.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			cur.Add(-1)
		}))
	}
	require.NoError(t, p.Stop(context.Background()))
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(1))
}
