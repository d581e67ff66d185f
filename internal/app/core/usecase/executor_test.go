package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexExecutor_UpdatesDoNotInterleave(t *testing.T) {
	exec := NewMutexExecutor()
	assertNoInterleaving(t, exec)
}

func TestSequencerExecutor_UpdatesDoNotInterleave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec := NewSequencerExecutor(16)
	exec.Start(ctx)
	assertNoInterleaving(t, exec)
}

func assertNoInterleaving(t *testing.T, exec Executor) {
	t.Helper()

	var inside atomic.Int32
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			err := exec.Update(context.Background(), func() error {
				if inside.Add(1) != 1 {
					t.Error("two updates running at the same time")
				}
				counter++
				time.Sleep(100 * time.Microsecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			err := exec.View(context.Background(), func() error {
				if inside.Load() != 0 {
					t.Error("view observed an update in progress")
				}
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestExecutor_PropagatesError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seq := NewSequencerExecutor(1)
	seq.Start(ctx)

	for _, exec := range []Executor{NewMutexExecutor(), seq} {
		err := exec.Update(context.Background(), func() error { return assert.AnError })
		assert.ErrorIs(t, err, assert.AnError)
		err = exec.View(context.Background(), func() error { return assert.AnError })
		assert.ErrorIs(t, err, assert.AnError)
	}
}

func TestSequencerExecutor_NotStarted(t *testing.T) {
	exec := NewSequencerExecutor(1)
	called := false
	err := exec.Update(context.Background(), func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrSequencerStopped)
	assert.False(t, called)
}

func TestSequencerExecutor_StopsAfterContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := NewSequencerExecutor(4)
	exec.Start(ctx)

	require.NoError(t, exec.Update(context.Background(), func() error { return nil }))

	cancel()
	select {
	case <-exec.Done():
	case <-time.After(time.Second):
		t.Fatal("sequencer did not stop")
	}

	err := exec.Update(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrSequencerStopped)
}

func TestSequencerExecutor_RecoversPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec := NewSequencerExecutor(1)
	exec.Start(ctx)

	err := exec.Update(context.Background(), func() error { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	// 迴圈仍然存活
	assert.NoError(t, exec.Update(context.Background(), func() error { return nil }))
}

func TestSequencerExecutor_CallerContextCanceledBeforeEnqueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec := NewSequencerExecutor(1)
	exec.Start(ctx)

	// 佔住核心迴圈並塞滿緩衝
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = exec.Update(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	go func() { _ = exec.Update(context.Background(), func() error { return nil }) }()
	require.Eventually(t, func() bool { return len(exec.requests) == 1 }, time.Second, time.Millisecond)

	callerCtx, callerCancel := context.WithCancel(context.Background())
	callerCancel()
	called := false
	err := exec.Update(callerCtx, func() error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.False(t, called)
}
