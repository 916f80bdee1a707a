package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFuture_ResolveOnLoop verifies a value written on the loop is observed by Await
// Given: A pending future owned by a loop
// When: A loop task resolves it with 42
// Then: Await returns 42 and the state is resolved
func TestFuture_ResolveOnLoop(t *testing.T) {
	// Arrange
	loop := newTestLoop(t)
	f := NewFuture[int](loop)

	v, err := f.Result()
	assert.ErrorIs(t, err, ErrPending)
	assert.Zero(t, v)

	// Act
	loop.PostTask(func(ctx context.Context) {
		f.resolve(ctx, 42)
	})

	// Assert
	got, err := awaitFuture(t, f)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, FutureResolved, f.State())
	assert.True(t, f.IsDone())
	assert.Same(t, loop, f.Loop())
}

// TestFuture_RejectOnLoop verifies a failure is delivered unchanged
func TestFuture_RejectOnLoop(t *testing.T) {
	loop := newTestLoop(t)
	f := NewFuture[string](loop)
	boom := errors.New("boom")

	loop.PostTask(func(ctx context.Context) {
		f.reject(ctx, boom)
	})

	_, err := awaitFuture(t, f)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, FutureFailed, f.State())
}

// TestFuture_SingleTransition verifies the first terminal write wins
// Given: A future cancelled by its consumer
// When: The loop later tries to resolve it
// Then: The resolve is refused and the future stays cancelled
func TestFuture_SingleTransition(t *testing.T) {
	// Arrange
	loop := newTestLoop(t)
	f := NewFuture[int](loop)

	// Act
	assert.True(t, f.Cancel())
	assert.False(t, f.Cancel(), "second Cancel must report no transition")

	resolved := make(chan bool, 1)
	loop.PostTask(func(ctx context.Context) {
		resolved <- f.resolve(ctx, 1)
	})

	// Assert
	assert.False(t, <-resolved)
	_, err := f.Result()
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, FutureCancelled, f.State())
}

// TestFuture_OnCompleteRunsOnLoop verifies callbacks are invoked on the owning loop
func TestFuture_OnCompleteRunsOnLoop(t *testing.T) {
	loop := newTestLoop(t)
	f := NewFuture[int](loop)

	type call struct {
		onLoop bool
		value  int
		err    error
	}
	calls := make(chan call, 2)
	f.OnComplete(func(ctx context.Context, value int, err error) {
		calls <- call{onLoop: GetCurrentTaskRunner(ctx) == TaskRunner(loop), value: value, err: err}
	})

	loop.PostTask(func(ctx context.Context) {
		f.resolve(ctx, 5)
	})

	// Registered after settling: posted straight away.
	_, err := awaitFuture(t, f)
	require.NoError(t, err)
	f.OnComplete(func(ctx context.Context, value int, err error) {
		calls <- call{onLoop: GetCurrentTaskRunner(ctx) == TaskRunner(loop), value: value, err: err}
	})

	for i := 0; i < 2; i++ {
		select {
		case c := <-calls:
			assert.True(t, c.onLoop, "callback %d ran off the loop", i)
			assert.Equal(t, 5, c.value)
			assert.NoError(t, c.err)
		case <-time.After(testTimeout):
			t.Fatalf("callback %d never ran", i)
		}
	}
}

// TestFuture_OnCompleteCancelled verifies cancellation is reported as ErrCancelled
func TestFuture_OnCompleteCancelled(t *testing.T) {
	loop := newTestLoop(t)
	f := NewFuture[int](loop)

	errs := make(chan error, 1)
	f.OnComplete(func(ctx context.Context, value int, err error) {
		errs <- err
	})
	f.Cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(testTimeout):
		t.Fatal("callback never ran")
	}
}

// TestFuture_CancelAfter verifies a still-pending future is cancelled by the timer
func TestFuture_CancelAfter(t *testing.T) {
	loop := newTestLoop(t)
	f := NewFuture[int](loop)

	f.CancelAfter(20 * time.Millisecond)

	_, err := awaitFuture(t, f)
	assert.ErrorIs(t, err, ErrCancelled)
}

// TestFuture_CancelAfterResolved verifies the timer does not touch a settled future
func TestFuture_CancelAfterResolved(t *testing.T) {
	loop := newTestLoop(t)
	f := NewFuture[int](loop)

	loop.PostTask(func(ctx context.Context) {
		f.resolve(ctx, 3)
	})
	f.CancelAfter(10 * time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, loop.WaitIdle(context.Background()))

	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

// TestFuture_AwaitContextDeadline verifies an expired ctx leaves the future pending
func TestFuture_AwaitContextDeadline(t *testing.T) {
	loop := newTestLoop(t)
	f := NewFuture[int](loop)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, FuturePending, f.State())
}

// TestFuture_AwaitOnOwningLoop verifies Await refuses to block its own loop
func TestFuture_AwaitOnOwningLoop(t *testing.T) {
	loop := newTestLoop(t)
	f := NewFuture[int](loop)

	errs := make(chan error, 1)
	loop.PostTask(func(ctx context.Context) {
		_, err := f.Await(ctx)
		errs <- err
	})

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrAwaitOnLoop)
	case <-time.After(testTimeout):
		t.Fatal("Await blocked the loop")
	}
}

func TestFutureState_String(t *testing.T) {
	tests := map[FutureState]string{
		FuturePending:    "pending",
		FutureResolved:   "resolved",
		FutureFailed:     "failed",
		FutureCancelled:  "cancelled",
		FutureState(-1): "unknown",
	}
	for state, want := range tests {
		assert.Equal(t, want, state.String())
	}
}
