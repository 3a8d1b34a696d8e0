package suspend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuspendResolve(t *testing.T) {
	s := New()

	resultCh := make(chan Decision, 1)
	errCh := make(chan error, 1)
	go func() {
		d, err := s.Suspend(context.Background())
		resultCh <- d
		errCh <- err
	}()

	// Give the goroutine a moment to register the handle.
	assert.Eventually(t, s.Pending, time.Second, time.Millisecond)

	require.NoError(t, s.Resolve(DecisionApplyFix))

	select {
	case d := <-resultCh:
		assert.Equal(t, DecisionApplyFix, d)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Suspend to resolve")
	}
	require.NoError(t, <-errCh)
	assert.False(t, s.Pending())
}

func TestResolve_NoPendingHandle(t *testing.T) {
	s := New()
	err := s.Resolve(DecisionSkip)
	assert.ErrorIs(t, err, ErrNoPendingDecision)
}

func TestSuspend_AlreadySuspended(t *testing.T) {
	s := New()

	go func() {
		_, _ = s.Suspend(context.Background())
	}()
	assert.Eventually(t, s.Pending, time.Second, time.Millisecond)

	_, err := s.Suspend(context.Background())
	assert.ErrorIs(t, err, ErrAlreadySuspended)

	require.NoError(t, s.Resolve(DecisionSkip))
}

func TestReset_FulfillsWithSafeDefault(t *testing.T) {
	s := New()

	resultCh := make(chan Decision, 1)
	go func() {
		d, _ := s.Suspend(context.Background())
		resultCh <- d
	}()
	assert.Eventually(t, s.Pending, time.Second, time.Millisecond)

	s.Reset(DefaultReviewDecision)

	select {
	case d := <-resultCh:
		assert.Equal(t, DecisionSkip, d)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Reset to fulfill the handle")
	}
	assert.False(t, s.Pending())
}

func TestReset_NoOpWhenNothingPending(t *testing.T) {
	s := New()
	assert.NotPanics(t, func() {
		s.Reset(DefaultDebateDecision)
	})
	assert.False(t, s.Pending())
}

func TestSuspend_ContextCancellation(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Suspend(ctx)
		errCh <- err
	}()
	assert.Eventually(t, s.Pending, time.Second, time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Suspend to observe cancellation")
	}
}
