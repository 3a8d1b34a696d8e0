// Package suspend implements the Human-Decision Suspender: a cooperative
// single-threaded suspension primitive that creates a one-shot handle
// awaiting a value from a closed set of decisions (spec §4.9). Directly
// grounded on internal/permission.Checker's Ask/Respond/pending-channel
// idiom, generalized from per-session permission approval to a
// single-slot engine decision future.
package suspend

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Decision is one of the closed set of values a suspended handle can
// resolve to. The set differs by kind (review vs debate); the Suspender
// itself is decision-shape-agnostic.
type Decision string

const (
	DecisionApplyFix Decision = "apply_fix"
	DecisionSkip     Decision = "skip"
	DecisionRevise   Decision = "revise"
	DecisionAccept   Decision = "accept"
)

// DefaultReviewDecision is the safe default reset() fulfills an
// outstanding review handle with.
const DefaultReviewDecision = DecisionSkip

// DefaultDebateDecision is the safe default reset() fulfills an
// outstanding debate handle with.
const DefaultDebateDecision = DecisionAccept

// ErrAlreadySuspended is returned by Suspend when a handle is already
// outstanding (spec: "only one handle is active at a time").
var ErrAlreadySuspended = errors.New("suspend: a decision handle is already outstanding")

// ErrNoPendingDecision is returned by Resolve when there is nothing to
// resolve.
var ErrNoPendingDecision = errors.New("suspend: no decision is pending")

// Suspender holds at most one outstanding decision handle at a time.
type Suspender struct {
	mu      sync.Mutex
	pending chan Decision
}

// New returns an empty Suspender.
func New() *Suspender {
	return &Suspender{}
}

// Suspend creates a one-shot handle and blocks the calling goroutine
// (the engine's single run-loop) until Resolve or Reset fulfills it, or
// ctx is cancelled. Returns ErrAlreadySuspended if a handle is already
// outstanding — the engine's single-run-loop invariant means this should
// never happen in practice, but the guard keeps the primitive honest.
func (s *Suspender) Suspend(ctx context.Context) (Decision, error) {
	s.mu.Lock()
	if s.pending != nil {
		s.mu.Unlock()
		return "", ErrAlreadySuspended
	}
	ch := make(chan Decision, 1)
	s.pending = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.pending == ch {
			s.pending = nil
		}
		s.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case d := <-ch:
		return d, nil
	}
}

// Resolve fulfills the outstanding handle with decision, waking the
// suspended handler. Returns ErrNoPendingDecision if nothing is
// suspended.
func (s *Suspender) Resolve(decision Decision) error {
	s.mu.Lock()
	ch := s.pending
	s.mu.Unlock()

	if ch == nil {
		return ErrNoPendingDecision
	}
	select {
	case ch <- decision:
		return nil
	default:
		return fmt.Errorf("suspend: handle already fulfilled")
	}
}

// Reset fulfills any outstanding handle with its safe default and clears
// suspender state, per spec's reset()/"Suspension safety" invariant:
// reset() always leaves no unfulfilled decision handle.
func (s *Suspender) Reset(safeDefault Decision) {
	s.mu.Lock()
	ch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if ch != nil {
		select {
		case ch <- safeDefault:
		default:
		}
	}
}

// Pending reports whether a decision handle is currently outstanding.
func (s *Suspender) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}
