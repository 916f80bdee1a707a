package core

import (
	"context"
	"errors"
	"iter"
	"sync"
)

// StepFunc advances a step-producing routine by one step. It returns
// ErrStreamExhausted once there are no more steps.
type StepFunc[T any] func(ctx context.Context) (T, error)

// Stream consumes a step-producing routine one step at a time.
//
// Each step is submitted to the executor as its own task and the next one is
// only submitted after the previous Future settled, so at most one step per
// stream is ever queued or running. Values arrive in production order.
//
// A Stream is finite and cannot be restarted. It ends when the routine is
// exhausted, when a step fails (the error is reported once), or when the
// consumer cancels it. Cancelling never interrupts a step already running on a
// worker; its result is discarded.
type Stream[T any] struct {
	sub     Submitter
	step    StepFunc[T]
	release func()

	// nextMu keeps a single step in flight even with concurrent consumers.
	nextMu sync.Mutex

	mu       sync.Mutex
	current  *Future[T]
	done     bool
	released bool
}

// SubmitSteps returns a Stream driven by step. Nothing is submitted until the
// first call to Next.
func SubmitSteps[T any](s Submitter, step StepFunc[T]) (*Stream[T], error) {
	if err := s.accepting(); err != nil {
		return nil, err
	}
	return &Stream[T]{sub: s, step: step}, nil
}

// SubmitStream returns a Stream over seq. The iterator body runs on the
// executor's workers, advanced one element per task. It is started by the
// first call to Next.
//
// A started iterator holds a suspended goroutine until the stream ends. A
// consumer that stops reading early must call Cancel (breaking out of All
// does so) to release it.
//
// Example:
//
//	stream, err := SubmitStream(executor, func(yield func([]byte) bool) {
//	    for scanner.Scan() {
//	        if !yield(scanner.Bytes()) {
//	            return
//	        }
//	    }
//	})
//	for line, err := range stream.All(ctx) {
//	    ...
//	}
func SubmitStream[T any](s Submitter, seq iter.Seq[T]) (*Stream[T], error) {
	if err := s.accepting(); err != nil {
		return nil, err
	}

	var (
		next func() (T, bool)
		stop func()
	)

	// Consecutive steps may run on different workers; the mutex orders them
	// and keeps stop from racing a running step.
	var mu sync.Mutex
	step := func(ctx context.Context) (T, error) {
		mu.Lock()
		defer mu.Unlock()
		if next == nil {
			next, stop = iter.Pull(seq)
		}
		v, ok := next()
		if !ok {
			return v, ErrStreamExhausted
		}
		return v, nil
	}
	release := func() {
		mu.Lock()
		defer mu.Unlock()
		if stop != nil {
			stop()
		}
	}

	return &Stream[T]{sub: s, step: step, release: release}, nil
}

// Next submits one step and waits for it.
//
// It returns (value, true, nil) for a produced value and (zero, false, nil)
// once the stream has ended cleanly. A failing step, a refused submission, or
// ctx ending while the step is in flight returns the error and ends the stream.
func (s *Stream[T]) Next(ctx context.Context) (T, bool, error) {
	s.nextMu.Lock()
	defer s.nextMu.Unlock()

	var zero T

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return zero, false, nil
	}
	cell, err := submit[T](s.sub, s.step, true)
	if err != nil {
		s.finishLocked()
		s.mu.Unlock()
		return zero, false, err
	}
	s.current = cell
	s.mu.Unlock()

	value, err := cell.Await(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil

	switch {
	case err == nil:
		return value, true, nil
	case errors.Is(err, ErrCancelled):
		s.finishLocked()
		return zero, false, nil
	default:
		cell.Cancel()
		s.finishLocked()
		return zero, false, err
	}
}

// All returns the stream as an iterator. Breaking out of the loop cancels the
// stream. A step error is yielded once as the last element.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			value, ok, err := s.Next(ctx)
			if err != nil {
				yield(value, err)
				return
			}
			if !ok {
				return
			}
			if !yield(value, nil) {
				s.Cancel()
				return
			}
		}
	}
}

// Cancel ends the stream. A step in flight has its Future cancelled, which
// makes the pending Next return cleanly; no further steps are submitted.
func (s *Stream[T]) Cancel() {
	s.mu.Lock()
	current := s.current
	s.finishLocked()
	s.mu.Unlock()

	if current != nil {
		current.Cancel()
	}
}

// Done reports whether the stream has ended.
func (s *Stream[T]) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Stream[T]) finishLocked() {
	s.done = true
	if s.released || s.release == nil {
		return
	}
	s.released = true
	// release waits for a step still running on a worker.
	go s.release()
}
