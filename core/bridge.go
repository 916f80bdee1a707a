package core

import (
	"context"
	"errors"
)

// =============================================================================
// Completion bridge
// =============================================================================

// bridge returns the settle function for cell. The outcome computed on the
// worker is posted to the loop and written there with a check-then-set, so a
// cell the consumer already cancelled stays cancelled.
//
// For stream steps, ErrStreamExhausted means the routine is finished and
// cancels the cell instead of failing it.
func bridge[T any](loop TaskRunner, cell *Future[T], step bool, report func(Outcome)) settleFunc {
	return func(value any, err error) {
		// A nil value of an interface type T stays the zero value.
		result, _ := value.(T)

		loop.PostTask(func(ctx context.Context) {
			var (
				outcome Outcome
				settled bool
			)
			switch {
			case err == nil:
				outcome, settled = OutcomeResolved, cell.resolve(ctx, result)
			case step && errors.Is(err, ErrStreamExhausted):
				outcome, settled = OutcomeExhausted, cell.cancelOnLoop(ctx)
			default:
				outcome, settled = OutcomeFailed, cell.reject(ctx, err)
			}
			if !settled {
				outcome = OutcomeDropped
			}
			report(outcome)
		})
	}
}

func submit[T any](s Submitter, fn func(ctx context.Context) (T, error), step bool) (*Future[T], error) {
	var cell *Future[T]
	err := s.dispatch(func(loop TaskRunner, report func(Outcome)) taskRecord {
		cell = NewFuture[T](loop)
		return taskRecord{
			call: func(ctx context.Context) (any, error) {
				return fn(ctx)
			},
			settle: bridge(loop, cell, step, report),
		}
	})
	if err != nil {
		return nil, err
	}
	return cell, nil
}

// =============================================================================
// Generic submission
// =============================================================================

// Submit queues fn on the executor and returns its Future immediately.
//
// fn runs on a worker goroutine. Its return value or error, a panic (as
// *PanicError) or an Exit (as *ExitError) settles the Future on the executor's
// loop. Arguments are passed by closure capture.
//
// Example:
//
//	fut, err := Submit(executor, func(ctx context.Context) (string, error) {
//	    return blocking("World"), nil
//	})
//	if err != nil {
//	    return err
//	}
//	greeting, err := fut.Await(ctx)
func Submit[T any](s Submitter, fn func(ctx context.Context) (T, error)) (*Future[T], error) {
	return submit(s, fn, false)
}

// Wrap returns a function that submits fn with its argument each time it is
// called, the decorator form of Submit.
//
// Example:
//
//	greet := Wrap(executor, func(ctx context.Context, name string) (string, error) {
//	    return "Hello, " + name + "!", nil
//	})
//	fut, err := greet("World")
func Wrap[A, T any](s Submitter, fn func(ctx context.Context, arg A) (T, error)) func(arg A) (*Future[T], error) {
	return func(arg A) (*Future[T], error) {
		return submit(s, func(ctx context.Context) (T, error) {
			return fn(ctx, arg)
		}, false)
	}
}
