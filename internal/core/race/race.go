// Package race implements the bounded-deadline wrapper used for every
// network call the engine makes. The operation is raced against a timer and
// the first side to settle wins; the loser is abandoned, not cancelled at
// the transport layer, so its eventual result is simply discarded.
package race

import (
	"context"
	"errors"
	"time"
)

// ErrTimedOut is returned when the timer wins the race.
var ErrTimedOut = errors.New("operation timed out")

// WithTimeout runs op and returns its result unless d elapses first.
//
// The op receives the caller's context unmodified: per the engine's
// race-and-abandon semantics no cancellation token reaches the backend call.
// Callers that mutate state from the result must fence it with a generation
// check, since the abandoned goroutine keeps running.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}

	ch := make(chan outcome, 1)
	go func() {
		v, err := op(ctx)
		ch <- outcome{val: v, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case out := <-ch:
		return out.val, out.err
	case <-timer.C:
		return zero, ErrTimedOut
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
