// Package feedback provides the canonical feedback shapes: policies for
// turning observed state transitions into asynchronous event production.
//
// Every combinator returns a system.Feedback and guarantees three things:
// the underlying effect source is subscribed exactly once per trigger, an
// in-flight effect is cancelled before its successor starts, and events
// produced after the owning system is disposed are discarded.
package feedback

import (
	"context"

	"github.com/loopkit/loopkit/pkg/stream"
	"github.com/loopkit/loopkit/pkg/system"
)

// Effect produces events asynchronously. Implementations must honor ctx
// cancellation and close the returned channel when done. The call itself
// must not block: it runs inline on the system's execution context, so any
// real work belongs on the goroutine feeding the channel (stream.Source
// based effects already behave this way).
type Effect[E any] func(ctx context.Context) <-chan E

// Just feeds a fixed external source into the loop unconditionally. It is
// the bridge for event producers that do not depend on state: user input
// pumps, timers, external notifications.
func Just[S, E any](src stream.Source[E]) system.Feedback[S, E] {
	return system.FeedbackFunc[S, E](func(ctx context.Context, dispatch system.Dispatch[E]) system.Observer[S, E] {
		out := src(ctx)
		go pump(ctx, out, dispatch)
		return nil
	})
}

// Imperative hands the raw dispatch handle to a free-form function invoked
// on every transition. It is the escape hatch for effects that do not fit
// the declarative policies; fn may call dispatch asynchronously at will but
// must not block the notification pass.
func Imperative[S, E any](fn func(ctx context.Context, t system.Transition[S, E], dispatch system.Dispatch[E])) system.Feedback[S, E] {
	return system.FeedbackFunc[S, E](func(ctx context.Context, dispatch system.Dispatch[E]) system.Observer[S, E] {
		return func(t system.Transition[S, E]) {
			fn(ctx, t, dispatch)
		}
	})
}

// pump drains an effect output into dispatch until the channel closes or
// ctx is cancelled.
func pump[E any](ctx context.Context, out <-chan E, dispatch system.Dispatch[E]) {
	for {
		select {
		case e, ok := <-out:
			if !ok {
				return
			}
			dispatch(e)
		case <-ctx.Done():
			return
		}
	}
}
