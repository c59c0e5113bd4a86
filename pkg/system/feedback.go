package system

import "context"

// Dispatch routes an event into the owning system's queue.
// It is safe to call from any goroutine; after disposal it becomes a no-op.
type Dispatch[E any] func(E)

// Transition describes one fully applied event: the state before, the state
// after, and the event that caused the change.
type Transition[S, E any] struct {
	From  S
	To    S
	Event E
}

// Observer receives every transition inline on the system's execution
// context, in feedback registration order. Observers must not block waiting
// for a state produced by their own emitted events; the loop does not advance
// until the notification pass returns.
type Observer[S, E any] func(Transition[S, E])

// Feedback converts observed state transitions into new events.
//
// Bind is called exactly once, before the system processes its first event,
// so no transition can be missed. The provided context is cancelled when the
// system is disposed; any effect goroutines the feedback starts must stop on
// cancellation. The returned observer may be nil if the feedback only pumps
// an external source (see feedback.Just).
type Feedback[S, E any] interface {
	Bind(ctx context.Context, dispatch Dispatch[E]) Observer[S, E]
}

// FeedbackFunc adapts a plain bind function to the Feedback interface.
type FeedbackFunc[S, E any] func(ctx context.Context, dispatch Dispatch[E]) Observer[S, E]

// Bind implements Feedback.
func (f FeedbackFunc[S, E]) Bind(ctx context.Context, dispatch Dispatch[E]) Observer[S, E] {
	return f(ctx, dispatch)
}
