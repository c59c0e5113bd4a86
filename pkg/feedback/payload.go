package feedback

import (
	"context"

	"github.com/loopkit/loopkit/pkg/system"
)

// ExtractingPayload matches events (not state) against a partial function
// and starts an effect for every match. There is no dedup and no
// cancellation of prior instances: matching events may run effects
// concurrently. All instances stop when the owning system is disposed.
func ExtractingPayload[S, E, P any](match func(E) (P, bool), effect func(ctx context.Context, payload P) <-chan E) system.Feedback[S, E] {
	return system.FeedbackFunc[S, E](func(ctx context.Context, dispatch system.Dispatch[E]) system.Observer[S, E] {
		return func(t system.Transition[S, E]) {
			p, ok := match(t.Event)
			if !ok {
				return
			}
			out := effect(ctx, p)
			go pump(ctx, out, dispatch)
		}
	})
}
