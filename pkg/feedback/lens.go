package feedback

import (
	"context"

	"github.com/loopkit/loopkit/pkg/system"
)

// Lens projects a state to an optional sub-value scoping a feedback's
// triggering condition.
type Lens[S, V any] func(S) (V, bool)

// SkippingRepeated lenses the state to an optional value and keys one effect
// on it. A new effect starts when the projected value appears or changes;
// consecutive equal values are skipped. When the projection disappears the
// running effect is cancelled and the dedup memory is cleared, so the same
// value re-appearing later triggers again. A change always cancels the prior
// in-flight effect before the new one starts.
func SkippingRepeated[S, E any, V comparable](lens Lens[S, V], effect func(ctx context.Context, value V) <-chan E) system.Feedback[S, E] {
	return SkippingRepeatedFunc(lens, func(a, b V) bool { return a == b }, effect)
}

// SkippingRepeatedFunc is SkippingRepeated with an explicit equality policy,
// for projected values that are not comparable.
func SkippingRepeatedFunc[S, E any, V any](lens Lens[S, V], equal func(a, b V) bool, effect func(ctx context.Context, value V) <-chan E) system.Feedback[S, E] {
	return system.FeedbackFunc[S, E](func(ctx context.Context, dispatch system.Dispatch[E]) system.Observer[S, E] {
		runner := newEffectRunner(ctx, dispatch)

		// Observer state lives on the loop only; no lock needed.
		var (
			last    V
			hasLast bool
		)
		return func(t system.Transition[S, E]) {
			v, ok := lens(t.To)
			if !ok {
				runner.stop()
				hasLast = false
				return
			}
			if hasLast && equal(v, last) {
				return
			}
			last, hasLast = v, true

			value := v
			runner.restart(func(ctx context.Context) <-chan E {
				return effect(ctx, value)
			})
		}
	})
}

// WhenBecomesTrue triggers an effect exactly on the false-to-true edge of a
// boolean projection and cancels it on the true-to-false edge. The level
// staying true does not re-trigger.
func WhenBecomesTrue[S, E any](pred func(S) bool, effect Effect[E]) system.Feedback[S, E] {
	return SkippingRepeated[S, E](
		func(s S) (struct{}, bool) { return struct{}{}, pred(s) },
		func(ctx context.Context, _ struct{}) <-chan E { return effect(ctx) },
	)
}
