package system

import "time"

// Hooks defines callbacks for system observability. All callbacks are
// optional; nil entries are skipped. OnEventApplied runs on the execution
// context, so implementations must be cheap and must not dispatch
// synchronously into the same system.
type Hooks[S, E any] struct {
	// OnEventApplied fires after the new state is committed and every
	// feedback has observed the transition. reducerTime covers only the
	// reducer call.
	OnEventApplied func(t Transition[S, E], reducerTime time.Duration)

	// OnEventDropped fires when a dispatched event is discarded because
	// disposal has begun.
	OnEventDropped func()

	// OnDispose fires exactly once when disposal begins.
	OnDispose func()
}
