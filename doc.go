/*
Package loopkit is a deterministic feedback-loop runtime for building
event-driven application cores: state lives in one place, changes only
through a pure reducer, and side effects are expressed as feedbacks that
turn observed transitions back into events.

It implements a "Serialized Feedback Loop" architecture: all events for one
loop are funneled through a single execution context, so reducer applications
never race and observers always see fully committed states.

# Concept

A loop is described by three things: an initial state, a reducer
(State, Event) -> State, and a fixed list of feedbacks. External producers
(user input, timers, network callbacks) enter through Dispatch or through
feedback sources; feedbacks react to state transitions and emit derived
events, which re-enter the same queue in causal FIFO order.

# Key Features

  - Deterministic Execution: the resulting state is the left-fold of the
    reducer over the event sequence, independent of wall-clock timing.
  - Race-Free by Construction: one logical execution context per loop; no
    two reducer applications ever run concurrently.
  - Controlled Effect Lifecycles: combinators guarantee cancellation of
    stale in-flight effects before successors start.
  - Persistence Ports: applied events can be journaled and replayed to
    rebuild state (see pkg/ports and the adapters).

# Usage

	package main

	import (
		"fmt"

		"github.com/loopkit/loopkit"
	)

	type Counter struct{ N int }
	type Tick struct{}

	func main() {
		store := loopkit.NewStore(
			Counter{},
			func(s Counter, _ Tick) Counter { return Counter{N: s.N + 1} },
			nil,
		)
		defer store.Close()

		changes, cancel := store.Changes()
		defer cancel()

		store.Dispatch(Tick{})
		fmt.Println((<-changes).N) // 1
	}
*/
package loopkit
