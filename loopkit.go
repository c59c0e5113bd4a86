package loopkit

import (
	"github.com/loopkit/loopkit/pkg/system"
)

// Store binds a feedback-loop system to the public dispatch/state contract.
// It is the recommended entry point for applications; drop down to
// pkg/system directly only when you need the raw engine.
type Store[S, E any] struct {
	sys *system.System[S, E]
}

// NewStore constructs a system from the initial state, reducer and feedback
// list, starts it, and wraps it in a Store. The feedback list is fixed at
// construction time.
func NewStore[S, E any](initial S, reducer system.Reducer[S, E], feedbacks []system.Feedback[S, E], opts ...system.Option[S, E]) *Store[S, E] {
	return &Store[S, E]{
		sys: system.New(initial, reducer, feedbacks, opts...),
	}
}

// Dispatch routes an externally produced event into the loop.
func (st *Store[S, E]) Dispatch(e E) {
	st.sys.Dispatch(e)
}

// State returns the latest fully committed state.
func (st *Store[S, E]) State() S {
	return st.sys.State()
}

// Changes subscribes to the state change stream.
func (st *Store[S, E]) Changes() (<-chan S, func()) {
	return st.sys.Changes()
}

// Transitions subscribes to the combined event+state stream, for consumers
// (routing, journaling) that need to know which event produced which state.
func (st *Store[S, E]) Transitions() (<-chan system.Transition[S, E], func()) {
	return st.sys.Transitions()
}

// System exposes the underlying engine.
func (st *Store[S, E]) System() *system.System[S, E] {
	return st.sys
}

// Close disposes the underlying system. Idempotent.
func (st *Store[S, E]) Close() error {
	st.sys.Dispose()
	return nil
}

// Service narrows a Store to a dispatch(Action) contract, mapping
// application-level actions to loop events. No engine logic lives here.
type Service[A, S, E any] struct {
	store *Store[S, E]
	toEvent func(A) (E, error)
}

// NewService wraps a store with an Action-to-Event mapper.
func NewService[A, S, E any](store *Store[S, E], toEvent func(A) (E, error)) *Service[A, S, E] {
	return &Service[A, S, E]{store: store, toEvent: toEvent}
}

// Dispatch maps the action to an event and routes it into the loop.
func (s *Service[A, S, E]) Dispatch(action A) error {
	e, err := s.toEvent(action)
	if err != nil {
		return err
	}
	s.store.Dispatch(e)
	return nil
}

// State returns the latest committed state.
func (s *Service[A, S, E]) State() S {
	return s.store.State()
}

// Changes subscribes to the state change stream.
func (s *Service[A, S, E]) Changes() (<-chan S, func()) {
	return s.store.Changes()
}
