// Package system implements the feedback-loop runtime: a serialized
// event-processing engine that applies a pure reducer to every incoming
// event and notifies a fixed set of feedbacks of each transition.
//
// All event application for one System happens on a single logical execution
// context, so no two reducer calls ever run concurrently and the observable
// state can never be torn. Feedbacks emit derived events back into the same
// queue, preserving causal FIFO order.
package system

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Reducer computes the next state from the current state and an event.
// It must be pure and total: no side effects, no failures. Invalid
// transitions are modelled as reachable states, not errors.
type Reducer[S, E any] func(S, E) S

// System owns the current state, the reducer, and the feedback set.
// It is the sole writer of state; everything else observes.
type System[S, E any] struct {
	reducer   Reducer[S, E]
	prop      *Property[S]
	trans     *broadcaster[Transition[S, E]]
	observers []Observer[S, E]
	hooks     Hooks[S, E]
	logger    *slog.Logger
	exec      Executor

	mu       sync.Mutex
	queue    []E
	disposed bool

	wake    chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
	dispose sync.Once
}

// Option configures a System.
type Option[S, E any] func(*System[S, E])

// WithLogger sets a structured logger. The default discards everything.
func WithLogger[S, E any](logger *slog.Logger) Option[S, E] {
	return func(s *System[S, E]) {
		s.logger = logger
	}
}

// WithExecutor selects the execution context that runs the loop.
func WithExecutor[S, E any](exec Executor) Option[S, E] {
	return func(s *System[S, E]) {
		s.exec = exec
	}
}

// WithHooks registers observability hooks.
func WithHooks[S, E any](hooks Hooks[S, E]) Option[S, E] {
	return func(s *System[S, E]) {
		s.hooks = hooks
	}
}

// New constructs a System and starts its loop.
//
// The feedback list is fixed at construction: every feedback is bound before
// the first event is processed, so no event can be observed by some
// feedbacks and missed by others. Adding feedbacks later is deliberately
// unsupported.
func New[S, E any](initial S, reducer Reducer[S, E], feedbacks []Feedback[S, E], opts ...Option[S, E]) *System[S, E] {
	s := &System[S, E]{
		reducer: reducer,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		exec:    GoExecutor{},
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.prop = newProperty(initial, s.logger)
	s.trans = newBroadcaster[Transition[S, E]](s.logger)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	// Bind all feedbacks before the loop starts. Observers run inline on
	// the loop; effect goroutines started here park until events arrive.
	s.observers = make([]Observer[S, E], 0, len(feedbacks))
	for _, fb := range feedbacks {
		if ob := fb.Bind(ctx, s.Dispatch); ob != nil {
			s.observers = append(s.observers, ob)
		}
	}

	s.exec.Schedule(func() { s.loop(ctx) })
	return s
}

// State returns the latest fully committed state. Safe from any goroutine.
func (s *System[S, E]) State() S {
	return s.prop.Value()
}

// Property exposes the observable state value.
func (s *System[S, E]) Property() *Property[S] {
	return s.prop
}

// Changes subscribes to state changes. See Property.Subscribe.
func (s *System[S, E]) Changes() (<-chan S, func()) {
	return s.prop.Subscribe()
}

// Transitions subscribes to the combined event+state stream, for consumers
// that need causality (which event produced which state).
func (s *System[S, E]) Transitions() (<-chan Transition[S, E], func()) {
	return s.trans.Subscribe()
}

// Dispatch enqueues an event for processing. It never blocks and is safe
// from any goroutine, including feedback observers running on the loop.
// Events dispatched after disposal are dropped.
func (s *System[S, E]) Dispatch(e E) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		if s.hooks.OnEventDropped != nil {
			s.hooks.OnEventDropped()
		}
		return
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// QueueLen reports the number of events waiting to be applied.
func (s *System[S, E]) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Dispose tears the system down: feedback contexts are cancelled, queued
// events are dropped unprocessed, and subscriber channels are closed.
// Idempotent; disposing twice is a no-op.
func (s *System[S, E]) Dispose() {
	s.dispose.Do(func() {
		s.mu.Lock()
		s.disposed = true
		dropped := len(s.queue)
		s.queue = nil
		s.mu.Unlock()

		if dropped > 0 {
			s.logger.Debug("dropping queued events on dispose", "count", dropped)
		}
		if s.hooks.OnDispose != nil {
			s.hooks.OnDispose()
		}

		s.cancel()
		select {
		case s.wake <- struct{}{}:
		default:
		}
	})
}

// Done is closed once the loop has fully stopped after Dispose.
// An event that was mid-application when disposal began still completes;
// Done signals that nothing further will run.
func (s *System[S, E]) Done() <-chan struct{} {
	return s.done
}

func (s *System[S, E]) loop(ctx context.Context) {
	defer func() {
		s.prop.close()
		s.trans.close()
		close(s.done)
	}()

	for {
		for {
			s.mu.Lock()
			if s.disposed {
				s.mu.Unlock()
				return
			}
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			e := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.process(e)
		}

		select {
		case <-s.wake:
		case <-ctx.Done():
			return
		}
	}
}

// process applies one event completely: reduce, commit, notify.
// Runs only on the loop, one event at a time.
func (s *System[S, E]) process(e E) {
	old := s.prop.Value()

	start := time.Now()
	next := s.reducer(old, e)
	reducerTime := time.Since(start)

	s.prop.set(next)

	t := Transition[S, E]{From: old, To: next, Event: e}
	for _, ob := range s.observers {
		ob(t)
	}
	s.trans.publish(t)

	if s.hooks.OnEventApplied != nil {
		s.hooks.OnEventApplied(t, reducerTime)
	}
}
