package feedback

import (
	"context"
	"sync"

	"github.com/loopkit/loopkit/pkg/system"
)

// effectRunner manages at most one in-flight effect instance. Each start
// bumps a generation counter; output from superseded generations is
// discarded even if the effect source could not be interrupted mid-flight
// (non-cancellable legacy calls whose results arrive late).
type effectRunner[E any] struct {
	parent   context.Context
	dispatch system.Dispatch[E]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func newEffectRunner[E any](parent context.Context, dispatch system.Dispatch[E]) *effectRunner[E] {
	return &effectRunner[E]{parent: parent, dispatch: dispatch}
}

// stop cancels the running effect, if any. The generation bump guarantees a
// straggler can no longer emit, even before its goroutine notices the
// cancellation.
func (r *effectRunner[E]) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// restart cancels the prior effect and subscribes the new one exactly once.
// The prior generation is invalidated before start runs, so the two effects
// never race to emit.
func (r *effectRunner[E]) restart(start Effect[E]) {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(r.parent)
	r.cancel = cancel
	r.mu.Unlock()

	out := start(ctx)
	go func() {
		for {
			select {
			case e, ok := <-out:
				if !ok {
					return
				}
				if !r.alive(gen) {
					return
				}
				r.dispatch(e)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *effectRunner[E]) alive(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gen == r.gen
}
