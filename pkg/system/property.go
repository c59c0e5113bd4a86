package system

import (
	"log/slog"
	"sync"
)

// subscriber channel buffer. Slow consumers drop updates rather than stall
// the loop.
const subscriberBuffer = 16

// broadcaster fans a stream of values out to dynamic subscribers.
// Publishing never blocks: if a subscriber's buffer is full the value is
// dropped for that subscriber and a warning is logged.
type broadcaster[T any] struct {
	mu     sync.RWMutex
	subs   map[chan T]struct{}
	closed bool
	logger *slog.Logger
}

func newBroadcaster[T any](logger *slog.Logger) *broadcaster[T] {
	return &broadcaster[T]{
		subs:   make(map[chan T]struct{}),
		logger: logger,
	}
}

// Subscribe registers a new subscriber. The returned cancel function is
// idempotent and closes the channel.
func (b *broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
}

func (b *broadcaster[T]) publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			// Slow client, drop rather than block the loop.
			b.logger.Warn("subscriber buffer full, dropping update")
		}
	}
}

// close terminates every subscriber channel. Subsequent Subscribe calls
// return an already-closed channel.
func (b *broadcaster[T]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Property holds the system's current state as an observable value.
// Reads are safe from any goroutine and always return the latest fully
// committed state; only the system's loop writes it.
type Property[S any] struct {
	mu      sync.RWMutex
	value   S
	changes *broadcaster[S]
}

func newProperty[S any](initial S, logger *slog.Logger) *Property[S] {
	return &Property[S]{
		value:   initial,
		changes: newBroadcaster[S](logger),
	}
}

// Value returns the latest committed state.
func (p *Property[S]) Value() S {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Subscribe returns a channel of state changes plus a cancel function.
// The channel is closed on cancel or when the owning system is disposed.
// The current value is not replayed; use Value for the snapshot.
func (p *Property[S]) Subscribe() (<-chan S, func()) {
	return p.changes.Subscribe()
}

func (p *Property[S]) set(v S) {
	p.mu.Lock()
	p.value = v
	p.mu.Unlock()
	p.changes.publish(v)
}

func (p *Property[S]) close() {
	p.changes.close()
}
