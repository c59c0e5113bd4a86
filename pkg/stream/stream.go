// Package stream provides the channel plumbing used to adapt asynchronous
// producers into event sources, plus a small set of combinators (map,
// filter-map, take-until, merge) implemented directly over channels.
package stream

import (
	"context"
	"time"
)

// Source produces a stream of values. The returned channel must be closed
// when the source is exhausted or ctx is cancelled; consumers rely on the
// close to release their goroutines.
type Source[T any] func(ctx context.Context) <-chan T

// Of returns a source that emits the given values in order, then closes.
func Of[T any](values ...T) Source[T] {
	return func(ctx context.Context) <-chan T {
		out := make(chan T)
		go func() {
			defer close(out)
			for _, v := range values {
				select {
				case out <-v:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

// FromChannel wraps an existing channel as a source. The channel is shared:
// only one consumer should run the source, and closing the input channel
// ends the stream.
func FromChannel[T any](ch <-chan T) Source[T] {
	return func(ctx context.Context) <-chan T {
		out := make(chan T)
		go func() {
			defer close(out)
			for {
				select {
				case v, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- v:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

// Map transforms every value of a source.
func Map[T, U any](src Source[T], fn func(T) U) Source[U] {
	return func(ctx context.Context) <-chan U {
		in := src(ctx)
		out := make(chan U)
		go func() {
			defer close(out)
			for v := range in {
				select {
				case out <- fn(v):
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

// FilterMap transforms values, dropping those for which fn reports false.
func FilterMap[T, U any](src Source[T], fn func(T) (U, bool)) Source[U] {
	return func(ctx context.Context) <-chan U {
		in := src(ctx)
		out := make(chan U)
		go func() {
			defer close(out)
			for v := range in {
				u, ok := fn(v)
				if !ok {
					continue
				}
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

// TakeUntil passes values through until the stop channel fires or closes.
func TakeUntil[T any](src Source[T], stop <-chan struct{}) Source[T] {
	return func(ctx context.Context) <-chan T {
		in := src(ctx)
		out := make(chan T)
		go func() {
			defer close(out)
			for {
				select {
				case v, ok := <-in:
					if !ok {
						return
					}
					select {
					case out <- v:
					case <-stop:
						return
					case <-ctx.Done():
						return
					}
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

// Merge interleaves multiple sources into one. The output closes when every
// input has closed. No ordering is guaranteed across inputs; per-input FIFO
// order is preserved.
func Merge[T any](sources ...Source[T]) Source[T] {
	return func(ctx context.Context) <-chan T {
		out := make(chan T)
		done := make(chan struct{})
		remaining := len(sources)
		if remaining == 0 {
			close(out)
			return out
		}
		for _, src := range sources {
			in := src(ctx)
			go func() {
				defer func() {
					done <- struct{}{}
				}()
				for v := range in {
					select {
					case out <- v:
					case <-ctx.Done():
						return
					}
				}
			}()
		}
		go func() {
			for range remaining {
				<-done
			}
			close(out)
		}()
		return out
	}
}

// Ticker emits the tick time at the given interval until ctx is cancelled.
func Ticker(interval time.Duration) Source[time.Time] {
	return func(ctx context.Context) <-chan time.Time {
		out := make(chan time.Time)
		go func() {
			defer close(out)
			tick := time.NewTicker(interval)
			defer tick.Stop()
			for {
				select {
				case t := <-tick.C:
					select {
					case out <- t:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}
