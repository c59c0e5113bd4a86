package feedback_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/loopkit/loopkit/pkg/feedback"
	"github.com/loopkit/loopkit/pkg/system"
)

// watchState drives the lensed feedback tests: Target is the projected
// value, Log collects events emitted by effects.
type watchState struct {
	Target string
	Log    []string
}

// reduce interprets "set:X" as assigning the target (empty X clears it);
// anything else is appended to the log.
func reduce(s watchState, e string) watchState {
	if v, ok := strings.CutPrefix(e, "set:"); ok {
		s.Target = v
		return s
	}
	s.Log = append(s.Log, e)
	return s
}

func targetLens(s watchState) (string, bool) {
	return s.Target, s.Target != ""
}

// recorder tracks effect lifecycles across goroutines.
type recorder struct {
	mu      sync.Mutex
	starts  []string
	cancels int
}

func (r *recorder) start(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, v)
}

func (r *recorder) cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels++
}

func (r *recorder) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.starts...), r.cancels
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

// blockingEffect records the start, then parks until cancelled.
func blockingEffect(rec *recorder) func(ctx context.Context, v string) <-chan string {
	return func(ctx context.Context, v string) <-chan string {
		out := make(chan string)
		rec.start(v)
		go func() {
			defer close(out)
			<-ctx.Done()
			rec.cancel()
		}()
		return out
	}
}

func TestSkippingRepeated_StartsOncePerDistinctValue(t *testing.T) {
	rec := &recorder{}
	fb := feedback.SkippingRepeated[watchState, string](targetLens, blockingEffect(rec))

	sys := system.New(watchState{}, reduce, []system.Feedback[watchState, string]{fb})
	defer sys.Dispose()

	sys.Dispatch("set:A")
	sys.Dispatch("set:A") // consecutive equal value, skipped
	sys.Dispatch("set:B") // change cancels A, starts B
	sys.Dispatch("set:A") // change cancels B, starts A again

	waitFor(t, func() bool {
		starts, _ := rec.snapshot()
		return len(starts) == 3
	})
	starts, cancels := rec.snapshot()
	assert.Equal(t, []string{"A", "B", "A"}, starts)
	assert.GreaterOrEqual(t, cancels, 2)
}

func TestSkippingRepeated_AbsenceCancelsAndClearsMemory(t *testing.T) {
	rec := &recorder{}
	fb := feedback.SkippingRepeated[watchState, string](targetLens, blockingEffect(rec))

	sys := system.New(watchState{}, reduce, []system.Feedback[watchState, string]{fb})
	defer sys.Dispose()

	sys.Dispatch("set:A")
	waitFor(t, func() bool {
		starts, _ := rec.snapshot()
		return len(starts) == 1
	})

	sys.Dispatch("set:") // absence cancels the running effect
	waitFor(t, func() bool {
		_, cancels := rec.snapshot()
		return cancels == 1
	})

	// The same value re-appearing triggers again; the dedup memory was
	// cleared by the absence.
	sys.Dispatch("set:A")
	waitFor(t, func() bool {
		starts, _ := rec.snapshot()
		return len(starts) == 2
	})
	starts, _ := rec.snapshot()
	assert.Equal(t, []string{"A", "A"}, starts)
}

func TestSkippingRepeated_DisposalCancelsRunningEffect(t *testing.T) {
	rec := &recorder{}
	fb := feedback.SkippingRepeated[watchState, string](targetLens, blockingEffect(rec))

	sys := system.New(watchState{}, reduce, []system.Feedback[watchState, string]{fb})

	sys.Dispatch("set:A")
	waitFor(t, func() bool {
		starts, _ := rec.snapshot()
		return len(starts) == 1
	})

	sys.Dispose()
	waitFor(t, func() bool {
		_, cancels := rec.snapshot()
		return cancels == 1
	})
}

func TestSkippingRepeated_StaleEmissionIsDiscarded(t *testing.T) {
	fb := feedback.SkippingRepeated[watchState, string](targetLens,
		func(ctx context.Context, v string) <-chan string {
			out := make(chan string, 1)
			if v == "slow" {
				// Ignores cancellation and delivers late, like a legacy
				// call that cannot be interrupted.
				go func() {
					defer close(out)
					time.Sleep(100 * time.Millisecond)
					out <- "late"
				}()
				return out
			}
			go func() {
				defer close(out)
				out <- v + "-done"
			}()
			return out
		},
	)

	sys := system.New(watchState{}, reduce, []system.Feedback[watchState, string]{fb})
	defer sys.Dispose()

	sys.Dispatch("set:slow")
	time.Sleep(20 * time.Millisecond)
	sys.Dispatch("set:fast") // supersedes the slow effect before it emits

	waitFor(t, func() bool { return len(sys.State().Log) >= 1 })
	time.Sleep(150 * time.Millisecond) // give the stale emission time to (not) arrive

	assert.Equal(t, []string{"fast-done"}, sys.State().Log)
}

func TestWhenBecomesTrue_TriggersOnRisingEdgeOnly(t *testing.T) {
	rec := &recorder{}

	type flag struct{ On bool }
	reduceFlag := func(s flag, e string) flag {
		switch e {
		case "on":
			s.On = true
		case "off":
			s.On = false
		}
		return s
	}

	fb := feedback.WhenBecomesTrue[flag, string](
		func(s flag) bool { return s.On },
		func(ctx context.Context) <-chan string {
			out := make(chan string)
			rec.start("edge")
			go func() {
				defer close(out)
				<-ctx.Done()
				rec.cancel()
			}()
			return out
		},
	)

	sys := system.New(flag{}, reduceFlag, []system.Feedback[flag, string]{fb})
	defer sys.Dispose()

	sys.Dispatch("on")
	sys.Dispatch("on") // level stays true, no re-trigger
	sys.Dispatch("off")
	sys.Dispatch("on")

	waitFor(t, func() bool {
		starts, _ := rec.snapshot()
		return len(starts) == 2
	})
	_, cancels := rec.snapshot()
	assert.GreaterOrEqual(t, cancels, 1)
}

func TestExtractingPayload_RunsPerMatchWithoutDedup(t *testing.T) {
	fb := feedback.ExtractingPayload[watchState, string](
		func(e string) (string, bool) { return strings.CutPrefix(e, "job:") },
		func(ctx context.Context, payload string) <-chan string {
			out := make(chan string, 1)
			go func() {
				defer close(out)
				out <- "done:" + payload
			}()
			return out
		},
	)

	sys := system.New(watchState{}, reduce, []system.Feedback[watchState, string]{fb})
	defer sys.Dispose()

	sys.Dispatch("job:1")
	sys.Dispatch("job:1") // same payload runs again
	sys.Dispatch("job:2")

	waitFor(t, func() bool { return len(sys.State().Log) == 3 })
	assert.ElementsMatch(t, []string{"done:1", "done:1", "done:2"}, sys.State().Log)
}

func TestImperative_DispatchesFromObserver(t *testing.T) {
	fb := feedback.Imperative[watchState, string](
		func(ctx context.Context, tr system.Transition[watchState, string], dispatch system.Dispatch[string]) {
			if tr.Event == "ping" {
				dispatch("pong")
			}
		},
	)

	sys := system.New(watchState{}, reduce, []system.Feedback[watchState, string]{fb})
	defer sys.Dispose()

	sys.Dispatch("ping")

	waitFor(t, func() bool { return len(sys.State().Log) == 2 })
	assert.Equal(t, []string{"ping", "pong"}, sys.State().Log)
}

func TestJust_PumpsSourceIntoLoop(t *testing.T) {
	in := make(chan string, 3)
	in <- "a"
	in <- "b"
	close(in)

	fb := feedback.Just[watchState](func(ctx context.Context) <-chan string {
		out := make(chan string)
		go func() {
			defer close(out)
			for v := range in {
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	})

	sys := system.New(watchState{}, reduce, []system.Feedback[watchState, string]{fb})
	defer sys.Dispose()

	waitFor(t, func() bool { return len(sys.State().Log) == 2 })
	assert.Equal(t, []string{"a", "b"}, sys.State().Log)
}
