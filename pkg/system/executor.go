package system

import "runtime"

// Executor selects the execution context that runs a system's event loop.
// It only chooses where the loop worker runs; serialization is enforced by
// the loop itself, so every executor yields identical semantics.
type Executor interface {
	Schedule(task func())
}

// GoExecutor runs the loop on a fresh goroutine. This is the default.
type GoExecutor struct{}

// Schedule implements Executor.
func (GoExecutor) Schedule(task func()) { go task() }

// OSThreadExecutor dedicates an OS thread to the loop for hosts that need
// thread affinity (e.g. embedding into a runtime with a pinned main thread).
type OSThreadExecutor struct{}

// Schedule implements Executor.
func (OSThreadExecutor) Schedule(task func()) {
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		task()
	}()
}
