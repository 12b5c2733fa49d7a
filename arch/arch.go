// Package arch is the architecture contract the scheduler is built on:
// interrupt masking, the idle wait, and the primitives used to give a
// thread of control a context and switch between contexts.
//
// A portable Go program cannot forge a raw machine stack frame or mask
// hardware interrupts, so this package realizes the contract the way
// TinyGo's own hosted scheduler backend does for its "threads" build tag
// (internal/task/task_threads.go): a logical thread is a real goroutine
// paired with a binary pause/resume semaphore. Exactly one context's
// goroutine is ever allowed to run at a time, which is what lets the
// single-processor invariants the rest of this module relies on hold.
//
// Two backends exist, selected by build tag: the host backend below
// (default, used for tests and the host demo) and the tinygo backend in
// arch_tinygo.go, which additionally masks real hardware interrupts
// through runtime/interrupt.
package arch

import "github.com/richardbraun/x1/kpanic"

// Context stands in for a thread's saved machine state. The zero value is
// not usable; obtain one from Forge or Bootstrap.
type Context struct {
	sem  chan struct{}
	done chan struct{}
}

// Forge starts fn on a new goroutine, parked until the first Switch into
// this context resumes it — the Go analogue of forging an initial stack
// frame that "returns" into the thread's entry point.
//
// stackSize is accepted for interface parity with the original contract
// and is not used by either backend: goroutines grow their stacks on
// demand and are not pre-sized.
func Forge(fn func(), stackSize int) *Context {
	c := &Context{sem: make(chan struct{}, 1), done: make(chan struct{})}
	go func() {
		c.Pause()
		fn()
		close(c.done)
	}()
	return c
}

// Bootstrap returns a Context representing the calling goroutine itself,
// for use as the initial "current thread" context before the scheduler
// creates any thread of its own (mirrors thread_bootstrap's dummy
// context).
func Bootstrap() *Context {
	return &Context{sem: make(chan struct{}, 1), done: make(chan struct{})}
}

// Pause blocks the calling goroutine until the context is next resumed.
func (c *Context) Pause() {
	<-c.sem
}

// Resume releases one waiter blocked in Pause. Calling Resume on a
// context with no pending Pause queues exactly one resume (the channel
// has capacity 1), matching a binary semaphore.
func (c *Context) Resume() {
	select {
	case c.sem <- struct{}{}:
	default:
		// Already has a pending resume queued; nothing else to do. This
		// can only happen if Resume is called twice for one Pause, which
		// would itself indicate a scheduler bug, so it is not silently
		// absorbed in sched's own bookkeeping — but Context itself stays
		// robust rather than deadlocking the whole process.
	}
}

// Switch transitions the processor from prev to next: next is resumed and
// prev is parked. Called by the scheduler with preemption disabled, like the assembly thread_switch_context it
// replaces, which the compiler (and here, the Go scheduler) must not
// reorder memory operations across.
func Switch(prev, next *Context) {
	kpanic.Assert(prev != next, "arch: switching a context to itself")
	next.Resume()
	prev.Pause()
}

// Idle yields the processor for a short, bounded interval, standing in
// for a low-power halt instruction that wakes on the next interrupt. The
// scheduler's idle thread calls this in a loop and rechecks the run queue
// on every return — see sched's idle thread body.
//
// A real async preemption of a non-cooperating busy loop has no portable
// Go equivalent (nothing below the Go runtime itself can yank control
// away from running code); this module accepts that threads cooperate by
// occasionally sleeping, yielding, or blocking on a mutex/condvar/timer,
// which is also exactly where the original reasserts the yield flag.
func Idle() {
	idleBackend()
}
