package ksync

import (
	"github.com/richardbraun/x1/list"
	"github.com/richardbraun/x1/sched"
)

// condWaiter binds a waiting thread to a CondVar for exactly as long as
// it is blocked, recording whether it has already been woken so a
// Broadcast or a second Signal doesn't wake it twice.
type condWaiter struct {
	node   *list.Node
	thread *sched.Thread
	awaken bool
}

func (w *condWaiter) wakeup() bool {
	if w.awaken {
		return false
	}
	sched.Wakeup(w.thread)
	w.awaken = true
	return true
}

// CondVar is a condition variable, always used together with a Mutex.
// The zero value is not valid; use NewCondVar.
type CondVar struct {
	waiters *list.Node
}

// NewCondVar returns a new condition variable with no waiters.
func NewCondVar() *CondVar {
	h := list.NewNode(nil)
	h.Init()
	return &CondVar{waiters: h}
}

// Signal wakes at least one thread waiting on c, if any are waiting.
//
// Signalling is always safe, but a signal may be missed if the mutex
// associated with c isn't locked at the time — see Wait.
func (c *CondVar) Signal() {
	sched.PreemptDisable()

	for n := c.waiters.Next(); !list.End(c.waiters, n); n = n.Next() {
		w := n.Value().(*condWaiter)
		if w.wakeup() {
			break
		}
	}

	sched.PreemptEnable()
}

// Broadcast wakes every thread currently waiting on c.
//
// This is a naive broadcast: every waiter is woken, but since each one
// must then reacquire the associated mutex, only one makes progress
// immediately and the rest go back to sleep waiting for the mutex — the
// "thundering herd problem". Avoiding it requires directly requeuing
// waiters onto the mutex, which this module does not do.
func (c *CondVar) Broadcast() {
	sched.PreemptDisable()

	for n := c.waiters.Next(); !list.End(c.waiters, n); n = n.Next() {
		w := n.Value().(*condWaiter)
		w.wakeup()
	}

	sched.PreemptEnable()
}

// Wait blocks the calling thread until c is signalled or broadcast.
// mutex must be locked by the calling thread; Wait unlocks it before
// sleeping and relocks it before returning, so that checking a predicate
// and waiting on c is atomic with respect to another thread setting the
// predicate and signalling, as long as that thread also holds mutex.
//
// Wait may return without c having been signalled (a spurious wake-up);
// callers must always recheck their predicate in a loop.
func (c *CondVar) Wait(mutex *Mutex) {
	t := sched.Self()
	w := condWaiter{thread: t}
	w.node = list.NewNode(&w)

	sched.PreemptDisable()

	// Unlocking the mutex after preemption has already been disabled is
	// what makes the wait atomic with respect to concurrent signals: no
	// other thread on this processor can run between the unlock and the
	// insertion below.
	mutex.Unlock()

	list.InsertTail(c.waiters, w.node)

	for !w.awaken {
		sched.Sleep()
	}

	list.Remove(w.node)

	sched.PreemptEnable()

	mutex.Lock()
}
