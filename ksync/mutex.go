// Package ksync provides the kernel's own mutex and condition variable,
// built directly on sched's sleep/wakeup primitive rather than on the Go
// runtime's sync package — exactly as the rest of this module is meant to
// be written against its own scheduler instead of the host goroutine
// scheduler.
package ksync

import (
	"github.com/richardbraun/x1/kpanic"
	"github.com/richardbraun/x1/list"
	"github.com/richardbraun/x1/sched"
)

// mutexWaiter binds a waiting thread to a Mutex for exactly as long as it
// is blocked; it lives on the caller's stack (here, in Lock's local
// frame) rather than inside the Thread itself.
type mutexWaiter struct {
	node   *list.Node
	thread *sched.Thread
}

// Mutex is a non-recursive, passively-waiting mutual exclusion lock. The
// zero value is not valid; use NewMutex.
//
// Unlike sync.Mutex, a Mutex here is not required to be unlocked by the
// same goroutine that locked it in the Go runtime's sense — it is
// unlocked by the same *thread*, since that is the unit of scheduling
// this whole module reasons about. It also carries no priority
// inheritance: a low priority thread holding a Mutex a high priority
// thread wants can still cause unbounded priority inversion, matching
// the original's documented limitation.
type Mutex struct {
	waiters *list.Node
	owner   *sched.Thread
	locked  bool
}

// NewMutex returns a new, unlocked mutex.
func NewMutex() *Mutex {
	h := list.NewNode(nil)
	h.Init()
	return &Mutex{waiters: h}
}

func (m *Mutex) setOwner(t *sched.Thread) {
	kpanic.Assert(m.owner == nil, "ksync: mutex already owned")
	kpanic.Assert(!m.locked, "ksync: mutex already locked")
	m.owner = t
	m.locked = true
}

func (m *Mutex) clearOwner() {
	kpanic.Assert(m.owner == sched.Self(), "ksync: unlocking a mutex not owned by caller")
	kpanic.Assert(m.locked, "ksync: unlocking an already-unlocked mutex")
	m.owner = nil
	m.locked = false
}

// Lock locks m, blocking until it is available if it is already locked.
func (m *Mutex) Lock() {
	t := sched.Self()

	sched.PreemptDisable()

	if m.locked {
		w := mutexWaiter{thread: t}
		w.node = list.NewNode(&w)
		list.InsertTail(m.waiters, w.node)

		for m.locked {
			sched.Sleep()
		}

		list.Remove(w.node)
	}

	m.setOwner(t)

	sched.PreemptEnable()
}

// TryLock attempts to lock m without blocking. It reports whether it
// succeeded.
func (m *Mutex) TryLock() bool {
	sched.PreemptDisable()
	defer sched.PreemptEnable()

	if m.locked {
		return false
	}

	m.setOwner(sched.Self())
	return true
}

// Unlock unlocks m. The calling thread must hold it.
func (m *Mutex) Unlock() {
	sched.PreemptDisable()

	m.clearOwner()

	if !m.waiters.Empty() {
		w := m.waiters.First().Value().(*mutexWaiter)
		sched.Wakeup(w.thread)
	}

	sched.PreemptEnable()
}
