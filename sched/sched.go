// Package sched implements fixed-priority preemptive scheduling of
// cooperating threads over a single logical processor: the run queue,
// preemption control, and the sleep/wakeup primitive every synchronization
// type in ksync and timer is built from.
//
// Exactly one thread's user code ever runs at a time — see package arch
// for how that single-processor invariant is realized on top of real Go
// goroutines. Because a second real goroutine (the simulated interrupt
// source in board/hostsim, or a board's hardware ISR) can genuinely run
// concurrently with whichever thread is logically "current", the run
// queue and per-thread bookkeeping that the original serializes purely by
// disabling preemption and interrupts are additionally guarded here by a
// real mutex (schedMu) — see DESIGN.md for why this is necessary and
// where the line is drawn. schedMu is only ever held for short, leaf
// critical sections; it is never held across a call to another exported
// function of this package.
package sched

import (
	"sync"

	"github.com/richardbraun/x1/arch"
	"github.com/richardbraun/x1/kpanic"
	"github.com/richardbraun/x1/list"
	"github.com/richardbraun/x1/mem"
)

// Scheduling configuration, equivalent to the original's compile-time
// #define constants (spec.md §6).
const (
	// TickHz is the rate, in Hz, at which ReportTick is expected to be
	// called by the board's tick source.
	TickHz = 100

	// Priorities is the total number of priority levels.
	Priorities = 20

	// IdlePriority is the priority of the idle thread; it may also be
	// used for other very low priority background threads.
	IdlePriority = 0

	// MinPriority and MaxPriority bound the regular priority range.
	MinPriority = 1
	MaxPriority = Priorities - 1

	// MinStackBytes is the smallest stack size Create will honor.
	MinStackBytes = 512

	// ThreadNameMax is the maximum length of a thread name, truncated
	// silently beyond this (matching snprintf's truncate-on-overflow
	// behavior in the original).
	ThreadNameMax = 16
)

type state int32

const (
	stateRunning state = iota
	stateSleeping
	stateDead
)

// Thread is a schedulable activity. The zero value is not valid; obtain
// one from Create.
type Thread struct {
	ctx          *arch.Context
	state        state
	yield        bool
	node         *list.Node
	preemptLevel uint
	priority     uint
	joiner       *Thread
	name         string
	stack        []byte
}

// Name returns the thread's name.
func (t *Thread) Name() string { return t.name }

// Priority returns the thread's fixed scheduling priority.
func (t *Thread) Priority() uint { return t.priority }

type runQueue struct {
	current   *Thread
	nrThreads uint
	lists     [Priorities]*list.Node
	idle      *Thread
}

var (
	schedMu sync.Mutex
	rq      runQueue
	dummy   Thread
)

// every function below named runq* or named with a Locked suffix requires
// schedMu to already be held by the caller and must not itself lock or
// unlock it.

func listFor(priority uint) *list.Node {
	kpanic.Assert(priority < Priorities, "sched: priority out of range")
	return rq.lists[priority]
}

// Bootstrap performs the earliest initialization of the scheduler: it
// installs a dummy thread context so Self() and preemption bookkeeping
// work before Setup creates the idle thread and the real run queue. No
// thread may be created before Bootstrap returns.
func Bootstrap() {
	dummy = Thread{
		ctx:          arch.Bootstrap(),
		state:        stateRunning,
		preemptLevel: 1,
		priority:     0,
		name:         "dummy",
	}
	dummy.node = list.NewNode(&dummy)
	rq.current = &dummy
}

// Setup finishes scheduler initialization: the run queue's priority
// lists and the idle thread. New threads may be created once Setup
// returns, though none run until EnableScheduler is called.
func Setup() {
	for i := range rq.lists {
		h := list.NewNode(nil)
		h.Init()
		rq.lists[i] = h
	}
	rq.nrThreads = 0
	rq.idle = createIdle()
}

func idleLoop(arg any) {
	for {
		arch.Idle()
		Yield()
	}
}

func createIdle() *Thread {
	t, err := Create(idleLoop, nil, "idle", MinStackBytes, IdlePriority)
	if err != nil {
		kpanic.Fatalf("sched: unable to create idle thread: %v", err)
	}

	// The idle thread is never queued on a priority list (see
	// runqPutPrevLocked); remove it from wherever Create's normal
	// enqueue path placed it so nrThreads correctly excludes it.
	schedMu.Lock()
	if !t.node.Unlinked() {
		list.Remove(t.node)
		rq.nrThreads--
	}
	schedMu.Unlock()
	return t
}

// EnableScheduler performs the final handoff from the bootstrap context
// to the highest-priority ready thread and never returns, exactly like
// the original's thread_enable_scheduler.
func EnableScheduler() {
	schedMu.Lock()
	next := runqGetNextLocked()
	kpanic.Assert(next != nil, "sched: no thread to run at scheduler enable")
	kpanic.Assert(next.preemptLevel == 1, "sched: new current thread has wrong preempt level")
	schedMu.Unlock()

	next.ctx.Resume()
	select {}
}

func threadEntry(t *Thread, fn func(arg any), arg any) {
	arch.IntrEnable()
	PreemptEnable()
	fn(arg)
	Exit()
}

// Create starts a new thread running fn(arg), named name, with the given
// stack size (clamped up to MinStackBytes) and fixed priority. The
// thread is placed on the run queue immediately; it will run as soon as
// the scheduler picks it.
func Create(fn func(arg any), arg any, name string, stackSize uint, priority uint) (*Thread, error) {
	if priority >= Priorities {
		return nil, kpanic.New(kpanic.InvalidArgument, "sched: priority out of range")
	}
	if fn == nil {
		return nil, kpanic.New(kpanic.InvalidArgument, "sched: nil entry point")
	}
	if stackSize < MinStackBytes {
		stackSize = MinStackBytes
	}

	stack, err := mem.Alloc(stackSize)
	if err != nil {
		return nil, err
	}

	if len(name) > ThreadNameMax {
		name = name[:ThreadNameMax]
	}

	t := &Thread{
		state:        stateRunning,
		preemptLevel: 1,
		priority:     priority,
		name:         name,
		stack:        stack,
	}
	t.node = list.NewNode(t)
	t.ctx = arch.Forge(func() { threadEntry(t, fn, arg) }, int(stackSize))

	schedMu.Lock()
	runqAddLocked(t)
	schedMu.Unlock()

	return t, nil
}

func runqPutPrevLocked(t *Thread) {
	if t == rq.idle {
		return
	}
	list.InsertTail(listFor(t.priority), t.node)
}

func runqGetNextLocked() *Thread {
	kpanic.Assert(rq.current != nil, "sched: no current thread")

	if rq.nrThreads == 0 {
		rq.current = rq.idle
		return rq.idle
	}

	var picked *list.Node
	for i := Priorities - 1; i >= 0; i-- {
		h := rq.lists[i]
		if !h.Empty() {
			picked = h
			break
		}
	}
	kpanic.Assert(picked != nil, "sched: nrThreads > 0 but no list has entries")

	n := list.PopFirst(picked)
	t := n.Value().(*Thread)
	rq.current = t
	return t
}

func runqAddLocked(t *Thread) {
	kpanic.Assert(t.state == stateRunning, "sched: adding non-running thread to run queue")
	list.InsertTail(listFor(t.priority), t.node)
	rq.nrThreads++

	if rq.current != nil && t.priority > rq.current.priority {
		rq.current.yield = true
	}
}

func runqRemoveLocked(t *Thread) {
	kpanic.Assert(rq.nrThreads != 0, "sched: run queue underflow")
	rq.nrThreads--

	if t != rq.idle {
		list.Remove(t.node)
	}
}

// runqScheduleLocked requires schedMu held and exactly one level of
// preemption disabled on the current thread. It picks the next thread to
// run and, if different from the current one, switches the processor to
// it — blocking the caller until it is switched back in. schedMu is
// released while the switch is in flight and re-acquired before
// returning.
func runqScheduleLocked() {
	prev := rq.current
	kpanic.Assert(prev.preemptLevel == 1, "sched: schedule called with preemption not held exactly once")

	runqPutPrevLocked(prev)
	if prev.state != stateRunning {
		runqRemoveLocked(prev)
	}

	next := runqGetNextLocked()
	if prev == next {
		return
	}

	schedMu.Unlock()
	arch.Switch(prev.ctx, next.ctx)
	schedMu.Lock()
}

// Self returns the thread currently running on the processor.
func Self() *Thread {
	schedMu.Lock()
	defer schedMu.Unlock()
	return rq.current
}

// lockScheduler disables preemption for the calling thread. Combined with
// schedMu's own short-lived critical sections for the run queue itself,
// this reproduces the original's "preemption disabled, interrupts
// disabled" scheduler lock without ever holding schedMu across a call
// into another function.
func lockScheduler() {
	preemptDisable()
}

func unlockScheduler(yield bool) {
	if yield {
		PreemptEnable()
	} else {
		preemptEnableNoYield()
	}
}

func preemptDisable() {
	schedMu.Lock()
	rq.current.preemptLevel++
	schedMu.Unlock()
}

func preemptEnableNoYield() {
	schedMu.Lock()
	kpanic.Assert(rq.current.preemptLevel != 0, "sched: preempt-enable without matching disable")
	rq.current.preemptLevel--
	schedMu.Unlock()
}

// PreemptDisable disables preemption for the current thread. Disabling
// is reentrant: preemption is only actually enabled again once
// PreemptEnable has been called once per matching PreemptDisable.
func PreemptDisable() {
	preemptDisable()
}

// PreemptEnable reenables one level of preemption for the current
// thread, yielding the processor immediately if the scheduler had
// requested it while preemption was held disabled.
func PreemptEnable() {
	preemptEnableNoYield()

	schedMu.Lock()
	should := rq.current.preemptLevel == 0 && rq.current.yield
	schedMu.Unlock()
	if should {
		Yield()
	}
}

// PreemptEnabled reports whether the current thread's preemption level
// is zero.
func PreemptEnabled() bool {
	schedMu.Lock()
	defer schedMu.Unlock()
	return rq.current.preemptLevel == 0
}

// Yield gives up the processor voluntarily. The calling thread remains
// runnable and may be rescheduled immediately if no higher-priority
// thread is ready. A no-op if preemption is currently disabled.
func Yield() {
	schedMu.Lock()
	if rq.current.preemptLevel != 0 {
		schedMu.Unlock()
		return
	}

	rq.current.preemptLevel++
	rq.current.yield = false
	runqScheduleLocked()
	rq.current.preemptLevel--
	schedMu.Unlock()
}

// Sleep makes the calling thread sleep until Wakeup is called on it.
//
// Preemption must be disabled exactly once before calling Sleep — see
// ksync for the canonical "disable preemption, check predicate in a
// loop, sleep" pattern this primitive is meant to be used with.
func Sleep() {
	t := Self()
	s := arch.IntrSave()

	schedMu.Lock()
	kpanic.Assert(t.state == stateRunning, "sched: sleeping an already-sleeping thread")
	t.state = stateSleeping
	runqScheduleLocked()
	kpanic.Assert(t.state == stateRunning, "sched: thread resumed but not marked running")
	schedMu.Unlock()

	arch.IntrRestore(s)
}

// Wakeup makes thread runnable again if it is sleeping. Safe to call
// from a simulated interrupt handler (board tick sources and drivers do
// so), and a no-op if thread is nil or is the calling thread itself.
//
// Wakeup never itself switches the processor to the woken thread, even
// if it now outranks whatever is current: it only marks the thread
// ready and, through runqAddLocked, flags the current thread for
// yielding. The actual switch happens the next time a real logical
// thread reaches its own scheduling point (Yield, Sleep, or the
// trailing check in PreemptEnable). This is deliberate, not an
// oversight: a board's tick source calls Wakeup from its own goroutine,
// which is not a scheduled thread and owns no Context of its own — it
// must never be the one driving arch.Switch.
func Wakeup(t *Thread) {
	if t == nil || t == Self() {
		return
	}

	lockScheduler()

	schedMu.Lock()
	if t.state != stateRunning {
		kpanic.Assert(t.state != stateDead, "sched: waking a dead thread")
		t.state = stateRunning
		runqAddLocked(t)
	}
	schedMu.Unlock()

	unlockScheduler(false)
}

// Exit terminates the calling thread. It never returns. A terminated
// thread's resources are only released once Join has been called on it
// — this module has no detached threads, by design (spec.md non-goal).
//
// The goroutine backing the exiting thread parks forever waiting to be
// resumed, since portable Go has no way to forcibly terminate another
// goroutine; this is the one place the goroutine-based adaptation of
// "thread" leaves a permanently-blocked (not spinning, not leaking CPU)
// goroutine behind instead of truly reclaiming it.
func Exit() {
	t := Self()
	kpanic.Assert(PreemptEnabled(), "sched: exiting with preemption disabled")

	lockScheduler()

	schedMu.Lock()
	kpanic.Assert(t.state == stateRunning, "sched: exiting a non-running thread")
	t.state = stateDead
	joiner := t.joiner
	schedMu.Unlock()

	Wakeup(joiner)

	schedMu.Lock()
	runqScheduleLocked()
	schedMu.Unlock()

	kpanic.Fatalf("sched: dead thread resumed")
}

// Join blocks until thread has exited, then releases its resources.
// Every created thread must eventually be joined exactly once.
func Join(t *Thread) {
	self := Self()

	lockScheduler()

	schedMu.Lock()
	t.joiner = self
	schedMu.Unlock()

	for {
		schedMu.Lock()
		dead := t.state == stateDead
		schedMu.Unlock()
		if dead {
			break
		}
		Sleep()
	}

	unlockScheduler(true)

	mem.Free(t.stack)
}

// tickFn is installed by timer.Setup (through SetTickHandler) to avoid a
// sched -> timer import cycle (timer already imports sched); it forwards ticks to
// the timer service exactly like the original's direct call from
// thread_report_tick to timer_report_tick.
var tickFn func()

// SetTickHandler installs the function ReportTick forwards each tick to.
func SetTickHandler(fn func()) {
	tickFn = fn
}

// ReportTick is invoked by the board tick source once per tick, standing
// in for the original's timer interrupt handler.
func ReportTick() {
	schedMu.Lock()
	if rq.current != nil {
		rq.current.yield = true
	}
	schedMu.Unlock()

	if tickFn != nil {
		tickFn()
	}
}
