// Package timer implements the software timer service: a monotonic tick
// counter advanced by the board's tick source, and a sorted list of
// deadlines serviced by a dedicated worker thread running at the lowest
// regular priority.
package timer

import (
	"sync/atomic"

	"github.com/richardbraun/x1/kpanic"
	"github.com/richardbraun/x1/ksync"
	"github.com/richardbraun/x1/list"
	"github.com/richardbraun/x1/sched"
)

// StackBytes is the stack size given to the timer worker thread.
const StackBytes = 4096

// threshold partitions the tick space between future and past: ticks up
// to threshold ahead of a reference are considered in the future, every
// other value is in the past. Using half the range of the counter lets
// wraparound be handled with ordinary unsigned subtraction.
const threshold = ^uint64(0) / 2

// Expired reports whether ticks lies strictly in the past relative to
// ref, correctly handling wraparound of the tick counter.
func Expired(ticks, ref uint64) bool {
	return (ticks - ref) > threshold
}

// Occurred reports whether ticks is ref or lies in the past relative to
// ref.
func Occurred(ticks, ref uint64) bool {
	return ticks == ref || Expired(ticks, ref)
}

// Fn is a timer callback, run on the timer worker thread.
type Fn func(arg any)

// Timer is a single deferred callback. The zero value is not usable (it
// has no list node); use New to obtain one ready for Schedule.
type Timer struct {
	node  *list.Node
	fn    Fn
	arg   any
	ticks uint64
}

// New returns a new, unscheduled timer that will call fn(arg) when it
// expires.
func New(fn Fn, arg any) *Timer {
	t := &Timer{fn: fn, arg: arg}
	t.node = list.NewNode(t)
	return t
}

// Ticks returns the deadline, in ticks, the timer was last scheduled
// for.
func (t *Timer) Ticks() uint64 {
	mu.Lock()
	defer mu.Unlock()
	return t.ticks
}

func (t *Timer) scheduled() bool {
	return !t.node.Unlinked()
}

func (t *Timer) expired(ref uint64) bool {
	return Expired(t.ticks, ref)
}

func (t *Timer) occurred(ref uint64) bool {
	return Occurred(t.ticks, ref)
}

var (
	ticks atomic.Uint64

	list_ list.Node
	mu    = ksync.NewMutex()

	// listEmpty and wakeupTicks are the interrupt-visible summaries of
	// the timer list: ReportTick consults them without locking mu, which
	// may require sleeping were it contended, so it could not otherwise
	// be called from a board's ISR-equivalent context.
	listEmpty   atomic.Bool
	wakeupTicks atomic.Uint64

	worker *sched.Thread
)

func workPending() bool {
	return !listEmpty.Load() && Occurred(wakeupTicks.Load(), ticks.Load())
}

func process(t *Timer) {
	t.fn(t.arg)
}

func processList(now uint64) {
	mu.Lock()

	for !list_.Empty() {
		t := list_.First().Value().(*Timer)
		if !t.occurred(now) {
			break
		}

		list.Remove(t.node)
		mu.Unlock()

		process(t)

		mu.Lock()
	}

	listEmpty.Store(list_.Empty())
	if !listEmpty.Load() {
		t := list_.First().Value().(*Timer)
		wakeupTicks.Store(t.ticks)
	}

	mu.Unlock()
}

func run(arg any) {
	for {
		sched.PreemptDisable()

		var now uint64
		for {
			now = ticks.Load()
			if workPending() {
				break
			}
			sched.Sleep()
		}

		sched.PreemptEnable()

		processList(now)
	}
}

// Setup starts the timer service: it resets the tick counter and spawns
// the worker thread. Must be called once, after sched.Setup.
func Setup() {
	ticks.Store(0)
	list_.Init()
	listEmpty.Store(true)

	t, err := sched.Create(run, nil, "timer", StackBytes, sched.MinPriority)
	if err != nil {
		kpanic.Fatalf("timer: unable to create worker thread: %v", err)
	}
	worker = t

	sched.SetTickHandler(ReportTick)
}

// Now returns the current tick count.
func Now() uint64 {
	return ticks.Load()
}

// Schedule arms t to fire once at the given absolute tick count. t must
// not already be scheduled.
func Schedule(t *Timer, at uint64) {
	mu.Lock()

	kpanic.Assert(!t.scheduled(), "timer: timer already scheduled")
	t.ticks = at

	var insertBefore *list.Node
	for n := list_.Next(); !list.End(&list_, n); n = n.Next() {
		tmp := n.Value().(*Timer)
		if !tmp.expired(at) {
			insertBefore = n
			break
		}
	}
	if insertBefore != nil {
		list.InsertBefore(t.node, insertBefore)
	} else {
		list.InsertTail(&list_, t.node)
	}

	head := list_.First().Value().(*Timer)
	listEmpty.Store(false)
	wakeupTicks.Store(head.ticks)

	mu.Unlock()
}

// ReportTick advances the tick counter by one and, if a timer's deadline
// has now occurred, wakes the worker thread. Called by the board's tick
// source once per tick; registered with sched via SetTickHandler during
// Setup so sched need not import this package.
func ReportTick() {
	ticks.Add(1)
	if workPending() {
		sched.Wakeup(worker)
	}
}
