// Package kernel sequences the one-time setup of the whole system and
// holds the board collaborators the rest of the kernel reaches through
// (spec.md §6's external contracts). It is the only package allowed to
// call mem.Setup, sched.Bootstrap/Setup, and timer.Setup, and it calls
// them in the one order that works: mem before sched (sched.Create needs
// a working allocator for thread stacks), sched before timer (timer.Setup
// creates its worker thread via sched.Create).
package kernel

import (
	"context"

	"github.com/richardbraun/x1/board"
	"github.com/richardbraun/x1/kpanic"
	"github.com/richardbraun/x1/mem"
	"github.com/richardbraun/x1/sched"
	"github.com/richardbraun/x1/timer"
)

var (
	setupDone bool

	console board.ConsoleSink
)

// consoleSink adapts the installed board.ConsoleSink to kpanic.Sink.
type consoleSink struct{}

func (consoleSink) WriteByte(b byte) error {
	if console == nil {
		return nil
	}
	return console.WriteByte(b)
}

// Setup brings up the kernel core: the allocator, the scheduler (with its
// idle thread), and the timer service, in that order. sink is used for
// kpanic diagnostics and is returned by Console; it may be nil, in which
// case fatal diagnostics are simply dropped.
//
// Setup must be called exactly once. A second call panics, matching
// spec.md §9's requirement that global kernel state forbid
// re-initialization.
func Setup(sink board.ConsoleSink) {
	if setupDone {
		kpanic.Fatalf("kernel: Setup called more than once")
	}

	console = sink
	kpanic.SetSink(consoleSink{})

	mem.Setup()
	sched.Bootstrap()
	sched.Setup()
	timer.Setup()

	setupDone = true
}

// Run hands control to the scheduler and the given tick source: it
// starts ts.Run forwarding ticks to sched.ReportTick, then enables the
// scheduler. Like sched.EnableScheduler, Run never returns; ctx
// cancellation only stops the tick source, it does not unwind the
// kernel.
func Run(ctx context.Context, ts board.TickSource) {
	kpanic.Assert(setupDone, "kernel: Run called before Setup")

	go ts.Run(ctx, sched.ReportTick)

	sched.EnableScheduler()
}

// Console returns the board console sink installed at Setup, or nil if
// none was given.
func Console() board.ConsoleSink {
	return console
}
