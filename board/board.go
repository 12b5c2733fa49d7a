// Package board declares the external contracts a concrete board must
// satisfy to host this kernel: an interrupt controller, a periodic tick
// source, and a console byte sink. These are the only three ways the
// kernel core ever reaches outside itself (spec.md §6); everything else
// — chip bring-up, a shell, a panic reporter, demo applications — is
// built on top of this package, never inside it.
package board

import "context"

// IRQController masks and unmasks individual interrupt lines. The
// kernel core itself never calls this directly; it exists for drivers
// layered on top that need to arm or quiesce a specific line.
type IRQController interface {
	Enable(irq int)
	Disable(irq int)
}

// TickSource drives the scheduler and timer service's notion of time.
// Run must invoke fn once per tick, at whatever rate the board is
// configured for, until ctx is done. fn is sched.ReportTick; it must be
// safe to call as if interrupts were logically disabled, i.e. it must
// not itself be reentered before it returns.
type TickSource interface {
	Run(ctx context.Context, fn func())
}

// ConsoleSink is the kernel's only output path: a single byte sink used
// by kpanic for diagnostics and by driver/serial for a conventional
// byte-oriented console. WriteByte must be safe to call with interrupts
// logically disabled, since kpanic may call it from deep inside a fatal
// assertion.
type ConsoleSink interface {
	WriteByte(b byte) error
}
