//go:build tinygo

package arch

import (
	"runtime/interrupt"
	"runtime/volatile"
)

// State mirrors runtime/interrupt.State, the real mask TinyGo's own
// scheduler backend saves and restores around its futex and task queue
// critical sections (internal/task/queue.go, internal/task/futex-cores.go
// in the TinyGo distribution this was grounded on).
type State = interrupt.State

var enabled volatile.Register8

func init() {
	enabled.Set(1)
}

// IntrDisable masks hardware interrupts.
func IntrDisable() {
	interrupt.Disable()
	enabled.Set(0)
}

// IntrEnable unmasks hardware interrupts.
func IntrEnable() {
	enabled.Set(1)
	interrupt.Enable()
}

// IntrEnabled reports whether interrupts are currently unmasked.
func IntrEnabled() bool {
	return enabled.Get() != 0
}

// IntrSave disables interrupts and returns the previous mask.
func IntrSave() State {
	s := interrupt.Disable()
	enabled.Set(0)
	return s
}

// IntrRestore restores a mask previously returned by IntrSave.
func IntrRestore(s State) {
	enabled.Set(1)
	s.Restore()
}

// idleBackend briefly unmasks interrupts so a pending tick or GPIO
// interrupt is serviced, then returns so the idle thread's loop in sched
// can recheck the run queue. Boards with a real wait-for-interrupt
// instruction available through their machine package can override this
// by building with a board-specific idle hook; this default is safe on
// every target.
func idleBackend() {
	interrupt.Enable()
}
