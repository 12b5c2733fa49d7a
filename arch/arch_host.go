//go:build !tinygo

package arch

import (
	"runtime"
	"sync"
	"time"
)

// State is the value returned by IntrSave and consumed by IntrRestore: the
// logical interrupt-enabled flag at the point IntrSave was called.
type State bool

var (
	intrMu      sync.Mutex
	intrEnabled = true
)

// IntrDisable clears the logical single processor's interrupt-enabled
// flag. Host builds have no real hardware interrupts, and this flag is
// bookkeeping only: the simulated tick source and IRQ table in
// board/hostsim do not consult it, so clearing it does not hold off a
// tick. Mutual exclusion against the tick source comes from sched's
// schedMu and timer's atomics instead.
func IntrDisable() {
	intrMu.Lock()
	intrEnabled = false
	intrMu.Unlock()
}

// IntrEnable unmasks interrupts.
func IntrEnable() {
	intrMu.Lock()
	intrEnabled = true
	intrMu.Unlock()
}

// IntrEnabled reports whether interrupts are currently unmasked.
func IntrEnabled() bool {
	intrMu.Lock()
	defer intrMu.Unlock()
	return intrEnabled
}

// IntrSave disables interrupts and returns the previous state, for
// restoring with IntrRestore.
func IntrSave() State {
	intrMu.Lock()
	prev := intrEnabled
	intrEnabled = false
	intrMu.Unlock()
	return State(prev)
}

// IntrRestore restores the interrupt state previously returned by
// IntrSave.
func IntrRestore(s State) {
	intrMu.Lock()
	intrEnabled = bool(s)
	intrMu.Unlock()
}

func idleBackend() {
	runtime.Gosched()
	time.Sleep(time.Millisecond)
}
