package hostsim

import (
	"context"
	"time"
)

// Ticker is a board.TickSource driven by the host's wall clock via
// time.Ticker, standing in for a real hardware timer interrupt.
type Ticker struct {
	// Hz is the tick rate. Must match the rate the scheduler and timer
	// service were configured for (sched.TickHz) for wall-clock time to
	// correspond to simulated ticks.
	Hz int

	// MaxTicks stops Run after the given number of ticks if non-zero,
	// for a headless run bounded to a fixed number of ticks.
	MaxTicks uint64
}

// Run calls fn once per tick until ctx is done or MaxTicks is reached.
func (t *Ticker) Run(ctx context.Context, fn func()) {
	hz := t.Hz
	if hz <= 0 {
		hz = 100
	}

	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	var count uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
			count++
			if t.MaxTicks != 0 && count >= t.MaxTicks {
				return
			}
		}
	}
}
