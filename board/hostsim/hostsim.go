// Package hostsim is the host collaborator for board: it stands in for
// real hardware when running on a development machine, the way the
// teacher's hal package's host-tagged files stand in for its own
// hardware abstraction layer. It provides a console sink over stdout, a
// simulated interrupt table, a wall-clock-driven tick source, and an
// optional ebiten window that displays a caller-supplied status string.
package hostsim

import (
	"bufio"
	"os"
	"sync"
)

// Console is a board.ConsoleSink writing to stdout, buffered and
// serialized so concurrent writers (kpanic diagnostics racing with
// driver/serial output) never interleave mid-byte.
type Console struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewConsole returns a Console writing to stdout.
func NewConsole() *Console {
	return &Console{w: bufio.NewWriter(os.Stdout)}
}

// WriteByte writes one byte to the console, flushing immediately so
// output interleaves sanely with whatever else the terminal shows.
func (c *Console) WriteByte(b byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.w.WriteByte(b); err != nil {
		return err
	}
	return c.w.Flush()
}

// IRQTable is a board.IRQController backed by a simple enabled-bit map,
// standing in for a real interrupt controller's mask registers.
type IRQTable struct {
	mu      sync.Mutex
	enabled map[int]bool
}

// NewIRQTable returns an IRQTable with every line initially disabled.
func NewIRQTable() *IRQTable {
	return &IRQTable{enabled: make(map[int]bool)}
}

// Enable unmasks irq.
func (t *IRQTable) Enable(irq int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled[irq] = true
}

// Disable masks irq.
func (t *IRQTable) Disable(irq int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled[irq] = false
}

// Enabled reports whether irq is currently unmasked.
func (t *IRQTable) Enabled(irq int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled[irq]
}
