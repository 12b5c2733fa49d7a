//go:build tinygo

// Package pico is the tinygo collaborator for board: it targets a real
// Pico-class microcontroller with a UART console, ticker-driven time,
// and GPIO-backed IRQ bookkeeping.
package pico

import (
	"context"
	"machine"
	"time"
)

// Console is a board.ConsoleSink writing to a UART, configured 115200
// 8N1.
type Console struct {
	uart *machine.UART
}

// NewConsole configures UART0 on GP0 (TX) / GP1 (RX) and returns a
// Console writing to it.
func NewConsole() *Console {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})
	return &Console{uart: uart}
}

// WriteByte writes one byte to the UART.
func (c *Console) WriteByte(b byte) error {
	return c.uart.WriteByte(b)
}

// Ticker is a board.TickSource driven by a hardware timer interrupt
// substitute: a tight ticker goroutine.
type Ticker struct {
	// Period is the duration between ticks.
	Period time.Duration
}

// Run calls fn once per Period until ctx is done.
func (t *Ticker) Run(ctx context.Context, fn func()) {
	period := t.Period
	if period <= 0 {
		period = time.Millisecond * 10
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// IRQTable is a board.IRQController that only records which lines are
// enabled, matching the host simulator's behavior; it does not touch
// any hardware interrupt mask register.
type IRQTable struct {
	enabled map[int]bool
}

// NewIRQTable returns an IRQTable with every line initially disabled.
func NewIRQTable() *IRQTable {
	return &IRQTable{enabled: make(map[int]bool)}
}

// Enable unmasks irq.
func (t *IRQTable) Enable(irq int) { t.enabled[irq] = true }

// Disable masks irq.
func (t *IRQTable) Disable(irq int) { t.enabled[irq] = false }
