package hostsim

import (
	"context"
	"testing"
	"time"
)

func TestIRQTableStartsDisabled(t *testing.T) {
	table := NewIRQTable()
	if table.Enabled(3) {
		t.Fatalf("a fresh IRQTable should start with every line disabled")
	}
}

func TestIRQTableEnableDisable(t *testing.T) {
	table := NewIRQTable()
	table.Enable(5)
	if !table.Enabled(5) {
		t.Fatalf("Enable should mark the line enabled")
	}
	table.Disable(5)
	if table.Enabled(5) {
		t.Fatalf("Disable should mark the line disabled again")
	}
}

func TestTickerCallsFnUntilMaxTicks(t *testing.T) {
	ticker := &Ticker{Hz: 1000, MaxTicks: 5}

	var count int
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ticker.Run(ctx, func() { count++ })

	if count != 5 {
		t.Fatalf("fn called %d times, want 5", count)
	}
}

func TestTickerStopsOnContextCancel(t *testing.T) {
	ticker := &Ticker{Hz: 1000}

	var count int
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		ticker.Run(ctx, func() { count++ })
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after context cancellation")
	}
	if count == 0 {
		t.Fatalf("fn was never called before cancellation")
	}
}
