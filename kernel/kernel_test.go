package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/richardbraun/x1/mem"
	"github.com/richardbraun/x1/sched"
)

// fakeConsole records every byte written to it, standing in for a real
// board.ConsoleSink.
type fakeConsole struct {
	bytes []byte
}

func (c *fakeConsole) WriteByte(b byte) error {
	c.bytes = append(c.bytes, b)
	return nil
}

// fakeTicks calls fn once per Go tick rather than a real hardware timer,
// stopping as soon as ctx is cancelled.
type fakeTicks struct{}

func (fakeTicks) Run(ctx context.Context, fn func()) {
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// TestSetupAndRun exercises the whole bring-up path exactly once: Setup
// panics on a second call (it guards global, process-wide state), so
// this is the only test in the package that calls it successfully;
// TestSetupTwiceFatals relies on it having run first.
func TestSetupAndRun(t *testing.T) {
	mem.HeapBytes = 1 << 20
	console := &fakeConsole{}
	Setup(console)

	if Console() != console {
		t.Fatalf("Console() did not return the sink passed to Setup")
	}

	result := make(chan int, 1)
	_, err := sched.Create(func(arg any) {
		counter := 0
		for i := 0; i < 100; i++ {
			counter++
			sched.Yield()
		}
		result <- counter
	}, nil, "probe", sched.MinStackBytes, sched.MaxPriority)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Run(ctx, fakeTicks{})

	select {
	case got := <-result:
		if got != 100 {
			t.Fatalf("counter = %d, want 100", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("probe thread never completed")
	}
}

func TestSetupTwiceFatals(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("a second Setup call should panic")
		}
	}()
	Setup(nil)
}
