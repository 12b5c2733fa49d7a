package arch

import (
	"testing"
	"time"
)

func TestForgeParksUntilResumed(t *testing.T) {
	ran := make(chan struct{})
	c := Forge(func() {
		close(ran)
	}, 4096)

	select {
	case <-ran:
		t.Fatalf("forged context ran before being resumed")
	case <-time.After(10 * time.Millisecond):
	}

	c.Resume()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("forged context did not run after Resume")
	}
}

func TestResumeWithoutPauseIsQueued(t *testing.T) {
	c := Bootstrap()
	c.Resume()

	done := make(chan struct{})
	go func() {
		c.Pause()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Pause did not observe the earlier queued Resume")
	}
}

func TestSwitchHandsOffBetweenContexts(t *testing.T) {
	prev := Bootstrap()
	var order []string

	next := Forge(func() {
		order = append(order, "next")
		prev.Resume()
	}, 4096)

	order = append(order, "prev-before")
	Switch(prev, next)
	order = append(order, "prev-after")

	want := []string{"prev-before", "next", "prev-after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestIntrSaveRestoreRoundTrip(t *testing.T) {
	IntrEnable()
	if !IntrEnabled() {
		t.Fatalf("expected interrupts enabled after IntrEnable")
	}

	s := IntrSave()
	if IntrEnabled() {
		t.Fatalf("IntrSave should disable interrupts")
	}
	IntrRestore(s)
	if !IntrEnabled() {
		t.Fatalf("IntrRestore should restore the previously-enabled state")
	}

	IntrDisable()
	s2 := IntrSave()
	if IntrEnabled() {
		t.Fatalf("interrupts should still read disabled")
	}
	IntrRestore(s2)
	if IntrEnabled() {
		t.Fatalf("IntrRestore should restore the previously-disabled state")
	}
	IntrEnable()
}

func TestIdleReturns(t *testing.T) {
	done := make(chan struct{})
	go func() {
		Idle()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Idle did not return")
	}
}
