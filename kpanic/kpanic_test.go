package kpanic

import (
	"errors"
	"testing"
)

func TestErrorIs(t *testing.T) {
	err := New(NoMemory, "heap exhausted")
	if !errors.Is(err, New(NoMemory, "")) {
		t.Fatalf("expected NoMemory errors to match via errors.Is")
	}
	if errors.Is(err, New(Busy, "")) {
		t.Fatalf("did not expect NoMemory to match Busy")
	}
}

func TestErrorMessage(t *testing.T) {
	err := New(InvalidArgument, "size must be nonzero")
	want := "invalid argument: size must be nonzero"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	bare := New(Busy, "")
	if got := bare.Error(); got != "busy" {
		t.Fatalf("Error() with empty msg = %q, want %q", got, "busy")
	}
}

func TestAssertDoesNotPanicOnSuccess(t *testing.T) {
	Assert(true, "should never fire")
}

// TestFatalPathPanicsOnce exercises Assert's failure path through the
// single shared halt action. haltOnce fires exactly once for
// the lifetime of the process (a kernel only halts once), so this is the
// only test in the package allowed to actually trigger it.
func TestFatalPathPanicsOnce(t *testing.T) {
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected Assert(false, ...) to panic")
			}
		}()
		Assert(false, "unreachable")
	}()
}
