// Package kpanic implements the fatal-error taxonomy shared by every other
// package in this module: recoverable errors are returned as plain errors,
// contract violations are reported through Assert/Fatalf.
//
// This package has no internal dependencies so that every other package,
// including the lowest-level ones, can report contract violations without
// creating an import cycle.
package kpanic

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Kind distinguishes the small set of recoverable error conditions a
// caller is expected to handle without the kernel aborting.
type Kind int

const (
	// NoMemory is returned when the allocator cannot satisfy a request.
	NoMemory Kind = iota
	// Busy is returned by non-blocking operations that would otherwise block.
	Busy
	// InvalidArgument is returned when a caller-supplied argument violates
	// a documented precondition that is cheap to check at the boundary.
	InvalidArgument
)

func (k Kind) String() string {
	switch k {
	case NoMemory:
		return "no memory"
	case Busy:
		return "busy"
	case InvalidArgument:
		return "invalid argument"
	default:
		return "unknown error"
	}
}

// Error is the concrete error type returned for recoverable conditions.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// New builds a recoverable error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Is reports whether err carries the given Kind, for use with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sink receives diagnostic lines written by Assert/Fatalf before halting.
// It is installed once, at startup, by kernel.Setup (the console sink
// doubles as the diagnostic log — see SPEC_FULL.md §4.7).
type Sink interface {
	WriteByte(b byte) error
}

var (
	sink     atomic.Value // Sink
	halt     atomic.Value // func()
	haltOnce sync.Once
)

// SetSink installs the diagnostic output sink. Safe to call once during
// board bring-up; later calls are ignored, matching the "no
// re-initialization of globals" discipline used throughout this module.
func SetSink(s Sink) {
	sink.CompareAndSwap(nil, s)
}

// SetHalt overrides the action taken after a fatal diagnostic is written.
// Without an override the action is a Go panic carrying the diagnostic,
// which tests recover to assert on; nothing in this module installs an
// override.
func SetHalt(fn func()) {
	halt.Store(fn)
}

func writeLine(prefix, msg string) {
	v := sink.Load()
	s, _ := v.(Sink)
	if s == nil {
		return
	}
	for _, b := range []byte(prefix + msg + "\n") {
		_ = s.WriteByte(b)
	}
}

// Assert reports a fatal contract violation if cond is false. There is no
// recoverable path from a failed assertion: callers pass violated
// invariants, not user input.
func Assert(cond bool, msg string) {
	if cond {
		return
	}
	fatal("assert failed: " + msg)
}

// Fatalf reports an unconditional fatal diagnostic, formatted like fmt.Sprintf.
func Fatalf(format string, args ...any) {
	fatal(fmt.Sprintf(format, args...))
}

func fatal(msg string) {
	writeLine("[x1] panic: ", msg)
	haltOnce.Do(func() {
		v := halt.Load()
		if fn, ok := v.(func()); ok && fn != nil {
			fn()
			return
		}
		panic(msg)
	})
	// halt should never return; if it does (a misbehaving override), block
	// forever rather than let a fatal path fall through into caller code.
	select {}
}
