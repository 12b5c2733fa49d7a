// Package serial implements a minimal line discipline over a
// board.ConsoleSink: a receive-side circular byte buffer fed through
// HandleRX, and threads blocking to read from it
// wake through a condition variable rather than polling. This is the
// worked example of cbuf and sched/ksync integrating, the way a real
// UART driver's ISR hands bytes to a sleeping reader.
package serial

import (
	"github.com/richardbraun/x1/board"
	"github.com/richardbraun/x1/cbuf"
	"github.com/richardbraun/x1/kpanic"
	"github.com/richardbraun/x1/ksync"
)

// RXBufferSize is the capacity of the receive buffer; must be a power
// of two (cbuf's requirement).
const RXBufferSize = 256

// Port is a serial port: writes go straight to the underlying sink,
// unbuffered; reads block until a byte is available in the receive
// buffer.
type Port struct {
	sink board.ConsoleSink

	mu  *ksync.Mutex
	cv  *ksync.CondVar
	rx  cbuf.Buffer
	buf []byte
}

// NewPort returns a Port writing to sink. Feed received bytes to it
// with HandleRX.
func NewPort(sink board.ConsoleSink) *Port {
	p := &Port{
		sink: sink,
		mu:   ksync.NewMutex(),
		cv:   ksync.NewCondVar(),
		buf:  make([]byte, RXBufferSize),
	}
	cbuf.Init(&p.rx, p.buf)
	return p
}

// WriteByte writes a single byte to the underlying sink.
func (p *Port) WriteByte(b byte) error {
	return p.sink.WriteByte(b)
}

// WriteString writes s to the underlying sink one byte at a time,
// stopping at the first error.
func (p *Port) WriteString(s string) error {
	for i := 0; i < len(s); i++ {
		if err := p.WriteByte(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// HandleRX delivers one received byte to the port's receive buffer and
// wakes any thread blocked in Read. It plays the role of a UART RX
// interrupt handler, but it takes the port's ksync.Mutex, so it must be
// called from a scheduled thread, not from a tick source or any other
// goroutine outside the scheduler. If the receive buffer is full, the
// new byte overwrites the oldest one rather than being dropped, matching
// a typical overrun-tolerant UART ring buffer.
func (p *Port) HandleRX(b byte) {
	p.mu.Lock()
	_ = p.rx.PushByte(b, true)
	p.cv.Signal()
	p.mu.Unlock()
}

// Read blocks until at least one byte is available, then copies up to
// len(out) received bytes into out and returns how many were copied.
func (p *Port) Read(out []byte) int {
	kpanic.Assert(len(out) > 0, "serial: Read called with empty buffer")

	p.mu.Lock()
	for p.rx.Size() == 0 {
		p.cv.Wait(p.mu)
	}
	n, _ := p.rx.Pop(out)
	p.mu.Unlock()

	return n
}

// Available reports how many received bytes are currently buffered.
func (p *Port) Available() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rx.Size()
}
