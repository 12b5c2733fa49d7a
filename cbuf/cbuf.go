// Package cbuf implements a power-of-two circular byte buffer, used by
// drivers that bridge interrupt-delivered bytes into sleeping readers (see
// driver/serial).
package cbuf

import "github.com/richardbraun/x1/kpanic"

// Buffer is a circular byte buffer over a fixed-capacity backing array.
// Start and End are absolute, ever-increasing indexes (they may wrap around
// the uint64 range in theory, never in practice); their difference never
// exceeds capacity. The zero value is not usable; call Init first.
type Buffer struct {
	buf   []byte
	start uint64
	end   uint64
}

// Init sets b to use storage for its backing array. len(storage) must be a
// power of two.
func Init(b *Buffer, storage []byte) {
	kpanic.Assert(len(storage) > 0 && (len(storage)&(len(storage)-1)) == 0,
		"cbuf: capacity must be a power of two")
	b.buf = storage
	b.start = 0
	b.end = 0
}

// Capacity returns the size of the backing array.
func (b *Buffer) Capacity() int {
	return len(b.buf)
}

// Size returns the number of bytes currently stored.
func (b *Buffer) Size() uint64 {
	return b.end - b.start
}

// Clear empties the buffer without touching its backing storage.
func (b *Buffer) Clear() {
	b.start = b.end
}

func (b *Buffer) index(i uint64) int {
	return int(i & uint64(len(b.buf)-1))
}

// PushByte appends a single byte. If the buffer is full and erase is
// false, a kpanic.Busy error is returned and the buffer is unchanged.
// If erase is true, the oldest byte is discarded to make room.
func (b *Buffer) PushByte(c byte, erase bool) error {
	if b.Size() == uint64(len(b.buf)) {
		if !erase {
			return kpanic.New(kpanic.Busy, "cbuf: full")
		}
		b.start++
	}

	b.buf[b.index(b.end)] = c
	b.end++
	return nil
}

// PopByte removes and returns the oldest byte. If the buffer is empty,
// a kpanic.Busy error is returned.
func (b *Buffer) PopByte() (byte, error) {
	if b.Size() == 0 {
		return 0, kpanic.New(kpanic.Busy, "cbuf: empty")
	}
	c := b.buf[b.index(b.start)]
	b.start++
	return c, nil
}

// Push appends data. If erase is false and there isn't enough room for all
// of data, a kpanic.Busy error is returned and the buffer is left unchanged; if erase
// is true, the oldest bytes are discarded as needed to make room for the
// whole of data.
func (b *Buffer) Push(data []byte, erase bool) error {
	if len(data) > len(b.buf) {
		if !erase {
			return kpanic.New(kpanic.Busy, "cbuf: data larger than capacity")
		}
		data = data[len(data)-len(b.buf):]
	}

	free := uint64(len(b.buf)) - b.Size()
	if uint64(len(data)) > free {
		if !erase {
			return kpanic.New(kpanic.Busy, "cbuf: not enough room")
		}
		b.start += uint64(len(data)) - free
	}

	for _, c := range data {
		b.buf[b.index(b.end)] = c
		b.end++
	}
	return nil
}

// Pop transfers up to len(out) bytes into out, returning the number of
// bytes actually copied. If the buffer is empty, a kpanic.Busy error is
// returned.
func (b *Buffer) Pop(out []byte) (int, error) {
	if b.Size() == 0 {
		return 0, kpanic.New(kpanic.Busy, "cbuf: empty")
	}

	n := len(out)
	if uint64(n) > b.Size() {
		n = int(b.Size())
	}

	for i := 0; i < n; i++ {
		out[i] = b.buf[b.index(b.start)]
		b.start++
	}
	return n, nil
}
