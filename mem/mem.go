// Package mem implements the kernel's dynamic memory allocator: a
// first-fit, boundary-tag heap in the style of Knuth's Algorithm A/C
// (TAOCP Volume 1, 2.5), backed by a single fixed-size arena.
//
// The original operates directly on raw pointers: a boundary tag is the
// machine word immediately before and after a block's payload, and a
// free block's payload doubles as the node of an intrusive free list.
// Go has no portable way to overlay a struct on an arbitrary byte
// address, so this port keeps the same layout but addresses it by
// *offset* into a single backing []byte arena instead of by pointer: a
// boundary tag is 8 encoded bytes at a given offset, and a free node is
// 16 encoded bytes (the offsets of the previous and next free blocks) at
// the payload offset of a free block. The algorithm — first-fit search,
// head-insertion free list, bidirectional coalescing, splitting — is
// unchanged; only the representation of "pointer" is.
package mem

import (
	"encoding/binary"
	"sync"
	"unsafe"

	"github.com/richardbraun/x1/kpanic"
)

// Align is the alignment, in bytes, of every address returned by Alloc
// and of every block's offset into the arena.
const Align = 8

// HeapAlign is an exported alias for Align, named to match this
// package's configuration surface alongside HeapBytes. The allocator's
// alignment is intrinsic to its boundary-tag encoding, not independently
// tunable, so unlike HeapBytes it is a constant rather than a var.
const HeapAlign = Align

const tagBytes = 8
const freeNodeBytes = 16

// minBlockSize is the smallest size a block may be: two boundary tags
// plus room for a free node, rounded up to Align.
const minBlockSize = uint64((tagBytes*2 + freeNodeBytes + Align - 1) / Align * Align)

const noOffset = ^uint64(0)

// HeapBytes is the size of the backing arena. It may be changed before
// calling Setup; changing it afterwards has no effect.
var HeapBytes uint = 64 * 1024

var (
	heapMu sync.Mutex
	heap   []byte

	freeHead = noOffset
	freeTail = noOffset
)

func p2round(v, a uint64) uint64 {
	return (v + a - 1) &^ (a - 1)
}

// Setup allocates the backing arena and initializes it as a single free
// block spanning the whole heap. Must be called exactly once, before any
// other function in this package.
func Setup() {
	size := p2round(uint64(HeapBytes), Align)
	heap = make([]byte, size)
	freeHead, freeTail = noOffset, noOffset

	blockInit(0, size)
	freeListAdd(0)
}

func tagGet(off uint64) (size uint64, allocated bool) {
	v := binary.LittleEndian.Uint64(heap[off : off+tagBytes])
	return v &^ 1, v&1 != 0
}

func tagSet(off, size uint64, allocated bool) {
	v := size
	if allocated {
		v |= 1
	}
	binary.LittleEndian.PutUint64(heap[off:off+tagBytes], v)
}

func blockSize(block uint64) uint64 {
	size, _ := tagGet(block)
	return size
}

func blockAllocated(block uint64) bool {
	_, allocated := tagGet(block)
	return allocated
}

func payloadOffset(block uint64) uint64   { return block + tagBytes }
func blockFromPayload(payload uint64) uint64 { return payload - tagBytes }

// blockInit lays out fresh header and footer tags for a block of size
// bytes starting at block, marked allocated (mirroring mem_btag_init,
// which always sets the allocated bit — freeListAdd is what clears it).
func blockInit(block, size uint64) {
	tagSet(block, size, true)
	tagSet(block+size-tagBytes, size, true)
}

func blockSetAllocated(block uint64) {
	size := blockSize(block)
	tagSet(block, size, true)
	tagSet(block+size-tagBytes, size, true)
}

func blockClearAllocated(block uint64) {
	size := blockSize(block)
	tagSet(block, size, false)
	tagSet(block+size-tagBytes, size, false)
}

// blockPrev returns the block immediately preceding block in the arena,
// found via its footer tag, or ok == false if block is the first block.
func blockPrev(block uint64) (uint64, bool) {
	if block == 0 {
		return 0, false
	}
	prevSize, _ := tagGet(block - tagBytes)
	return block - prevSize, true
}

// blockNext returns the block immediately following block, or ok ==
// false if block is the last block in the arena.
func blockNext(block uint64) (uint64, bool) {
	end := block + blockSize(block)
	if end == uint64(len(heap)) {
		return 0, false
	}
	return end, true
}

func freeNodeGet(block uint64) (prev, next uint64) {
	p := payloadOffset(block)
	prev = binary.LittleEndian.Uint64(heap[p : p+8])
	next = binary.LittleEndian.Uint64(heap[p+8 : p+16])
	return
}

func freeNodeSet(block uint64, prev, next uint64) {
	p := payloadOffset(block)
	binary.LittleEndian.PutUint64(heap[p:p+8], prev)
	binary.LittleEndian.PutUint64(heap[p+8:p+16], next)
}

// freeListAdd inserts block at the head of the free list, mirroring the
// original's head-insertion policy.
func freeListAdd(block uint64) {
	kpanic.Assert(blockAllocated(block), "mem: adding a non-allocated block to the free list")
	blockClearAllocated(block)

	old := freeHead
	freeNodeSet(block, noOffset, old)
	if old != noOffset {
		_, oldNext := freeNodeGet(old)
		freeNodeSet(old, block, oldNext)
	}
	freeHead = block
	if freeTail == noOffset {
		freeTail = block
	}
}

func freeListRemove(block uint64) {
	kpanic.Assert(!blockAllocated(block), "mem: removing an allocated block from the free list")

	prev, next := freeNodeGet(block)
	if prev != noOffset {
		pp, _ := freeNodeGet(prev)
		freeNodeSet(prev, pp, next)
	} else {
		freeHead = next
	}
	if next != noOffset {
		_, nn := freeNodeGet(next)
		freeNodeSet(next, prev, nn)
	} else {
		freeTail = prev
	}

	blockSetAllocated(block)
}

// freeListFind performs the O(n) first-fit search.
func freeListFind(size uint64) (uint64, bool) {
	for n := freeHead; n != noOffset; {
		if blockSize(n) >= size {
			return n, true
		}
		_, next := freeNodeGet(n)
		n = next
	}
	return 0, false
}

func blockOverlap(b1, b2 uint64) bool {
	end1 := b1 + blockSize(b1)
	end2 := b2 + blockSize(b2)
	return (b2 >= b1 && b2 < end1) || (b1 >= b2 && b1 < end2)
}

func blockSplit(block, size uint64) (uint64, bool) {
	total := blockSize(block)
	if total < size+minBlockSize {
		return 0, false
	}

	blockInit(block, size)
	block2 := block + size
	blockInit(block2, total-size)
	return block2, true
}

func blockMerge(b1, b2 uint64) (uint64, bool) {
	kpanic.Assert(!blockOverlap(b1, b2), "mem: merging overlapping blocks")

	if blockAllocated(b1) || blockAllocated(b2) {
		return 0, false
	}

	freeListRemove(b1)
	freeListRemove(b2)
	size := blockSize(b1) + blockSize(b2)

	if b1 > b2 {
		b1 = b2
	}
	blockInit(b1, size)
	freeListAdd(b1)
	return b1, true
}

func convertToBlockSize(size uint64) uint64 {
	size = p2round(size, Align)
	size += tagBytes * 2
	if size < minBlockSize {
		size = minBlockSize
	}
	return size
}

// Alloc reserves and returns a zero-length-safe slice of at least size
// bytes, aligned on an Align-byte boundary within the arena. It returns
// a NoMemory error (see kpanic) if no free block is large enough.
//
// Alloc(0) returns a nil slice and no error, mirroring mem_alloc(0).
func Alloc(size uint) ([]byte, error) {
	kpanic.Assert(heap != nil, "mem: Alloc before Setup")

	if size == 0 {
		return nil, nil
	}

	bsize := convertToBlockSize(uint64(size))

	heapMu.Lock()

	block, ok := freeListFind(bsize)
	if !ok {
		heapMu.Unlock()
		return nil, kpanic.New(kpanic.NoMemory, "mem: heap exhausted")
	}

	freeListRemove(block)
	if block2, ok := blockSplit(block, bsize); ok {
		freeListAdd(block2)
	}

	usable := blockSize(block) - tagBytes*2
	p := payloadOffset(block)

	heapMu.Unlock()

	return heap[p : p+uint64(size) : p+usable], nil
}

// offsetOf recovers buf's offset into the heap arena. This is the one
// place this package reaches for unsafe: Go's slices carry no public way
// to ask "where in this backing array am I", and that is exactly what
// Free needs in order to find the boundary tag belonging to buf. The
// pointer arithmetic below never leaves the bounds of the single heap
// allocation buf was carved out of.
func offsetOf(buf []byte) uint64 {
	return uint64(uintptr(unsafe.Pointer(&buf[0])) - uintptr(unsafe.Pointer(&heap[0])))
}

// FreeBlocks returns the number of blocks currently on the free list and
// the size, in bytes, of the largest one. It exists for tests and
// diagnostics; the allocator itself never needs this information.
func FreeBlocks() (count int, largest uint64) {
	heapMu.Lock()
	defer heapMu.Unlock()

	for n := freeHead; n != noOffset; {
		count++
		if s := blockSize(n); s > largest {
			largest = s
		}
		_, next := freeNodeGet(n)
		n = next
	}
	return count, largest
}

// Free releases a slice previously returned by Alloc, merging it with
// either neighboring block that is also free. Free(nil) is a no-op.
func Free(buf []byte) {
	if len(buf) == 0 {
		return
	}

	block := blockFromPayload(offsetOf(buf))
	kpanic.Assert(block < uint64(len(heap)), "mem: freeing a pointer outside the heap")

	heapMu.Lock()

	freeListAdd(block)

	if prev, ok := blockPrev(block); ok {
		if merged, ok := blockMerge(block, prev); ok {
			block = merged
		}
	}
	if next, ok := blockNext(block); ok {
		blockMerge(block, next)
	}

	heapMu.Unlock()
}
