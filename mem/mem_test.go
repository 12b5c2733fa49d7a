package mem

import (
	"errors"
	"testing"

	"github.com/richardbraun/x1/kpanic"
)

func setupHeap(t *testing.T, bytes uint) {
	t.Helper()
	HeapBytes = bytes
	Setup()
}

func TestAllocReturnsUsableSlice(t *testing.T) {
	setupHeap(t, 4096)

	buf, err := Alloc(100)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if len(buf) != 100 {
		t.Fatalf("len(buf) = %d, want 100", len(buf))
	}
	for i := range buf {
		buf[i] = byte(i)
	}
	for i := range buf {
		if buf[i] != byte(i) {
			t.Fatalf("buf[%d] = %d, want %d", i, buf[i], byte(i))
		}
	}
}

func TestAllocZeroReturnsNil(t *testing.T) {
	setupHeap(t, 4096)

	buf, err := Alloc(0)
	if err != nil || buf != nil {
		t.Fatalf("Alloc(0) = (%v, %v), want (nil, nil)", buf, err)
	}
}

func TestAllocExhaustion(t *testing.T) {
	setupHeap(t, 256)

	if _, err := Alloc(1024); !errors.Is(err, kpanic.New(kpanic.NoMemory, "")) {
		t.Fatalf("expected NoMemory allocating more than the heap holds, got %v", err)
	}
}

func TestFreeCoalescesNeighbors(t *testing.T) {
	setupHeap(t, 4096)

	countBefore, largestBefore := FreeBlocks()
	if countBefore != 1 {
		t.Fatalf("fresh heap should start as a single free block, got %d", countBefore)
	}

	p1, err := Alloc(16)
	if err != nil {
		t.Fatalf("Alloc p1: %v", err)
	}
	p2, err := Alloc(16)
	if err != nil {
		t.Fatalf("Alloc p2: %v", err)
	}
	p3, err := Alloc(16)
	if err != nil {
		t.Fatalf("Alloc p3: %v", err)
	}

	Free(p1)
	Free(p3)
	Free(p2)

	count, largest := FreeBlocks()
	if count != 1 {
		t.Fatalf("expected all blocks to coalesce into one, got %d free blocks", count)
	}
	if largest != largestBefore {
		t.Fatalf("coalesced free block size = %d, want %d (the original heap size)", largest, largestBefore)
	}
}

func TestAllocAlignment(t *testing.T) {
	setupHeap(t, 4096)

	buf, err := Alloc(3)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	off := offsetOf(buf)
	if off%Align != 0 {
		t.Fatalf("returned offset %d is not %d-byte aligned", off, Align)
	}
}

func TestFreeNilIsNoOp(t *testing.T) {
	setupHeap(t, 4096)
	Free(nil)
}
