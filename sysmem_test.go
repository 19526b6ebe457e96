package concurmem

import (
	"testing"
	"unsafe"
)

func TestDefaultSystemMemoryAllocWritable(t *testing.T) {
	sys := newDefaultSystemMemory()
	base, err := sys.Alloc(2)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if base == nil {
		t.Fatal("Alloc returned a nil base")
	}

	buf := (*[2 * pageSize]byte)(base)
	buf[0] = 0xAB
	buf[2*pageSize-1] = 0xCD
	if buf[0] != 0xAB || buf[2*pageSize-1] != 0xCD {
		t.Fatal("allocated region is not readable/writable across its full span")
	}

	if err := sys.Free(base, 2); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
}

func TestDefaultSystemMemoryMultipleAllocationsDontOverlap(t *testing.T) {
	sys := newDefaultSystemMemory()
	a, err := sys.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	b, err := sys.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if a == b {
		t.Fatal("two live allocations returned the same base address")
	}
	_ = sys.Free(a, 1)
	_ = sys.Free(b, 1)
}
