package concurmem

import (
	"testing"
	"unsafe"
)

// testSystemMemory is a deterministic SystemMemory for tests: it backs
// every allocation with a fresh Go slice instead of a real OS mapping.
type testSystemMemory struct{}

func (testSystemMemory) Alloc(pages uintptr) (unsafe.Pointer, error) {
	buf := make([]byte, pages*pageSize)
	return unsafe.Pointer(&buf[0]), nil
}

func (testSystemMemory) Free(unsafe.Pointer, uintptr) error { return nil }

type fixallocPayload struct {
	a, b uintptr
}

func TestObjectPoolAllocUnique(t *testing.T) {
	p := newObjectPool[fixallocPayload](testSystemMemory{})
	seen := map[*fixallocPayload]bool{}
	for i := 0; i < 5000; i++ {
		obj := p.alloc()
		if seen[obj] {
			t.Fatalf("alloc returned the same address twice at i=%d", i)
		}
		seen[obj] = true
	}
}

func TestObjectPoolFreeReuse(t *testing.T) {
	p := newObjectPool[fixallocPayload](testSystemMemory{})
	a := p.alloc()
	p.free(a)
	b := p.alloc()
	if a != b {
		t.Fatalf("alloc after free should reuse the freed slot: got %p, want %p", b, a)
	}
}

func TestObjectPoolSpansChunks(t *testing.T) {
	p := newObjectPool[fixallocPayload](testSystemMemory{})
	perChunk := fixAllocChunkBytes / unsafe.Sizeof(fixallocPayload{})
	for i := uintptr(0); i < perChunk+10; i++ {
		p.alloc()
	}
}
