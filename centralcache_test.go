package concurmem

import (
	"testing"
	"unsafe"
)

func TestCentralCacheRemoveRangeGrowsAndCarves(t *testing.T) {
	c := theCentralCache()
	const class = 0
	objSize := classSize(class)

	start, end, actual := c.removeRange(class, 3, objSize)
	if actual == 0 || start == nil || end == nil {
		t.Fatalf("removeRange returned an empty chain: actual=%d", actual)
	}
	if actual > 3 {
		t.Fatalf("removeRange returned more than desired: %d > 3", actual)
	}

	// The chain must be actual objects long and null-terminated.
	n := uintptr(1)
	p := start
	for p != end {
		p = *(*unsafe.Pointer)(p)
		n++
		if p == nil {
			t.Fatal("chain ended before reaching end")
		}
	}
	if n != actual {
		t.Fatalf("chain length = %d, want %d", n, actual)
	}
	if got := *(*unsafe.Pointer)(end); got != nil {
		t.Fatal("chain is not null-terminated at end")
	}
}

func TestCentralCacheInsertRangeReturnsObjects(t *testing.T) {
	c := theCentralCache()
	const class = 1
	objSize := classSize(class)

	start, _, actual := c.removeRange(class, 2, objSize)
	c.insertRange(class, objSize, start)

	// Returning both objects left the span fully free, so insertRange gave
	// it back to the page heap; removeRange must still hand out objects,
	// growing a fresh span.
	_, _, actual2 := c.removeRange(class, actual, objSize)
	if actual2 == 0 {
		t.Fatal("expected insertRange to make objects available again")
	}
}

func TestCentralCacheGrowCarvesUsableChain(t *testing.T) {
	c := theCentralCache()
	objSize := classSize(5)
	span := c.grow(objSize)

	if span.objSize != objSize || !span.inUse {
		t.Fatalf("grow produced an unexpected span: %+v", span)
	}

	count := uintptr(0)
	for p := span.freeList; p != nil; p = *(*unsafe.Pointer)(p) {
		count++
	}
	if count != span.capacity() {
		t.Fatalf("carved free list length = %d, want capacity %d", count, span.capacity())
	}
}
