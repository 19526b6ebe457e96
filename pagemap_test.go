package concurmem

import "testing"

func TestPageMapGetUnmapped(t *testing.T) {
	m := newPageMap(testSystemMemory{})
	if got := m.get(12345); got != nil {
		t.Fatalf("get on an unmapped page = %v, want nil", got)
	}
}

func TestPageMapSetGet(t *testing.T) {
	m := newPageMap(testSystemMemory{})
	s := &Span{}
	k := pageID(1 << 20)

	m.ensure(k)
	m.set(k, s)

	if got := m.get(k); got != s {
		t.Fatalf("get(%d) = %v, want %v", k, got, s)
	}
	if got := m.get(k + 1); got != nil {
		t.Fatalf("neighboring page should be unmapped, got %v", got)
	}
}

func TestPageMapSetRangeAndClear(t *testing.T) {
	m := newPageMap(testSystemMemory{})
	s := &Span{}
	start := pageID(7)
	const n = 3000 // spans multiple leaves

	m.setRange(start, n, s)
	for i := uintptr(0); i < n; i++ {
		if got := m.get(start + pageID(i)); got != s {
			t.Fatalf("page %d not mapped to span after setRange", start+pageID(i))
		}
	}

	m.clear(start)
	if got := m.get(start); got != nil {
		t.Fatal("clear did not unmap the page")
	}
	if got := m.get(start + 1); got != s {
		t.Fatal("clear affected a neighboring page")
	}
}

func TestPageMapCrossesInteriorBoundary(t *testing.T) {
	m := newPageMap(testSystemMemory{})
	s := &Span{}
	// One page per interior node's worth of leaf coverage, to exercise a
	// second pmMid allocation.
	k := pageID(pmLeafLen) * pageID(pmInteriorLen)
	m.ensure(k)
	m.set(k, s)
	if got := m.get(k); got != s {
		t.Fatal("set/get across an interior boundary failed")
	}
}
