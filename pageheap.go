// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package concurmem

import (
	"sync"
	"unsafe"
)

// pageHeap owns all virtual memory obtained from the OS. It serves span
// requests by page count, splits and coalesces spans, and maintains the
// page -> span reverse map (spec.md §4.4).
//
// Grounded on runtime/mheap.go's allocSpanLocked/freeSpanLocked/grow and
// original_source/src/PageHeap.cpp's New/Delete/ObjectToSpan.
type pageHeap struct {
	mu    sync.Mutex
	free  [pageNum + 1]spanList // idle spans, indexed by exact page count
	spans *objectPool[Span]
	pages *pageMap
	sys   SystemMemory
}

var (
	pageHeapOnce sync.Once
	pageHeapInst *pageHeap
)

func thePageHeap() *pageHeap {
	pageHeapOnce.Do(func() {
		sys := resolveSystemMemory()
		h := &pageHeap{sys: sys}
		h.spans = newObjectPool[Span](sys)
		h.pages = newPageMap(sys)
		for i := range h.free {
			h.free[i].init()
		}
		pageHeapInst = h
	})
	return pageHeapInst
}

func resolveSystemMemory() SystemMemory {
	configureMu.Lock()
	defer configureMu.Unlock()
	if pendingSystemMemory != nil {
		return pendingSystemMemory
	}
	return newDefaultSystemMemory()
}

// New returns a span of exactly pages pages, marked in use (spec.md
// §4.4). It takes the page heap lock itself; callers must not already
// hold it.
func (h *pageHeap) New(pages uintptr) *Span {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.newLocked(pages)
}

// newLocked implements PageHeap.new. The caller must hold h.mu.
func (h *pageHeap) newLocked(pages uintptr) *Span {
	if pages == 0 {
		throw("concurmem: zero-page span request")
	}

	if pages > pageNum {
		base, err := h.sys.Alloc(pages)
		if err != nil {
			fatalOOM(err)
		}
		s := h.spans.alloc()
		*s = Span{start: pageID(uintptr(base) >> pageShift), pages: pages, inUse: true}
		h.pages.setRange(s.start, s.pages, s)
		return s
	}

	if !h.free[pages].empty() {
		s := h.free[pages].popFront()
		s.inUse = true
		h.pages.setRange(s.start, s.pages, s)
		return s
	}

	for n := pages + 1; n <= pageNum; n++ {
		if h.free[n].empty() {
			continue
		}
		big := h.free[n].popFront()

		k := h.spans.alloc()
		*k = Span{start: big.start, pages: pages, inUse: true}
		h.pages.setRange(k.start, k.pages, k)

		big.start += pageID(pages)
		big.pages -= pages
		h.free[big.pages].insertFront(big)
		h.pages.ensure(big.start)
		h.pages.set(big.start, big)
		h.pages.ensure(big.start + pageID(big.pages) - 1)
		h.pages.set(big.start+pageID(big.pages)-1, big)

		return k
	}

	// Nothing big enough is idle: pull a fresh PAGE_NUM-page span from
	// the OS and recurse into the splitting path exactly once.
	base, err := h.sys.Alloc(pageNum)
	if err != nil {
		fatalOOM(err)
	}
	huge := h.spans.alloc()
	*huge = Span{start: pageID(uintptr(base) >> pageShift), pages: pageNum}
	h.pages.ensure(huge.start)
	h.pages.set(huge.start, huge)
	h.pages.ensure(huge.start + pageID(huge.pages) - 1)
	h.pages.set(huge.start+pageID(huge.pages)-1, huge)
	h.free[pageNum].insertFront(huge)
	return h.newLocked(pages)
}

// Delete returns span to the page heap, coalescing with idle neighbors.
// Precondition: span.inUse && span.useCount == 0 (spec.md §4.4).
func (h *pageHeap) Delete(span *Span) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleteLocked(span)
}

func (h *pageHeap) deleteLocked(span *Span) {
	assert(span.inUse, "delete of a span not in use")
	assert(span.useCount == 0, "delete of a span with outstanding objects")

	if span.pages > pageNum {
		if err := h.sys.Free(unsafe.Pointer(span.base()), span.pages); err != nil {
			fatalOOM(err)
		}
		for i := uintptr(0); i < span.pages; i++ {
			h.pages.clear(span.start + pageID(i))
		}
		h.spans.free(span)
		return
	}

	for {
		prev := h.pages.get(span.start - 1)
		if prev == nil || prev.inUse || prev.pages+span.pages > pageNum {
			break
		}
		h.free[prev.pages].remove(prev)
		h.pages.clear(prev.start)
		h.pages.clear(prev.start + pageID(prev.pages) - 1)
		span.start = prev.start
		span.pages += prev.pages
		h.spans.free(prev)
	}

	for {
		next := h.pages.get(span.start + pageID(span.pages))
		if next == nil || next.inUse || next.pages+span.pages > pageNum {
			break
		}
		h.free[next.pages].remove(next)
		h.pages.clear(next.start)
		h.pages.clear(next.start + pageID(next.pages) - 1)
		span.pages += next.pages
		h.spans.free(next)
	}

	span.inUse = false
	span.useCount = 0
	span.objSize = 0
	span.freeList = nil

	h.pages.ensure(span.start)
	h.pages.set(span.start, span)
	h.pages.ensure(span.start + pageID(span.pages) - 1)
	h.pages.set(span.start+pageID(span.pages)-1, span)

	h.free[span.pages].insertFront(span)
}

// ObjectToSpan resolves ptr to its owning span, or nil.
func (h *pageHeap) ObjectToSpan(ptr unsafe.Pointer) *Span {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pages.get(pageID(uintptr(ptr) >> pageShift))
}
