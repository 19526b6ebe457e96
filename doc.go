// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package concurmem is a thread-caching, size-classed memory allocator
// in the tcmalloc family: a per-goroutine front cache, a process-wide
// central cache of carved spans, and a page heap that owns all memory
// obtained from the operating system.
//
// Configure, if used at all, must run before the first Alloc or Free;
// the central cache and page heap singletons latch their configuration
// on first use.
package concurmem

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Alloc returns a pointer to at least n bytes, or fails fatally if the
// system is out of memory (spec.md §4.6). The three-tier routing below
// mirrors original_source/src/ConcurAlloc.cpp's ConcurAlloc:
//
//   - n <= MAX_BYTES is served by the calling goroutine's thread cache.
//   - n above that is served directly by the page heap, which itself
//     falls through to a direct OS mapping once the request exceeds
//     PAGE_NUM pages (pageheap.go's newLocked), so there is no separate
//     "huge allocation" tier here.
func Alloc(n uintptr) unsafe.Pointer {
	// n == 0 is a defined boundary case (spec.md §8), not misuse: it
	// rounds up to the smallest size class the same as any other n.
	if n <= maxBytes {
		t := acquireThreadCache()
		ptr := t.allocate(n)
		releaseThreadCache(t)
		return ptr
	}

	pages := pagesFor(n)
	span := thePageHeap().New(pages)
	return unsafe.Pointer(span.base())
}

// Free releases a pointer previously returned by Alloc. The object's
// size is always recovered from its span, never taken from the caller
// (spec.md's resolved Open Question on the Free signature).
func Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	span := thePageHeap().ObjectToSpan(ptr)
	if span == nil {
		fatal(Misuse, errors.New("concurmem: Free of an unknown pointer"))
		return
	}

	if span.objSize == 0 {
		thePageHeap().Delete(span)
		return
	}

	t := acquireThreadCache()
	t.deallocate(ptr, span.objSize)
	releaseThreadCache(t)
}

// pagesFor returns how many pages are needed to cover n bytes, for
// requests large enough to bypass size classes entirely.
func pagesFor(n uintptr) uintptr {
	return (n + pageSize - 1) >> pageShift
}
