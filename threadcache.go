// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package concurmem

import (
	"runtime"
	"sync"
	"unsafe"
)

// threadFreeList is one size class's singly-linked free list together
// with its slow-start counters (spec.md §4.2).
type threadFreeList struct {
	head      unsafe.Pointer
	length    uintptr
	maxLength uintptr
}

// threadCache is a per-accessor set of free lists. It has no internal
// locking: the pooling discipline below (threadCachePool) guarantees an
// instance is never accessed by two goroutines at once, which is what
// lets every operation here run lock-free (spec.md §4.2, §5).
//
// Grounded on runtime/mcache.go's per-P free lists and
// original_source/src/ThreadCache.cpp's Allocate/Deallocate, with the
// slow-start batching spec.md adds on top of that reference.
type threadCache struct {
	lists [numSizeClasses]threadFreeList
}

func newThreadCache() *threadCache {
	t := &threadCache{}
	for i := range t.lists {
		t.lists[i].maxLength = 1
	}
	return t
}

// allocate implements ThreadCache.allocate (spec.md §4.2).
func (t *threadCache) allocate(n uintptr) unsafe.Pointer {
	class := classIndex(n)
	l := &t.lists[class]
	if l.head == nil {
		t.fetchBatch(class, roundUp(n))
	}
	obj := l.head
	l.head = *(*unsafe.Pointer)(obj)
	l.length--
	return obj
}

// deallocate implements ThreadCache.deallocate (spec.md §4.2).
func (t *threadCache) deallocate(ptr unsafe.Pointer, objSize uintptr) {
	class := classIndex(objSize)
	l := &t.lists[class]
	*(*unsafe.Pointer)(ptr) = l.head
	l.head = ptr
	l.length++
	if l.length >= l.maxLength {
		t.releaseBatch(class, objSize)
	}
}

// fetchBatch implements ThreadCache.fetch_batch, including the
// slow-start growth of max_length (spec.md §4.2).
func (t *threadCache) fetchBatch(class int, objSize uintptr) {
	l := &t.lists[class]

	desired := objectsPerBatch(objSize)
	if desired > l.maxLength {
		desired = l.maxLength
	}
	if desired == l.maxLength {
		l.maxLength++
	}

	start, _, actual := theCentralCache().removeRange(class, desired, objSize)
	l.head = start
	l.length += actual
}

// releaseBatch implements ThreadCache.release_batch (spec.md §4.2).
func (t *threadCache) releaseBatch(class int, objSize uintptr) {
	l := &t.lists[class]

	n := l.maxLength
	if n > l.length {
		n = l.length
	}
	if n == 0 {
		return
	}

	start := l.head
	end := start
	for i := uintptr(1); i < n; i++ {
		end = *(*unsafe.Pointer)(end)
	}
	l.head = *(*unsafe.Pointer)(end)
	*(*unsafe.Pointer)(end) = nil
	l.length -= n

	theCentralCache().insertRange(class, objSize, start)
}

// drain flushes every non-empty free list to the central cache. Called
// by DrainAll, and by the finalizer set on each pooled cache (which does
// not run while the cache is registered; see threadCachePool).
func (t *threadCache) drain() {
	for class := range t.lists {
		l := &t.lists[class]
		if l.head == nil {
			continue
		}
		theCentralCache().insertRange(class, classSize(class), l.head)
		l.head = nil
		l.length = 0
	}
}

// Go has no per-OS-thread destructor hook to mirror the original
// design's thread_local ThreadCache (spec.md §9's "Thread-local state").
// Instead, threadCaches are borrowed from a sync.Pool: Get/Put already
// guarantees an item is owned by exactly one goroutine at a time, which
// is the only property the lock-free fast path above actually needs.
// Every cache handed out by the pool is also registered so DrainAll can
// flush outstanding objects at shutdown, and carries a finalizer that
// drains it. The registry holds a reference to every cache, so a cache
// the pool drops during GC stays reachable, its finalizer does not run,
// and its objects stay with it until DrainAll.
var threadCachePool = sync.Pool{
	New: func() any {
		t := newThreadCache()
		registerThreadCache(t)
		runtime.SetFinalizer(t, func(t *threadCache) {
			unregisterThreadCache(t)
			t.drain()
		})
		return t
	},
}

var (
	threadCacheRegistryMu sync.Mutex
	threadCacheRegistry   = map[*threadCache]struct{}{}
)

func registerThreadCache(t *threadCache) {
	threadCacheRegistryMu.Lock()
	threadCacheRegistry[t] = struct{}{}
	threadCacheRegistryMu.Unlock()
}

func unregisterThreadCache(t *threadCache) {
	threadCacheRegistryMu.Lock()
	delete(threadCacheRegistry, t)
	threadCacheRegistryMu.Unlock()
}

// acquireThreadCache borrows a cache for the duration of a single
// Alloc/Free call.
func acquireThreadCache() *threadCache {
	return threadCachePool.Get().(*threadCache)
}

func releaseThreadCache(t *threadCache) {
	threadCachePool.Put(t)
}

// DrainAll flushes every registered thread cache's outstanding objects
// to the central cache. Call it before process shutdown on platforms
// where finalizers are not guaranteed to run (spec.md §9).
func DrainAll() {
	threadCacheRegistryMu.Lock()
	caches := make([]*threadCache, 0, len(threadCacheRegistry))
	for t := range threadCacheRegistry {
		caches = append(caches, t)
	}
	threadCacheRegistryMu.Unlock()

	for _, t := range caches {
		t.drain()
	}
}
