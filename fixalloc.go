// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package concurmem

import (
	"sync"
	"unsafe"
)

// fixAllocChunkBytes is how much memory objectPool requests from
// SystemMemory at a time, matching the Go runtime's own _FixAllocChunk
// (mfixalloc.go uses 16KiB chunks for MSpan/MCache metadata).
const fixAllocChunkBytes = 16 << 10

// objectPool is a fixed-size slab allocator for allocator metadata
// (spans, radix-tree nodes). It is used exclusively for that metadata:
// it obtains memory directly from a SystemMemory, never through the
// package's own Alloc/Free, which would recurse. Freed objects are
// retained on an internal list and never returned to the OS (spec.md
// §4.5). Memory returned by alloc is not zeroed.
//
// This generalizes the Go runtime's fixalloc (mfixalloc.go) and the
// original ConcurMemPool's ObjectPool<T> (include/ObjectPool.hpp) with
// Go generics so Span and radix-tree nodes can share one implementation.
type objectPool[T any] struct {
	mu    sync.Mutex
	sys   SystemMemory
	size  uintptr
	free  unsafe.Pointer // linked through the first word of each freed T
	chunk unsafe.Pointer
	nrem  uintptr // bytes remaining in chunk
}

func newObjectPool[T any](sys SystemMemory) *objectPool[T] {
	var zero T
	size := unsafe.Sizeof(zero)
	if size < unsafe.Sizeof(uintptr(0)) {
		size = unsafe.Sizeof(uintptr(0))
	}
	return &objectPool[T]{sys: sys, size: size}
}

// alloc returns a pointer to an uninitialized T. The caller's
// responsibility is to initialize the fields it cares about; memory may
// carry stale bytes from a previous tenant.
func (p *objectPool[T]) alloc() *T {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.free != nil {
		v := p.free
		p.free = *(*unsafe.Pointer)(v)
		return (*T)(v)
	}

	if p.nrem < p.size {
		chunkBytes := uintptr(fixAllocChunkBytes)
		if chunkBytes < p.size {
			chunkBytes = p.size
		}
		pages := (chunkBytes + pageSize - 1) / pageSize
		base, err := p.sys.Alloc(pages)
		if err != nil {
			fatalOOM(err)
		}
		p.chunk = base
		p.nrem = pages * pageSize
	}

	v := p.chunk
	p.chunk = unsafe.Pointer(uintptr(p.chunk) + p.size)
	p.nrem -= p.size
	return (*T)(v)
}

// free returns obj to the pool's internal free list.
func (p *objectPool[T]) free(obj *T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	link := unsafe.Pointer(obj)
	*(*unsafe.Pointer)(link) = p.free
	p.free = link
}
