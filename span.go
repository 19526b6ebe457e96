// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package concurmem

import "unsafe"

// pageID is a page number: address >> pageShift.
type pageID uintptr

// Span is a contiguous run of pages, carved into fixed-size objects or
// handed out whole (spec.md §3). Span metadata never lives inside the
// memory the span describes; it is allocated from the metadata pool
// (fixalloc.go) so its address is stable across the allocator's
// lifetime.
type Span struct {
	next, prev *Span    // intrusive doubly-linked-list pointers
	list       *spanList // list currently holding this span, or nil

	start pageID  // first page number
	pages uintptr // page_count

	objSize  uintptr        // 0 if not carved into objects
	useCount uint32         // objects handed out, not on freeList
	freeList unsafe.Pointer // singly linked free objects, threaded through the first word

	inUse bool // true while owned by the central cache or handed out whole
}

// base returns the span's starting address.
func (s *Span) base() uintptr {
	return uintptr(s.start) << pageShift
}

// limit returns the address just past the span.
func (s *Span) limit() uintptr {
	return s.base() + s.pages*pageSize
}

// capacity returns how many objSize objects fit in the span.
func (s *Span) capacity() uintptr {
	if s.objSize == 0 {
		return 0
	}
	return (s.pages << pageShift) / s.objSize
}

// freeListLen walks the span's free list and counts it. Used only by
// invariant checks and tests; never on a hot path.
func (s *Span) freeListLen() int {
	n := 0
	for p := s.freeList; p != nil; p = *(*unsafe.Pointer)(p) {
		n++
	}
	return n
}

// pushFree pushes obj onto the span's free list.
func (s *Span) pushFree(obj unsafe.Pointer) {
	*(*unsafe.Pointer)(obj) = s.freeList
	s.freeList = obj
}

// popFree pops and returns the head of the span's free list, or nil.
func (s *Span) popFree() unsafe.Pointer {
	obj := s.freeList
	if obj != nil {
		s.freeList = *(*unsafe.Pointer)(obj)
	}
	return obj
}

// spanList heads a doubly linked list of spans (either a central cache's
// per-size-class list or a page heap's per-length list). A span is on
// exactly one list at a time (spec.md §3 invariant 3).
type spanList struct {
	first *Span
	last  *Span
}

func (l *spanList) init() {
	l.first = nil
	l.last = nil
}

func (l *spanList) empty() bool { return l.first == nil }

// insertFront pushes s to the head of the list.
func (l *spanList) insertFront(s *Span) {
	if s.list != nil {
		throw("concurmem: span already on a list")
	}
	s.prev = nil
	s.next = l.first
	if l.first != nil {
		l.first.prev = s
	} else {
		l.last = s
	}
	l.first = s
	s.list = l
}

// insertBack appends s to the tail of the list.
func (l *spanList) insertBack(s *Span) {
	if s.list != nil {
		throw("concurmem: span already on a list")
	}
	s.next = nil
	s.prev = l.last
	if l.last != nil {
		l.last.next = s
	} else {
		l.first = s
	}
	l.last = s
	s.list = l
}

// remove unlinks s from the list it is on.
func (l *spanList) remove(s *Span) {
	if s.list != l {
		throw("concurmem: span not on expected list")
	}
	if s.prev != nil {
		s.prev.next = s.next
	} else {
		l.first = s.next
	}
	if s.next != nil {
		s.next.prev = s.prev
	} else {
		l.last = s.prev
	}
	s.next, s.prev, s.list = nil, nil, nil
}

// popFront unlinks and returns the first span, or nil if the list is empty.
func (l *spanList) popFront() *Span {
	s := l.first
	if s != nil {
		l.remove(s)
	}
	return s
}
