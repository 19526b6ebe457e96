// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package concurmem

// Size classes.
//
// Sizes are split into five contiguous bands, each with its own
// alignment, chosen so that rounding a request up to the next size
// class wastes at most ~10% of the object. All objects in a class
// share one alignment; the class index accumulates the class counts
// of the bands below it.
//
//	[1, 128]            align 8     classes   0..15  (16 classes)
//	[129, 1024]         align 16    classes  16..71  (56 classes)
//	[1025, 8192]        align 128   classes  72..127 (56 classes)
//	[8193, 65536]       align 1024  classes 128..183 (56 classes)
//	[65537, 262144]     align 8192  classes 184..207 (24 classes)
const (
	pageShift      = 13
	pageSize       = 1 << pageShift
	maxBytes       = 256 << 10 // MAX_BYTES
	pageNum        = 128       // PAGE_NUM: max pages served from the page heap's length lists
	numSizeClasses = 208       // LIST_NUM
)

type sizeBand struct {
	upper      uintptr // inclusive upper bound of the band, in bytes
	lowerBound uintptr // previous band's upper bound (0 for the first band)
	alignShift uint    // log2 of the band's alignment
	classStart int     // cumulative class count of prior bands
}

var sizeBands = [5]sizeBand{
	{upper: 128, lowerBound: 0, alignShift: 3, classStart: 0},
	{upper: 1024, lowerBound: 128, alignShift: 4, classStart: 16},
	{upper: 8 << 10, lowerBound: 1024, alignShift: 7, classStart: 72},
	{upper: 64 << 10, lowerBound: 8 << 10, alignShift: 10, classStart: 128},
	{upper: 256 << 10, lowerBound: 64 << 10, alignShift: 13, classStart: 184},
}

// bandFor returns the band covering n. Callers must ensure n <= maxBytes;
// sizes above that bypass size classes entirely (spec.md §3, §6).
func bandFor(n uintptr) sizeBand {
	for _, b := range sizeBands {
		if n <= b.upper {
			return b
		}
	}
	throw("concurmem: size exceeds maxBytes")
	return sizeBand{}
}

// roundUp rounds n up to the alignment of its size class.
func roundUp(n uintptr) uintptr {
	if n == 0 {
		n = 1
	}
	b := bandFor(n)
	align := uintptr(1) << b.alignShift
	return (n + align - 1) &^ (align - 1)
}

// classIndex returns the size class index for n, 0 <= index < numSizeClasses.
func classIndex(n uintptr) int {
	if n == 0 {
		n = 1
	}
	b := bandFor(n)
	align := uintptr(1) << b.alignShift
	rel := n - b.lowerBound
	return int((rel+align-1)>>b.alignShift) - 1 + b.classStart
}

// classSize returns the object size handed out for class c (the upper
// bound of whatever sub-range of the band maps to c). It is computed by
// rounding the smallest byte count that maps to c.
func classSize(c int) uintptr {
	for _, b := range sizeBands {
		count := classCountInBand(b)
		if c < b.classStart+count {
			within := uintptr(c - b.classStart)
			align := uintptr(1) << b.alignShift
			return b.lowerBound + (within+1)*align
		}
	}
	throw("concurmem: invalid size class")
	return 0
}

func classCountInBand(b sizeBand) int {
	align := uintptr(1) << b.alignShift
	return int((b.upper - b.lowerBound) / align)
}

// objectsPerBatch returns how many objects move between the thread cache
// and the central cache per refill/release, for objects of size objSize.
func objectsPerBatch(objSize uintptr) uintptr {
	n := maxBytes / objSize
	if n < 2 {
		n = 2
	}
	if n > 512 {
		n = 512
	}
	return n
}

// pagesPerSpan returns how many pages a freshly carved span for objects of
// size objSize spans: the byte size of one batch rounded down to whole
// pages, at least one. Such a span can hold fewer objects than a batch.
func pagesPerSpan(objSize uintptr) uintptr {
	p := (objectsPerBatch(objSize) * objSize) >> pageShift
	if p < 1 {
		p = 1
	}
	return p
}
