package concurmem

import "unsafe"

// SystemMemory is the OS page-granular virtual-memory primitive the page
// heap is built on (spec.md §6, "external collaborator" in §1). It is
// the only thing in this package that talks to the operating system.
//
// Alloc must return a page-aligned region of pages*pageSize bytes,
// readable and writable; initial contents are unspecified. Failure is
// fatal to the caller (spec.md §7's OutOfMemory kind), not recoverable
// at this layer.
type SystemMemory interface {
	Alloc(pages uintptr) (unsafe.Pointer, error)
	Free(base unsafe.Pointer, pages uintptr) error
}
