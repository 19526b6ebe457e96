//go:build linux

package concurmem

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapSystemMemory backs SystemMemory with anonymous mmap, the same
// primitive the Go runtime itself uses for sysAlloc/sysFree on Linux
// (grounded on the pack's mem_linux.go) and the same pattern
// github.com/cznic/memory uses for its userspace allocator.
type mmapSystemMemory struct {
	mu     sync.Mutex
	active map[uintptr][]byte
}

func newDefaultSystemMemory() SystemMemory {
	return &mmapSystemMemory{active: make(map[uintptr][]byte)}
}

func (s *mmapSystemMemory) Alloc(pages uintptr) (unsafe.Pointer, error) {
	n := int(pages * pageSize)
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, err
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	s.mu.Lock()
	s.active[addr] = b
	s.mu.Unlock()
	return unsafe.Pointer(&b[0]), nil
}

func (s *mmapSystemMemory) Free(base unsafe.Pointer, _ uintptr) error {
	addr := uintptr(base)
	s.mu.Lock()
	b, ok := s.active[addr]
	delete(s.active, addr)
	s.mu.Unlock()
	if !ok {
		throw("concurmem: free of a region not obtained from Alloc")
	}
	return unix.Munmap(b)
}
