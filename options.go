package concurmem

import (
	"sync"

	"github.com/rs/zerolog"
)

// assertionsEnabled gates the Misuse checks described in spec.md §7.
// Off by default (release builds); enable with WithAssertions(true) for
// debug builds and tests.
var assertionsEnabled = false

var configureMu sync.Mutex
var pendingSystemMemory SystemMemory

// Option configures package-wide allocator behavior. Options must be
// applied with Configure before the first Alloc/Free call; the
// CentralCache and PageHeap singletons latch their configuration on
// first use, matching the "magic static" initialization-before-first-use
// discipline of the original design (spec.md §9).
type Option func()

// WithAssertions enables or disables the Misuse assertions described in
// spec.md §7. Disabled by default.
func WithAssertions(enabled bool) Option {
	return func() { assertionsEnabled = enabled }
}

// WithLogger overrides the logger used for fatal-path messages.
func WithLogger(l zerolog.Logger) Option {
	return func() { SetLogger(l) }
}

// WithSystemMemory overrides the SystemMemory backing the page heap. It
// has no effect once the page heap has been initialized by a prior
// Alloc/Free call.
func WithSystemMemory(s SystemMemory) Option {
	return func() {
		configureMu.Lock()
		defer configureMu.Unlock()
		pendingSystemMemory = s
	}
}

// Configure applies opts. It must be called before the first Alloc/Free;
// calling it afterward only affects options (like logging) that are read
// on every call, not ones latched at singleton initialization.
func Configure(opts ...Option) {
	for _, opt := range opts {
		opt()
	}
}
