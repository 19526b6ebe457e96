package concurmem

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// ErrorKind classifies the allocator's error taxonomy (spec.md §7).
type ErrorKind int

const (
	// OutOfMemory means the OS denied a page request. Fatal.
	OutOfMemory ErrorKind = iota
	// Misuse means the caller violated the contract (double free, bad
	// pointer). Span-state checks run only with WithAssertions(true);
	// Free of a pointer with no owning span is always reported as fatal.
	Misuse
	// InternalAssertion means an invariant was violated inside the
	// allocator itself. Fatal.
	InternalAssertion
)

func (k ErrorKind) String() string {
	switch k {
	case OutOfMemory:
		return "out of memory"
	case Misuse:
		return "misuse"
	case InternalAssertion:
		return "internal assertion"
	default:
		return "unknown"
	}
}

// AllocError wraps a fatal allocator error with its kind.
type AllocError struct {
	Kind ErrorKind
	Err  error
}

func (e *AllocError) Error() string { return fmt.Sprintf("concurmem: %s: %v", e.Kind, e.Err) }
func (e *AllocError) Unwrap() error { return e.Err }

// fatal logs and terminates the process. Per spec.md §7, OutOfMemory and
// InternalAssertion are unrecoverable: partial recovery would leave the
// radix tree and span lists in an undefined state, so there is no
// meaningful way to return an error to the caller.
func fatal(kind ErrorKind, err error) {
	aerr := &AllocError{Kind: kind, Err: err}
	logger().Error().Stack().Err(aerr).Msg("concurmem: fatal error")
	fmt.Fprintln(os.Stderr, aerr.Error())
	os.Exit(2)
}

// fatalOOM wraps err with call-site context and terminates the process.
func fatalOOM(err error) {
	fatal(OutOfMemory, errors.Wrap(err, "system memory request failed"))
}

// throw reports an internal invariant violation and terminates the
// process. It mirrors the Go runtime's own throw: callers never expect
// it to return.
func throw(msg string) {
	fatal(InternalAssertion, errors.New(msg))
}

// assert panics with a Misuse error when cond is false and assertions are
// enabled (see WithAssertions). It is a no-op otherwise, matching the
// "should assert in debug builds" guidance in spec.md §7.
func assert(cond bool, msg string) {
	if !cond && assertionsEnabled {
		panic(&AllocError{Kind: Misuse, Err: errors.New(msg)})
	}
}
