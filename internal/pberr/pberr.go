// Package pberr defines the sentinel error values shared across the
// buffer engine. Every failure kind from the error-handling design is
// represented here so callers can use errors.Is/errors.As regardless of
// which layer produced the wrapped error.
package pberr

import "errors"

var (
	// ErrOutOfMemory is returned when a struct (zeroed) allocation fails.
	ErrOutOfMemory = errors.New("pagebuf: out of memory")

	// ErrAllocFailed is returned when a region (raw) allocation fails.
	ErrAllocFailed = errors.New("pagebuf: region allocation failed")

	// ErrUnsupportedKind is returned by allocators that only implement a
	// subset of the two allocation kinds (e.g. the mmap allocator never
	// hands out raw region memory of its own).
	ErrUnsupportedKind = errors.New("pagebuf: allocation kind not supported by this allocator")

	// ErrInvalidOpenClose is returned by mmapbuf.Create when the
	// requested open/close action combination is nonsensical.
	ErrInvalidOpenClose = errors.New("pagebuf: invalid open/close action")

	// ErrInsertRejected names a strategy's rejection of an insert into a
	// non-end iterator. No operation returns it: the insert entry points
	// report a rejection as a returned byte count of zero.
	ErrInsertRejected = errors.New("pagebuf: insert rejected by strategy")

	// ErrClosed names use of a buffer or reader after it has been
	// destroyed. No operation checks for that state or returns this
	// error; such use is a caller error (spec §7 "Fatal-only paths").
	ErrClosed = errors.New("pagebuf: use of destroyed buffer")
)
