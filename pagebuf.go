// Package pagebuf is the public entry point for the fragmented,
// zero-copy byte-buffer engine: a page-list Buffer over
// reference-counted Regions, with stateful DataReader/LineReader
// cursors layered on top. The heap-backed engine lives in
// internal/buffer/internal/region/internal/page; the mmap-backed
// variant is internal/mmapbuf. This package re-exports just enough of
// that surface to construct and wire the heap-backed pieces together
// without reaching into internal/. The mmap-backed buffer is not
// re-exported; it is reachable only through internal/mmapbuf.
package pagebuf

import (
	"github.com/pagebuf/go-pagebuf/internal/allocator"
	"github.com/pagebuf/go-pagebuf/internal/buffer"
	"github.com/pagebuf/go-pagebuf/internal/reader"
)

// Re-exported types so callers never need to import internal/ paths.
type (
	// Allocator is the plug-in trait every Region/Buffer obtains memory
	// through.
	Allocator = allocator.Allocator

	// AllocatorOption mutates a TrivialAllocator's Config during
	// construction.
	AllocatorOption = allocator.Option

	// Strategy is a buffer's immutable per-instance policy.
	Strategy = buffer.Strategy

	// Buffer is the page-list buffer engine.
	Buffer = buffer.Buffer

	// PageIterator is a (buffer, page) handle.
	PageIterator = buffer.PageIterator

	// ByteIterator is a (buffer, page, page-local offset) handle.
	ByteIterator = buffer.ByteIterator

	// DataReader is a stateful byte-copying read cursor over a Buffer.
	DataReader = reader.DataReader

	// LineReader is a stateful line-splitting read cursor over a Buffer.
	LineReader = reader.LineReader

	// Backend is the surface a reader depends on: satisfied by *Buffer
	// and by the mmap-backed buffer in internal/mmapbuf.
	Backend = buffer.Backend
)

// WithMemoryLimit caps total bytes a TrivialAllocator will hand out.
func WithMemoryLimit(limit uintptr) AllocatorOption { return allocator.WithMemoryLimit(limit) }

// WithTracking enables/disables a TrivialAllocator's allocation
// bookkeeping.
func WithTracking(enabled bool) AllocatorOption { return allocator.WithTracking(enabled) }

// NewTrivialAllocator creates the default, heap-backed Allocator.
func NewTrivialAllocator(opts ...AllocatorOption) Allocator {
	return allocator.New(opts...)
}

// DefaultStrategy returns the trivial buffer's policy: 4096-byte
// pages, no cloning or target-driven fragmentation, nothing rejected.
func DefaultStrategy() Strategy { return buffer.DefaultStrategy() }

// NewBuffer creates an empty Buffer governed by strategy, allocating
// through alloc (the process-wide TrivialAllocator if alloc is nil).
func NewBuffer(strategy Strategy, alloc Allocator) *Buffer {
	return buffer.New(strategy, alloc)
}

// NewDataReader creates a DataReader positioned at buf's head. buf may
// be a *Buffer or any other Backend implementation (the mmap buffer in
// internal/mmapbuf).
func NewDataReader(buf Backend) *DataReader { return reader.NewDataReader(buf) }

// NewLineReader creates a LineReader positioned at buf's head.
func NewLineReader(buf Backend) *LineReader { return reader.NewLineReader(buf) }
