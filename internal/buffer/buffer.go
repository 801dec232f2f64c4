// Package buffer implements the page-list buffer engine: an ordered
// chain of page fragments over reference-counted regions, exposing a
// logically contiguous byte sequence plus the monotonic revision
// counter readers rely on for invalidation.
package buffer

import (
	"github.com/pagebuf/go-pagebuf/internal/allocator"
	"github.com/pagebuf/go-pagebuf/internal/page"
)

// Buffer is an ordered ring of pages. The sentinel is a cyclic list
// head whose Next/Prev form the ring; its address also serves as the
// end-iterator marker, following the REDESIGN FLAGS note in spec §9 —
// no raw pointer into page internals is handed out, only handle values
// that compare by identity against &b.sentinel.
type Buffer struct {
	strategy Strategy
	alloc    allocator.Allocator
	sentinel page.Page
	revision uint64
	size     uint64

	frontierForward  FrontierFunc
	frontierBackward FrontierFunc
}

// FrontierFunc attempts to materialise exactly one more unit of data at
// the chain boundary it's responsible for (the tail for a forward hook,
// the head for a backward one). It returns false once there is nothing
// further to map. A backend whose chain is a lazy mirror of an external
// store (internal/mmapbuf's mapped file) wires these in through
// SetFrontierHooks so page/byte iteration, not just bulk reads, stays
// lazy per spec §4.7's page_map_forward/page_map_backward.
type FrontierFunc func() bool

// SetFrontierHooks installs the forward/backward frontier callbacks.
// Either may be nil, in which case the ring behaves exactly as it did
// before this hook existed: a plain, fully in-memory page list.
func (b *Buffer) SetFrontierHooks(forward, backward FrontierFunc) {
	b.frontierForward = forward
	b.frontierBackward = backward
}

// New creates an empty buffer governed by strategy, allocating through
// alloc (allocator.Default if nil).
func New(strategy Strategy, alloc allocator.Allocator) *Buffer {
	if alloc == nil {
		alloc = allocator.Default
	}

	b := &Buffer{strategy: strategy, alloc: alloc}
	b.sentinel.Next = &b.sentinel
	b.sentinel.Prev = &b.sentinel

	return b
}

// Strategy returns the buffer's immutable policy snapshot.
func (b *Buffer) Strategy() Strategy { return b.strategy }

// Size returns the cached total byte count across every page in the
// ring.
func (b *Buffer) Size() uint64 { return b.size }

// Revision returns the monotonic mutation counter. It increases exactly
// when an operation from the revision-changing set (see growth.go,
// insert.go, overwrite.go, clear.go) does non-zero work.
func (b *Buffer) Revision() uint64 { return b.revision }

// PageIterator is a (buffer, page) handle. The zero value is not valid;
// obtain one from Begin/End/Next/Prev.
type PageIterator struct {
	buf *Buffer
	p   *page.Page
}

// Begin returns an iterator at the first page, or an end iterator if
// the buffer is empty. On a buffer with a forward frontier hook and an
// empty ring, it triggers the hook once to materialise the first page
// before handing back the iterator.
func (b *Buffer) Begin() PageIterator {
	if b.sentinel.Next == &b.sentinel && b.frontierForward != nil {
		b.frontierForward()
	}

	return PageIterator{b, b.sentinel.Next}
}

// End returns the distinguished end iterator.
func (b *Buffer) End() PageIterator { return PageIterator{b, &b.sentinel} }

// IsEnd reports whether it is the end iterator.
func (it PageIterator) IsEnd() bool { return it.p == &it.buf.sentinel }

// Eq reports whether two iterators reference the same page.
func (it PageIterator) Eq(other PageIterator) bool { return it.p == other.p }

// Next returns the iterator for the following page (End if it was the
// last page). Advancing past the last currently-materialised page
// triggers the buffer's forward frontier hook, if one is set, before
// the check is made — so a lazily-backed chain grows one page at a
// time under plain forward iteration instead of needing every page
// pre-built.
func (it PageIterator) Next() PageIterator {
	if it.p.Next == &it.buf.sentinel && it.buf.frontierForward != nil {
		it.buf.frontierForward()
	}

	return PageIterator{it.buf, it.p.Next}
}

// Prev returns the iterator for the preceding page. Retreating past the
// first currently-materialised page triggers the backward frontier
// hook, if one is set, the symmetric counterpart to Next's forward one.
func (it PageIterator) Prev() PageIterator {
	if it.p.Prev == &it.buf.sentinel && it.buf.frontierBackward != nil {
		it.buf.frontierBackward()
	}

	return PageIterator{it.buf, it.p.Prev}
}

// Base returns the page's window offset into its region. Meaningless
// (and never called) on an end iterator.
func (it PageIterator) Base() int { return it.p.Base }

// Len returns the page's visible window length; 0 for the end
// iterator, since the sentinel carries no data.
func (it PageIterator) Len() int { return it.p.Len }

// Bytes returns the page's visible window.
func (it PageIterator) Bytes() []byte {
	if it.IsEnd() {
		return nil
	}

	return it.p.Bytes()
}

// ByteIterator is a (buffer, page, page-local offset) handle over
// individual bytes. The end byte-iterator always dereferences to a
// fixed '\0' sentinel rather than touching page storage.
type ByteIterator struct {
	buf *Buffer
	p   *page.Page
	off int
}

// BeginByte returns a byte iterator at the first byte, or the end byte
// iterator if the buffer is empty (size 0 implies Begin() == End(),
// satisfying spec §8's "byte_iterator at a buffer of size 0 equals its
// end iterator"). Triggers the forward frontier hook on an empty ring,
// same as Begin.
func (b *Buffer) BeginByte() ByteIterator {
	if b.sentinel.Next == &b.sentinel && b.frontierForward != nil {
		b.frontierForward()
	}

	return ByteIterator{b, b.sentinel.Next, 0}
}

// EndByte returns the distinguished end byte iterator.
func (b *Buffer) EndByte() ByteIterator { return ByteIterator{b, &b.sentinel, 0} }

// IsEnd reports whether it is the end byte iterator.
func (it ByteIterator) IsEnd() bool { return it.p == &it.buf.sentinel }

// Eq reports whether two byte iterators reference the same byte.
func (it ByteIterator) Eq(other ByteIterator) bool {
	return it.p == other.p && it.off == other.off
}

// CurrentByte dereferences the iterator. The end iterator returns '\0'
// without ever indexing into page storage.
func (it ByteIterator) CurrentByte() byte {
	if it.IsEnd() {
		return 0
	}

	return it.p.Bytes()[it.off]
}

// Next advances by one byte, crossing page boundaries transparently and
// landing on the end iterator once the last page is exhausted. Crossing
// into the unmaterialised tail triggers the forward frontier hook, the
// byte-granular counterpart to PageIterator.Next's page-granular one.
func (it ByteIterator) Next() ByteIterator {
	if it.IsEnd() {
		return it
	}

	off := it.off + 1
	if off < it.p.Len {
		return ByteIterator{it.buf, it.p, off}
	}

	if it.p.Next == &it.buf.sentinel && it.buf.frontierForward != nil {
		it.buf.frontierForward()
	}

	return ByteIterator{it.buf, it.p.Next, 0}
}

// Prev retreats by one byte, crossing page boundaries transparently.
// Calling Prev on the first byte of the buffer returns the same
// iterator unchanged. Retreating past the first materialised page triggers the
// backward frontier hook first, so a lazily-backed chain can still
// extend backward under plain byte-at-a-time retreat.
func (it ByteIterator) Prev() ByteIterator {
	if it.off > 0 {
		return ByteIterator{it.buf, it.p, it.off - 1}
	}

	if it.p.Prev == &it.buf.sentinel && it.buf.frontierBackward != nil {
		it.buf.frontierBackward()
	}

	prevPage := it.p.Prev
	if prevPage == &it.buf.sentinel {
		return it
	}

	return ByteIterator{it.buf, prevPage, prevPage.Len - 1}
}

func spliceBefore(at, p *page.Page) {
	prev := at.Prev
	p.Prev = prev
	p.Next = at
	prev.Next = p
	at.Prev = p
}

func unlink(p *page.Page) {
	p.Prev.Next = p.Next
	p.Next.Prev = p.Prev
	p.Prev = nil
	p.Next = nil
}
