package buffer

import "github.com/pagebuf/go-pagebuf/internal/page"

// Backend is the surface reader.DataReader and reader.LineReader
// depend on, rather than the concrete *Buffer type: it's satisfied
// both by *Buffer itself and by a wrapping backend (internal/mmapbuf's
// Buffer) that overrides a handful of operations while inheriting the
// rest through struct embedding. Without this seam a reader built over
// an mmap-backed buffer would call straight through to the embedded
// *Buffer's own Begin/Seek/Size, bypassing the file-backed overrides
// entirely.
type Backend interface {
	Begin() PageIterator
	End() PageIterator
	BeginByte() ByteIterator
	EndByte() ByteIterator
	Revision() uint64
	Seek(n uint64) uint64
	Size() uint64
}

var _ Backend = (*Buffer)(nil)

// The methods below are not part of the buffer engine's own
// algorithms; they are the seam a backend (the mmap buffer in
// internal/mmapbuf) uses to keep a generic Buffer's page ring in sync
// with a source of truth it doesn't own — a file, in the mmap case.
// None of them touch the revision counter: a backend that needs a
// bump calls BumpRevision itself, once, for whatever coarser-grained
// operation it is implementing (spec §4.7's seek/trim still move the
// revision; extend/rewind still don't).

// AppendBackendPage splices an already-constructed page at the ring's
// tail, bypassing the allocator and the RejectsExtend/RejectsWrite
// strategy checks: it materialises a page that already mirrors bytes
// existing in the backend's own store, rather than allocating new
// storage for new bytes.
func (b *Buffer) AppendBackendPage(p *page.Page) {
	spliceBefore(&b.sentinel, p)
	b.size += uint64(p.Len)
}

// PrependBackendPage is AppendBackendPage's head-side counterpart.
func (b *Buffer) PrependBackendPage(p *page.Page) {
	spliceBefore(b.sentinel.Next, p)
	b.size += uint64(p.Len)
}

// ResetChain releases every page in the ring and zeroes the cached
// size, without touching the revision counter. A backend whose size is
// derived from an external source of truth (e.g. file size minus a
// head offset) calls this before re-materialising the chain lazily.
func (b *Buffer) ResetChain() {
	p := b.sentinel.Next
	for p != &b.sentinel {
		next := p.Next
		p.Destroy()
		p = next
	}

	b.sentinel.Next = &b.sentinel
	b.sentinel.Prev = &b.sentinel
	b.size = 0
}

// BumpRevision increments the revision counter. Exposed for backends
// whose mutating operations (e.g. the mmap buffer's Seek/Trim) don't
// go through the generic growth.go/insert.go/overwrite.go paths that
// otherwise own this bump.
func (b *Buffer) BumpRevision() { b.revision++ }
