package mmapbuf

import (
	"fmt"
	"os"

	"github.com/pagebuf/go-pagebuf/internal/allocator"
	"github.com/pagebuf/go-pagebuf/internal/buffer"
	"github.com/pagebuf/go-pagebuf/internal/page"
	"github.com/pagebuf/go-pagebuf/internal/pberr"
)

// Buffer wraps the generic buffer engine to back its page chain with a
// memory-mapped file instead of heap extents. Its logical size is the
// file's size minus head_offset, not the cached page-chain total the
// embedded *buffer.Buffer keeps. Size reads it from the file; the bulk
// accessors materialise the span of the chain they need first.
type Buffer struct {
	*buffer.Buffer

	alloc      *Allocator
	headOffset int64

	// frontOffset is the forward frontier: everything in
	// [headOffset, frontOffset) is already spliced into the chain from
	// the head side. backOffset is the backward frontier: everything in
	// [backOffset, <file size at last reset>) is already spliced in
	// from the tail side. A freshly reset chain starts both at
	// headOffset and the current file size respectively (nothing
	// mapped); the forward and backward frontier hooks each narrow the
	// gap between them by one mapped unit per call, meeting once the
	// whole file is covered.
	frontOffset int64
	backOffset  int64
}

var _ buffer.Backend = (*Buffer)(nil)

// mmapStrategy is the fixed policy every mmap buffer runs under (spec
// §4.5): target-driven fragmentation and clone-on-write, and insertion
// refused outright since the backend's only supported growth path is
// file truncation, not arbitrary page splicing. The two transfer flags
// are read from the receiving buffer's strategy; this backend's own
// WriteBuffer copies through the file and does not consult them.
func mmapStrategy() buffer.Strategy {
	return buffer.Strategy{
		CloneOnWrite:     true,
		FragmentAsTarget: true,
		RejectsInsert:    true,
	}
}

// Create opens (or creates) the file at path per openAction and
// returns a Buffer backed by it. inner, if non-nil, is the allocator
// the mmap allocator delegates KindStruct allocations to;
// allocator.Default is used otherwise. Page and Buffer headers are
// ordinary Go values and do not go through it.
func Create(path string, openAction OpenAction, closeAction CloseAction, inner allocator.Allocator) (*Buffer, error) {
	if openAction != OpenAppend && openAction != OpenOverwrite {
		return nil, pberr.ErrInvalidOpenClose
	}

	if closeAction != CloseRetain && closeAction != CloseRemove {
		return nil, pberr.ErrInvalidOpenClose
	}

	flags := os.O_RDWR | os.O_CREATE
	if openAction == OpenOverwrite {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0o640)
	if err != nil {
		return nil, fmt.Errorf("pagebuf: mmap open %s: %w", path, err)
	}

	// OpenAppend's buffer starts with empty logical content sitting
	// past whatever the file already held: head_offset is set to the
	// file's size at open time rather than left at 0, so that prior
	// content isn't silently re-exposed as the buffer's own bytes.
	var headOffset int64
	if openAction == OpenAppend {
		st, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("pagebuf: mmap stat %s: %w", path, err)
		}

		headOffset = st.Size()
	}

	a := newAllocator(f, path, closeAction, inner)

	b := &Buffer{Buffer: buffer.New(mmapStrategy(), a), alloc: a, headOffset: headOffset}
	b.resetFrontier()
	b.Buffer.SetFrontierHooks(b.mapForward, b.mapBackward)

	return b, nil
}

func (b *Buffer) fileSize() (int64, error) {
	st, err := b.alloc.file.Stat()
	if err != nil {
		return 0, err
	}

	return st.Size(), nil
}

// Size overrides the embedded buffer's cached page-chain total: an
// mmap buffer's logical size is derived from the file (spec §4.7),
// since the chain itself is only ever a lazily-built mirror of it.
func (b *Buffer) Size() uint64 {
	sz, err := b.fileSize()
	if err != nil || sz < b.headOffset {
		return 0
	}

	return uint64(sz - b.headOffset)
}

// materializeThrough drops the cached chain and rebuilds it covering
// [headOffset, limit), clamped to the current file size. Used by the
// bulk byte-copying operations (ReadData/OverwriteData/OverwriteBuffer),
// which walk the chain's raw page pointers directly rather than through
// PageIterator/ByteIterator and so can't benefit from the frontier
// hooks' per-step laziness — they still only ever map the span they
// were actually asked for, never the whole remaining file.
func (b *Buffer) materializeThrough(limit int64) error {
	fsize, err := b.fileSize()
	if err != nil {
		return err
	}

	if limit > fsize {
		limit = fsize
	}

	b.Buffer.ResetChain()

	offset := b.headOffset
	for offset < limit {
		p, next, err := b.alloc.PageForward(offset, fsize)
		if err != nil {
			return err
		}

		if p == nil {
			break
		}

		b.Buffer.AppendBackendPage(p)
		offset = next
	}

	b.frontOffset = offset
	b.backOffset = fsize

	return nil
}

// resetFrontier drops the chain's forward/backward bookkeeping back to
// "nothing mapped yet": the forward frontier sits at head_offset, the
// backward one at the current file size. Called whenever an operation
// invalidates the chain's relationship to the file (Seek, Trim, Clear,
// or Create's initial state).
func (b *Buffer) resetFrontier() {
	fsize, err := b.fileSize()
	if err != nil {
		fsize = b.headOffset
	}

	b.frontOffset = b.headOffset
	b.backOffset = fsize

	if b.backOffset < b.frontOffset {
		b.backOffset = b.frontOffset
	}
}

// mapForward is the buffer.FrontierFunc a page/byte iterator calls when
// it advances past whatever the chain currently covers from the head
// side. It maps exactly one more mapping unit, per spec.md §4.7's
// page_map_forward.
func (b *Buffer) mapForward() bool {
	fsize, err := b.fileSize()
	if err != nil {
		return false
	}

	limit := fsize
	if b.backOffset < limit {
		limit = b.backOffset
	}

	if b.frontOffset >= limit {
		return false
	}

	p, next, err := b.alloc.PageForward(b.frontOffset, fsize)
	if err != nil || p == nil {
		return false
	}

	// PageForward maps a whole mapping unit and has no notion of the
	// backward frontier; if that unit reaches past it (the two
	// frontiers meeting mid-unit), shorten the page so the two
	// directions never cover the same byte twice.
	if next > limit {
		p.Len -= int(next - limit)
		next = limit
	}

	if p.Len <= 0 {
		p.Destroy()
		return false
	}

	b.Buffer.AppendBackendPage(p)
	b.frontOffset = next

	return true
}

// mapBackward is the buffer.FrontierFunc a page/byte iterator calls
// when it retreats past whatever the chain currently covers from the
// tail side. It maps exactly one more mapping unit, per spec.md §4.7's
// page_map_backward.
func (b *Buffer) mapBackward() bool {
	if b.backOffset <= b.frontOffset {
		return false
	}

	fsize, err := b.fileSize()
	if err != nil {
		return false
	}

	p, start, err := b.alloc.PageBackward(b.backOffset, b.frontOffset, fsize)
	if err != nil || p == nil {
		return false
	}

	b.Buffer.PrependBackendPage(p)
	b.backOffset = start

	return true
}

// Extend grows the file by n bytes via truncate; new bytes read back
// as zero until overwritten, matching ftruncate's hole semantics.
// Never bumps the revision (spec §4.7, consistent with the generic
// engine's Extend).
func (b *Buffer) Extend(n int) int {
	if b.Buffer.Strategy().RejectsExtend || n <= 0 {
		return 0
	}

	fsize, err := b.fileSize()
	if err != nil {
		return 0
	}

	if err := b.alloc.file.Truncate(fsize + int64(n)); err != nil {
		return 0
	}

	// The backward frontier sat at the old end of file; if nothing had
	// been mapped backward yet (the common case) it tracks the file's
	// end and must move out with it, or the newly-extended span would
	// never become reachable by backward iteration.
	if b.backOffset >= fsize {
		b.backOffset = fsize + int64(n)
	}

	return n
}

// Reserve grows the file just enough that Size() >= size.
func (b *Buffer) Reserve(size uint64) int {
	cur := b.Size()
	if cur >= size {
		return 0
	}

	return b.Extend(int(size - cur))
}

// Rewind moves head_offset back by up to n bytes, exposing previously
// seeked-past file content again. Never bumps the revision. The chain
// is dropped and its frontiers reset since head_offset moving changes
// which file span offset 0 of the buffer now refers to.
func (b *Buffer) Rewind(n int) int {
	if b.Buffer.Strategy().RejectsRewind || n <= 0 {
		return 0
	}

	if int64(n) > b.headOffset {
		n = int(b.headOffset)
	}

	b.headOffset -= int64(n)
	b.Buffer.ResetChain()
	b.resetFrontier()

	return n
}

// Seek moves head_offset forward by up to n bytes, discarding that much
// logical content from the head. Bumps the revision iff it moved. The
// chain is dropped and its frontiers reset for the same reason as
// Rewind: the pages it held windowed a span that's no longer the
// buffer's head.
func (b *Buffer) Seek(n uint64) uint64 {
	if b.Buffer.Strategy().RejectsSeek {
		return 0
	}

	sz := b.Size()
	if n > sz {
		n = sz
	}

	b.headOffset += int64(n)

	if n > 0 {
		b.Buffer.ResetChain()
		b.resetFrontier()
		b.Buffer.BumpRevision()
	}

	return n
}

// Trim shrinks the file by up to n bytes from its end, retiring any
// mapping that straddled the new end so it's rebuilt shorter on next
// use. Bumps the revision iff it shrank anything. The chain is dropped
// and its frontiers reset to the file's new, shorter size.
func (b *Buffer) Trim(n uint64) uint64 {
	if b.Buffer.Strategy().RejectsTrim {
		return 0
	}

	sz := b.Size()
	if n > sz {
		n = sz
	}

	if n == 0 {
		return 0
	}

	fsize, err := b.fileSize()
	if err != nil {
		return 0
	}

	newSize := fsize - int64(n)
	if newSize < b.headOffset {
		newSize = b.headOffset
	}

	if err := b.alloc.file.Truncate(newSize); err != nil {
		return 0
	}

	b.alloc.invalidatePast(newSize)
	b.Buffer.ResetChain()
	b.resetFrontier()
	b.Buffer.BumpRevision()

	return n
}

// ReadData materialises just enough of the chain to cover the
// requested span — [head_offset, head_offset+len(dst)) — then reads
// through the generic engine. Unlike a whole-file materialisation, a
// short read against a large mapped file only ever maps the handful of
// mapping units it actually needs.
func (b *Buffer) ReadData(dst []byte) int {
	if err := b.materializeThrough(b.headOffset + int64(len(dst))); err != nil {
		return 0
	}

	return b.Buffer.ReadData(dst)
}

// OverwriteData materialises the chain through the span it overwrites,
// then overwrites through the generic engine. The mapped pages it
// overwrites are neither IsTransfer nor Borrowed, so the writes land
// directly in the mapped file pages without a clone-in-place copy.
func (b *Buffer) OverwriteData(data []byte) int {
	if err := b.materializeThrough(b.headOffset + int64(len(data))); err != nil {
		return 0
	}

	return b.Buffer.OverwriteData(data)
}

// OverwriteBuffer is OverwriteData's source-from-another-buffer form.
func (b *Buffer) OverwriteBuffer(src *buffer.Buffer, n int) int {
	if err := b.materializeThrough(b.headOffset + int64(n)); err != nil {
		return 0
	}

	return b.Buffer.OverwriteBuffer(src, n)
}

// Begin and BeginByte are inherited as-is from the embedded
// *buffer.Buffer: its frontier-hook-aware implementations (see
// mapForward, wired in by Create) lazily map the first mapping unit on
// first use and further units one at a time as the returned iterator
// advances, rather than eagerly materialising the whole file.

// InsertPage, InsertData, InsertDataRef and InsertBuffer are always
// refused: the mmap backend's only supported growth path is Extend
// (file truncate) followed by Write, never arbitrary page splicing
// (spec §4.7 "Insertion is rejected").
func (b *Buffer) InsertPage(_ buffer.PageIterator, _ int, _ *page.Page) int { return 0 }

// InsertData refuses insertion; see InsertPage.
func (b *Buffer) InsertData(_ buffer.PageIterator, _ int, _ []byte) int { return 0 }

// InsertDataRef refuses insertion; see InsertPage.
func (b *Buffer) InsertDataRef(_ buffer.PageIterator, _ int, _ []byte) int { return 0 }

// InsertBuffer refuses insertion; see InsertPage.
func (b *Buffer) InsertBuffer(_ buffer.PageIterator, _ int, _ *buffer.Buffer, _ int) int { return 0 }

// WriteData appends data to the file at its current end.
func (b *Buffer) WriteData(data []byte) int {
	if b.Buffer.Strategy().RejectsWrite || len(data) == 0 {
		return 0
	}

	fsize, err := b.fileSize()
	if err != nil {
		return 0
	}

	n, err := b.alloc.file.WriteAt(data, fsize)
	if n == 0 && err != nil {
		return 0
	}

	// Same reasoning as Extend: the backward frontier tracking the old
	// end of file has to move out with it, or the newly-written bytes
	// would be invisible to backward iteration until the next full
	// chain reset.
	if b.backOffset >= fsize {
		b.backOffset = fsize + int64(n)
	}

	return n
}

// WriteDataRef behaves identically to WriteData: the mmap backend has
// no borrowed-region fast path for writes, since every write lands in
// the file regardless of how the caller's slice was sourced.
func (b *Buffer) WriteDataRef(data []byte) int { return b.WriteData(data) }

// WriteBuffer reads up to n bytes from src's head (non-destructively)
// and appends them to the file.
func (b *Buffer) WriteBuffer(src *buffer.Buffer, n int) int {
	if b.Buffer.Strategy().RejectsWrite || n <= 0 {
		return 0
	}

	if uint64(n) > src.Size() {
		n = int(src.Size())
	}

	if n <= 0 {
		return 0
	}

	tmp := make([]byte, n)
	r := src.ReadData(tmp)

	return b.WriteData(tmp[:r])
}

// Clear truncates the file back to head_offset, discarding all content
// at or after it. Bumps the revision iff there was anything to clear.
func (b *Buffer) Clear() {
	had := b.Size() > 0

	_ = b.alloc.file.Truncate(b.headOffset)
	b.alloc.invalidatePast(b.headOffset)
	b.Buffer.ResetChain()
	b.resetFrontier()

	if had {
		b.Buffer.BumpRevision()
	}
}

// Destroy drops the chain and releases the allocator's file handle.
func (b *Buffer) Destroy() {
	b.Buffer.ResetChain()
	b.alloc.Put()
}
