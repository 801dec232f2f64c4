// Package reader implements the stateful cursors layered over a
// Buffer: a plain byte-copying DataReader and a line-splitting
// LineReader. Both auto-reset to the buffer head whenever the buffer's
// revision has moved since their last use, substituting for locking
// per spec §5.
package reader

import "github.com/pagebuf/go-pagebuf/internal/buffer"

// DataReader is a stateful read cursor over a Buffer. It never mutates
// the buffer itself; callers use Consume (or an explicit Seek on the
// buffer) to discard bytes already read.
type DataReader struct {
	buf              buffer.Backend
	it               buffer.PageIterator
	pageOffset       int
	snapshotRevision uint64
}

// NewDataReader creates a reader positioned at buf's head. buf may be
// a plain *buffer.Buffer or any other buffer.Backend (the mmap
// buffer), since every operation here goes through the interface.
func NewDataReader(buf buffer.Backend) *DataReader {
	r := &DataReader{buf: buf}
	r.Reset()

	return r
}

// Reset re-snapshots the buffer's revision and rewinds the cursor to
// the head.
func (r *DataReader) Reset() {
	r.snapshotRevision = r.buf.Revision()
	r.it = r.buf.Begin()
	r.pageOffset = 0
}

func (r *DataReader) checkRevision() {
	if r.buf.Revision() != r.snapshotRevision {
		r.Reset()
	}
}

// Read copies up to len(dst) bytes starting at the cursor, advancing
// across page boundaries. If the buffer's revision has moved since the
// last call, the cursor is silently reset to the head first. When the
// buffer is exhausted mid-call, the cursor parks on the last page at
// its end (page_offset == page.Len) rather than on the sentinel; the
// next Read call advances past that boundary transparently.
func (r *DataReader) Read(dst []byte) int {
	r.checkRevision()

	read := 0

	for read < len(dst) {
		if r.it.IsEnd() {
			break
		}

		pageLen := r.it.Len()
		if r.pageOffset >= pageLen {
			next := r.it.Next()
			if next.IsEnd() {
				break
			}

			r.it = next
			r.pageOffset = 0
			pageLen = r.it.Len()
		}

		avail := pageLen - r.pageOffset

		n := len(dst) - read
		if n > avail {
			n = avail
		}

		copy(dst[read:read+n], r.it.Bytes()[r.pageOffset:r.pageOffset+n])

		read += n
		r.pageOffset += n
	}

	return read
}

// Consume reads into dst, then discards from the underlying buffer the
// exact number of bytes traversed to produce that read (spec §4.6).
func (r *DataReader) Consume(dst []byte) int {
	n := r.Read(dst)
	if n > 0 {
		r.buf.Seek(uint64(n))
	}

	return n
}

// Clone returns a byte-for-byte copy of the cursor state.
func (r *DataReader) Clone() *DataReader {
	c := *r

	return &c
}
