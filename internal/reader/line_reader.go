package reader

import "github.com/pagebuf/go-pagebuf/internal/buffer"

// MaxLine is the upper bound on a single line's length; reaching it
// forces a line to be declared regardless of any pending CR credit
// (spec §3 Line-reader cursor invariant).
const MaxLine = 16 * 1024 * 1024

// LineReader detects LF-terminated lines over a Buffer, with optional
// CR credit (a line ending in "\r\n" reports the same length as one
// ending in "\n" alone, with the CR excluded).
type LineReader struct {
	buf buffer.Backend

	start buffer.ByteIterator
	cur   buffer.ByteIterator

	offset  int
	hasCR   bool
	hasLine bool
	lineLen int

	// newlineTerminated distinguishes a line ended by a real '\n' byte
	// from one forced by TerminateLine*/TerminateLineCheckCR at buffer
	// end; IsCRLF only reports true for the former.
	newlineTerminated bool

	terminated   bool
	terminatedCR bool

	snapshotRevision uint64
}

// NewLineReader creates a reader positioned at buf's head. buf may be
// a plain *buffer.Buffer or any other buffer.Backend (the mmap
// buffer).
func NewLineReader(buf buffer.Backend) *LineReader {
	r := &LineReader{buf: buf}
	r.Reset()

	return r
}

// Reset re-snapshots the buffer's revision and returns to IDLE at the
// buffer head (see the state machine in spec §4.6).
func (r *LineReader) Reset() {
	r.snapshotRevision = r.buf.Revision()
	r.start = r.buf.BeginByte()
	r.cur = r.start
	r.offset = 0
	r.hasCR = false
	r.hasLine = false
	r.lineLen = 0
	r.newlineTerminated = false
	r.terminated = false
	r.terminatedCR = false
}

func (r *LineReader) checkRevision() {
	if r.buf.Revision() != r.snapshotRevision {
		r.Reset()
	}
}

// TerminateLine tells the reader that no further bytes are coming: if
// scanning reaches buffer end without finding '\n', declare a line of
// exactly the bytes scanned, with no CR credit.
func (r *LineReader) TerminateLine() {
	r.terminated = true
	r.terminatedCR = false
}

// TerminateLineCheckCR is TerminateLine, except a trailing '\r'
// immediately before buffer end is credited (excluded from the
// declared line length) the same way a real "\r\n" would be.
func (r *LineReader) TerminateLineCheckCR() {
	r.terminated = true
	r.terminatedCR = true
}

// HasLine scans forward from the cursor looking for a line. It is
// idempotent: once a line is ready it keeps returning true (and the
// same line) until SeekLine or Reset.
//
// When the scan reaches the buffer's end without a line and neither
// TerminateLine nor TerminateLineCheckCR has been called, the cursor
// stays on the last byte instead of moving onto the end iterator; that
// byte is scanned again on the next call, so bytes appended in the
// meantime are picked up. The cursor is never stepped back with Prev,
// so an empty buffer needs no special case (open question #4 in spec
// §9): HasLine returns false there, or declares an empty line once
// terminated.
func (r *LineReader) HasLine() bool {
	r.checkRevision()

	if r.hasLine {
		return true
	}

	for {
		if r.cur.IsEnd() {
			if !r.terminated {
				return false
			}

			length := r.offset
			if r.terminatedCR && r.hasCR && length > 0 {
				length--
			}

			r.lineLen = length
			r.hasLine = true
			r.newlineTerminated = false

			return true
		}

		b := r.cur.CurrentByte()

		if b == '\n' {
			length := r.offset
			if r.hasCR {
				length--
			}

			r.lineLen = length
			r.hasLine = true
			r.newlineTerminated = true
			r.cur = r.cur.Next()
			r.offset++

			return true
		}

		r.hasCR = b == '\r'

		next := r.cur.Next()
		if next.IsEnd() && !r.terminated && r.offset+1 < MaxLine {
			return false
		}

		r.cur = next
		r.offset++

		if r.offset >= MaxLine {
			r.lineLen = r.offset
			r.hasLine = true
			r.newlineTerminated = false

			return true
		}
	}
}

// GetLineLen returns the ready line's length, excluding its terminator.
// Returns 0 if no line is ready.
func (r *LineReader) GetLineLen() int {
	r.checkRevision()

	if !r.hasLine {
		return 0
	}

	return r.lineLen
}

// GetLineData copies up to len(dst) bytes of the ready line (capped at
// its length) into dst, starting from the line's first byte.
func (r *LineReader) GetLineData(dst []byte) int {
	r.checkRevision()

	if !r.hasLine {
		return 0
	}

	n := len(dst)
	if n > r.lineLen {
		n = r.lineLen
	}

	it := r.start
	for i := 0; i < n; i++ {
		dst[i] = it.CurrentByte()
		it = it.Next()
	}

	return n
}

// IsCRLF reports whether the ready line's terminator was a real
// "\r\n" pair, as opposed to a bare "\n", a MaxLine cutoff, or an
// end-of-buffer-forced line.
func (r *LineReader) IsCRLF() bool {
	r.checkRevision()

	if !r.hasLine || !r.newlineTerminated {
		return false
	}

	return r.offset-r.lineLen == 2
}

// IsEnd reports whether the scan cursor currently sits at the buffer's
// end iterator.
func (r *LineReader) IsEnd() bool {
	r.checkRevision()

	return r.cur.IsEnd()
}

// SeekLine consumes the ready line and its terminator from the
// underlying buffer (just the line bytes if the line was declared at
// end-of-buffer, since no terminator exists there), then resets the
// reader to IDLE at the new head.
func (r *LineReader) SeekLine() uint64 {
	r.checkRevision()

	if !r.hasLine {
		return 0
	}

	consume := r.offset
	if r.cur.IsEnd() && !r.newlineTerminated {
		consume = r.lineLen
	}

	n := r.buf.Seek(uint64(consume))
	r.Reset()

	return n
}

// Clone returns a byte-for-byte copy of the cursor state.
func (r *LineReader) Clone() *LineReader {
	c := *r

	return &c
}

// Destroy releases the reader. It holds no resources of its own beyond
// the buffer reference, so this is a no-op kept for surface parity
// with the spec's public interface (§6).
func (r *LineReader) Destroy() {}
