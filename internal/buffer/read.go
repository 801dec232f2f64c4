package buffer

// ReadData copies up to len(dst) bytes from the head of the buffer into
// dst without discarding them; the caller uses Seek to consume what it
// has read. Read never bumps the revision.
func (b *Buffer) ReadData(dst []byte) int {
	limit := clampToSize(len(dst), b.size)

	read := 0
	p := b.sentinel.Next

	for read < limit && p != &b.sentinel {
		n := p.Len
		if read+n > limit {
			n = limit - read
		}

		copy(dst[read:read+n], p.Bytes()[:n])

		read += n
		p = p.Next
	}

	return read
}
