package buffer

// Clear frees every page in the ring, resets size to zero, and bumps
// the revision iff the buffer held any bytes.
func (b *Buffer) Clear() {
	hadData := b.size > 0

	p := b.sentinel.Next
	for p != &b.sentinel {
		next := p.Next
		p.Destroy()
		p = next
	}

	b.sentinel.Next = &b.sentinel
	b.sentinel.Prev = &b.sentinel
	b.size = 0

	if hadData {
		b.revision++
	}
}

// Destroy releases every page and leaves the buffer unusable. Go's
// garbage collector reclaims the Buffer struct itself once the last
// reference to it drops; Destroy's job is only to drop the page/region
// references promptly rather than waiting on a GC cycle.
func (b *Buffer) Destroy() {
	b.Clear()
}
